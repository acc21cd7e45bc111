package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/sitewright/internal/catalog"
	"github.com/hyperjump/sitewright/internal/storage"
)

// Sheet names of the catalog export workbook.
const (
	TemplatesSheet = "Templates"
	RunsSheet      = "Runs"
)

var (
	templateHeaders = []string{"id", "title", "kind", "categories", "tags", "variables", "elements", "text_elements", "image_elements", "max_depth"}
	runHeaders      = []string{"run_id", "created_at", "status", "business", "category", "template_id", "fallbacks", "elapsed_ms", "error"}
)

// ExportCatalog writes an XLSX inventory of the catalog, plus recent runs when
// any are given, to w.
func ExportCatalog(w io.Writer, summaries []catalog.Summary, runs []*storage.Run) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TemplatesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRow(f, TemplatesSheet, 1, toAny(templateHeaders)); err != nil {
		return err
	}
	for i, s := range summaries {
		row := []interface{}{
			s.ID,
			s.Title,
			string(s.Kind),
			strings.Join(s.Categories, ", "),
			strings.Join(s.Tags, ", "),
			strings.Join(s.Variables, ", "),
			s.Stats.TotalElements,
			s.Stats.TextElementCount,
			s.Stats.ImageElementCount,
			s.Stats.MaxDepth,
		}
		if err := writeRow(f, TemplatesSheet, i+2, row); err != nil {
			return err
		}
	}

	if len(runs) > 0 {
		if _, err := f.NewSheet(RunsSheet); err != nil {
			return fmt.Errorf("create sheet: %w", err)
		}
		if err := writeRow(f, RunsSheet, 1, toAny(runHeaders)); err != nil {
			return err
		}
		for i, run := range runs {
			row := []interface{}{
				run.Report.RunID,
				run.CreatedAt.UTC().Format(time.RFC3339),
				string(run.Report.Status),
				run.Profile.Name,
				run.Profile.Category,
				run.Report.MatchedTemplateID,
				strings.Join(run.Report.FallbacksUsed, ", "),
				run.Report.ElapsedMs,
				run.Report.Error,
			}
			if err := writeRow(f, RunsSheet, i+2, row); err != nil {
				return err
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toAny(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
