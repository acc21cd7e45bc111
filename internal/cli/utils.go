// Package cli provides output helpers for the sitewright command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hyperjump/sitewright/internal/catalog"
	"github.com/hyperjump/sitewright/internal/models"
	"github.com/hyperjump/sitewright/internal/orchestrator"
	"github.com/hyperjump/sitewright/internal/ranking"
	"github.com/hyperjump/sitewright/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --format flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

const rule = "─────────────────────────────────────────────────────────"

// MatchRow is the JSON view of one ranked template.
type MatchRow struct {
	Rank       int      `json:"rank"`
	TemplateID string   `json:"template_id"`
	Title      string   `json:"title"`
	Score      float64  `json:"score"`
	Reasons    []string `json:"reasons"`
}

// WriteMatchResults writes ranked templates to w in the given format.
func WriteMatchResults(w io.Writer, results []*ranking.MatchResult, format OutputFormat) error {
	rows := make([]MatchRow, 0, len(results))
	for i, res := range results {
		reasons := res.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		rows = append(rows, MatchRow{
			Rank:       i + 1,
			TemplateID: res.Document.ID,
			Title:      res.Document.Title,
			Score:      res.Score,
			Reasons:    reasons,
		})
	}
	if format == OutputJSON {
		return encodeJSON(w, map[string]interface{}{"results": rows})
	}

	fmt.Fprintf(w, "\nFound %d matching templates\n\n", len(rows))
	for _, row := range rows {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Rank: %d | Score: %.2f\n", row.Rank, row.Score)
		fmt.Fprintf(w, "ID: %s\n", row.TemplateID)
		if row.Title != "" {
			fmt.Fprintf(w, "Title: %s\n", row.Title)
		}
		for _, reason := range row.Reasons {
			fmt.Fprintf(w, "  - %s\n", reason)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteResult writes a generation result. JSON output carries the personalized
// document; text output summarizes the run report.
func WriteResult(w io.Writer, res *orchestrator.Result, format OutputFormat) error {
	if format == OutputJSON {
		out := struct {
			*orchestrator.Result
			Error string `json:"error,omitempty"`
		}{Result: res}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		return encodeJSON(w, out)
	}

	r := res.Report
	fmt.Fprintf(w, "\nRun %s: %s in %dms\n", r.RunID, r.Status, r.ElapsedMs)
	if r.MatchedTemplateID != "" {
		fmt.Fprintf(w, "Template: %s\n", r.MatchedTemplateID)
	}
	if len(r.VariablesUsed) > 0 {
		fmt.Fprintf(w, "Variables: %s\n", strings.Join(r.VariablesUsed, ", "))
	}
	if len(r.FallbacksUsed) > 0 {
		fmt.Fprintf(w, "Defaults used for: %s\n", strings.Join(r.FallbacksUsed, ", "))
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Error)
	}
	if c := res.Content; c != nil {
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "Headline: %s\n", c.Headline)
		fmt.Fprintf(w, "Tagline: %s\n", c.Tagline)
		fmt.Fprintf(w, "About: %s\n", utils.TruncateWords(c.About, 30))
		for i, s := range c.Services {
			fmt.Fprintf(w, "Service %d: %s\n", i+1, s.Title)
		}
	}
	fmt.Fprintln(w)
	return nil
}

// WriteTemplates writes the catalog inventory.
func WriteTemplates(w io.Writer, summaries []catalog.Summary, format OutputFormat) error {
	if format == OutputJSON {
		if summaries == nil {
			summaries = []catalog.Summary{}
		}
		return encodeJSON(w, map[string]interface{}{"templates": summaries, "total": len(summaries)})
	}
	fmt.Fprintf(w, "\n%d templates\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(w, "%-24s %-8s %s\n", utils.Truncate(s.ID, 24), s.Kind, s.Title)
		if len(s.Categories) > 0 {
			fmt.Fprintf(w, "    categories: %s\n", strings.Join(s.Categories, ", "))
		}
		fmt.Fprintf(w, "    elements: %d, variables: %d\n", s.Stats.TotalElements, len(s.Variables))
	}
	fmt.Fprintln(w)
	return nil
}

// ProgressWriter returns a sink that prints one line per progress event.
func ProgressWriter(w io.Writer) orchestrator.ProgressSink {
	var mu sync.Mutex
	return orchestrator.ProgressFunc(func(ev models.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "[%3d%%] %s: %s\n", ev.Percent, ev.Stage, ev.Message)
	})
}

func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
