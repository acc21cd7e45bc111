package document

import (
	"fmt"

	"github.com/hyperjump/sitewright/internal/models"
)

// Validate checks the tree invariants of a document built or mutated in code:
// unique ids, widget kind present iff the element is a leaf, no children on
// leaves, and nesting within DefaultMaxDepth.
func Validate(doc *Document) error {
	if doc == nil {
		return &models.MalformedError{Reason: "nil document"}
	}
	seen := make(map[string]bool)
	var err error
	Walk(doc, func(el *Element, depth int) bool {
		if err != nil {
			return false
		}
		switch {
		case el.ID == "":
			err = &models.MalformedError{Reason: "element without id"}
		case seen[el.ID]:
			err = &models.MalformedError{Path: el.ID, Reason: "duplicate element id"}
		case el.Kind == KindLeaf && el.WidgetKind == "":
			err = &models.MalformedError{Path: el.ID, Reason: "leaf without widget kind"}
		case el.Kind != KindLeaf && el.WidgetKind != "":
			err = &models.MalformedError{Path: el.ID, Reason: fmt.Sprintf("%s carries widget kind", el.Kind)}
		case el.Kind == KindLeaf && len(el.Children) > 0:
			err = &models.MalformedError{Path: el.ID, Reason: "leaf with children"}
		case depth > DefaultMaxDepth:
			err = &models.MalformedError{Path: el.ID, Reason: "nesting too deep"}
		}
		seen[el.ID] = true
		return err == nil
	})
	return err
}
