// Package document provides the page-builder document model: a typed element
// tree with ordered settings, plus parse, serialize, search and update primitives.
package document

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the structural role of an element in the tree.
type Kind int

const (
	// KindContainer is a top-level layout block (builder "section").
	KindContainer Kind = iota
	// KindGroup is a grouping block inside a container (builder "column").
	KindGroup
	// KindLeaf is a widget; only leaves carry a widget kind.
	KindLeaf
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindGroup:
		return "group"
	case KindLeaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// builderName is the page-builder vocabulary used on the wire.
func (k Kind) builderName() string {
	switch k {
	case KindContainer:
		return "section"
	case KindGroup:
		return "column"
	default:
		return "widget"
	}
}

// ParseKind accepts both builder (section/column/widget) and abstract
// (container/group/leaf) names.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "section", "container":
		return KindContainer, nil
	case "column", "group":
		return KindGroup, nil
	case "widget", "leaf":
		return KindLeaf, nil
	default:
		return 0, fmt.Errorf("unknown element type %q", s)
	}
}

// Element is one node of the document tree.
type Element struct {
	ID         string
	Kind       Kind
	WidgetKind string // only set on leaves
	Settings   *Settings
	Children   []*Element // nil on leaves
}

// Clone returns a deep copy of the element and its subtree.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	out := &Element{
		ID:         e.ID,
		Kind:       e.Kind,
		WidgetKind: e.WidgetKind,
		Settings:   e.Settings.Clone(),
	}
	if e.Children != nil {
		out.Children = make([]*Element, len(e.Children))
		for i, c := range e.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// DocumentKind is the granularity of a template.
type DocumentKind string

const (
	DocumentPage    DocumentKind = "page"
	DocumentSection DocumentKind = "section"
	DocumentWidget  DocumentKind = "widget"
)

// Customizable flags which mutation classes a document permits.
type Customizable struct {
	Colors  bool `json:"colors"`
	Fonts   bool `json:"fonts"`
	Content bool `json:"content"`
	Images  bool `json:"images"`
}

// AllCustomizable returns flags with every mutation class enabled.
func AllCustomizable() Customizable {
	return Customizable{Colors: true, Fonts: true, Content: true, Images: true}
}

// Palette is a named color scheme. Empty roles are undefined.
type Palette struct {
	Primary    string `json:"primary,omitempty" yaml:"primary"`
	Secondary  string `json:"secondary,omitempty" yaml:"secondary"`
	Accent     string `json:"accent,omitempty" yaml:"accent"`
	Text       string `json:"text,omitempty" yaml:"text"`
	Background string `json:"background,omitempty" yaml:"background"`
}

// Role returns the color assigned to a palette role name.
func (p Palette) Role(role string) string {
	switch role {
	case "primary":
		return p.Primary
	case "secondary":
		return p.Secondary
	case "accent":
		return p.Accent
	case "text":
		return p.Text
	case "background":
		return p.Background
	default:
		return ""
	}
}

// Document is a named, categorized element forest plus capability metadata.
type Document struct {
	ID                   string
	Title                string
	Kind                 DocumentKind
	Builder              string
	Version              string
	Categories           []string
	Tags                 []string
	Content              []*Element
	Customizable         Customizable
	ColorScheme          *Palette
	RequiredCapabilities []string
}

// Clone returns a deep copy so the original stays untouched by mutation.
func Clone(doc *Document) *Document {
	if doc == nil {
		return nil
	}
	out := *doc
	out.Categories = cloneStrings(doc.Categories)
	out.Tags = cloneStrings(doc.Tags)
	out.RequiredCapabilities = cloneStrings(doc.RequiredCapabilities)
	if doc.ColorScheme != nil {
		p := *doc.ColorScheme
		out.ColorScheme = &p
	}
	if doc.Content == nil {
		return &out
	}
	out.Content = make([]*Element, len(doc.Content))
	for i, e := range doc.Content {
		out.Content[i] = e.Clone()
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// MarshalJSON encodes the document in its wire format.
func (d *Document) MarshalJSON() ([]byte, error) {
	return Serialize(d)
}

var _ json.Marshaler = (*Document)(nil)
