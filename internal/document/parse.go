package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/sitewright/internal/models"
)

// DefaultBuilder is assumed when a document does not declare its builder.
const DefaultBuilder = "elementor"

// DefaultMaxDepth bounds element nesting accepted by Parse.
const DefaultMaxDepth = 64

// IDGenerator produces ids for documents and elements that lack one.
type IDGenerator func() string

// ShortID returns 8-character hex ids in the style page builders use for elements.
func ShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

type parseOptions struct {
	docID     IDGenerator
	elementID IDGenerator
	maxDepth  int
}

// ParseOption configures Parse.
type ParseOption func(*parseOptions)

// WithIDGenerator sets the generator used for missing element ids.
func WithIDGenerator(gen IDGenerator) ParseOption {
	return func(o *parseOptions) { o.elementID = gen }
}

// WithDocumentIDGenerator sets the generator used for a missing document id.
func WithDocumentIDGenerator(gen IDGenerator) ParseOption {
	return func(o *parseOptions) { o.docID = gen }
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) ParseOption {
	return func(o *parseOptions) { o.maxDepth = depth }
}

type wireCustomizable struct {
	Colors  *bool `json:"colors"`
	Fonts   *bool `json:"fonts"`
	Content *bool `json:"content"`
	Images  *bool `json:"images"`
}

type wireDocument struct {
	ID                   string            `json:"id"`
	Title                string            `json:"title"`
	Type                 string            `json:"type"`
	Builder              string            `json:"builder,omitempty"`
	Version              string            `json:"version,omitempty"`
	Categories           []string          `json:"categories"`
	Tags                 []string          `json:"tags"`
	Customizable         *wireCustomizable `json:"customizable,omitempty"`
	ColorScheme          *Palette          `json:"color_scheme,omitempty"`
	RequiredCapabilities []string          `json:"required_capabilities"`
	Content              json.RawMessage   `json:"content"`
}

type wireElement struct {
	ID         string          `json:"id"`
	ElType     string          `json:"elType"`
	WidgetType string          `json:"widgetType,omitempty"`
	Settings   json.RawMessage `json:"settings"`
	Elements   json.RawMessage `json:"elements"`
}

// Parse builds a Document from its JSON payload, validating structure and
// defaulting absent optional fields. Structural violations return an error
// matching models.ErrMalformedDocument.
func Parse(raw []byte, opts ...ParseOption) (*Document, error) {
	o := parseOptions{docID: uuid.NewString, elementID: ShortID, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}

	var wd wireDocument
	if err := json.Unmarshal(raw, &wd); err != nil {
		return nil, &models.MalformedError{Reason: err.Error()}
	}
	if !isArray(wd.Content) {
		return nil, &models.MalformedError{Path: "content", Reason: "content must be a sequence"}
	}

	doc := &Document{
		ID:                   strings.TrimSpace(wd.ID),
		Title:                wd.Title,
		Kind:                 DocumentPage,
		Builder:              wd.Builder,
		Version:              wd.Version,
		Categories:           dedupe(wd.Categories),
		Tags:                 dedupe(wd.Tags),
		Customizable:         AllCustomizable(),
		ColorScheme:          wd.ColorScheme,
		RequiredCapabilities: dedupe(wd.RequiredCapabilities),
	}
	if doc.ID == "" {
		doc.ID = o.docID()
	}
	if wd.Type != "" {
		switch k := DocumentKind(strings.ToLower(wd.Type)); k {
		case DocumentPage, DocumentSection, DocumentWidget:
			doc.Kind = k
		default:
			return nil, &models.MalformedError{Path: "type", Reason: fmt.Sprintf("unknown document type %q", wd.Type)}
		}
	}
	if doc.Builder == "" {
		doc.Builder = DefaultBuilder
	}
	if len(doc.RequiredCapabilities) == 0 {
		doc.RequiredCapabilities = []string{doc.Builder}
	}
	if c := wd.Customizable; c != nil {
		doc.Customizable = Customizable{
			Colors:  boolOr(c.Colors, true),
			Fonts:   boolOr(c.Fonts, true),
			Content: boolOr(c.Content, true),
			Images:  boolOr(c.Images, true),
		}
	}

	p := &parser{opts: o, seen: make(map[string]bool)}
	content, err := p.elements(wd.Content, "content", 1)
	if err != nil {
		return nil, err
	}
	if err := p.assignIDs(); err != nil {
		return nil, err
	}
	doc.Content = content
	return doc, nil
}

type parser struct {
	opts    parseOptions
	seen    map[string]bool
	pending []*Element
}

func (p *parser) elements(raw json.RawMessage, path string, depth int) ([]*Element, error) {
	if depth > p.opts.maxDepth {
		return nil, &models.MalformedError{Path: path, Reason: fmt.Sprintf("nesting exceeds %d levels", p.opts.maxDepth)}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &models.MalformedError{Path: path, Reason: "expected a sequence of elements"}
	}
	out := make([]*Element, 0, len(items))
	for i, item := range items {
		el, err := p.element(item, fmt.Sprintf("%s[%d]", path, i), depth)
		if err != nil {
			return nil, err
		}
		out = append(out, el)
	}
	return out, nil
}

func (p *parser) element(raw json.RawMessage, path string, depth int) (*Element, error) {
	if !isObject(raw) {
		return nil, &models.MalformedError{Path: path, Reason: "element must be an object"}
	}
	var we wireElement
	if err := json.Unmarshal(raw, &we); err != nil {
		return nil, &models.MalformedError{Path: path, Reason: err.Error()}
	}
	kind, err := ParseKind(we.ElType)
	if err != nil {
		return nil, &models.MalformedError{Path: path + ".elType", Reason: err.Error()}
	}
	el := &Element{ID: strings.TrimSpace(we.ID), Kind: kind}

	if kind == KindLeaf {
		if strings.TrimSpace(we.WidgetType) == "" {
			return nil, &models.MalformedError{Path: path + ".widgetType", Reason: "widget element requires a widget type"}
		}
		el.WidgetKind = we.WidgetType
	} else if we.WidgetType != "" {
		return nil, &models.MalformedError{Path: path + ".widgetType", Reason: "only widget elements carry a widget type"}
	}

	if el.ID != "" {
		if p.seen[el.ID] {
			return nil, &models.MalformedError{Path: path + ".id", Reason: fmt.Sprintf("duplicate element id %q", el.ID)}
		}
		p.seen[el.ID] = true
	} else {
		p.pending = append(p.pending, el)
	}

	el.Settings, err = decodeSettings(we.Settings)
	if err != nil {
		return nil, &models.MalformedError{Path: path + ".settings", Reason: err.Error()}
	}

	switch {
	case kind == KindLeaf:
		if isArray(we.Elements) {
			var children []json.RawMessage
			_ = json.Unmarshal(we.Elements, &children)
			if len(children) > 0 {
				return nil, &models.MalformedError{Path: path + ".elements", Reason: "widget elements cannot have children"}
			}
		} else if !isNull(we.Elements) {
			return nil, &models.MalformedError{Path: path + ".elements", Reason: "expected a sequence of elements"}
		}
	case isNull(we.Elements):
		el.Children = []*Element{}
	default:
		el.Children, err = p.elements(we.Elements, path+".elements", depth+1)
		if err != nil {
			return nil, err
		}
	}
	return el, nil
}

// assignIDs fills missing ids after all explicit ids are known, so generated
// ids never collide with ones declared later in the document.
func (p *parser) assignIDs() error {
	for _, el := range p.pending {
		for attempt := 0; ; attempt++ {
			if attempt > 100 {
				return &models.MalformedError{Reason: "could not generate a unique element id"}
			}
			id := p.opts.elementID()
			if id != "" && !p.seen[id] {
				el.ID = id
				p.seen[id] = true
				break
			}
		}
	}
	p.pending = nil
	return nil
}

func decodeSettings(raw json.RawMessage) (*Settings, error) {
	s := NewSettings()
	trimmed := bytes.TrimSpace(raw)
	if isNull(trimmed) {
		return s, nil
	}
	// PHP-based builders encode an empty settings map as [].
	if bytes.Equal(trimmed, []byte("[]")) {
		return s, nil
	}
	if !isObject(trimmed) {
		return nil, fmt.Errorf("settings must be an object")
	}
	fields, err := decodeObject(trimmed)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		v, err := decodeValue(f.Key, f.Raw)
		if err != nil {
			return nil, fmt.Errorf("setting %q: %w", f.Key, err)
		}
		s.Set(f.Key, v)
	}
	return s, nil
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func isObject(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// dedupe trims and removes duplicates, keeping first-occurrence order.
func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
