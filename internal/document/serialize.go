package document

import (
	"encoding/json"
	"fmt"
)

type outElement struct {
	ID         string         `json:"id"`
	ElType     string         `json:"elType"`
	WidgetType string         `json:"widgetType,omitempty"`
	Settings   *Settings      `json:"settings"`
	Elements   *[]*outElement `json:"elements,omitempty"`
}

type outDocument struct {
	ID                   string        `json:"id"`
	Title                string        `json:"title"`
	Type                 DocumentKind  `json:"type"`
	Builder              string        `json:"builder,omitempty"`
	Version              string        `json:"version,omitempty"`
	Categories           []string      `json:"categories"`
	Tags                 []string      `json:"tags"`
	Customizable         Customizable  `json:"customizable"`
	ColorScheme          *Palette      `json:"color_scheme,omitempty"`
	RequiredCapabilities []string      `json:"required_capabilities"`
	Content              []*outElement `json:"content"`
}

// Serialize encodes doc in the wire format accepted by Parse. Element kinds
// are written in builder vocabulary (section/column/widget).
func Serialize(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("serialize: nil document")
	}
	out := outDocument{
		ID:                   doc.ID,
		Title:                doc.Title,
		Type:                 doc.Kind,
		Builder:              doc.Builder,
		Version:              doc.Version,
		Categories:           nonNil(doc.Categories),
		Tags:                 nonNil(doc.Tags),
		Customizable:         doc.Customizable,
		ColorScheme:          doc.ColorScheme,
		RequiredCapabilities: nonNil(doc.RequiredCapabilities),
		Content:              outElements(doc.Content),
	}
	if out.Type == "" {
		out.Type = DocumentPage
	}
	return json.Marshal(out)
}

func outElements(in []*Element) []*outElement {
	out := make([]*outElement, 0, len(in))
	for _, el := range in {
		if el == nil {
			continue
		}
		oe := &outElement{
			ID:       el.ID,
			ElType:   el.Kind.builderName(),
			Settings: el.Settings,
		}
		if oe.Settings == nil {
			oe.Settings = NewSettings()
		}
		if el.Kind == KindLeaf {
			oe.WidgetType = el.WidgetKind
		} else {
			children := outElements(el.Children)
			oe.Elements = &children
		}
		out = append(out, oe)
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
