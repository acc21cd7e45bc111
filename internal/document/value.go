package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ValueKind discriminates the shapes a setting value can take.
type ValueKind int

const (
	// ValueOpaque is any JSON shape the model does not interpret; it is kept verbatim.
	ValueOpaque ValueKind = iota
	// ValueText is a plain string.
	ValueText
	// ValueColor is a string recognised as a CSS color.
	ValueColor
	// ValueImage is a structured image reference ({url, alt}).
	ValueImage
	// ValueLink is a structured link ({url}).
	ValueLink
	// ValueNumber is a JSON number.
	ValueNumber
	// ValueBool is a JSON boolean.
	ValueBool
)

// String returns a string representation of the value kind.
func (k ValueKind) String() string {
	switch k {
	case ValueOpaque:
		return "opaque"
	case ValueText:
		return "text"
	case ValueColor:
		return "color"
	case ValueImage:
		return "image"
	case ValueLink:
		return "link"
	case ValueNumber:
		return "number"
	case ValueBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Field is a key paired with its raw JSON value. Used for keys of image and
// link objects that the model does not interpret.
type Field struct {
	Key string
	Raw json.RawMessage
}

// ImageRef is a structured image reference.
type ImageRef struct {
	URL string
	Alt string
	// HasAlt keeps an empty alt in the output. An alt key is what marks
	// objects under keys without an image hint as images.
	HasAlt bool
	Extra  []Field
}

// LinkRef is a structured link.
type LinkRef struct {
	URL   string
	Extra []Field
}

// Value is one entry of an element's settings.
type Value struct {
	Kind   ValueKind
	Text   string // text or color
	Number float64
	Bool   bool
	Image  *ImageRef
	Link   *LinkRef
	Raw    json.RawMessage // opaque
}

// TextValue returns a text value.
func TextValue(s string) Value { return Value{Kind: ValueText, Text: s} }

// ColorValue returns a color value.
func ColorValue(s string) Value { return Value{Kind: ValueColor, Text: s} }

// NumberValue returns a number value.
func NumberValue(n float64) Value { return Value{Kind: ValueNumber, Number: n} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// ImageValue returns an image reference value. Its alt is always serialized.
func ImageValue(url, alt string) Value {
	return Value{Kind: ValueImage, Image: &ImageRef{URL: url, Alt: alt, HasAlt: true}}
}

// LinkValue returns a link value.
func LinkValue(url string) Value {
	return Value{Kind: ValueLink, Link: &LinkRef{URL: url}}
}

// OpaqueValue wraps raw JSON that is preserved verbatim.
func OpaqueValue(raw json.RawMessage) Value {
	return Value{Kind: ValueOpaque, Raw: compactRaw(raw)}
}

// IsTextual reports whether the value holds a string (text or color).
func (v Value) IsTextual() bool {
	return v.Kind == ValueText || v.Kind == ValueColor
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := v
	if v.Image != nil {
		img := *v.Image
		img.Extra = cloneFields(v.Image.Extra)
		out.Image = &img
	}
	if v.Link != nil {
		link := *v.Link
		link.Extra = cloneFields(v.Link.Extra)
		out.Link = &link
	}
	if v.Raw != nil {
		out.Raw = append(json.RawMessage(nil), v.Raw...)
	}
	return out
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Key: f.Key, Raw: append(json.RawMessage(nil), f.Raw...)}
	}
	return out
}

// MarshalJSON encodes the value back to the shape it was parsed from.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueText, ValueColor:
		return json.Marshal(v.Text)
	case ValueNumber:
		return []byte(strconv.FormatFloat(v.Number, 'f', -1, 64)), nil
	case ValueBool:
		return json.Marshal(v.Bool)
	case ValueImage:
		if v.Image == nil {
			return []byte("null"), nil
		}
		head := []Field{{Key: "url", Raw: mustString(v.Image.URL)}}
		if v.Image.Alt != "" || v.Image.HasAlt {
			head = append(head, Field{Key: "alt", Raw: mustString(v.Image.Alt)})
		}
		return encodeFields(append(head, v.Image.Extra...))
	case ValueLink:
		if v.Link == nil {
			return []byte("null"), nil
		}
		return encodeFields(append([]Field{{Key: "url", Raw: mustString(v.Link.URL)}}, v.Link.Extra...))
	default:
		if len(v.Raw) == 0 {
			return []byte("null"), nil
		}
		return v.Raw, nil
	}
}

func mustString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

func encodeFields(fields []Field) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(f.Raw) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(f.Raw)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var colorPattern = regexp.MustCompile(`^(#([0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})|(rgb|rgba|hsl|hsla)\([^)]*\))$`)

// IsColor reports whether s looks like a CSS color literal.
func IsColor(s string) bool {
	return colorPattern.MatchString(strings.TrimSpace(s))
}

var imageKeyHints = []string{"image", "img", "logo", "photo", "background", "icon"}

// decodeValue classifies a raw JSON value found under key.
func decodeValue(key string, raw json.RawMessage) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return OpaqueValue(json.RawMessage("null")), nil
	}
	switch c := trimmed[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Value{}, err
		}
		if IsColor(s) {
			return ColorValue(s), nil
		}
		return TextValue(s), nil
	case c == 't' || c == 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case c == '-' || (c >= '0' && c <= '9'):
		n, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %s: %w", trimmed, err)
		}
		return NumberValue(n), nil
	case c == '{':
		fields, err := decodeObject(trimmed)
		if err != nil {
			return Value{}, err
		}
		if v, ok := referenceValue(key, fields); ok {
			return v, nil
		}
		return OpaqueValue(trimmed), nil
	default:
		return OpaqueValue(trimmed), nil
	}
}

// referenceValue recognises {url, ...} objects as image or link references.
func referenceValue(key string, fields []Field) (Value, bool) {
	var (
		url     string
		hasURL  bool
		alt     string
		hasAlt  bool
		imageID bool
		extra   []Field
	)
	for _, f := range fields {
		switch f.Key {
		case "url":
			if err := json.Unmarshal(f.Raw, &url); err != nil {
				return Value{}, false
			}
			hasURL = true
		case "alt":
			if err := json.Unmarshal(f.Raw, &alt); err != nil {
				extra = append(extra, f)
				continue
			}
			hasAlt = true
		default:
			if f.Key == "id" {
				imageID = true
			}
			extra = append(extra, f)
		}
	}
	if !hasURL {
		return Value{}, false
	}
	lower := strings.ToLower(key)
	isImage := hasAlt || imageID
	for _, hint := range imageKeyHints {
		if strings.Contains(lower, hint) {
			isImage = true
			break
		}
	}
	if isImage {
		return Value{Kind: ValueImage, Image: &ImageRef{URL: url, Alt: alt, HasAlt: hasAlt, Extra: extra}}, true
	}
	return Value{Kind: ValueLink, Link: &LinkRef{URL: url, Extra: extra}}, true
}

// decodeObject reads a JSON object preserving key order.
func decodeObject(raw json.RawMessage) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object")
	}
	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key")
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		fields = append(fields, Field{Key: key, Raw: compactRaw(val)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

func compactRaw(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return append(json.RawMessage(nil), raw...)
	}
	return buf.Bytes()
}
