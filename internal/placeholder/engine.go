package placeholder

import (
	"strconv"
	"strings"
)

// Engine renders placeholder templates. It is safe for concurrent use.
type Engine struct {
	keepUnresolved bool
	textFields     map[string]bool
	linkFields     map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// KeepUnresolved leaves references to unbound variables verbatim instead of
// removing them.
func KeepUnresolved(keep bool) Option {
	return func(e *Engine) { e.keepUnresolved = keep }
}

// WithTextFields adds setting names to the text-bearing allow-list.
func WithTextFields(fields ...string) Option {
	return func(e *Engine) {
		for _, f := range fields {
			e.textFields[f] = true
		}
	}
}

// DefaultTextFields are the setting names rendered by ApplyToDocument.
var DefaultTextFields = []string{
	"title", "text", "content", "caption", "description",
	"button_text", "link_text", "heading", "sub_heading", "subtitle", "label",
	"editor", "title_text", "description_text",
	"testimonial_content", "testimonial_name", "testimonial_job",
}

// DefaultLinkFields are string settings treated as link URLs.
var DefaultLinkFields = []string{"url", "link", "button_link", "href"}

// New returns an engine with the default field allow-lists.
func New(opts ...Option) *Engine {
	e := &Engine{
		textFields: make(map[string]bool),
		linkFields: make(map[string]bool),
	}
	for _, f := range DefaultTextFields {
		e.textFields[f] = true
	}
	for _, f := range DefaultLinkFields {
		e.linkFields[f] = true
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// Render renders text with the default engine (unresolved references vanish).
func Render(text string, env Env) string {
	return defaultEngine.Render(text, env)
}

// Render evaluates conditionals, loops and variables of text against env in a
// single pass. Substituted values are never re-scanned.
func (e *Engine) Render(text string, env Env) string {
	return e.RenderTraced(text, env, nil)
}

// RenderTraced is Render that also records every bound name it consulted in used.
func (e *Engine) RenderTraced(text string, env Env, used map[string]struct{}) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	var buf strings.Builder
	buf.Grow(len(text))
	e.eval(parse(text), &scope{vars: env}, &buf, used)
	return buf.String()
}

func (e *Engine) eval(nodes []node, sc *scope, buf *strings.Builder, used map[string]struct{}) {
	for _, n := range nodes {
		switch n.kind {
		case nodeText:
			buf.WriteString(n.text)
		case nodeVar:
			v, ok := sc.lookup(n.name)
			text, isText := v.Text()
			if ok && isText {
				mark(used, n.name)
				buf.WriteString(text)
			} else if e.keepUnresolved {
				buf.WriteString(n.text)
			}
		case nodeIf:
			v, ok := sc.lookup(n.name)
			if ok {
				mark(used, n.name)
			}
			if ok && v.Truthy() {
				e.eval(n.children, sc, buf, used)
			}
		case nodeEach:
			v, ok := sc.lookup(n.name)
			items, isList := v.Items()
			if !ok || !isList {
				continue
			}
			mark(used, n.name)
			for i, item := range items {
				child := &scope{
					vars:   Env{"INDEX": String(strconv.Itoa(i + 1))},
					parent: &scope{vars: item, parent: sc},
				}
				e.eval(n.children, child, buf, used)
			}
		}
	}
}

func mark(used map[string]struct{}, name string) {
	if used != nil && name != "INDEX" {
		used[name] = struct{}{}
	}
}
