// Package placeholder implements the template language used in text fields:
// {{NAME}} variables, {{#IF_NAME}}…{{/IF_NAME}} conditionals and
// {{#EACH_NAME}}…{{/EACH_NAME}} loops.
package placeholder

import (
	"sort"
	"strconv"
)

type varKind int

const (
	varString varKind = iota
	varBool
	varList
)

// Var is a value bound in an Env: a string, a boolean, or a sequence of
// sub-environments.
type Var struct {
	kind varKind
	str  string
	b    bool
	list []Env
}

// String binds a string.
func String(s string) Var { return Var{kind: varString, str: s} }

// Bool binds a boolean.
func Bool(b bool) Var { return Var{kind: varBool, b: b} }

// List binds a sequence of sub-environments for loops.
func List(items ...Env) Var {
	if items == nil {
		items = []Env{}
	}
	return Var{kind: varList, list: items}
}

// Truthy reports whether a conditional on this value renders its body:
// non-empty string, true, or non-empty sequence.
func (v Var) Truthy() bool {
	switch v.kind {
	case varString:
		return v.str != ""
	case varBool:
		return v.b
	default:
		return len(v.list) > 0
	}
}

// Text returns the value as substitution text. Sequences have no text form.
func (v Var) Text() (string, bool) {
	switch v.kind {
	case varString:
		return v.str, true
	case varBool:
		return strconv.FormatBool(v.b), true
	default:
		return "", false
	}
}

// Items returns the sub-environments of a sequence value.
func (v Var) Items() ([]Env, bool) {
	if v.kind != varList {
		return nil, false
	}
	return v.list, true
}

// Env is a flat mapping from variable name to value.
type Env map[string]Var

// Names returns the bound names in sorted order.
func (e Env) Names() []string {
	names := make([]string, 0, len(e))
	for k := range e {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// FromAny converts decoded JSON (string, bool, number, []any of objects) into
// an Env. Unsupported shapes are skipped.
func FromAny(m map[string]any) Env {
	env := make(Env, len(m))
	for k, raw := range m {
		switch v := raw.(type) {
		case string:
			env[k] = String(v)
		case bool:
			env[k] = Bool(v)
		case float64:
			env[k] = String(strconv.FormatFloat(v, 'f', -1, 64))
		case []any:
			items := make([]Env, 0, len(v))
			for _, it := range v {
				if obj, ok := it.(map[string]any); ok {
					items = append(items, FromAny(obj))
				}
			}
			env[k] = List(items...)
		}
	}
	return env
}

// scope chains a loop item's bindings over the enclosing environment.
type scope struct {
	vars   Env
	parent *scope
}

func (s *scope) lookup(name string) (Var, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return Var{}, false
}
