package placeholder

import (
	"regexp"
	"sort"
)

var tagPattern = regexp.MustCompile(`\{\{(#IF_|/IF_|#EACH_|/EACH_)?([A-Z][A-Z0-9_]*)\}\}`)

type nodeKind int

const (
	nodeText nodeKind = iota
	nodeVar
	nodeIf
	nodeEach
)

type node struct {
	kind     nodeKind
	name     string
	text     string // literal text, or the raw tag of a variable
	children []node
}

type frame struct {
	n   node
	raw string
}

// parse builds the block tree of text. Tags that do not balance are kept as
// literal text so rendering never fails.
func parse(text string) []node {
	stack := []*frame{{}}
	top := func() *frame { return stack[len(stack)-1] }
	appendText := func(f *frame, s string) {
		if s != "" {
			f.n.children = append(f.n.children, node{kind: nodeText, text: s})
		}
	}
	// unwind folds frame i back into its parent as literal text.
	unwind := func(i int) {
		f := stack[i]
		parent := stack[i-1]
		appendText(parent, f.raw)
		parent.n.children = append(parent.n.children, f.n.children...)
		stack = stack[:i]
	}

	pos := 0
	for _, m := range tagPattern.FindAllStringSubmatchIndex(text, -1) {
		appendText(top(), text[pos:m[0]])
		pos = m[1]
		raw := text[m[0]:m[1]]
		name := text[m[4]:m[5]]
		prefix := ""
		if m[2] >= 0 {
			prefix = text[m[2]:m[3]]
		}
		switch prefix {
		case "":
			top().n.children = append(top().n.children, node{kind: nodeVar, name: name, text: raw})
		case "#IF_":
			stack = append(stack, &frame{n: node{kind: nodeIf, name: name}, raw: raw})
		case "#EACH_":
			stack = append(stack, &frame{n: node{kind: nodeEach, name: name}, raw: raw})
		default:
			kind := nodeIf
			if prefix == "/EACH_" {
				kind = nodeEach
			}
			open := -1
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].n.kind == kind && stack[i].n.name == name {
					open = i
					break
				}
			}
			if open < 0 {
				appendText(top(), raw)
				continue
			}
			for len(stack)-1 > open {
				unwind(len(stack) - 1)
			}
			closed := stack[open].n
			stack = stack[:open]
			top().n.children = append(top().n.children, closed)
		}
	}
	appendText(top(), text[pos:])
	for len(stack) > 1 {
		unwind(len(stack) - 1)
	}
	return stack[0].n.children
}

// References returns every variable, conditional and loop name used in text,
// sorted and de-duplicated.
func References(text string) []string {
	seen := make(map[string]bool)
	for _, m := range tagPattern.FindAllStringSubmatch(text, -1) {
		seen[m[2]] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
