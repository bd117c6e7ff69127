package query

import (
	"fmt"
	"strings"
)

// Dialect selects how a Document is rendered into a request body.
type Dialect int

const (
	// Modern renders explicit groups and the filtered shape as bool queries.
	Modern Dialect = iota
	// Legacy renders the filtered query and and/or/not filters of pre-5.0 backends.
	Legacy
)

// ParseDialect maps "modern" or "legacy" to a Dialect. Empty means Modern.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "", "modern":
		return Modern, nil
	case "legacy":
		return Legacy, nil
	default:
		return Modern, fmt.Errorf("unknown dialect %q", s)
	}
}

func (d Dialect) String() string {
	if d == Legacy {
		return "legacy"
	}
	return "modern"
}

// Render returns the request body for d, or nil when the document is empty.
func (d *Document) Render(dialect Dialect) map[string]any {
	if d.IsEmpty() {
		return nil
	}
	if !d.filtered {
		return map[string]any{"query": renderNode(d.query, dialect)}
	}

	filter := renderNode(d.filter, dialect)
	if dialect == Legacy {
		q := any(map[string]any(MatchAll()))
		if d.query != nil {
			q = renderNode(d.query, dialect)
		}
		return map[string]any{
			"query": map[string]any{
				"filtered": map[string]any{"query": q, "filter": filter},
			},
		}
	}

	b := map[string]any{"filter": filter}
	if d.query != nil {
		b["must"] = renderNode(d.query, dialect)
	}
	return map[string]any{"query": map[string]any{"bool": b}}
}

func renderNode(n Node, dialect Dialect) any {
	switch v := n.(type) {
	case Clause:
		return map[string]any(v)
	case *BoolGroup:
		return renderBool(v, dialect)
	case *Groups:
		if dialect == Legacy {
			return renderGroupsLegacy(v)
		}
		return renderGroupsModern(v)
	default:
		return nil
	}
}

func renderBool(b *BoolGroup, dialect Dialect) map[string]any {
	body := make(map[string]any, 5)
	for k := Must; k <= MustNot; k++ {
		if children := b.children[k]; len(children) > 0 {
			body[k.String()] = renderChildren(children, dialect)
		}
	}
	if b.minimumShouldMatch != 0 {
		body["minimum_should_match"] = b.minimumShouldMatch
	}
	if b.boost != 0 {
		body["boost"] = b.boost
	}
	return map[string]any{"bool": body}
}

// renderChildren emits a lone child as an object and several as an array.
func renderChildren(children []Node, dialect Dialect) any {
	if len(children) == 1 {
		return renderNode(children[0], dialect)
	}
	out := make([]any, len(children))
	for i, c := range children {
		out[i] = renderNode(c, dialect)
	}
	return out
}

func renderGroupsLegacy(g *Groups) map[string]any {
	body := make(map[string]any, 3)
	for _, k := range groupOrder {
		if t := g.Get(k); t != nil {
			body[k.String()] = renderChildren(t.children, Legacy)
		}
	}
	return body
}

func renderGroupsModern(g *Groups) map[string]any {
	body := make(map[string]any, 4)
	if t := g.Get(GroupAnd); t != nil {
		body["filter"] = renderChildren(t.children, Modern)
	}
	if t := g.Get(GroupOr); t != nil {
		body["should"] = renderChildren(t.children, Modern)
		body["minimum_should_match"] = 1
	}
	if t := g.Get(GroupNot); t != nil {
		body["must_not"] = renderChildren(t.children, Modern)
	}
	return map[string]any{"bool": body}
}
