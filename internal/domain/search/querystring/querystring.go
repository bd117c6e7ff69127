// Package querystring builds Lucene query strings for the legacy "q" search tier.
package querystring

import (
	"fmt"
	"reflect"
	"strings"
)

// Field renders a single field:"value" term.
// Slice values render as an OR of quoted values: field:("a" OR "b").
func Field(name string, value any) string {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return name + ":" + quote(value)
	}

	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = quote(rv.Index(i).Interface())
	}
	return name + ":(" + Or(parts...) + ")"
}

// And joins terms with AND.
func And(terms ...string) string {
	return join(" AND ", terms)
}

// Or joins terms with OR.
func Or(terms ...string) string {
	return join(" OR ", terms)
}

func join(sep string, terms []string) string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, sep)
}

func quote(v any) string {
	s := fmt.Sprint(v)
	if b, ok := v.([]byte); ok {
		s = string(b)
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
