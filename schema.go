package esquery

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

const tagKey = "es"

// schemaMeta holds parsed struct tag metadata, cached per type.
type schemaMeta struct {
	typ    reflect.Type
	tagged bool // at least one field carries an es tag

	idIdx  int // -1 if not present
	fields []fieldMapping
	byName map[string]int // document field name → index in fields
}

type fieldMapping struct {
	structIdx int
	name      string
	analyzed  bool
}

var schemaCache sync.Map // reflect.Type → *schemaMeta

// schemaFor returns the cached schema of t, parsing it on first use.
func schemaFor(t reflect.Type) (*schemaMeta, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrInvalidArgument)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*schemaMeta), nil
	}
	meta, err := parseSchema(t)
	if err != nil {
		return nil, err
	}
	schemaCache.Store(t, meta)
	return meta, nil
}

// parseSchema reflects on t and extracts es struct tag metadata.
// Untagged exported fields fall back to their json name.
func parseSchema(t reflect.Type) (*schemaMeta, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("esquery: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, idIdx: -1, byName: make(map[string]int)}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag, ok := f.Tag.Lookup(tagKey)
		if tag == "-" {
			continue
		}
		meta.tagged = meta.tagged || ok
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

// applyTag processes one field's `es:"name,modifier"` tag.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	name, modifier, _ := strings.Cut(tag, ",")
	if name == "" {
		name = jsonName(f)
	}

	switch modifier {
	case "id":
		if meta.idIdx != -1 {
			return fmt.Errorf("esquery: duplicate id tag on field %s", f.Name)
		}
		meta.idIdx = idx
		return nil
	case "analyzed", "":
	default:
		return fmt.Errorf("esquery: unknown modifier %q on field %s", modifier, f.Name)
	}

	if _, dup := meta.byName[name]; dup {
		return fmt.Errorf("esquery: duplicate field name %q on field %s", name, f.Name)
	}
	meta.byName[name] = len(meta.fields)
	meta.fields = append(meta.fields, fieldMapping{
		structIdx: idx, name: name, analyzed: modifier == "analyzed",
	})
	return nil
}

func jsonName(f reflect.StructField) string {
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return f.Name
}

// field looks up a document field by name.
func (m *schemaMeta) field(name string) (fieldMapping, bool) {
	i, ok := m.byName[name]
	if !ok {
		return fieldMapping{}, false
	}
	return m.fields[i], true
}

// toSource converts a struct to its source document. The id field is left out.
func (m *schemaMeta) toSource(v reflect.Value) map[string]any {
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	out := make(map[string]any, len(m.fields))
	for _, f := range m.fields {
		out[f.name] = v.Field(f.structIdx).Interface()
	}
	return out
}

// id returns the id field of a struct as text, or "" without an id field.
func (m *schemaMeta) id(v reflect.Value) string {
	if m.idIdx == -1 {
		return ""
	}
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	f := v.Field(m.idIdx)
	if f.IsZero() {
		return ""
	}
	return fmt.Sprint(f.Interface())
}

// fromRow builds a new *struct from a search row.
func (m *schemaMeta) fromRow(row map[string]any) (reflect.Value, error) {
	pv := reflect.New(m.typ)
	v := pv.Elem()

	if m.idIdx != -1 {
		if raw, ok := row[idField]; ok {
			if err := assign(v.Field(m.idIdx), raw); err != nil {
				return reflect.Value{}, fmt.Errorf("esquery: field id: %w", err)
			}
		}
	}
	for _, f := range m.fields {
		raw, ok := row[f.name]
		if !ok || raw == nil {
			continue
		}
		if err := assign(v.Field(f.structIdx), raw); err != nil {
			return reflect.Value{}, fmt.Errorf("esquery: field %s: %w", f.name, err)
		}
	}
	return pv, nil
}

// assign stores raw into dst, going through JSON when the types differ
// (float64 to int, []any to []string, nested objects to structs).
func assign(dst reflect.Value, raw any) error {
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(dst.Type()) {
		dst.Set(rv)
		return nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst.Addr().Interface())
}

// StructDecoder returns a Decoder for a struct type (or pointer to one)
// described by es or json tags. The row "id" fills the field tagged `es:",id"`.
func StructDecoder[T any]() (Decoder[T], error) {
	t := reflect.TypeFor[T]()
	meta, err := schemaFor(t)
	if err != nil {
		return nil, err
	}
	isPtr := t.Kind() == reflect.Pointer

	return func(row map[string]any) (T, error) {
		var zero T
		pv, err := meta.fromRow(row)
		if err != nil {
			return zero, err
		}
		out := pv.Interface()
		if !isPtr {
			out = pv.Elem().Interface()
		}
		return out.(T), nil
	}, nil
}

// EncodeStruct returns the source document of a tagged struct.
// It is meant for SourceDocument implementations.
func EncodeStruct(v any) (map[string]any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return nil, fmt.Errorf("%w: nil struct", ErrInvalidArgument)
	}
	meta, err := schemaFor(rv.Type())
	if err != nil {
		return nil, err
	}
	return meta.toSource(rv), nil
}
