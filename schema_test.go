package esquery

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type jsonNamed struct {
	Key   string  `json:"key,omitempty" es:",id"`
	Title string  `json:"title"`
	Score float64 `es:"score"`
	Skip  string  `es:"-"`
	Plain string
}

type place struct{ City string }

type nested struct {
	ID    int            `es:"doc_id,id"`
	Place place          `es:"place"`
	Meta  map[string]any `es:"meta"`
}

type dupID struct {
	A string `es:"a,id"`
	B string `es:"b,id"`
}

type badModifier struct {
	A string `es:"a,keyword"`
}

type dupName struct {
	A string `es:"x"`
	B string `json:"x"`
}

func TestParseSchema_NamesAndFallbacks(t *testing.T) {
	meta, err := schemaFor(reflect.TypeFor[jsonNamed]())
	require.NoError(t, err)
	require.True(t, meta.tagged)

	var names []string
	for _, f := range meta.fields {
		names = append(names, f.name)
	}
	require.Equal(t, []string{"title", "score", "Plain"}, names)
	require.Equal(t, 0, meta.idIdx)

	f, ok := meta.field("score")
	require.True(t, ok)
	require.False(t, f.analyzed)
	_, ok = meta.field("Skip")
	require.False(t, ok)
}

func TestParseSchema_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  func() error
	}{
		{"duplicate id", func() error { _, err := schemaFor(reflect.TypeFor[dupID]()); return err }},
		{"unknown modifier", func() error { _, err := schemaFor(reflect.TypeFor[badModifier]()); return err }},
		{"duplicate name", func() error { _, err := schemaFor(reflect.TypeFor[dupName]()); return err }},
		{"not a struct", func() error { _, err := schemaFor(reflect.TypeFor[int]()); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err() == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestStructDecoder_ValueAndPointer(t *testing.T) {
	row := map[string]any{
		"id":            "k1",
		"title":         "hello",
		"score":         1.5,
		"Plain":         "p",
		"Skip":          "ignored",
		"_set_by_query": true,
	}

	byValue, err := StructDecoder[jsonNamed]()
	require.NoError(t, err)
	v, err := byValue(row)
	require.NoError(t, err)
	require.Equal(t, jsonNamed{Key: "k1", Title: "hello", Score: 1.5, Plain: "p"}, v)

	byPtr, err := StructDecoder[*jsonNamed]()
	require.NoError(t, err)
	p, err := byPtr(row)
	require.NoError(t, err)
	require.Equal(t, &v, p)
}

func TestStructDecoder_ConvertsThroughJSON(t *testing.T) {
	decode, err := StructDecoder[nested]()
	require.NoError(t, err)

	got, err := decode(map[string]any{
		"id":    "7",
		"place": map[string]any{"City": "Riga"},
		"meta":  map[string]any{"k": "v"},
	})
	if err == nil {
		t.Fatalf("string id into int field: got %+v, want error", got)
	}

	got, err = decode(map[string]any{
		"id":    float64(7),
		"place": map[string]any{"City": "Riga"},
		"meta":  map[string]any{"k": "v"},
	})
	require.NoError(t, err)
	require.Equal(t, 7, got.ID)
	require.Equal(t, "Riga", got.Place.City)
	require.Equal(t, map[string]any{"k": "v"}, got.Meta)
}

func TestEncodeStruct(t *testing.T) {
	src, err := EncodeStruct(&jsonNamed{Key: "k", Title: "t", Score: 2, Skip: "s", Plain: "p"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"title": "t", "score": 2.0, "Plain": "p"}, src)

	var nilPtr *jsonNamed
	if _, err := EncodeStruct(nilPtr); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil pointer err = %v, want ErrInvalidArgument", err)
	}
	if _, err := EncodeStruct(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil err = %v, want ErrInvalidArgument", err)
	}
}
