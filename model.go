package esquery

// Model is a domain object stored in the search backend.
type Model interface {
	// DocID returns the backend id, or "" to have one generated on commit.
	DocID() string
	// DocType returns the mapping type. Empty means "_doc".
	DocType() string
	// SourceDocument returns the body to index.
	SourceDocument() map[string]any
}

// Indexed is implemented by models that name their own index.
type Indexed interface {
	DocIndex() string
}

// IDSetter is implemented by models that accept a generated id on commit.
type IDSetter interface {
	SetDocID(id string)
}

// Decoder hydrates a model from a search row: the _source fields plus
// "id" (the backend id) and "_set_by_query" (always true).
type Decoder[T any] func(row map[string]any) (T, error)

// Document is a schemaless model.
type Document struct {
	ID         string
	Type       string
	Index      string
	Source     map[string]any
	SetByQuery bool
}

func (d *Document) DocID() string                  { return d.ID }
func (d *Document) DocType() string                { return d.Type }
func (d *Document) DocIndex() string               { return d.Index }
func (d *Document) SourceDocument() map[string]any { return d.Source }
func (d *Document) SetDocID(id string)             { d.ID = id }

// DecodeDocument is the Decoder for *Document.
func DecodeDocument(row map[string]any) (*Document, error) {
	d := &Document{Source: make(map[string]any, len(row))}
	for k, v := range row {
		switch k {
		case idField:
			d.ID, _ = v.(string)
		case setByQueryField:
			d.SetByQuery, _ = v.(bool)
		default:
			d.Source[k] = v
		}
	}
	return d, nil
}
