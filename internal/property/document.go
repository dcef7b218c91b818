package property

import "oidcconfig/internal/core"

// FieldReader gives access to the raw field values of a persisted document
type FieldReader interface {
	FieldValue(name string) any
}

// Document is a PropertyStore reading the fields of one persisted document.
// Property keys are used as field names.
type Document struct {
	fields FieldReader
}

var _ core.PropertyStore = (*Document)(nil)

// NewDocument creates a document backed store
func NewDocument(fields FieldReader) *Document {
	return &Document{fields: fields}
}

// Property implements core.PropertyStore
func (d *Document) Property(key string) (any, bool) {
	v := d.fields.FieldValue(key)
	if v == nil {
		return nil, false
	}
	return v, true
}
