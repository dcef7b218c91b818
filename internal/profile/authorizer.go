package profile

import (
	"k8s.io/apimachinery/pkg/util/sets"
)

// Authorizer decides whether a document may be registered as a profile
type Authorizer interface {
	CanRegister(doc *Document) bool
}

// AuthorizerFunc adapts a function to Authorizer
type AuthorizerFunc func(doc *Document) bool

// CanRegister implements Authorizer
func (f AuthorizerFunc) CanRegister(doc *Document) bool {
	return f(doc)
}

// TrustedAuthors allows documents written by a fixed set of authors. An empty
// set allows nothing.
type TrustedAuthors struct {
	authors sets.Set[string]
}

// NewTrustedAuthors creates an allow list authorizer
func NewTrustedAuthors(authors ...string) *TrustedAuthors {
	return &TrustedAuthors{authors: sets.New(authors...)}
}

// CanRegister implements Authorizer
func (a *TrustedAuthors) CanRegister(doc *Document) bool {
	return doc.Author != "" && a.authors.Has(doc.Author)
}
