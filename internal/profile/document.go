// Package profile loads persisted client configurations ("profiles") from
// YAML documents and keeps the registry in sync with them.
package profile

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"oidcconfig/internal/property"
	"oidcconfig/pkg/errors"
)

// FieldConfigurationName is the document field holding the registry hint
const FieldConfigurationName = "configurationName"

// Document is one persisted profile. Field names are property keys, plus
// FieldConfigurationName.
//
//	author: admin
//	fields:
//	  configurationName: tenantA
//	  oidc.xwikiprovider: https://idp.example.com/oidc
//	  oidc.groups.mapping:
//	    - Admins=idp-admins
type Document struct {
	// Ref locates the document in its source, e.g. a file path
	Ref    string         `yaml:"-"`
	Author string         `yaml:"author"`
	Fields map[string]any `yaml:"fields"`
}

var _ property.FieldReader = (*Document)(nil)

// Parse decodes a profile document. Unknown top level keys are rejected.
func Parse(ref string, data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	doc := &Document{}
	if err := dec.Decode(doc); err != nil {
		return nil, errors.NewError(errors.ErrorTypeBadRequest, fmt.Sprintf("malformed profile document %s", ref)).
			WithCause(err).
			WithDetail("ref", ref)
	}
	doc.Ref = ref
	return doc, nil
}

// FieldValue implements property.FieldReader
func (d *Document) FieldValue(name string) any {
	return d.Fields[name]
}
