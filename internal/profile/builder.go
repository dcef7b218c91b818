package profile

import (
	"fmt"
	"log/slog"
	"strings"

	"oidcconfig/internal/client"
	"oidcconfig/internal/convert"
	"oidcconfig/internal/property"
	"oidcconfig/pkg/errors"
)

// Builder turns authorized documents into client configurations
type Builder struct {
	authorizer Authorizer
	deps       client.Deps
	logger     *slog.Logger
}

// NewBuilder creates a profile builder sharing deps with every configuration it builds
func NewBuilder(authorizer Authorizer, deps client.Deps) *Builder {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Converter == nil {
		deps.Converter = convert.New()
	}
	return &Builder{
		authorizer: authorizer,
		deps:       deps,
		logger:     logger.With("component", "profile-builder"),
	}
}

// Build creates the configuration of doc. Documents whose author is not
// authorized fail with a forbidden error before anything is read from them.
func (b *Builder) Build(source string, doc *Document) (*client.Configuration, error) {
	if !b.authorizer.CanRegister(doc) {
		return nil, errors.NewError(errors.ErrorTypeForbidden, fmt.Sprintf("author %q may not register profiles", doc.Author)).
			WithDetail("ref", doc.Ref).
			WithDetail("author", doc.Author)
	}

	hint, err := b.Hint(doc)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("profile built", "hint", hint, "ref", doc.Ref, "source", source)
	return client.New(hint, source, property.NewDocument(doc), b.deps), nil
}

// Hint returns the registry hint of doc, its configuration name
func (b *Builder) Hint(doc *Document) (string, error) {
	raw := doc.FieldValue(FieldConfigurationName)
	if raw == nil {
		return "", errors.NewError(errors.ErrorTypeBadRequest, "profile has no configuration name").
			WithDetail("ref", doc.Ref)
	}
	hint, err := convert.To[string](b.deps.Converter, raw)
	if err != nil {
		return "", errors.NewError(errors.ErrorTypeBadRequest, "invalid configuration name").
			WithCause(err).
			WithDetail("ref", doc.Ref)
	}
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return "", errors.NewError(errors.ErrorTypeBadRequest, "profile has no configuration name").
			WithDetail("ref", doc.Ref)
	}
	return hint, nil
}
