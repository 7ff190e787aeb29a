// Package fieldtype is the dispatch table from a field-type tag to the
// behaviour of that type: config defaults and validation, lenient
// deserialization of raw input, validation of normalized values and the
// transport form used on reads.
//
// Handlers are stateless. Validation that needs to resolve ids (choice
// options, attachments, related pages) goes through the Lookup passed in by
// the caller, so the registry never touches storage itself.
package fieldtype

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// Lookup resolves ids referenced from response values. Implementations
// return an error matching types.ErrNotFound for unknown ids.
type Lookup interface {
	Option(ctx context.Context, optionID string) (*types.ChoiceOption, error)
	Page(ctx context.Context, pageID string) (*types.Page, error)
	Attachment(ctx context.Context, attachmentID string) (*types.Attachment, error)
}

// Handler is the capability set of one field type.
type Handler interface {
	// Type is the tag this handler serves.
	Type() types.FieldType

	// DefaultConfig returns a new config for field with every setting at its
	// default. The config is not persisted.
	DefaultConfig(field *types.Field) types.FieldConfig

	// CleanConfig fills unset settings with defaults and validates the rest.
	// It returns a *types.ValidationError keyed by setting name.
	CleanConfig(cfg types.FieldConfig) error

	// Deserialize coerces raw client input into the canonical stored shape.
	Deserialize(cfg types.FieldConfig, raw any) (any, error)

	// Validate checks a canonical value against cfg.
	Validate(ctx context.Context, cfg types.FieldConfig, value any, lookup Lookup) error

	// Serialize returns the transport form of a stored value.
	Serialize(cfg types.FieldConfig, value any) (any, error)
}

// Registry maps field types to handlers.
type Registry struct {
	handlers map[types.FieldType]Handler
}

// NewRegistry returns a registry holding the built-in handler of every
// field type.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[types.FieldType]Handler, len(types.FieldTypes))}
	for _, h := range []Handler{
		textHandler{},
		numberHandler{},
		booleanHandler{},
		dateHandler{},
		checklistHandler{},
		choiceHandler{},
		fileHandler{},
		relationHandler{},
	} {
		r.handlers[h.Type()] = h
	}
	return r
}

// Handler returns the handler for t or types.ErrInvalidFieldType.
func (r *Registry) Handler(t types.FieldType) (Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidFieldType, t)
	}
	return h, nil
}

// DefaultConfig synthesizes the default config for field.
func (r *Registry) DefaultConfig(field *types.Field) (types.FieldConfig, error) {
	h, err := r.Handler(field.FieldType)
	if err != nil {
		return nil, err
	}
	return h.DefaultConfig(field), nil
}

// CleanConfig checks that cfg is the variant for t, then lets the handler
// fill defaults and validate settings.
func (r *Registry) CleanConfig(t types.FieldType, cfg types.FieldConfig) error {
	h, err := r.Handler(t)
	if err != nil {
		return err
	}
	if cfg == nil || cfg.FieldType() != t {
		got := "none"
		if cfg != nil {
			got = string(cfg.FieldType())
		}
		return types.Validationf("config", "%s field requires a %s config, got %s", t, t, got)
	}
	return h.CleanConfig(cfg)
}

// Normalize deserializes raw and validates the result against cfg.
func (r *Registry) Normalize(ctx context.Context, cfg types.FieldConfig, raw any, lookup Lookup) (any, error) {
	h, err := r.Handler(cfg.FieldType())
	if err != nil {
		return nil, err
	}
	v, err := h.Deserialize(cfg, raw)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(ctx, cfg, v, lookup); err != nil {
		return nil, err
	}
	return v, nil
}

// Serialize returns the transport form of value under cfg.
func (r *Registry) Serialize(cfg types.FieldConfig, value any) (any, error) {
	h, err := r.Handler(cfg.FieldType())
	if err != nil {
		return nil, err
	}
	return h.Serialize(cfg, value)
}

// configAs asserts the concrete variant a handler expects.
func configAs[T types.FieldConfig](cfg types.FieldConfig) (T, error) {
	c, ok := cfg.(T)
	if !ok {
		var zero T
		return zero, types.Validationf("config", "unexpected config variant %T", cfg)
	}
	return c, nil
}

// checkFormat validates a display format against the allowed set, filling
// the default when empty.
func checkFormat(path string, format *string, def string, allowed ...string) *types.ValidationError {
	if *format == "" {
		*format = def
		return nil
	}
	for _, a := range allowed {
		if *format == a {
			return nil
		}
	}
	return types.Validationf(path, "%q is not a valid choice", *format)
}

func errData(format string, args ...any) error {
	return types.Validationf("data", format, args...)
}
