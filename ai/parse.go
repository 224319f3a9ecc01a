package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DefaultParseAttempts is how many times a request is sent when replies keep
// coming back malformed.
const DefaultParseAttempts = 3

// ErrMalformedResponse is returned when no attempt produced a document that
// decodes and satisfies the expected schema.
var ErrMalformedResponse = errors.New("oracle response malformed")

// Parsed is the outcome of decoding one oracle reply. It is either a
// Decoded[T] or a Malformed, never both.
type Parsed[T any] interface {
	parsed()
}

// Decoded carries a successfully decoded value.
type Decoded[T any] struct {
	Value T
}

func (Decoded[T]) parsed() {}

// Malformed carries the raw text that could not be decoded and the reason.
type Malformed struct {
	Raw string
	Err error
}

func (Malformed) parsed() {}

// Schema validates oracle replies against a JSON schema before decoding.
type Schema struct {
	schema *gojsonschema.Schema
}

// NewSchema compiles a JSON schema document.
func NewSchema(doc string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustSchema is like NewSchema but panics on an invalid document.
// It is intended for package-level schema constants.
func MustSchema(doc string) *Schema {
	s, err := NewSchema(doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a JSON document against the schema.
func (s *Schema) Validate(doc []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("response failed validation: %s", strings.Join(details, "; "))
}

// Decode extracts, validates and unmarshals a raw completion. A nil schema
// skips validation.
func Decode[T any](raw string, schema *Schema) Parsed[T] {
	text := ExtractJSON(raw)
	if text == "" {
		return Malformed{Raw: raw, Err: ErrEmptyResponse}
	}
	if schema != nil {
		if err := schema.Validate([]byte(text)); err != nil {
			return Malformed{Raw: raw, Err: err}
		}
	}
	var value T
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return Malformed{Raw: raw, Err: err}
	}
	return Decoded[T]{Value: value}
}

// Ask sends a request to the oracle and decodes the reply into T, asking
// again up to attempts times when the reply is malformed. Transport failures
// are returned immediately.
func Ask[T any](ctx context.Context, oracle Oracle, system, user string, schema *Schema, attempts int) (T, error) {
	var zero T
	if oracle == nil {
		return zero, ErrUnavailable
	}
	if attempts < 1 {
		attempts = 1
	}
	logger := slog.Default().With("component", "oracle")

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		raw, err := oracle.Complete(ctx, system, user)
		if err != nil {
			return zero, err
		}

		switch p := Decode[T](raw, schema).(type) {
		case Decoded[T]:
			return p.Value, nil
		case Malformed:
			lastErr = p.Err
			logger.Warn("error parsing oracle response",
				"attempt", attempt+1,
				"response", p.Raw,
				"err", p.Err)
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrMalformedResponse, lastErr)
}
