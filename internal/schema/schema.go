// Package schema validates client supplied redaction requests against an
// embedded JSON Schema before they are decoded into model types.
//
// Range semantics are not checked here: a request with a negative or
// inverted range is well-formed input and is reported by the planner as a
// diagnostic. The schema only rejects input of the wrong shape.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nao1215/docredact/internal/model"
)

const (
	redactionsURL = "https://docredact.local/schema/redactions.json"
	markURL       = "https://docredact.local/schema/mark.json"
)

//go:embed redactions.schema.json
var redactionsSchema []byte

//go:embed mark.schema.json
var markSchema []byte

type compiled struct {
	redactions *jsonschema.Schema
	mark       *jsonschema.Schema
}

var schemas = sync.OnceValues(func() (*compiled, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(redactionsURL, bytes.NewReader(redactionsSchema)); err != nil {
		return nil, fmt.Errorf("add redactions schema: %w", err)
	}
	if err := compiler.AddResource(markURL, bytes.NewReader(markSchema)); err != nil {
		return nil, fmt.Errorf("add mark schema: %w", err)
	}

	redactions, err := compiler.Compile(redactionsURL)
	if err != nil {
		return nil, fmt.Errorf("compile redactions schema: %w", err)
	}
	mark, err := compiler.Compile(markURL)
	if err != nil {
		return nil, fmt.Errorf("compile mark schema: %w", err)
	}
	return &compiled{redactions: redactions, mark: mark}, nil
})

// MarkRequest is the body of a mark call: the document and its requests.
type MarkRequest struct {
	DocumentID string                   `json:"documentId"`
	Redactions []model.RedactionRequest `json:"redactions"`
}

// DecodeRequests validates a JSON array of {paragraphId, startPos, endPos}
// objects and decodes it. Failures wrap model.ErrInvalidRequest.
func DecodeRequests(data []byte) ([]model.RedactionRequest, error) {
	s, err := schemas()
	if err != nil {
		return nil, err
	}
	if err := validate(s.redactions, data); err != nil {
		return nil, err
	}

	var reqs []model.RedactionRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err)
	}
	if reqs == nil {
		reqs = []model.RedactionRequest{}
	}
	return reqs, nil
}

// DecodeMarkRequest validates and decodes a {documentId, redactions} object.
func DecodeMarkRequest(data []byte) (*MarkRequest, error) {
	s, err := schemas()
	if err != nil {
		return nil, err
	}
	if err := validate(s.mark, data); err != nil {
		return nil, err
	}

	var req MarkRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err)
	}
	if req.Redactions == nil {
		req.Redactions = []model.RedactionRequest{}
	}
	return &req, nil
}

func validate(schema *jsonschema.Schema, data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: body is not valid JSON: %w", model.ErrInvalidRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON value", model.ErrInvalidRequest)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %s", model.ErrInvalidRequest, describe(err))
	}
	return nil
}

// describe reduces a schema validation error to its first leaf cause.
func describe(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	location := ve.InstanceLocation
	if location == "" {
		location = "/"
	}
	return fmt.Sprintf("%s: %s", location, ve.Message)
}
