// Package validation checks request payloads against embedded JSON schemas
// before they reach the core.
package validation

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	apperrors "vehicle-financing/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

const (
	SchemaLoanApplication = "loan-application"
	SchemaLoanReview      = "loan-review"
	SchemaVehicleCreate   = "vehicle-create"
	SchemaLogin           = "login"
	SchemaValuation       = "valuation-request"
)

//go:embed schemas/*.json
var schemaFS embed.FS

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator holds the compiled schemas, keyed by name.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// New compiles every embedded schema.
func New() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}

	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(entries))}
	for _, entry := range entries {
		raw, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, err
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", entry.Name(), err)
		}
		v.schemas[strings.TrimSuffix(entry.Name(), ".json")] = schema
	}
	return v, nil
}

// Validate checks a JSON document against the named schema. A document that
// is not JSON at all is reported as a single error on "(root)".
func (v *Validator) Validate(name string, document []byte) *ValidationResult {
	schema, ok := v.schemas[name]
	if !ok {
		return &ValidationResult{Errors: []ValidationError{{
			Field: "(root)", Message: "unknown schema " + name, Code: "UNKNOWN_SCHEMA",
		}}}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field: "(root)", Message: "malformed JSON body", Code: "INVALID_JSON",
		}}}
	}

	errors := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		field := re.Field()
		if re.Type() == "required" {
			if prop, ok := re.Details()["property"].(string); ok {
				field = prop
			}
		}
		errors = append(errors, ValidationError{
			Field:   field,
			Message: re.Description(),
			Code:    strings.ToUpper(re.Type()),
		})
	}
	sort.SliceStable(errors, func(i, j int) bool { return errors[i].Field < errors[j].Field })

	return &ValidationResult{Valid: len(errors) == 0, Errors: errors}
}

// Err converts a failed result into a VALIDATION_FAILED error.
func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	return apperrors.NewValidationError("request validation failed", strings.Join(vr.GetErrorMessages(), "; "))
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
