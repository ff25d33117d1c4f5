package admission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
)

// Validator evaluates job requests against the schema and an ordered rule
// table. The zero value is not usable; construct with NewValidator.
type Validator struct {
	rules []Rule
}

// NewValidator builds a validator with the default rules followed by extra.
func NewValidator(extra ...Rule) *Validator {
	rules := DefaultRules()
	rules = append(rules, extra...)
	return &Validator{rules: rules}
}

// With returns a new validator whose table is v's rules followed by extra.
// The receiver is left untouched.
func (v *Validator) With(extra ...Rule) *Validator {
	rules := make([]Rule, 0, len(v.rules)+len(extra))
	rules = append(rules, v.rules...)
	rules = append(rules, extra...)
	return &Validator{rules: rules}
}

// Rules returns a copy of the rule table in evaluation order.
func (v *Validator) Rules() []Rule {
	out := make([]Rule, len(v.rules))
	copy(out, v.rules)
	return out
}

// Validate returns nil when the request is accepted, or a *Rejection naming
// the first schema field or compatibility rule that failed.
func (v *Validator) Validate(req JobRequest) error {
	if rejection := checkSchema(req); rejection != nil {
		return rejection
	}
	opts := *req.OutputOptions
	for _, rule := range v.rules {
		if rule.Violated == nil || !rule.Violated(opts) {
			continue
		}
		return &Rejection{
			Kind:    KindCompatibility,
			Field:   rule.Field,
			Code:    rule.Code,
			Message: rule.Message,
		}
	}
	return nil
}

// Verdict is the collaborator-facing admission result.
type Verdict struct {
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   Kind   `json:"kind,omitempty"`
	Field  string `json:"field,omitempty"`
	Code   string `json:"code,omitempty"`
}

// ValidateDocument decodes and validates a raw JSON job request.
func (v *Validator) ValidateDocument(doc []byte) Verdict {
	req, err := DecodeJobRequest(bytes.NewReader(doc))
	if err == nil {
		err = v.Validate(req)
	}
	return VerdictFor(err)
}

// VerdictFor converts a Validate result into a Verdict.
func VerdictFor(err error) Verdict {
	if err == nil {
		return Verdict{OK: true}
	}
	verdict := Verdict{OK: false, Status: http.StatusBadRequest, Error: err.Error()}
	if rejection, ok := AsRejection(err); ok {
		verdict.Kind = rejection.Kind
		verdict.Field = rejection.Field
		verdict.Code = rejection.Code
	}
	return verdict
}

// DecodeJobRequest parses a JSON job request. Malformed JSON, trailing data
// and fields of the wrong type are reported as schema rejections.
func DecodeJobRequest(r io.Reader) (JobRequest, error) {
	var req JobRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return JobRequest{}, decodeRejection(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return JobRequest{}, schemaRejection("", "request body must hold a single JSON object")
	}
	return req, nil
}

func decodeRejection(err error) *Rejection {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, io.EOF):
		return schemaRejection("", "request body is empty")
	case errors.As(err, &typeErr):
		field := strings.TrimSpace(typeErr.Field)
		if field == "" {
			return schemaRejection("", "request body must be a JSON object")
		}
		return schemaRejection(field, fmt.Sprintf("%s must be %s", field, describeKind(typeErr.Type)))
	case errors.As(err, &syntaxErr):
		return schemaRejection("", fmt.Sprintf("request body is not valid JSON (offset %d)", syntaxErr.Offset))
	default:
		return schemaRejection("", "request body is not valid JSON")
	}
}

func describeKind(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Struct, reflect.Map:
		return "an object"
	default:
		return "a valid value"
	}
}
