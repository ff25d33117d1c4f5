package admission

import (
	"errors"

	"encodegate/internal/services"
)

// Kind classifies why a request was rejected.
type Kind string

const (
	KindSchema        Kind = "schema"
	KindCompatibility Kind = "compatibility"
)

// Rejection describes the first violation found in a job request.
type Rejection struct {
	Kind    Kind
	Field   string
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	if r == nil {
		return "<nil>"
	}
	return r.Message
}

// Unwrap exposes the taxonomy marker so callers can use errors.Is.
func (r *Rejection) Unwrap() error {
	if r == nil {
		return nil
	}
	if r.Kind == KindCompatibility {
		return services.ErrCompatibility
	}
	return services.ErrSchema
}

// AsRejection extracts a *Rejection from err.
func AsRejection(err error) (*Rejection, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) && rejection != nil {
		return rejection, true
	}
	return nil, false
}

func schemaRejection(field, message string) *Rejection {
	return &Rejection{Kind: KindSchema, Field: field, Code: "invalid_field", Message: message}
}
