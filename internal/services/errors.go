package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrSchema marks a request field that is malformed or outside its declared domain.
	ErrSchema = errors.New("schema error")
	// ErrCompatibility marks fields that are individually valid but mutually exclusive.
	ErrCompatibility = errors.New("compatibility error")
	// ErrRuntimeUnavailable marks a container engine that cannot be reached.
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")
	// ErrProvision marks a failed worker image pull.
	ErrProvision = errors.New("image provision error")
	// ErrReap marks a failed container listing or removal.
	ErrReap            = errors.New("container reap error")
	ErrConfiguration   = errors.New("configuration error")
	ErrDispatchOffline = errors.New("dispatch unavailable")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrRuntimeUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserCorrectable reports whether the caller can fix err by changing the request.
func UserCorrectable(err error) bool {
	return errors.Is(err, ErrSchema) || errors.Is(err, ErrCompatibility)
}

// HTTPStatus maps an error to the response status the HTTP surface should use.
// Engine unavailability is checked first so that a provision or reap failure
// caused by a lost engine connection is reported as an infrastructure outage.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case UserCorrectable(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrRuntimeUnavailable), errors.Is(err, ErrDispatchOffline):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrProvision):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
