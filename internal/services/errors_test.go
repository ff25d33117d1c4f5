package services_test

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"encodegate/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrProvision, "provision", "pull", "stream failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrProvision) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"provision", "pull", "stream failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(services.ErrReap, "", "", "", nil)
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	unavailable := services.Wrap(services.ErrRuntimeUnavailable, "runtime", "info", "", errors.New("dial unix"))
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"schema", services.Wrap(services.ErrSchema, "admission", "", "bad crf", nil), http.StatusBadRequest},
		{"compatibility", services.Wrap(services.ErrCompatibility, "admission", "", "crf+two-pass", nil), http.StatusBadRequest},
		{"runtime", unavailable, http.StatusServiceUnavailable},
		{"provision", services.Wrap(services.ErrProvision, "provision", "pull", "", nil), http.StatusBadGateway},
		{"provision caused by outage", services.Wrap(services.ErrProvision, "provision", "pull", "", unavailable), http.StatusServiceUnavailable},
		{"reap", services.Wrap(services.ErrReap, "reaper", "remove", "", nil), http.StatusInternalServerError},
		{"dispatch", fmt.Errorf("publish: %w", services.ErrDispatchOffline), http.StatusServiceUnavailable},
		{"unknown", errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.HTTPStatus(tt.err); got != tt.want {
				t.Fatalf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUserCorrectable(t *testing.T) {
	if !services.UserCorrectable(services.Wrap(services.ErrSchema, "", "", "x", nil)) {
		t.Fatal("schema errors should be user correctable")
	}
	if services.UserCorrectable(services.Wrap(services.ErrRuntimeUnavailable, "", "", "x", nil)) {
		t.Fatal("runtime errors must not be user correctable")
	}
}
