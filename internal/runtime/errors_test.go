package runtime

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"

	"encodegate/internal/services"
)

func TestClassify(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "unix", Err: syscall.ECONNREFUSED}
	tests := []struct {
		name            string
		err             error
		wantUnavailable bool
	}{
		{"dial failure", dialErr, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"domain failure", errors.New("conflict: container is running"), false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("list containers", tt.err)
			if IsUnavailable(got) != tt.wantUnavailable {
				t.Fatalf("IsUnavailable = %v, want %v (%v)", !tt.wantUnavailable, tt.wantUnavailable, got)
			}
			if !errors.Is(got, tt.err) {
				t.Fatalf("cause lost: %v", got)
			}
		})
	}
	if classify("info", nil) != nil {
		t.Fatal("nil stays nil")
	}
	if !errors.Is(classify("info", context.Canceled), context.Canceled) {
		t.Fatal("cancellation must pass through")
	}
	if errors.Is(classify("info", context.Canceled), services.ErrRuntimeUnavailable) {
		t.Fatal("cancellation is not an outage")
	}
}
