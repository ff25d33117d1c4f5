package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"

	"encodegate/internal/services"
)

// ErrContainerNotFound is returned when the engine has no container with the
// requested id.
var ErrContainerNotFound = errors.New("container not found")

// PullError carries an error message the engine reported inside a pull stream.
type PullError struct {
	Code    int
	Message string
}

func (e *PullError) Error() string {
	if e.Message == "" {
		return "image pull failed"
	}
	return e.Message
}

// IsUnavailable reports whether err signals a lost or refused engine connection.
func IsUnavailable(err error) bool {
	return errors.Is(err, services.ErrRuntimeUnavailable)
}

func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if connectionLost(err) {
		return services.Wrap(services.ErrRuntimeUnavailable, "runtime", operation, "container engine unreachable", err)
	}
	return fmt.Errorf("runtime: %s: %w", operation, err)
}

func connectionLost(err error) bool {
	if client.IsErrConnectionFailed(err) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func isNotFound(err error) bool {
	return errdefs.IsNotFound(err)
}
