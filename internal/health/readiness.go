package health

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"encodegate/internal/runtime"
)

// Result reports the outcome of a single readiness check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Dependency is a collaborator outside the engine that must be reachable.
// Check returns a short detail on success.
type Dependency struct {
	Name  string
	Check func(ctx context.Context) (string, error)
}

// ReadinessOptions selects which checks run.
type ReadinessOptions struct {
	// Host is the engine endpoint. Socket access is only checked for unix hosts.
	Host         string
	StateDir     string
	WorkerImage  string
	Dependencies []Dependency
}

// Ready reports whether every result passed.
func Ready(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Readiness executes all applicable checks. Checks that depend on the engine
// are reported as failed rather than skipped when it is unreachable.
func (p *Checker) Readiness(ctx context.Context, opts ReadinessOptions) []Result {
	var results []Result

	if socket, ok := unixSocketPath(opts.Host); ok {
		results = append(results, CheckSocketAccess(socket))
	}
	if opts.StateDir != "" {
		results = append(results, CheckDirectoryAccess("State directory", opts.StateDir))
	}

	health, err := p.CheckConnection(ctx)
	if err != nil {
		results = append(results, Result{Name: "Container engine", Detail: summarizeError(err)})
	} else {
		results = append(results, Result{
			Name:   "Container engine",
			Passed: true,
			Detail: fmt.Sprintf("version %s (api %s), %d/%d containers running", health.Version, health.APIVersion, health.RunningCount, health.ContainerCount),
		})
	}

	if opts.WorkerImage != "" {
		results = append(results, p.checkImage(ctx, opts.WorkerImage))
	}
	for _, dep := range opts.Dependencies {
		detail, err := dep.Check(ctx)
		if err != nil {
			results = append(results, Result{Name: dep.Name, Detail: summarizeError(err)})
			continue
		}
		results = append(results, Result{Name: dep.Name, Passed: true, Detail: detail})
	}
	return results
}

func (p *Checker) checkImage(ctx context.Context, name string) Result {
	const check = "Worker image"
	ref, err := runtime.ParseImage(name)
	if err != nil {
		return Result{Name: check, Detail: err.Error()}
	}
	images, err := p.gateway.ListImages(ctx)
	if err != nil {
		return Result{Name: check, Detail: fmt.Sprintf("%s (error: %s)", ref, summarizeError(err))}
	}
	if _, ok := runtime.FindImage(images, ref); !ok {
		return Result{Name: check, Detail: fmt.Sprintf("%s (missing; run 'encodegate image ensure')", ref)}
	}
	return Result{Name: check, Passed: true, Detail: fmt.Sprintf("%s (present)", ref)}
}

// CheckSocketAccess verifies that the engine socket exists and is writable.
func CheckSocketAccess(path string) Result {
	const name = "Engine socket"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a socket)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func unixSocketPath(host string) (string, bool) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", false
	}
	parsed, err := url.Parse(host)
	if err != nil || parsed.Scheme != "unix" {
		return "", false
	}
	path := parsed.Path
	if path == "" {
		path = parsed.Opaque
	}
	return path, path != ""
}

func summarizeError(err error) string {
	if runtime.IsUnavailable(err) {
		return "engine unreachable"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out"
	}
	return err.Error()
}
