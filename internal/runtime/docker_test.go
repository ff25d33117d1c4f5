package runtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"encodegate/internal/reaper"
	"encodegate/internal/runtime"
)

const engineAPIVersion = "1.47"

type engineContainer struct {
	ID      string
	Name    string
	Status  string
	Running bool
	Paused  bool
}

// fakeEngine serves the handful of Engine API routes the gateway calls.
type fakeEngine struct {
	mu         sync.Mutex
	containers map[string]engineContainer
	removed    []string
}

func newFakeEngine(t *testing.T, containers ...engineContainer) (*fakeEngine, *runtime.DockerGateway) {
	t.Helper()
	engine := &fakeEngine{containers: make(map[string]engineContainer)}
	for _, c := range containers {
		engine.containers[c.ID] = c
	}

	prefix := "/v" + engineAPIVersion
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+prefix+"/containers/json", engine.list)
	mux.HandleFunc("GET "+prefix+"/containers/{id}/json", engine.inspect)
	mux.HandleFunc("DELETE "+prefix+"/containers/{id}", engine.remove)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	t.Setenv("DOCKER_HOST", "")
	t.Setenv("DOCKER_CERT_PATH", "")
	t.Setenv("DOCKER_TLS_VERIFY", "")
	gateway, err := runtime.NewDockerGateway(runtime.DockerOptions{
		Host:       "tcp://" + strings.TrimPrefix(server.URL, "http://"),
		APIVersion: engineAPIVersion,
	})
	if err != nil {
		t.Fatalf("NewDockerGateway: %v", err)
	}
	t.Cleanup(func() { _ = gateway.Close() })
	return engine, gateway
}

func (e *fakeEngine) list(w http.ResponseWriter, _ *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]map[string]any, 0, len(e.containers))
	for _, c := range e.containers {
		out = append(out, map[string]any{
			"Id":    c.ID,
			"Names": []string{"/" + c.Name},
			"Image": "encodegate/worker:latest",
			"State": c.Status,
		})
	}
	writeEngineJSON(w, http.StatusOK, out)
}

func (e *fakeEngine) inspect(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	c, ok := e.containers[r.PathValue("id")]
	e.mu.Unlock()
	if !ok {
		writeEngineJSON(w, http.StatusNotFound, map[string]string{"message": "No such container: " + r.PathValue("id")})
		return
	}
	writeEngineJSON(w, http.StatusOK, map[string]any{
		"Id":    c.ID,
		"Name":  "/" + c.Name,
		"Image": "sha256:0123",
		"State": map[string]any{
			"Status":  c.Status,
			"Running": c.Running,
			"Paused":  c.Paused,
		},
		"Config": map[string]any{"Image": "encodegate/worker:latest"},
	})
}

func (e *fakeEngine) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.containers[id]; !ok {
		writeEngineJSON(w, http.StatusNotFound, map[string]string{"message": "No such container: " + id})
		return
	}
	delete(e.containers, id)
	e.removed = append(e.removed, id)
	w.WriteHeader(http.StatusNoContent)
}

func writeEngineJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func TestDockerGatewayReportsEngineStatus(t *testing.T) {
	tests := []struct {
		name      string
		container engineContainer
		want      runtime.ContainerState
	}{
		{"running", engineContainer{ID: "c1", Name: "transcode-1", Status: "running", Running: true}, runtime.StateRunning},
		{"paused", engineContainer{ID: "c2", Name: "transcode-2", Status: "paused", Running: true, Paused: true}, runtime.StatePaused},
		{"restarting", engineContainer{ID: "c3", Name: "transcode-3", Status: "restarting", Running: true}, runtime.StateRestarting},
		{"exited", engineContainer{ID: "c4", Name: "transcode-4", Status: "exited"}, runtime.StateExited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, gateway := newFakeEngine(t, tt.container)
			ctx := context.Background()

			listed, err := gateway.ListContainers(ctx, true)
			if err != nil {
				t.Fatalf("ListContainers: %v", err)
			}
			if len(listed) != 1 || listed[0].State != tt.want || listed[0].Name != tt.container.Name {
				t.Fatalf("listed = %+v, want state %q", listed, tt.want)
			}

			inspected, err := gateway.GetContainer(ctx, tt.container.ID)
			if err != nil {
				t.Fatalf("GetContainer: %v", err)
			}
			if inspected.State != listed[0].State {
				t.Fatalf("inspect state %q disagrees with list state %q", inspected.State, listed[0].State)
			}
			if inspected.Name != tt.container.Name || inspected.Image != "encodegate/worker:latest" {
				t.Fatalf("unexpected record %+v", inspected)
			}
		})
	}
}

func TestDockerGatewayNotFound(t *testing.T) {
	_, gateway := newFakeEngine(t)
	ctx := context.Background()

	if _, err := gateway.GetContainer(ctx, "missing"); !errors.Is(err, runtime.ErrContainerNotFound) {
		t.Fatalf("GetContainer err = %v, want ErrContainerNotFound", err)
	}
	if err := gateway.RemoveContainer(ctx, "missing", true); !errors.Is(err, runtime.ErrContainerNotFound) {
		t.Fatalf("RemoveContainer err = %v, want ErrContainerNotFound", err)
	}
}

func TestReaperRemovesPausedContainersThroughDocker(t *testing.T) {
	engine, gateway := newFakeEngine(t,
		engineContainer{ID: "c1", Name: "transcode-1", Status: "exited"},
		engineContainer{ID: "c2", Name: "transcode-2", Status: "running", Running: true},
		engineContainer{ID: "c3", Name: "transcode-3", Status: "paused", Running: true, Paused: true},
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	report, err := reaper.New(gateway, logger).Cleanup(context.Background(), "transcode-")
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if report.RemovedCount() != 2 {
		t.Fatalf("removed %d, want 2 (%+v)", report.RemovedCount(), report)
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if _, ok := engine.containers["c2"]; !ok {
		t.Fatal("running container was removed")
	}
	if _, ok := engine.containers["c3"]; ok {
		t.Fatal("paused container was left behind")
	}
}
