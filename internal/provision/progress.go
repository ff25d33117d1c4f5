package provision

import "encodegate/internal/runtime"

// Progress aggregates pull events across layers.
type Progress struct {
	Status  string
	Layers  int
	Done    int
	Current int64
	Total   int64
}

type layerState struct {
	current int64
	total   int64
	done    bool
}

// progressTracker folds engine pull events into a running Progress.
type progressTracker struct {
	layers map[string]*layerState
	order  []string
	status string
}

func newProgressTracker() *progressTracker {
	return &progressTracker{layers: make(map[string]*layerState)}
}

func (t *progressTracker) observe(event runtime.PullEvent) Progress {
	if event.Status != "" {
		t.status = event.Status
	}
	if event.ID != "" && isLayerStatus(event.Status) {
		layer, ok := t.layers[event.ID]
		if !ok {
			layer = &layerState{}
			t.layers[event.ID] = layer
			t.order = append(t.order, event.ID)
		}
		switch event.Status {
		case "Downloading":
			if event.Total > 0 {
				layer.total = event.Total
			}
			if event.Current > layer.current {
				layer.current = event.Current
			}
		case "Download complete", "Pull complete", "Already exists":
			layer.done = true
			if layer.total > 0 {
				layer.current = layer.total
			}
		}
	}
	return t.snapshot()
}

func (t *progressTracker) snapshot() Progress {
	p := Progress{Status: t.status, Layers: len(t.order)}
	for _, id := range t.order {
		layer := t.layers[id]
		p.Current += layer.current
		p.Total += layer.total
		if layer.done {
			p.Done++
		}
	}
	return p
}

func isLayerStatus(status string) bool {
	switch status {
	case "Pulling fs layer", "Waiting", "Downloading", "Verifying Checksum",
		"Download complete", "Extracting", "Pull complete", "Already exists":
		return true
	}
	return false
}
