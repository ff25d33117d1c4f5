package provision

import (
	"testing"

	"encodegate/internal/runtime"
)

func TestProgressTrackerAggregatesLayers(t *testing.T) {
	tracker := newProgressTracker()
	events := []runtime.PullEvent{
		{Status: "Pulling from acme/encoder", ID: "2"},
		{Status: "Pulling fs layer", ID: "a"},
		{Status: "Pulling fs layer", ID: "b"},
		{Status: "Already exists", ID: "c"},
		{Status: "Downloading", ID: "a", Current: 100, Total: 1000},
		{Status: "Downloading", ID: "b", Current: 20, Total: 200},
		{Status: "Downloading", ID: "a", Current: 600, Total: 1000},
		{Status: "Download complete", ID: "b"},
	}
	var p Progress
	for _, event := range events {
		p = tracker.observe(event)
	}
	if p.Layers != 3 {
		t.Fatalf("Layers = %d, want 3", p.Layers)
	}
	if p.Total != 1200 || p.Current != 800 {
		t.Fatalf("bytes = %d/%d, want 800/1200", p.Current, p.Total)
	}
	if p.Done != 2 {
		t.Fatalf("Done = %d, want 2", p.Done)
	}
	if p.Status != "Download complete" {
		t.Fatalf("Status = %q", p.Status)
	}
}
