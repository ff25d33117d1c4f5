package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "Downloading") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_PhaseChange(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLog(0, "Downloading") {
		t.Error("first phase should log")
	}
	if s.ShouldLog(0, " Downloading ") {
		t.Error("same phase and percent should not log again")
	}
	if !s.ShouldLog(0, "Extracting") {
		t.Error("different phase should log")
	}
	// bucket resets with the phase
	if !s.ShouldLog(10, "Extracting") {
		t.Error("10% should log after phase change")
	}
}

func TestProgressSampler_PercentBuckets(t *testing.T) {
	s := NewProgressSampler(5)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{3, false},
		{5, true},
		{7, false},
		{10, true},
		{100, true},
		{105, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.percent, "Downloading"); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSampler_UnknownPercent(t *testing.T) {
	s := NewProgressSampler(5)
	if !s.ShouldLogBytes(10, 0, "Waiting") {
		t.Error("first call should log on phase change")
	}
	if s.ShouldLogBytes(20, 0, "Waiting") {
		t.Error("unknown totals should not trigger bucket logging")
	}
	if !s.ShouldLogBytes(50, 100, "Waiting") {
		t.Error("50% of a known total should log")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "Downloading")
	s.Reset()
	if s.lastPhase != "" || s.lastBucket != -1 {
		t.Fatalf("reset left state %q/%d", s.lastPhase, s.lastBucket)
	}
	if !s.ShouldLog(50, "Downloading") {
		t.Error("should log after reset")
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		current, total int64
		want           float64
	}{
		{0, 0, -1},
		{5, -1, -1},
		{50, 200, 25},
		{300, 200, 100},
		{-5, 100, 0},
	}
	for _, tt := range tests {
		if got := Percent(tt.current, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %v, want %v", tt.current, tt.total, got, tt.want)
		}
	}
}
