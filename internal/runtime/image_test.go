package runtime

import "testing"

func TestNormalizeImage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"worker", "worker:latest"},
		{"worker:1", "worker:1"},
		{"docker.io/library/worker:1", "worker:1"},
		{"  ghcr.io/acme/encoder  ", "ghcr.io/acme/encoder:latest"},
		{"registry.local:5000/team/encoder:2.3", "registry.local:5000/team/encoder:2.3"},
		{"acme/encoder", "acme/encoder:latest"},
	}
	for _, tt := range tests {
		got, err := NormalizeImage(tt.in)
		if err != nil {
			t.Fatalf("NormalizeImage(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("NormalizeImage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeImageRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "Worker:Latest", "worker::1"} {
		if _, err := NormalizeImage(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestMatchedByTags(t *testing.T) {
	ref, err := ParseImage("worker")
	if err != nil {
		t.Fatal(err)
	}
	images := []ImageRecord{
		{ID: "sha256:aaa", Tags: []string{"other:latest"}},
		{ID: "sha256:bbb", Tags: []string{"worker:1", "docker.io/library/worker:latest"}},
	}
	img, ok := FindImage(images, ref)
	if !ok || img.ID != "sha256:bbb" {
		t.Fatalf("expected worker:latest to match second image, got %+v ok=%v", img, ok)
	}

	pinned, _ := ParseImage("worker:2")
	if _, ok := FindImage(images, pinned); ok {
		t.Fatal("worker:2 must not match")
	}
}

func TestMatchedByDigest(t *testing.T) {
	const digest = "sha256:4f53cda18c2baa0c0354bb5f9a3ecbe5ed12ab4d8e11ba873c2f11161202b945"
	ref, err := ParseImage("acme/encoder@" + digest)
	if err != nil {
		t.Fatal(err)
	}
	if !ref.Digested() {
		t.Fatal("expected digested reference")
	}
	img := ImageRecord{Digests: []string{"acme/encoder@" + digest}}
	if !ref.MatchedBy(img) {
		t.Fatal("expected digest match")
	}
	other := ImageRecord{Digests: []string{"acme/other@" + digest}}
	if ref.MatchedBy(other) {
		t.Fatal("different repository must not match")
	}
	if ref.MatchedBy(ImageRecord{Tags: []string{"acme/encoder:latest"}}) {
		t.Fatal("tags must not satisfy a digest reference")
	}
}

func TestContainerName(t *testing.T) {
	if got := containerName([]string{"/transcode-1"}); got != "transcode-1" {
		t.Fatalf("containerName = %q", got)
	}
	if got := containerName(nil); got != "" {
		t.Fatalf("containerName(nil) = %q", got)
	}
}
