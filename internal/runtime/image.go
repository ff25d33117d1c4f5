package runtime

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// ImageRef is a parsed, normalized image reference.
type ImageRef struct {
	named reference.Named
}

// ParseImage normalizes name into its familiar form. A bare repository gets
// the latest tag; digest references keep their digest.
func ParseImage(name string) (ImageRef, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ImageRef{}, fmt.Errorf("image name is empty")
	}
	named, err := reference.ParseNormalizedNamed(trimmed)
	if err != nil {
		return ImageRef{}, fmt.Errorf("parse image %q: %w", trimmed, err)
	}
	if _, digested := named.(reference.Digested); !digested {
		named = reference.TagNameOnly(named)
	}
	return ImageRef{named: named}, nil
}

// NormalizeImage returns the familiar string of name, e.g. "worker" becomes
// "worker:latest" and "docker.io/library/worker:1" becomes "worker:1".
func NormalizeImage(name string) (string, error) {
	ref, err := ParseImage(name)
	if err != nil {
		return "", err
	}
	return ref.String(), nil
}

// String returns the familiar form of the reference.
func (r ImageRef) String() string {
	if r.named == nil {
		return ""
	}
	return reference.FamiliarString(r.named)
}

// PullRef returns the fully qualified form handed to the engine.
func (r ImageRef) PullRef() string {
	if r.named == nil {
		return ""
	}
	return r.named.String()
}

// Repository returns the familiar repository name without tag or digest.
func (r ImageRef) Repository() string {
	if r.named == nil {
		return ""
	}
	return reference.FamiliarName(r.named)
}

// Digested reports whether the reference pins a content digest.
func (r ImageRef) Digested() bool {
	_, ok := r.named.(reference.Digested)
	return ok
}

// MatchedBy reports whether a local image satisfies the reference. Tagged
// references are compared against repo tags and digest references against
// repo digests.
func (r ImageRef) MatchedBy(img ImageRecord) bool {
	if r.named == nil {
		return false
	}
	if digested, ok := r.named.(reference.Digested); ok {
		want := digested.Digest().String()
		for _, candidate := range img.Digests {
			parsed, err := reference.ParseNormalizedNamed(candidate)
			if err != nil {
				continue
			}
			got, ok := parsed.(reference.Digested)
			if !ok {
				continue
			}
			if reference.FamiliarName(parsed) == r.Repository() && got.Digest().String() == want {
				return true
			}
		}
		return false
	}
	familiar := r.String()
	for _, tag := range img.Tags {
		normalized, err := NormalizeImage(tag)
		if err != nil {
			continue
		}
		if normalized == familiar {
			return true
		}
	}
	return false
}

// FindImage returns the first local image matching ref.
func FindImage(images []ImageRecord, ref ImageRef) (ImageRecord, bool) {
	for _, img := range images {
		if ref.MatchedBy(img) {
			return img, true
		}
	}
	return ImageRecord{}, false
}
