package runtime

import (
	"strings"

	"github.com/aretw0/loadkit/pkg/domain"
)

// Kind tells the controller which path a request takes.
type Kind int

const (
	// KindImage is any request whose first item is not a state document.
	KindImage Kind = iota
	// KindState is a saved viewer state (.json).
	KindState
)

func (k Kind) String() string {
	if k == KindState {
		return "state"
	}
	return "image"
}

// Extension returns the lower-cased text after the last '.' of name,
// or the whole name lower-cased when it has no dot.
func Extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

// Classify inspects the first item only. Mixed lists are left to the backend.
func Classify(items []domain.Item) (Kind, error) {
	if len(items) == 0 {
		return KindImage, domain.ErrEmptyRequest
	}
	if Extension(items[0].Name) == "json" {
		return KindState, nil
	}
	return KindImage, nil
}

// IsMonoSlice reports whether a request is judged to hold a single slice.
// A lone zip or DICOMDIR container may still expand into a series.
func IsMonoSlice(items []domain.Item) bool {
	if len(items) != 1 {
		return false
	}
	name := items[0].Name
	if Extension(name) == "zip" {
		return false
	}
	return !strings.HasSuffix(name, "DICOMDIR") && !strings.HasSuffix(name, ".dcmdir")
}
