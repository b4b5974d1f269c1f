package runtime

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/loadkit/internal/logging"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/stretchr/testify/assert"
)

type namedError struct {
	name, msg string
}

func (e namedError) Name() string  { return e.name }
func (e namedError) Error() string { return e.msg }

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		desc string
		err  error
		want string
	}{
		{"NameAndMessage", namedError{"TypeError", "bad slice"}, "TypeError: bad slice"},
		{"EmptyName", namedError{"", "bad slice"}, "Error: bad slice."},
		{"EmptyMessage", namedError{"TypeError", ""}, "Error: ."},
		{"Plain", errors.New("boom"), "Error: boom."},
		{"LoadError", &domain.LoadError{Kind: "HTTPError", Message: "404 Not Found"}, "HTTPError: 404 Not Found"},
		{"Wrapped", domain.NewLoadError("ReadError", errors.New("eof")), "ReadError: eof"},
		{"WrappedLoadError", fmt.Errorf("fetch: %w", domain.NewLoadError("HTTPError", errors.New("404 Not Found"))), "HTTPError: fetch: 404 Not Found"},
		{"WrappedNamed", fmt.Errorf("slice 3: %w", namedError{"TypeError", "bad slice"}), "TypeError: slice 3: bad slice"},
		{"WrappedPlain", fmt.Errorf("fetch: %w", errors.New("boom")), "Error: fetch: boom."},
		{"Nil", nil, "Error: <nil>."},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorMessage(tt.err))
		})
	}
}

func TestAbortMessage(t *testing.T) {
	assert.Equal(t, "user cancelled", AbortMessage(errors.New("user cancelled")))
	assert.Equal(t, AbortCalled, AbortMessage(nil))
	assert.Equal(t, AbortCalled, AbortMessage(errors.New("")))
	assert.Equal(t, "load aborted", AbortMessage(domain.ErrAborted))
}

func TestLogHelpers(t *testing.T) {
	logger := logging.NewNop()
	assert.Equal(t, "Error: boom.", LogError(logger, errors.New("boom")))
	assert.Equal(t, AbortCalled, LogAbort(logger, nil))
}
