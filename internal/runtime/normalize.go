package runtime

import (
	"errors"
	"fmt"
	"log/slog"
)

// AbortCalled is the message of an abort that carried no text.
const AbortCalled = "Abort called."

type named interface {
	Name() string
}

// ErrorMessage renders a backend error for display.
// Errors exposing a non-empty Name() anywhere in their chain render as "<name>: <text>",
// anything else as "Error: <err>.". The text is the whole chain, wrapping context included.
func ErrorMessage(err error) string {
	var n named
	if errors.As(err, &n) {
		if name, msg := n.Name(), err.Error(); name != "" && msg != "" {
			return name + ": " + msg
		}
	}
	return fmt.Sprintf("Error: %v.", err)
}

// AbortMessage renders the payload of a backend abort.
func AbortMessage(err error) string {
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return AbortCalled
}

// LogError writes the raw backend error and returns its display message.
func LogError(logger *slog.Logger, err error) string {
	logger.Error("load failed", "error", err)
	return ErrorMessage(err)
}

// LogAbort writes the raw abort payload and returns its display message.
func LogAbort(logger *slog.Logger, err error) string {
	logger.Warn("load aborted", "error", err)
	return AbortMessage(err)
}
