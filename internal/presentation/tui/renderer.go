package tui

import (
	"github.com/charmbracelet/glamour"
)

// DefaultWrap is the word wrap of rendered markdown.
const DefaultWrap = 100

// NewRenderer returns a function that renders markdown using glamour.
// Styles follow the terminal background.
func NewRenderer(wrap int) (func(string) (string, error), error) {
	if wrap <= 0 {
		wrap = DefaultWrap
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil, err
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}
