package tui

import (
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	" _                 _ _    _ _   ",
	"| | ___   __ _  __| | | _(_) |_ ",
	"| |/ _ \\ / _` |/ _` | |/ / | __|",
	"| | (_) | (_| | (_| |   <| | |_ ",
	"|_|\\___/ \\__,_|\\__,_|_|\\_\\_|\\__|",
}

// Indigo to rose, one colour per line.
var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6"}

// Banner returns the ASCII art banner followed by the version, coloured for p.
func Banner(p termenv.Profile, version string) string {
	var b strings.Builder
	b.WriteString("\n")
	for i, line := range bannerLines {
		b.WriteString(p.String(line).Foreground(p.Color(bannerColors[i])).String())
		b.WriteString("\n")
	}
	b.WriteString(p.String("  version " + strings.TrimSpace(version)).Faint().String())
	b.WriteString("\n\n")
	return b.String()
}
