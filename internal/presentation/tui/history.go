package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/loadkit/pkg/domain"
)

// HistoryMarkdown lays out journal records as a markdown table, newest first as given.
func HistoryMarkdown(records []domain.LoadRecord) string {
	var b strings.Builder
	b.WriteString("# Load history\n\n")
	if len(records) == 0 {
		b.WriteString("_No loads recorded._\n")
		return b.String()
	}

	b.WriteString("| ID | Started | Source | First item | Items | Slices | Mono | Outcome | Duration |\n")
	b.WriteString("|---|---|---|---|---:|---:|---|---|---:|\n")
	for _, r := range records {
		outcome := string(r.Outcome)
		if r.Message != "" {
			outcome += ": " + r.Message
		}
		mono := "no"
		if r.MonoSlice {
			mono = "yes"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s | %d | %d | %s | %s | %s |\n",
			shortID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			r.Source,
			escapeCell(r.First),
			r.Items,
			r.Slices,
			mono,
			escapeCell(outcome),
			r.Duration().Round(time.Millisecond),
		)
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
