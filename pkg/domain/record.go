package domain

import "time"

// Source identifies which kind of backend served a load.
type Source string

const (
	SourceFiles  Source = "files"
	SourceURLs   Source = "urls"
	SourceMemory Source = "memory"
)

// Outcome is the terminal result of a load.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomeAbort   Outcome = "abort"
)

// LoadRecord is the journal entry for one finished image load.
type LoadRecord struct {
	ID        string    `json:"id"`
	Source    Source    `json:"source"`
	Items     int       `json:"items"`
	First     string    `json:"first"`
	MonoSlice bool      `json:"mono_slice"`
	Slices    int       `json:"slices"`
	Outcome   Outcome   `json:"outcome"`
	Message   string    `json:"message,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Duration returns how long the load took.
func (r LoadRecord) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}
