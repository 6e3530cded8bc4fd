package model

import "fmt"

// Kind classifies a degraded condition reported alongside run results.
type Kind string

const (
	// KindSourceUnavailable means a source could not be fetched or parsed and
	// its leads were replaced by synthetic fallback data.
	KindSourceUnavailable Kind = "source_unavailable"
	// KindStoreUnavailable means the lead store could not be read or written.
	KindStoreUnavailable Kind = "store_unavailable"
	// KindMalformedRecord means a raw record lacked fields and was filled
	// with the NA sentinel.
	KindMalformedRecord Kind = "malformed_record"
)

// Warning is a non-fatal condition surfaced to callers so they can tell
// authoritative results from fallbacks.
type Warning struct {
	Kind    Kind   `json:"kind"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Source == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Kind, w.Source, w.Message)
}
