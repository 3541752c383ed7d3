package engine

import (
	"github.com/rotisserie/eris"
)

// DiscoveryError marks a failed discovery run. Candidates admitted before
// the failure remain in the store.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string {
	return "discovery failed: " + e.Err.Error()
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

var (
	// ErrNotFound is returned for operations on an unknown candidate id.
	ErrNotFound = eris.New("engine: candidate not found")

	// ErrEnrichmentRejected is returned when an enrichment request targets
	// a candidate that already has an attempt in flight (or is already
	// done, for non-retry requests).
	ErrEnrichmentRejected = eris.New("engine: enrichment already in progress or complete")
)
