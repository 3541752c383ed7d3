// Package model defines the candidate data model shared by the engine,
// store, exporters, and HTTP API.
package model

import (
	"time"
)

// Status is the business-workflow status of a candidate. It is set by the
// presentation layer (or an operator), never by the engine, which only
// defaults it to StatusDiscovered at creation.
type Status string

const (
	StatusDiscovered Status = "discovered"
	StatusEmailed    Status = "emailed"
	StatusReplied    Status = "replied"
)

// EnrichmentState is the engine-owned lifecycle of the research pass.
// Valid transitions: pending→in_progress→{done,failed}; failed→in_progress
// via retry; done→in_progress only through the explicit retry operation.
type EnrichmentState string

const (
	EnrichmentPending    EnrichmentState = "pending"
	EnrichmentInProgress EnrichmentState = "in_progress"
	EnrichmentDone       EnrichmentState = "done"
	EnrichmentFailed     EnrichmentState = "failed"
)

// Geo holds a candidate's coordinates when a source supplied them.
type Geo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Candidate is one discovered business. DiscoveryName and DiscoveryWebsite
// are captured at discovery time and never mutated; they form the dedupe
// key when no external place ID exists.
type Candidate struct {
	// ID is stable for the session: the external place ID when the source
	// provided one, otherwise synthesized at discovery time.
	ID string `json:"id"`
	// PlaceID is the external identifier, empty for stream-discovered
	// candidates. When present it is the dedupe key.
	PlaceID          string `json:"place_id,omitempty"`
	DiscoveryName    string `json:"discovery_name"`
	DiscoveryWebsite string `json:"discovery_website,omitempty"`

	// Enriched fields, empty until a research pass completes. Website is
	// seeded from DiscoveryWebsite at creation and may be refreshed by the
	// structured details source; DiscoveryWebsite itself never changes.
	Website     string `json:"website,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Description string `json:"description,omitempty"`

	// Structured place-details extras.
	Rating       float64 `json:"rating,omitempty"`
	RatingCount  int     `json:"rating_count,omitempty"`
	OpeningHours string  `json:"opening_hours,omitempty"`

	Geo *Geo `json:"geo,omitempty"`

	Status          Status          `json:"status"`
	EnrichmentState EnrichmentState `json:"enrichment_state"`

	// Provenance, set at discovery time and refreshed on retry.
	AreaSearched  string    `json:"area_searched,omitempty"`
	BusinessType  string    `json:"business_type,omitempty"`
	DateFound     time.Time `json:"date_found"`
	EmailThreadID string    `json:"email_thread_id,omitempty"`
}

// Enrichment is the merge payload produced by a completed research pass.
// Empty fields never overwrite non-empty candidate fields.
type Enrichment struct {
	CompanyName  string
	ContactName  string
	Address      string
	Phone        string
	Email        string
	Description  string
	Website      string
	Rating       float64
	RatingCount  int
	OpeningHours string
	Geo          *Geo
}

// ValidStatus reports whether s is a recognized workflow status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDiscovered, StatusEmailed, StatusReplied:
		return true
	}
	return false
}
