// Package store holds the in-memory candidate collection for one session.
//
// The store is the only shared mutable resource in the system. All writes
// go through a single mutex, which makes admit-and-dedupe and merge-by-id
// atomic with respect to each other and to readers; readers always receive
// copies, never live pointers.
package store

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Memory is an insertion-ordered, mutex-guarded candidate store.
type Memory struct {
	mu    sync.Mutex
	byID  map[string]*record
	byKey map[string]string // dedupe key → id
	order []string
}

type record struct {
	cand model.Candidate
	gen  uint64 // monotonically increasing enrichment attempt counter
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		byID:  make(map[string]*record),
		byKey: make(map[string]string),
	}
}

// Admit inserts c if neither its ID nor its dedupe key is present.
// Returns false when the candidate is a duplicate. Status defaults to
// discovered and EnrichmentState to pending; Website is seeded from
// DiscoveryWebsite when empty.
func (m *Memory) Admit(c model.Candidate) bool {
	if c.Status == "" {
		c.Status = model.StatusDiscovered
	}
	if c.EnrichmentState == "" {
		c.EnrichmentState = model.EnrichmentPending
	}
	if c.Website == "" {
		c.Website = c.DiscoveryWebsite
	}

	key := DedupeKey(c)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[c.ID]; ok {
		return false
	}
	if _, ok := m.byKey[key]; ok {
		return false
	}

	m.byID[c.ID] = &record{cand: c}
	m.byKey[key] = c.ID
	m.order = append(m.order, c.ID)
	return true
}

// Get returns a copy of the candidate with the given id.
func (m *Memory) Get(id string) (model.Candidate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return model.Candidate{}, false
	}
	return r.cand, true
}

// List returns copies of all candidates in insertion order.
func (m *Memory) List() []model.Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Candidate, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id].cand)
	}
	return out
}

// Len returns the number of candidates in the store.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

// BeginEnrichment transitions a candidate to in_progress and returns the
// generation tag for this attempt. A candidate already in_progress is
// rejected, so at most one attempt per id is live at a time. When force is
// false a done candidate is also rejected (bulk research must not re-enrich);
// retry passes force=true to allow a refresh pass.
func (m *Memory) BeginEnrichment(id string, force bool) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return 0, false
	}
	if r.cand.EnrichmentState == model.EnrichmentInProgress {
		return 0, false
	}
	if r.cand.EnrichmentState == model.EnrichmentDone && !force {
		return 0, false
	}

	r.gen++
	r.cand.EnrichmentState = model.EnrichmentInProgress
	return r.gen, true
}

// CompleteEnrichment merges e into the candidate and flips it to done.
// A completion whose generation is stale (a newer attempt has started) is
// discarded so an older in-flight call can never overwrite fresher data.
// The merge is additive: an empty incoming field never blanks an existing
// non-empty one.
func (m *Memory) CompleteEnrichment(id string, gen uint64, e model.Enrichment) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok || r.gen != gen {
		return false
	}

	mergeField(&r.cand.CompanyName, e.CompanyName)
	mergeField(&r.cand.ContactName, e.ContactName)
	mergeField(&r.cand.Address, e.Address)
	mergeField(&r.cand.Phone, e.Phone)
	mergeField(&r.cand.Email, e.Email)
	mergeField(&r.cand.Description, e.Description)
	mergeField(&r.cand.Website, e.Website)
	mergeField(&r.cand.OpeningHours, e.OpeningHours)
	if e.Rating > 0 {
		r.cand.Rating = e.Rating
	}
	if e.RatingCount > 0 {
		r.cand.RatingCount = e.RatingCount
	}
	if e.Geo != nil {
		g := *e.Geo
		r.cand.Geo = &g
	}
	r.cand.EnrichmentState = model.EnrichmentDone
	return true
}

// FailEnrichment marks the attempt failed and records msg as the
// description (the UI failure indicator). Stale generations are discarded.
// No other enriched field is touched.
func (m *Memory) FailEnrichment(id string, gen uint64, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok || r.gen != gen {
		return false
	}

	r.cand.EnrichmentState = model.EnrichmentFailed
	if msg != "" {
		r.cand.Description = msg
	}
	return true
}

// mergeField overwrites dst with src unless src is empty; existing values
// are never blanked by an absent incoming field.
func mergeField(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// RefreshDateFound overwrites the candidate's DateFound, used by retry to
// stamp the newest research attempt.
func (m *Memory) RefreshDateFound(id string, t time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return false
	}
	r.cand.DateFound = t
	return true
}

// SetStatus updates the workflow status of a candidate.
func (m *Memory) SetStatus(id string, s model.Status) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return false
	}
	r.cand.Status = s
	return true
}

// SetEmailThreadID records the email thread a candidate was contacted on.
func (m *Memory) SetEmailThreadID(id, threadID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return false
	}
	r.cand.EmailThreadID = threadID
	return true
}

// DedupeKey derives the identity key for a candidate: the external place
// ID when present (id-keyed sources are idempotent across runs), otherwise
// the normalized website|name pair.
func DedupeKey(c model.Candidate) string {
	if c.PlaceID != "" {
		return "id:" + c.PlaceID
	}
	return "nw:" + normalizeKey(c.DiscoveryWebsite) + "|" + normalizeKey(c.DiscoveryName)
}

var keyNormalizer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// normalizeKey lowercases, strips diacritics, and collapses whitespace so
// "Café  Azul" and "cafe azul" dedupe to the same key.
func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(keyNormalizer, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}
