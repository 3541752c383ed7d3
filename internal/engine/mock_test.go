package engine

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/pkg/geocode"
	"github.com/sells-group/leadgen-cli/pkg/places"
	"github.com/sells-group/leadgen-cli/pkg/research"
)

// mockPlaces serves canned text-search pages keyed by page token and
// canned details keyed by place ID.
type mockPlaces struct {
	mu           sync.Mutex
	pages        map[string]*places.TextSearchResponse // keyed by page token, "" for the first
	details      map[string]*places.PlaceDetails
	searchCalls  []places.TextSearchRequest
	detailsCalls []string
	searchErr    error
	detailsErr   error
}

func (m *mockPlaces) TextSearch(_ context.Context, req places.TextSearchRequest) (*places.TextSearchResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls = append(m.searchCalls, req)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	resp, ok := m.pages[req.PageToken]
	if !ok {
		return &places.TextSearchResponse{}, nil
	}
	return resp, nil
}

func (m *mockPlaces) Details(_ context.Context, placeID string) (*places.PlaceDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detailsCalls = append(m.detailsCalls, placeID)
	if m.detailsErr != nil {
		return nil, m.detailsErr
	}
	d, ok := m.details[placeID]
	if !ok {
		return nil, eris.Errorf("no details for %q", placeID)
	}
	return d, nil
}

// mockResearch emits canned leads for discovery and serves canned reports
// keyed by lead name.
type mockResearch struct {
	mu            sync.Mutex
	leads         []research.Lead
	reports       map[string]*research.LeadReport
	researchCalls []research.ResearchRequest
	discoverErr   error // returned after emitting leads, like a mid-stream failure
	researchErr   error
}

func (m *mockResearch) DiscoverLeads(_ context.Context, _ research.DiscoverRequest, emit func(research.Lead) error) error {
	for _, lead := range m.leads {
		if err := emit(lead); err != nil {
			return err
		}
	}
	return m.discoverErr
}

func (m *mockResearch) ResearchLead(_ context.Context, req research.ResearchRequest) (*research.LeadReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.researchCalls = append(m.researchCalls, req)
	if m.researchErr != nil {
		return nil, m.researchErr
	}
	report, ok := m.reports[req.Name]
	if !ok {
		return &research.LeadReport{}, nil
	}
	r := *report
	return &r, nil
}

// mockGeocoder resolves every address to a fixed point.
type mockGeocoder struct {
	mu     sync.Mutex
	calls  []string
	result geocode.Result
	err    error
}

func (m *mockGeocoder) Geocode(_ context.Context, address string) (*geocode.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, address)
	if m.err != nil {
		return nil, m.err
	}
	r := m.result
	return &r, nil
}

func (m *mockGeocoder) Available() bool { return true }
