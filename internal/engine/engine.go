// Package engine orchestrates the discovery → dedupe → admit → enrich →
// merge pipeline over the in-memory candidate store.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadgen-cli/internal/geo"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/geocode"
	"github.com/sells-group/leadgen-cli/pkg/places"
	"github.com/sells-group/leadgen-cli/pkg/research"
)

// Source selects the discovery delivery mode.
type Source string

const (
	// SourcePlaces is batch discovery via the Places text search.
	SourcePlaces Source = "places"
	// SourceResearch is streaming discovery via the generative source.
	SourceResearch Source = "research"
)

// Query describes one discovery request.
type Query struct {
	// Location is the free-text location descriptor ("Austin, TX").
	Location string
	// Area optionally restricts the search to a rectangle.
	Area geo.Area
	// BusinessType is the category descriptor ("Coffee Shops").
	BusinessType string
	// Count is the result-count hint; 0 means "all", bounded by
	// Options.MaxResults.
	Count int
	// Source picks the delivery mode; defaults to SourcePlaces.
	Source Source
}

// DiscoveryResult summarizes one discovery run.
type DiscoveryResult struct {
	Found    int `json:"found"`
	Admitted int `json:"admitted"`
}

// Options tunes engine behavior.
type Options struct {
	// MaxResults bounds a single discovery run, including "all" queries.
	MaxResults int
	// MaxConcurrentResearch limits outstanding enrichment calls in
	// ResearchAll.
	MaxConcurrentResearch int
	// CallTimeout bounds each external call; a timeout is treated as a
	// source failure.
	CallTimeout time.Duration
	// PlacesRateLimit caps Places API requests per second.
	PlacesRateLimit float64
	// Retry configures transient-error retries on external calls.
	Retry resilience.RetryConfig
}

func (o Options) withDefaults() Options {
	if o.MaxResults <= 0 {
		o.MaxResults = 60
	}
	if o.MaxConcurrentResearch <= 0 {
		o.MaxConcurrentResearch = 5
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 90 * time.Second
	}
	if o.PlacesRateLimit <= 0 {
		o.PlacesRateLimit = 10
	}
	return o
}

// Engine is the reconciliation engine. Any of the three source clients may
// be nil (missing configuration); the engine then runs with that feature
// degraded rather than failing.
type Engine struct {
	store    *store.Memory
	places   places.Client
	research research.Client
	geocoder geocode.Client
	limiter  *rate.Limiter
	opts     Options
}

// New creates an Engine over the given store and source clients.
func New(st *store.Memory, p places.Client, r research.Client, g geocode.Client, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		store:    st,
		places:   p,
		research: r,
		geocoder: g,
		limiter:  rate.NewLimiter(rate.Limit(opts.PlacesRateLimit), 1),
		opts:     opts,
	}
}

// Store exposes the candidate store for readers (presentation layer).
func (e *Engine) Store() *store.Memory { return e.store }

// Discover runs one discovery pass and admits each deduplicated candidate.
// On a source failure it returns a DiscoveryError; candidates admitted
// before the failure stay in the store (streaming is not rolled back).
func (e *Engine) Discover(ctx context.Context, q Query) (DiscoveryResult, error) {
	count := q.Count
	if count <= 0 || count > e.opts.MaxResults {
		count = e.opts.MaxResults
	}

	log := zap.L().With(
		zap.String("location", q.Location),
		zap.String("business_type", q.BusinessType),
		zap.String("source", string(q.Source)),
	)

	var res DiscoveryResult
	var err error
	switch q.Source {
	case SourceResearch:
		res, err = e.discoverStream(ctx, q, count)
	default:
		res, err = e.discoverBatch(ctx, q, count)
	}

	if err != nil {
		log.Warn("discovery failed",
			zap.Int("admitted_before_failure", res.Admitted),
			zap.Error(err),
		)
		return res, &DiscoveryError{Err: err}
	}

	log.Info("discovery complete",
		zap.Int("found", res.Found),
		zap.Int("admitted", res.Admitted),
	)
	return res, nil
}

// discoverBatch fetches candidates from the Places text search, paginating
// until count is reached or pages run out.
func (e *Engine) discoverBatch(ctx context.Context, q Query, count int) (DiscoveryResult, error) {
	var res DiscoveryResult
	if e.places == nil {
		return res, eris.New("engine: places client not configured")
	}

	textQuery := strings.TrimSpace(q.BusinessType + " in " + q.Location)
	var pageToken string
	for res.Found < count {
		if err := e.limiter.Wait(ctx); err != nil {
			return res, eris.Wrap(err, "engine: rate limit wait")
		}

		req := places.TextSearchRequest{
			TextQuery:      textQuery,
			MaxResultCount: min(count-res.Found, 20),
			PageToken:      pageToken,
		}
		if !q.Area.IsZero() {
			swLat, swLng := q.Area.SW()
			neLat, neLng := q.Area.NE()
			req.LocationRestriction = &places.LocationRect{
				Rectangle: places.Rectangle{
					Low:  places.LatLng{Latitude: swLat, Longitude: swLng},
					High: places.LatLng{Latitude: neLat, Longitude: neLng},
				},
			}
		}

		resp, err := resilience.DoVal(ctx, e.retryCfg("places", "text_search"),
			func(ctx context.Context) (*places.TextSearchResponse, error) {
				callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
				defer cancel()
				return e.places.TextSearch(callCtx, req)
			})
		if err != nil {
			return res, err
		}

		for _, place := range resp.Places {
			if res.Found >= count {
				break
			}
			res.Found++
			if e.store.Admit(e.candidateFromPlace(place, q)) {
				res.Admitted++
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return res, nil
}

// discoverStream consumes the generative discovery stream, admitting each
// lead as its line completes.
func (e *Engine) discoverStream(ctx context.Context, q Query, count int) (DiscoveryResult, error) {
	var res DiscoveryResult
	if e.research == nil {
		return res, eris.New("engine: research client not configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()

	err := e.research.DiscoverLeads(callCtx, research.DiscoverRequest{
		Area:         q.Location,
		BusinessType: q.BusinessType,
		Count:        count,
	}, func(lead research.Lead) error {
		res.Found++
		if e.store.Admit(e.candidateFromLead(lead, q)) {
			res.Admitted++
		}
		return nil
	})
	return res, err
}

func (e *Engine) candidateFromPlace(p places.Place, q Query) model.Candidate {
	c := model.Candidate{
		ID:               p.ID,
		PlaceID:          p.ID,
		DiscoveryName:    p.DisplayName.Text,
		DiscoveryWebsite: p.WebsiteURI,
		CompanyName:      p.DisplayName.Text,
		Address:          p.FormattedAddress,
		AreaSearched:     q.Location,
		BusinessType:     q.BusinessType,
		DateFound:        time.Now(),
	}
	if p.Location != nil {
		c.Geo = &model.Geo{Latitude: p.Location.Latitude, Longitude: p.Location.Longitude}
	}
	return c
}

func (e *Engine) candidateFromLead(l research.Lead, q Query) model.Candidate {
	// The stream carries no external ID; synthesize one from the discovery
	// timestamp plus a uniqueness suffix. Dedupe still keys on name+website.
	id := fmt.Sprintf("lead-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	return model.Candidate{
		ID:               id,
		DiscoveryName:    l.Name,
		DiscoveryWebsite: l.Website,
		AreaSearched:     q.Location,
		BusinessType:     q.BusinessType,
		DateFound:        time.Now(),
	}
}

func (e *Engine) retryCfg(service, operation string) resilience.RetryConfig {
	cfg := e.opts.Retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(service, operation)
	}
	return cfg
}
