package engine

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/places"
	"github.com/sells-group/leadgen-cli/pkg/research"
)

const (
	failedMsg      = "Research failed."
	retryFailedMsg = "Retry failed."
)

// Enrich runs one enrichment attempt for the candidate. It rejects a
// candidate that is already in progress or already done; use Retry for an
// explicit refresh. Source failures are recorded on the record, never
// returned.
func (e *Engine) Enrich(ctx context.Context, id string) error {
	if _, ok := e.store.Get(id); !ok {
		return ErrNotFound
	}
	gen, ok := e.store.BeginEnrichment(id, false)
	if !ok {
		return ErrEnrichmentRejected
	}
	e.enrichOnce(ctx, id, gen, failedMsg)
	return nil
}

// Retry re-enters the enrichment path for one candidate, stamping the
// retry time into DateFound. Prior enriched fields stay visible until new
// results overwrite them. A candidate already in progress is rejected so
// no two attempts for the same id are ever in flight together.
func (e *Engine) Retry(ctx context.Context, id string) error {
	if _, ok := e.store.Get(id); !ok {
		return ErrNotFound
	}
	gen, ok := e.store.BeginEnrichment(id, true)
	if !ok {
		return ErrEnrichmentRejected
	}
	e.store.RefreshDateFound(id, time.Now())
	e.enrichOnce(ctx, id, gen, retryFailedMsg)
	return nil
}

// ResearchAll enriches every candidate still pending, dispatching
// concurrently up to the configured limit. Candidates already done or in
// progress are skipped. Always returns nil: per-candidate failures live on
// the records.
func (e *Engine) ResearchAll(ctx context.Context) error {
	var ids []string
	for _, c := range e.store.List() {
		if c.EnrichmentState == model.EnrichmentPending {
			ids = append(ids, c.ID)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.MaxConcurrentResearch)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			gen, ok := e.store.BeginEnrichment(id, false)
			if !ok {
				return nil // raced with a concurrent attempt; coalesce
			}
			e.enrichOnce(ctx, id, gen, failedMsg)
			return nil
		})
	}
	return g.Wait()
}

// enrichOnce performs the research pass for one already-begun attempt:
// generative research first, then the structured details lookup (whose
// address/phone/website win on overlap), then geocoding when coordinates
// are still missing. Exactly one of CompleteEnrichment/FailEnrichment is
// called with this attempt's generation; a stale generation is discarded
// by the store.
func (e *Engine) enrichOnce(ctx context.Context, id string, gen uint64, failMsg string) {
	cand, ok := e.store.Get(id)
	if !ok {
		return
	}

	log := zap.L().With(zap.String("candidate_id", id), zap.String("name", cand.DiscoveryName))

	var enr model.Enrichment
	succeeded := false

	if e.research != nil {
		report, err := resilience.DoVal(ctx, e.retryCfg("research", "research_lead"),
			func(ctx context.Context) (*research.LeadReport, error) {
				callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
				defer cancel()
				return e.research.ResearchLead(callCtx, research.ResearchRequest{
					Name:    cand.DiscoveryName,
					Website: cand.Website,
				})
			})
		if err != nil {
			log.Warn("generative research failed", zap.Error(err))
		} else {
			enr.CompanyName = report.CompanyName
			enr.ContactName = report.ContactName
			enr.Address = report.Address
			enr.Phone = report.Phone
			enr.Email = report.Email
			enr.Description = report.Description
			succeeded = true
		}
	}

	if e.places != nil && cand.PlaceID != "" {
		details, err := resilience.DoVal(ctx, e.retryCfg("places", "details"),
			func(ctx context.Context) (*places.PlaceDetails, error) {
				callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
				defer cancel()
				return e.places.Details(callCtx, cand.PlaceID)
			})
		if err != nil {
			log.Warn("place details lookup failed", zap.Error(err))
		} else {
			applyDetails(details, &enr)
			succeeded = true
		}
	}

	if !succeeded {
		if e.store.FailEnrichment(id, gen, failMsg) {
			log.Warn("enrichment failed", zap.String("message", failMsg))
		}
		return
	}

	e.maybeGeocode(ctx, cand, &enr)

	if e.store.CompleteEnrichment(id, gen, enr) {
		log.Info("enrichment merged")
	} else {
		log.Debug("stale enrichment discarded", zap.Uint64("generation", gen))
	}
}

// maybeGeocode fills enr.Geo from the best available address when neither
// the candidate nor the enrichment carries coordinates yet. Geocode
// failures are ignored: coordinates are a nice-to-have.
func (e *Engine) maybeGeocode(ctx context.Context, cand model.Candidate, enr *model.Enrichment) {
	if e.geocoder == nil || !e.geocoder.Available() {
		return
	}
	if cand.Geo != nil || enr.Geo != nil {
		return
	}
	addr := enr.Address
	if addr == "" {
		addr = cand.Address
	}
	if addr == "" {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()

	result, err := e.geocoder.Geocode(callCtx, addr)
	if err != nil {
		zap.L().Debug("geocode failed", zap.String("address", addr), zap.Error(err))
		return
	}
	if result.Matched {
		enr.Geo = &model.Geo{Latitude: result.Latitude, Longitude: result.Longitude}
	}
}

// applyDetails overlays the structured lookup onto the merge payload.
// Structured data is authoritative for the attributes both sources supply,
// so non-empty detail fields overwrite whatever generative research found.
func applyDetails(d *places.PlaceDetails, enr *model.Enrichment) {
	if d.FormattedAddress != "" {
		enr.Address = d.FormattedAddress
	}
	if d.NationalPhoneNumber != "" {
		enr.Phone = d.NationalPhoneNumber
	}
	if d.WebsiteURI != "" {
		enr.Website = d.WebsiteURI
	}
	if d.DisplayName.Text != "" && enr.CompanyName == "" {
		enr.CompanyName = d.DisplayName.Text
	}
	if d.Rating > 0 {
		enr.Rating = d.Rating
	}
	if d.UserRatingCount > 0 {
		enr.RatingCount = d.UserRatingCount
	}
	if d.RegularOpeningHours != nil && len(d.RegularOpeningHours.WeekdayDescriptions) > 0 {
		enr.OpeningHours = strings.Join(d.RegularOpeningHours.WeekdayDescriptions, "; ")
	}
	if d.Location != nil {
		enr.Geo = &model.Geo{Latitude: d.Location.Latitude, Longitude: d.Location.Longitude}
	}
}
