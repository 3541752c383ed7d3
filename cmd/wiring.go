package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/engine"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/geocode"
	"github.com/sells-group/leadgen-cli/pkg/places"
	"github.com/sells-group/leadgen-cli/pkg/research"
)

// buildEngine assembles the engine from configuration. Missing API keys
// leave the corresponding client nil and the engine degrades that feature;
// nothing here is fatal. The returned cleanup closes the geocode cache.
func buildEngine() (*engine.Engine, func()) {
	var placesClient places.Client
	if cfg.Places.Key != "" {
		var opts []places.Option
		if cfg.Places.BaseURL != "" {
			opts = append(opts, places.WithBaseURL(cfg.Places.BaseURL))
		}
		placesClient = places.NewClient(cfg.Places.Key, opts...)
	} else {
		zap.L().Warn("places API key missing; batch discovery and details lookup disabled")
	}

	var researchClient research.Client
	if cfg.Research.Key != "" {
		researchClient = research.NewClient(cfg.Research.Key,
			research.WithModel(cfg.Research.Model),
			research.WithMaxTokens(cfg.Research.MaxTokens),
		)
	} else {
		zap.L().Warn("research API key missing; streaming discovery and enrichment disabled")
	}

	cleanup := func() {}
	var geocoder geocode.Client
	if cfg.Geocode.Key != "" {
		geocoder = geocode.NewClient(cfg.Geocode.Key)
		if cfg.Geocode.CachePath != "" {
			cached, err := geocode.NewCachedClient(geocoder, cfg.Geocode.CachePath,
				time.Duration(cfg.Geocode.CacheTTLH)*time.Hour)
			if err != nil {
				zap.L().Warn("geocode cache unavailable, running uncached", zap.Error(err))
			} else {
				geocoder = cached
				cleanup = func() { _ = cached.Close() }
			}
		}
	} else {
		zap.L().Warn("geocode API key missing; geospatial features disabled")
	}

	eng := engine.New(store.NewMemory(), placesClient, researchClient, geocoder, engine.Options{
		MaxResults:            cfg.Engine.MaxResults,
		MaxConcurrentResearch: cfg.Engine.MaxConcurrentResearch,
		CallTimeout:           time.Duration(cfg.Engine.CallTimeoutSecs) * time.Second,
		PlacesRateLimit:       cfg.Places.RateLimit,
	})
	return eng, cleanup
}
