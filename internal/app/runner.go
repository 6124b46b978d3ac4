// Package app orchestrates one harvest run: geocode, collect identifiers,
// enrich, and hand the results to the configured sinks.
package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/octobees/placeharvest/internal/config"
	"github.com/octobees/placeharvest/internal/entity"
	"github.com/octobees/placeharvest/internal/pipeline"
	"github.com/octobees/placeharvest/internal/places"
	"github.com/octobees/placeharvest/internal/ratelimit"
	"github.com/octobees/placeharvest/internal/sink"
)

// Collector produces the identifier list for one search session.
type Collector interface {
	Collect(ctx context.Context, req places.SearchRequest, center places.LatLng) ([]string, error)
}

// Enricher turns an identifier list into records plus per-identifier failures.
type Enricher interface {
	Enrich(ctx context.Context, ids []string) ([]entity.BusinessRecord, []pipeline.Failure)
}

// RunSummary reports the outcome of one harvest run.
type RunSummary struct {
	RunID         uuid.UUID
	Collected     int
	Records       int
	Failures      []pipeline.Failure
	SinkErrors    []error
	PartialSearch bool
	Duration      time.Duration
}

// Runner wires the run-scoped pipeline components together.
type Runner struct {
	cfg       *config.Config
	runID     uuid.UUID
	geocoder  places.Geocoder
	limiter   *ratelimit.Limiter
	collector Collector
	enricher  Enricher
	sinks     []sink.Sink
}

// NewRunner builds a runner for one configured harvest.
func NewRunner(cfg *config.Config, runID uuid.UUID, geocoder places.Geocoder, limiter *ratelimit.Limiter, collector Collector, enricher Enricher, sinks []sink.Sink) *Runner {
	return &Runner{
		cfg:       cfg,
		runID:     runID,
		geocoder:  geocoder,
		limiter:   limiter,
		collector: collector,
		enricher:  enricher,
		sinks:     sinks,
	}
}

// Run executes the harvest. Only geocoding and first-page search failures
// abort the run; everything downstream is best-effort and lands in the
// summary.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{RunID: r.runID}

	center, err := r.resolveCenter(ctx)
	if err != nil {
		return nil, err
	}

	req := places.SearchRequest{
		Query:        r.cfg.Query,
		Location:     r.cfg.Location,
		RadiusMeters: r.cfg.RadiusMeters,
		MaxResults:   r.cfg.MaxResults,
	}

	ids, err := r.collector.Collect(ctx, req, center)
	if err != nil {
		if len(ids) == 0 {
			return nil, err
		}
		log.Warn().Err(err).Int("collected", len(ids)).Msg("search ended early, continuing with partial identifier list")
		summary.PartialSearch = true
	}
	summary.Collected = len(ids)

	records, failures := r.enricher.Enrich(ctx, ids)
	summary.Records = len(records)
	summary.Failures = failures

	summary.SinkErrors = sink.WriteAll(ctx, r.sinks, records)
	summary.Duration = time.Since(start)

	r.logSummary(summary)
	return summary, nil
}

// resolveCenter turns the configured location into coordinates. A location
// already in "lat,lng" form skips the geocoder; geocoding consumes provider
// quota and therefore passes through the limiter.
func (r *Runner) resolveCenter(ctx context.Context) (places.LatLng, error) {
	if center, ok := parseLatLng(r.cfg.Location); ok {
		return center, nil
	}

	if err := r.limiter.Acquire(ctx); err != nil {
		return places.LatLng{}, &places.SearchError{Cause: err}
	}

	center, err := r.geocoder.Geocode(ctx, r.cfg.Location)
	if err != nil {
		return places.LatLng{}, err
	}
	log.Debug().
		Str("location", r.cfg.Location).
		Float64("lat", center.Lat).
		Float64("lng", center.Lng).
		Msg("geocoded search location")
	return center, nil
}

func (r *Runner) logSummary(summary *RunSummary) {
	event := log.Info()
	if len(summary.Failures) > 0 || len(summary.SinkErrors) > 0 {
		event = log.Warn()
	}
	event.
		Stringer("run_id", summary.RunID).
		Int("collected", summary.Collected).
		Int("records", summary.Records).
		Int("failures", len(summary.Failures)).
		Int("sink_errors", len(summary.SinkErrors)).
		Dur("duration", summary.Duration).
		Msg("harvest run finished")

	for _, failure := range summary.Failures {
		log.Debug().
			Str("place_id", failure.PlaceID).
			Str("kind", string(failure.Kind)).
			Err(failure.Err).
			Msg("identifier failed")
	}
	for _, err := range summary.SinkErrors {
		log.Error().Err(err).Msg("sink write failed")
	}
}

func parseLatLng(location string) (places.LatLng, bool) {
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return places.LatLng{}, false
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lngErr != nil {
		return places.LatLng{}, false
	}
	return places.LatLng{Lat: lat, Lng: lng}, true
}
