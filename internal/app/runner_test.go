package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/octobees/placeharvest/internal/config"
	"github.com/octobees/placeharvest/internal/entity"
	"github.com/octobees/placeharvest/internal/pipeline"
	"github.com/octobees/placeharvest/internal/places"
	"github.com/octobees/placeharvest/internal/ratelimit"
	"github.com/octobees/placeharvest/internal/sink"
)

type fakeGeocoder struct {
	center places.LatLng
	err    error
	calls  int
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (places.LatLng, error) {
	f.calls++
	return f.center, f.err
}

type fakeCollector struct {
	ids []string
	err error
}

func (f *fakeCollector) Collect(ctx context.Context, req places.SearchRequest, center places.LatLng) ([]string, error) {
	return f.ids, f.err
}

type fakeEnricher struct {
	records  []entity.BusinessRecord
	failures []pipeline.Failure
	gotIDs   []string
}

func (f *fakeEnricher) Enrich(ctx context.Context, ids []string) ([]entity.BusinessRecord, []pipeline.Failure) {
	f.gotIDs = ids
	return f.records, f.failures
}

type recordingSink struct {
	name    string
	err     error
	written int
}

func (s *recordingSink) Name() string { return s.name }
func (s *recordingSink) Write(ctx context.Context, records []entity.BusinessRecord) error {
	s.written = len(records)
	return s.err
}

func testConfig(location string) *config.Config {
	return &config.Config{
		APIKey:       "key",
		Location:     location,
		Query:        "coffee shop",
		MaxResults:   50,
		RadiusMeters: 10000,
		Concurrency:  5,
	}
}

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(10000, time.Millisecond)
}

func TestRunnerRun(t *testing.T) {
	t.Run("geocodes free-text location", func(t *testing.T) {
		geocoder := &fakeGeocoder{center: places.LatLng{Lat: -6.2, Lng: 106.8}}
		enricher := &fakeEnricher{records: []entity.BusinessRecord{{PlaceID: "a", Name: "A"}}}
		out := &recordingSink{name: "mem"}

		runner := NewRunner(testConfig("Jakarta, Indonesia"), uuid.New(), geocoder, testLimiter(),
			&fakeCollector{ids: []string{"a"}}, enricher, []sink.Sink{out})

		summary, err := runner.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if geocoder.calls != 1 {
			t.Fatalf("expected geocoder to be called once, got %d", geocoder.calls)
		}
		if summary.Collected != 1 || summary.Records != 1 || out.written != 1 {
			t.Fatalf("unexpected summary: %+v", summary)
		}
	})

	t.Run("coordinate location skips geocoder", func(t *testing.T) {
		geocoder := &fakeGeocoder{}
		runner := NewRunner(testConfig("-6.2, 106.8"), uuid.New(), geocoder, testLimiter(),
			&fakeCollector{ids: []string{"a"}}, &fakeEnricher{}, nil)

		if _, err := runner.Run(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if geocoder.calls != 0 {
			t.Fatalf("expected geocoder to be skipped, got %d calls", geocoder.calls)
		}
	})

	t.Run("geocode failure aborts the run", func(t *testing.T) {
		geocoder := &fakeGeocoder{err: &places.SearchError{Cause: errors.New("boom")}}
		runner := NewRunner(testConfig("Nowhere"), uuid.New(), geocoder, testLimiter(),
			&fakeCollector{}, &fakeEnricher{}, nil)

		if _, err := runner.Run(context.Background()); err == nil {
			t.Fatalf("expected error on geocode failure")
		}
	})

	t.Run("empty first page failure aborts the run", func(t *testing.T) {
		collector := &fakeCollector{err: &places.SearchError{Cause: errors.New("denied")}}
		runner := NewRunner(testConfig("1,2"), uuid.New(), &fakeGeocoder{}, testLimiter(),
			collector, &fakeEnricher{}, nil)

		if _, err := runner.Run(context.Background()); err == nil {
			t.Fatalf("expected fatal error for first-page failure")
		}
	})

	t.Run("partial search proceeds with warning", func(t *testing.T) {
		collector := &fakeCollector{ids: []string{"a", "b"}, err: &places.SearchError{Cause: errors.New("page 2 failed")}}
		enricher := &fakeEnricher{}
		runner := NewRunner(testConfig("1,2"), uuid.New(), &fakeGeocoder{}, testLimiter(),
			collector, enricher, nil)

		summary, err := runner.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !summary.PartialSearch || summary.Collected != 2 {
			t.Fatalf("expected partial search summary, got %+v", summary)
		}
		if len(enricher.gotIDs) != 2 {
			t.Fatalf("expected enrichment over partial list, got %v", enricher.gotIDs)
		}
	})

	t.Run("sink failure lands in summary without aborting", func(t *testing.T) {
		enricher := &fakeEnricher{records: []entity.BusinessRecord{{PlaceID: "a"}}}
		broken := &recordingSink{name: "broken", err: errors.New("disk full")}
		healthy := &recordingSink{name: "healthy"}

		runner := NewRunner(testConfig("1,2"), uuid.New(), &fakeGeocoder{}, testLimiter(),
			&fakeCollector{ids: []string{"a"}}, enricher, []sink.Sink{broken, healthy})

		summary, err := runner.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(summary.SinkErrors) != 1 {
			t.Fatalf("expected one sink error, got %d", len(summary.SinkErrors))
		}
		if healthy.written != 1 {
			t.Fatalf("expected healthy sink to receive records")
		}
	})
}

func TestParseLatLng(t *testing.T) {
	if center, ok := parseLatLng("-6.2,106.8"); !ok || center.Lat != -6.2 || center.Lng != 106.8 {
		t.Fatalf("expected coordinates to parse, got %+v ok=%v", center, ok)
	}
	if _, ok := parseLatLng("Jakarta, Indonesia"); ok {
		t.Fatalf("expected address not to parse as coordinates")
	}
	if _, ok := parseLatLng("1,2,3"); ok {
		t.Fatalf("expected malformed input to fail")
	}
}
