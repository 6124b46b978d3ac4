package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/octobees/placeharvest/internal/enrich"
	"github.com/octobees/placeharvest/internal/entity"
	"github.com/octobees/placeharvest/internal/places"
	"github.com/octobees/placeharvest/internal/ratelimit"
)

// EmailFinder looks up a contact email on a business website.
type EmailFinder interface {
	FindEmail(ctx context.Context, websiteURL string) (string, error)
}

// Fetcher retrieves and maps the full detail payload for one identifier,
// retrying transient provider failures.
type Fetcher struct {
	provider    places.DetailProvider
	limiter     *ratelimit.Limiter
	policy      Policy
	runID       uuid.UUID
	phoneRegion string
	emails      EmailFinder
	now         func() time.Time
}

// FetcherOption configures optional fetcher dependencies.
type FetcherOption func(*Fetcher)

// WithRunID stamps fetched records with the given run identifier.
func WithRunID(id uuid.UUID) FetcherOption {
	return func(f *Fetcher) {
		f.runID = id
	}
}

// WithPhoneRegion sets the default region for parsing national phone formats.
func WithPhoneRegion(region string) FetcherOption {
	return func(f *Fetcher) {
		if region != "" {
			f.phoneRegion = region
		}
	}
}

// WithEmailFinder enables website email enrichment during record mapping.
func WithEmailFinder(finder EmailFinder) FetcherOption {
	return func(f *Fetcher) {
		f.emails = finder
	}
}

// WithClock overrides the record timestamp source, used by tests.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFetcher builds a detail fetcher. Every attempt acquires a limiter slot
// before calling the provider.
func NewFetcher(provider places.DetailProvider, limiter *ratelimit.Limiter, policy Policy, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		provider:    provider,
		limiter:     limiter,
		policy:      policy,
		runID:       uuid.New(),
		phoneRegion: "US",
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the detail payload for id and maps it into a
// BusinessRecord. Transient failures are retried per the policy; permanent
// failures return immediately. A transient error that outlives the budget
// comes back as a DetailError with Exhausted set.
func (f *Fetcher) Fetch(ctx context.Context, id string) (entity.BusinessRecord, error) {
	var raw places.RawPlace
	err := f.policy.Do(ctx, places.IsTransient, func() error {
		if err := f.limiter.Acquire(ctx); err != nil {
			return err
		}
		var fetchErr error
		raw, fetchErr = f.provider.Details(ctx, id)
		return fetchErr
	})
	if err != nil {
		var detailErr *places.DetailError
		if errors.As(err, &detailErr) && detailErr.Transient {
			detailErr.Exhausted = true
			detailErr.Cause = errors.Join(places.ErrRetryExhausted, detailErr.Cause)
		}
		detailFetchTotal.WithLabelValues("error").Inc()
		return entity.BusinessRecord{}, err
	}

	detailFetchTotal.WithLabelValues("success").Inc()
	return f.mapRecord(ctx, id, raw), nil
}

// mapRecord turns the provider payload into an immutable BusinessRecord.
// Missing optional fields become nil, never an error.
func (f *Fetcher) mapRecord(ctx context.Context, id string, raw places.RawPlace) entity.BusinessRecord {
	scrapedAt := f.now().UTC()
	record := entity.BusinessRecord{
		PlaceID:   raw.PlaceID,
		RunID:     f.runID,
		Name:      raw.Name,
		Rating:    raw.Rating,
		Reviews:   raw.UserRatingsTotal,
		Types:     raw.Types,
		ScrapedAt: &scrapedAt,
	}
	if record.PlaceID == "" {
		record.PlaceID = id
	}
	if raw.FormattedAddress != "" {
		record.Address = &raw.FormattedAddress
	}
	if raw.FormattedPhone != "" {
		phone := enrich.NormalizePhone(raw.FormattedPhone, f.phoneRegion)
		record.Phone = &phone
	}
	if raw.Website != "" {
		record.Website = &raw.Website
		if f.emails != nil {
			if email, err := f.emails.FindEmail(ctx, raw.Website); err != nil {
				log.Debug().Err(err).Str("website", raw.Website).Msg("email enrichment failed")
			} else if email != "" {
				record.Email = &email
			}
		}
	}
	return record
}
