package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/octobees/placeharvest/internal/places"
	"github.com/octobees/placeharvest/internal/ratelimit"
)

// DefaultPageSize is the number of results the provider returns per page.
const DefaultPageSize = 20

// defaultPageDelay gives the provider time to activate a freshly issued
// next-page token before it is used.
const defaultPageDelay = 2 * time.Second

// Walker follows search pagination until the result cap or the provider's
// last page is reached.
type Walker struct {
	search    places.SearchProvider
	limiter   *ratelimit.Limiter
	pageDelay time.Duration
	maxPages  int
}

// WalkerOption configures optional walker behaviour.
type WalkerOption func(*Walker)

// WithPageDelay overrides the wait between paginated calls.
func WithPageDelay(d time.Duration) WalkerOption {
	return func(w *Walker) {
		w.pageDelay = d
	}
}

// WithMaxPages overrides the page-count guard.
func WithMaxPages(n int) WalkerOption {
	return func(w *Walker) {
		if n > 0 {
			w.maxPages = n
		}
	}
}

// NewWalker builds a pagination walker. Every page request passes through
// the shared limiter since it consumes provider quota.
func NewWalker(search places.SearchProvider, limiter *ratelimit.Limiter, opts ...WalkerOption) *Walker {
	w := &Walker{
		search:    search,
		limiter:   limiter,
		pageDelay: defaultPageDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Collect gathers up to req.MaxResults place identifiers. A first-page
// failure returns no identifiers and the error. A later-page failure returns
// the identifiers collected so far together with the error, so callers can
// treat it as a warning and proceed with the partial list.
func (w *Walker) Collect(ctx context.Context, req places.SearchRequest, center places.LatLng) ([]string, error) {
	maxPages := w.maxPages
	if maxPages <= 0 {
		// A misbehaving provider can repeat next-page tokens forever.
		// Cap pages at what the result budget could possibly need.
		maxPages = (req.MaxResults+DefaultPageSize-1)/DefaultPageSize + 3
	}

	var (
		ids   []string
		token string
	)

	for page := 1; ; page++ {
		if page > maxPages {
			log.Warn().
				Int("pages", page-1).
				Int("collected", len(ids)).
				Msg("stopping pagination at page guard")
			break
		}

		if page > 1 {
			// The provider rejects a next-page token used too soon.
			timer := time.NewTimer(w.pageDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ids, &places.SearchError{Cause: fmt.Errorf("pagination aborted: %w", ctx.Err())}
			case <-timer.C:
			}
		}

		if err := w.limiter.Acquire(ctx); err != nil {
			return ids, &places.SearchError{Cause: err}
		}

		result, err := w.search.Search(ctx, req, center, token)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			log.Warn().Err(err).Int("page", page).Int("collected", len(ids)).Msg("page fetch failed, keeping partial results")
			return ids, err
		}
		searchPagesTotal.Inc()

		ids = append(ids, result.PlaceIDs...)
		log.Debug().Int("page", page).Int("collected", len(ids)).Msg("search page fetched")

		if len(ids) >= req.MaxResults {
			ids = ids[:req.MaxResults]
			break
		}
		if result.NextPageToken == "" {
			break
		}
		token = result.NextPageToken
	}

	return ids, nil
}
