// Package pipeline implements the rate-limited concurrent enrichment core:
// pagination walking, per-place detail fetching with retries, and bounded
// parallel dispatch over the collected identifiers.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"github.com/octobees/placeharvest/internal/entity"
)

// DetailFetcher is the per-identifier fetch operation dispatched by the
// pipeline.
type DetailFetcher interface {
	Fetch(ctx context.Context, id string) (entity.BusinessRecord, error)
}

// defaultGracePeriod bounds how long the pipeline waits for in-flight
// fetches after cancellation before abandoning them.
const defaultGracePeriod = 5 * time.Second

// Pipeline dispatches detail fetches over an identifier list with bounded
// parallelism and accounts for every identifier exactly once.
type Pipeline struct {
	fetcher     DetailFetcher
	concurrency int
	grace       time.Duration
}

// PipelineOption configures optional pipeline behaviour.
type PipelineOption func(*Pipeline)

// WithGracePeriod overrides how long in-flight fetches may run after
// cancellation.
func WithGracePeriod(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.grace = d
		}
	}
}

// New builds an enrichment pipeline with at most concurrency fetches in
// flight at once.
func New(fetcher DetailFetcher, concurrency int, opts ...PipelineOption) *Pipeline {
	if concurrency <= 0 {
		concurrency = 1
	}
	p := &Pipeline{
		fetcher:     fetcher,
		concurrency: concurrency,
		grace:       defaultGracePeriod,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enrich fetches details for every identifier and returns the successful
// records together with the per-identifier failures. Identifiers are
// deduplicated first; each unique identifier resolves to exactly one entry
// in the union of the two lists. Empty strings are not identifiers and are
// dropped during deduplication. Result order does not follow input order.
func (p *Pipeline) Enrich(ctx context.Context, ids []string) ([]entity.BusinessRecord, []Failure) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	col := newCollector()

	pool, err := ants.NewPool(p.concurrency)
	if err != nil {
		// Pool creation only fails on invalid sizes, which New guards
		// against, but every identifier still needs an outcome.
		for _, id := range unique {
			col.failure(Failure{PlaceID: id, Kind: FailurePermanent, Err: fmt.Errorf("create worker pool: %w", err)})
		}
		return col.seal(unique)
	}
	defer pool.Release()

	var wg sync.WaitGroup

	start := time.Now()
	log.Info().Int("identifiers", len(unique)).Int("concurrency", p.concurrency).Msg("starting enrichment")

	for _, id := range unique {
		if ctx.Err() != nil {
			// Remaining identifiers are sealed as cancelled below.
			break
		}

		wg.Add(1)
		id := id
		submitErr := pool.Submit(func() {
			defer wg.Done()
			record, fetchErr := p.fetcher.Fetch(ctx, id)
			if fetchErr != nil {
				col.failure(classifyFailure(id, fetchErr))
				return
			}
			col.success(id, record)
		})
		if submitErr != nil {
			wg.Done()
			col.failure(Failure{PlaceID: id, Kind: FailurePermanent, Err: fmt.Errorf("dispatch fetch: %w", submitErr)})
		}
	}

	p.waitWithGrace(ctx, &wg)

	records, failures := col.seal(unique)
	log.Info().
		Int("records", len(records)).
		Int("failures", len(failures)).
		Dur("duration", time.Since(start)).
		Msg("enrichment finished")
	return records, failures
}

// waitWithGrace joins all dispatched work. After cancellation the wait is
// bounded by the grace period; stragglers are abandoned and sealed as
// cancelled.
func (p *Pipeline) waitWithGrace(ctx context.Context, wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-ctx.Done():
	}

	timer := time.NewTimer(p.grace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		log.Warn().Dur("grace", p.grace).Msg("abandoning in-flight fetches after grace period")
	}
}

// collector gathers outcomes from workers under one lock. After seal, late
// results from abandoned workers are dropped.
type collector struct {
	mu       sync.Mutex
	sealed   bool
	resolved map[string]struct{}
	records  []entity.BusinessRecord
	failures []Failure
}

func newCollector() *collector {
	return &collector{resolved: make(map[string]struct{})}
}

func (c *collector) success(id string, record entity.BusinessRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return
	}
	c.resolved[id] = struct{}{}
	c.records = append(c.records, record)
}

func (c *collector) failure(failure Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sealed {
		return
	}
	c.resolved[failure.PlaceID] = struct{}{}
	c.failures = append(c.failures, failure)
}

// seal closes the collector and reports any identifier without an outcome
// as cancelled, so nothing silently disappears.
func (c *collector) seal(unique []string) ([]entity.BusinessRecord, []Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
	for _, id := range unique {
		if _, ok := c.resolved[id]; !ok {
			c.failures = append(c.failures, Failure{
				PlaceID: id,
				Kind:    FailureCancelled,
				Err:     context.Canceled,
			})
		}
	}
	return c.records, c.failures
}

// dedupe drops repeated identifiers, preserving first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
