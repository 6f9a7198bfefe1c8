// Package services – RefreshService
//
// This file implements the refresh pipeline: fetch both upstream payloads
// concurrently, merge them into normalized records, reconcile against the
// stored set, commit everything in one transaction, and finally regenerate
// the summary image best-effort. The refresh result is defined solely by the
// commit; summary generation failures are logged and absorbed.
package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-country-cache/internal/repo"
	"github.com/tbourn/go-country-cache/internal/upstream"
)

// Fetcher is the upstream capability consumed by the refresh pipeline.
// *upstream.Client satisfies it.
type Fetcher interface {
	// FetchAll returns the raw country payload and the exchange-rate table,
	// or a *upstream.Error naming the failed service.
	FetchAll(ctx context.Context) ([]upstream.RawCountry, map[string]float64, error)
}

// SummaryGenerator regenerates the derived summary artifact from current
// store state. Implementations must contain their own failures; the refresh
// treats any returned error as log-only.
type SummaryGenerator interface {
	Generate(ctx context.Context) error
}

// RefreshResult is the success payload of one refresh run.
type RefreshResult struct {
	// Processed counts every source record received from the countries
	// upstream, including items skipped during merging.
	Processed int
	// Inserted and Updated describe the committed write set.
	Inserted int
	Updated  int
	// SkippedItems counts raw items dropped by the merge step.
	SkippedItems int
}

// RefreshService orchestrates the refresh pipeline. Invocations are
// serialized: a second Refresh while one is running fails fast with
// ErrRefreshInFlight rather than queueing.
type RefreshService struct {
	// DB is the GORM handle used for the bulk read and the commit.
	DB *gorm.DB
	// Fetcher retrieves both upstream payloads.
	Fetcher Fetcher
	// Summary regenerates the summary image after a successful commit.
	// May be nil (e.g. in tests), in which case the step is skipped.
	Summary SummaryGenerator
	// Merger transforms raw items; its random source draws GDP multipliers.
	Merger Merger

	mu sync.Mutex // held for the duration of one refresh
}

// NewRefreshService constructs a RefreshService with the production merger
// (wall clock, unseeded multiplier).
func NewRefreshService(db *gorm.DB, fetcher Fetcher, summary SummaryGenerator) *RefreshService {
	return &RefreshService{
		DB:      db,
		Fetcher: fetcher,
		Summary: summary,
		Merger:  Merger{Rand: rand.Float64, Now: time.Now},
	}
}

// Refresh runs the full pipeline once.
//
// Error contract:
//   - *upstream.Error when either external fetch fails; nothing is written.
//   - an error wrapping ErrStorage when the bulk read or the transactional
//     commit fails; nothing is committed (all-or-nothing).
//   - ErrRefreshInFlight when another refresh is still running.
//
// Summary generation runs after a successful commit and never affects the
// returned result.
func (s *RefreshService) Refresh(ctx context.Context) (*RefreshResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrRefreshInFlight
	}
	defer s.mu.Unlock()

	lg := log.With().Str("component", "refresh").Logger()
	lg.Info().Msg("country data refresh started")

	raw, rates, err := s.Fetcher.FetchAll(ctx)
	if err != nil {
		lg.Error().Err(err).Msg("upstream fetch failed")
		return nil, err
	}
	lg.Info().
		Int("countries", len(raw)).
		Int("rates", len(rates)).
		Msg("upstream payloads fetched")

	merged := s.Merger.MergeAll(raw, rates)
	for _, sk := range merged.Skipped {
		lg.Warn().Int("index", sk.Index).Str("reason", sk.Reason).Msg("skipping country item")
	}

	existing, err := repo.AllCountries(ctx, s.DB)
	if err != nil {
		lg.Error().Err(err).Msg("bulk read of existing countries failed")
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	plan := Reconcile(existing, merged.Records)
	for i := range plan.Inserts {
		plan.Inserts[i].ID = uuid.NewString()
	}
	lg.Info().
		Int("inserts", len(plan.Inserts)).
		Int("updates", len(plan.Updates)).
		Msg("reconciliation planned")

	now := s.Merger.Now().UTC()
	if err := repo.CommitRefresh(ctx, s.DB, plan.Inserts, plan.Updates, now); err != nil {
		lg.Error().Err(err).Msg("refresh commit failed, rolled back")
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	// Best-effort: the refresh already succeeded, so a broken summary image
	// must not change the outcome.
	if s.Summary != nil {
		if err := s.Summary.Generate(ctx); err != nil {
			lg.Error().Err(err).Msg("summary image generation failed")
		}
	}

	lg.Info().Int("processed", len(raw)).Msg("country data refresh completed")
	return &RefreshResult{
		Processed:    len(raw),
		Inserted:     len(plan.Inserts),
		Updated:      len(plan.Updates),
		SkippedItems: len(merged.Skipped),
	}, nil
}
