// Package services – CountryService
//
// This file implements the read/administrative side of the cache: listing
// with filters, single lookups by case-insensitive name, deletion, and the
// aggregate status view. All persistence goes through the repo layer;
// predictable cases map to service-level sentinel errors so handlers can
// translate them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-country-cache/internal/domain"
	"github.com/tbourn/go-country-cache/internal/repo"
)

// CountryService provides query and admin operations over cached countries.
type CountryService struct {
	// DB is the GORM handle used for all reads and deletes.
	DB *gorm.DB
}

// Status is the aggregate cache view returned by the status endpoint.
type Status struct {
	TotalCountries  int64      `json:"total_countries"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
}

// List returns countries filtered by region and/or currency code (both
// case-insensitive exact matches) and optionally ordered by GDP descending.
func (s *CountryService) List(ctx context.Context, region, currency string, gdpDesc bool) ([]domain.Country, error) {
	return repo.ListCountries(ctx, s.DB, repo.CountryFilter{
		Region:      region,
		Currency:    currency,
		SortGDPDesc: gdpDesc,
	})
}

// Get fetches one country by case-insensitive name.
// Returns ErrCountryNotFound when absent.
func (s *CountryService) Get(ctx context.Context, name string) (*domain.Country, error) {
	c, err := repo.GetCountryByName(ctx, s.DB, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCountryNotFound
		}
		return nil, err
	}
	return c, nil
}

// Delete removes one country by case-insensitive name. This is an
// administrative escape hatch; the refresh pipeline itself never deletes.
// Returns ErrCountryNotFound when absent.
func (s *CountryService) Delete(ctx context.Context, name string) error {
	if err := repo.DeleteCountryByName(ctx, s.DB, name); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCountryNotFound
		}
		return err
	}
	return nil
}

// Status returns the record count and the last full refresh timestamp
// (nil before the first successful refresh).
func (s *CountryService) Status(ctx context.Context) (*Status, error) {
	total, err := repo.CountCountries(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	st, err := repo.GetCacheStatus(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	return &Status{TotalCountries: total, LastRefreshedAt: st.LastFullRefreshAt}, nil
}
