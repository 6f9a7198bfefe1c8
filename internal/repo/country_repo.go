// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Country and
// CacheStatus models.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a country is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-country-cache/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// insertBatchSize caps the number of rows per INSERT during a bulk commit.
const insertBatchSize = 100

// countryMutableFields is the column set overwritten on every refresh.
// Identity columns (id, name_key, created_at) are never touched by updates.
var countryMutableFields = []string{
	"name", "capital", "region", "population", "currency_code",
	"exchange_rate", "estimated_gdp", "flag_url", "last_refreshed_at",
}

// CountryFilter narrows and orders ListCountries results. Zero value means
// "all countries, default order".
type CountryFilter struct {
	Region      string // case-insensitive exact match on region
	Currency    string // case-insensitive exact match on currency_code
	SortGDPDesc bool   // order by estimated_gdp descending
}

// AllCountries returns every stored country in a single bulk read. The
// refresh pipeline uses this to build its reconciliation index, so it must
// stay one query rather than N point lookups.
func AllCountries(ctx context.Context, db *gorm.DB) ([]domain.Country, error) {
	var out []domain.Country
	err := db.WithContext(ctx).Find(&out).Error
	return out, err
}

// ListCountries returns countries matching the filter, ordered by name unless
// GDP ordering is requested. It returns an empty slice when nothing matches.
func ListCountries(ctx context.Context, db *gorm.DB, f CountryFilter) ([]domain.Country, error) {
	q := db.WithContext(ctx).Model(&domain.Country{})
	if f.Region != "" {
		q = q.Where("LOWER(region) = LOWER(?)", f.Region)
	}
	if f.Currency != "" {
		q = q.Where("LOWER(currency_code) = LOWER(?)", f.Currency)
	}
	if f.SortGDPDesc {
		q = q.Order("estimated_gdp DESC")
	} else {
		q = q.Order("name ASC")
	}
	var out []domain.Country
	err := q.Find(&out).Error
	return out, err
}

// GetCountryByName fetches a single country by case-insensitive name.
// Returns ErrNotFound when no such country is cached.
func GetCountryByName(ctx context.Context, db *gorm.DB, name string) (*domain.Country, error) {
	var c domain.Country
	err := db.WithContext(ctx).
		Where("name_key = ?", domain.FoldName(name)).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCountryByName removes a country by case-insensitive name.
// Returns ErrNotFound when no row was deleted.
func DeleteCountryByName(ctx context.Context, db *gorm.DB, name string) error {
	res := db.WithContext(ctx).
		Where("name_key = ?", domain.FoldName(name)).
		Delete(&domain.Country{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountCountries returns the total number of cached countries.
func CountCountries(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Country{}).Count(&total).Error
	return total, err
}

// TopCountriesByGDP returns up to limit countries ordered by estimated GDP
// descending. Used by the summary image generator.
func TopCountriesByGDP(ctx context.Context, db *gorm.DB, limit int) ([]domain.Country, error) {
	var out []domain.Country
	err := db.WithContext(ctx).
		Order("estimated_gdp DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetCacheStatus returns the singleton status row, creating it (with a nil
// refresh timestamp) on first access.
func GetCacheStatus(ctx context.Context, db *gorm.DB) (*domain.CacheStatus, error) {
	st := domain.CacheStatus{ID: domain.CacheStatusID}
	err := db.WithContext(ctx).FirstOrCreate(&st, domain.CacheStatus{ID: domain.CacheStatusID}).Error
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// CommitRefresh persists one refresh outcome atomically: all inserts, all
// updates, and the CacheStatus timestamp land in a single transaction, or
// none of them do.
//
// Updates overwrite only the mutable column set; row identity (id, name_key,
// created_at) is preserved from the matched existing record.
func CommitRefresh(ctx context.Context, db *gorm.DB, inserts, updates []domain.Country, now time.Time) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(inserts) > 0 {
			if err := tx.CreateInBatches(inserts, insertBatchSize).Error; err != nil {
				return err
			}
		}
		for i := range updates {
			u := &updates[i]
			res := tx.Model(&domain.Country{}).
				Where("id = ?", u.ID).
				Select(countryMutableFields).
				Updates(u)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// The matched row vanished between the bulk read and the
				// commit; abort so the whole refresh rolls back.
				return gorm.ErrRecordNotFound
			}
		}
		st := domain.CacheStatus{ID: domain.CacheStatusID, LastFullRefreshAt: &now}
		if err := tx.Where(domain.CacheStatus{ID: domain.CacheStatusID}).
			Assign(map[string]any{"last_full_refresh_at": now}).
			FirstOrCreate(&st).Error; err != nil {
			return err
		}
		return nil
	})
}
