// Package domain defines the persistence models for cached country records
// and the refresh status singleton. These types are mapped with GORM and form
// the core data layer of the country cache application.
package domain

import (
	"time"
)

// Country is a single country's cached economic snapshot, refreshed in bulk
// from the upstream providers. Uniqueness is enforced on the case-folded name
// (NameKey), so "Ghana" and "GHANA" resolve to the same stored row.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: display name exactly as last reported by the upstream.
//   - NameKey: case-folded form of Name; unique index, used for all lookups.
//   - Capital / Region: optional descriptive attributes, passed through verbatim.
//   - Population: non-negative; defaults to 0 when the upstream omits it.
//   - CurrencyCode: first currency entry of the upstream payload, if any.
//   - ExchangeRate: rate against the base currency; nil when unknown.
//   - EstimatedGDP: synthetic estimate, 0 when population or rate is missing.
//   - FlagURL: optional URL of the country's flag image.
//   - LastRefreshedAt: set by the refresh pipeline on every write.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Country struct {
	ID              string     `json:"id"               gorm:"type:char(36);primaryKey"`
	Name            string     `json:"name"             gorm:"type:varchar(100);not null"`
	NameKey         string     `json:"-"                gorm:"type:varchar(100);not null;uniqueIndex:ux_countries_name_key"`
	Capital         *string    `json:"capital,omitempty"  gorm:"type:varchar(100)"`
	Region          *string    `json:"region,omitempty"   gorm:"type:varchar(100)"`
	Population      int64      `json:"population"       gorm:"not null;default:0"`
	CurrencyCode    *string    `json:"currency_code,omitempty" gorm:"type:varchar(10)"`
	ExchangeRate    *float64   `json:"exchange_rate,omitempty"`
	EstimatedGDP    float64    `json:"estimated_gdp"    gorm:"not null;default:0"`
	FlagURL         *string    `json:"flag_url,omitempty" gorm:"type:varchar(200)"`
	LastRefreshedAt time.Time  `json:"last_refreshed_at"`
	CreatedAt       time.Time  `json:"-"`
	UpdatedAt       time.Time  `json:"-"`
}

// TableName returns the database table name for Country.
func (Country) TableName() string { return "countries" }

// CacheStatus records when the cache was last fully refreshed. Exactly one
// row exists (ID is always CacheStatusID); the refresh pipeline upserts it
// inside the same transaction as the record writes.
type CacheStatus struct {
	ID                uint       `json:"-" gorm:"primaryKey"`
	LastFullRefreshAt *time.Time `json:"last_full_refresh_at"`
	UpdatedAt         time.Time  `json:"-"`
}

// TableName returns the database table name for CacheStatus.
func (CacheStatus) TableName() string { return "cache_status" }

// CacheStatusID is the fixed primary key of the singleton CacheStatus row.
const CacheStatusID uint = 1
