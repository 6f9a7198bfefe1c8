// Package services – record merging
//
// This file implements the pure transformation from one raw upstream country
// item plus the exchange-rate table into a normalized domain.Country. It is
// deliberately free of I/O: anomalies in a single item (missing name, absent
// or unusable rate) are handled per item and never abort the batch.
package services

import (
	"strings"
	"time"

	"github.com/tbourn/go-country-cache/internal/domain"
	"github.com/tbourn/go-country-cache/internal/upstream"
)

// GDP multiplier range. The estimate is intentionally synthetic: each record
// draws its own multiplier, so two refreshes of identical inputs produce
// different GDP figures.
const (
	gdpMultiplierMin = 1000.0
	gdpMultiplierMax = 2000.0
)

// MergeSkip records one raw item that could not be turned into a record.
type MergeSkip struct {
	Index  int    // position in the raw payload
	Reason string // short machine-ish reason, e.g. "missing name"
}

// MergeResult is the outcome of merging one full upstream payload.
type MergeResult struct {
	Records []domain.Country
	Skipped []MergeSkip
}

// Merger turns raw upstream items into normalized records. The random source
// is injected so tests can pin the GDP multiplier; production uses
// rand.Float64 (see NewRefreshService).
type Merger struct {
	// Rand returns a value in [0,1); used to draw the GDP multiplier.
	Rand func() float64
	// Now supplies the LastRefreshedAt stamp for merged records.
	Now func() time.Time
}

// MergeAll converts every usable raw item. Items without a name are skipped
// and reported; nothing here fails the batch.
func (m *Merger) MergeAll(raw []upstream.RawCountry, rates map[string]float64) MergeResult {
	res := MergeResult{Records: make([]domain.Country, 0, len(raw))}
	for i := range raw {
		rec, skip := m.merge(&raw[i], rates)
		if skip != "" {
			res.Skipped = append(res.Skipped, MergeSkip{Index: i, Reason: skip})
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// merge builds one record. The returned skip reason is non-empty when the
// item is unusable.
func (m *Merger) merge(rc *upstream.RawCountry, rates map[string]float64) (domain.Country, string) {
	name := strings.TrimSpace(rc.Name)
	if name == "" {
		return domain.Country{}, "missing name"
	}

	c := domain.Country{
		Name:            name,
		NameKey:         domain.FoldName(name),
		Capital:         optString(rc.Capital),
		Region:          optString(rc.Region),
		FlagURL:         optString(rc.Flag),
		LastRefreshedAt: m.Now().UTC(),
	}

	// Population: missing, null, non-numeric, or negative all collapse to 0.
	if rc.Population.Valid && rc.Population.Value > 0 {
		c.Population = int64(rc.Population.Value)
	}

	// Currency: the first entry is authoritative; the rest are ignored.
	if len(rc.Currencies) > 0 {
		if code := strings.TrimSpace(rc.Currencies[0].Code); code != "" {
			c.CurrencyCode = &code
		}
	}

	// Exchange rate: only a positive table entry counts; anything else leaves
	// the rate absent and the GDP at 0.
	if c.CurrencyCode != nil {
		if rate, ok := rates[*c.CurrencyCode]; ok && rate > 0 {
			c.ExchangeRate = &rate
			if c.Population > 0 {
				u := gdpMultiplierMin + m.Rand()*(gdpMultiplierMax-gdpMultiplierMin)
				c.EstimatedGDP = float64(c.Population) * u / rate
			}
		}
	}

	return c, ""
}

// optString returns nil for blank input, so optional fields serialize as
// absent rather than "".
func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
