package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	if (Country{}).TableName() != "countries" {
		t.Fatalf("Country.TableName() = %q; want %q", (Country{}).TableName(), "countries")
	}
	if (CacheStatus{}).TableName() != "cache_status" {
		t.Fatalf("CacheStatus.TableName() = %q; want %q", (CacheStatus{}).TableName(), "cache_status")
	}
}

func TestMigrations_UniqueNameKey(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&Country{}, &CacheStatus{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range []any{&Country{}, &CacheStatus{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&Country{}, "ux_countries_name_key") {
		t.Fatalf("expected unique index ux_countries_name_key on countries")
	}

	now := time.Now().UTC()
	a := Country{ID: "id-1", Name: "Ghana", NameKey: "ghana", LastRefreshedAt: now}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}
	// Same key under a different display casing must be rejected.
	b := Country{ID: "id-2", Name: "GHANA", NameKey: "ghana", LastRefreshedAt: now}
	if err := db.Create(&b).Error; err == nil {
		t.Fatal("expected unique constraint violation on name_key, got nil")
	}
}

func TestCountry_JSONShape(t *testing.T) {
	rate := 15.2
	code := "GHS"
	c := Country{
		ID:              "id-1",
		Name:            "Ghana",
		NameKey:         "ghana",
		Population:      34_000_000,
		CurrencyCode:    &code,
		ExchangeRate:    &rate,
		EstimatedGDP:    1.5e9,
		LastRefreshedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	// Internal columns never leak over the API.
	for _, hidden := range []string{"name_key", "NameKey", "created_at", "updated_at"} {
		if strings.Contains(s, hidden) {
			t.Fatalf("json leaks %q: %s", hidden, s)
		}
	}
	// Optional attributes are omitted when absent.
	var empty Country
	raw2, _ := json.Marshal(empty)
	if strings.Contains(string(raw2), "capital") || strings.Contains(string(raw2), "flag_url") {
		t.Fatalf("empty optional fields should be omitted: %s", raw2)
	}
}
