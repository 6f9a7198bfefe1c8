// Country HTTP handlers.
//
// This file exposes REST endpoints for the country cache:
//   - POST   /countries/refresh   (run the refresh pipeline)
//   - GET    /countries           (list, with filters and GDP sorting)
//   - GET    /countries/image     (serve the generated summary image)
//   - GET    /countries/{name}    (single lookup, case-insensitive)
//   - DELETE /countries/{name}    (administrative delete)
//   - GET    /status              (cache totals and last refresh time)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-country-cache/internal/domain"
	"github.com/tbourn/go-country-cache/internal/services"
	"github.com/tbourn/go-country-cache/internal/upstream"
)

//
// Service contracts (context-aware)
//

// CountryService defines read/admin operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CountryService interface {
	// List returns cached countries, optionally filtered and GDP-sorted.
	List(ctx context.Context, region, currency string, gdpDesc bool) ([]domain.Country, error)
	// Get fetches one country by case-insensitive name.
	Get(ctx context.Context, name string) (*domain.Country, error)
	// Delete removes one country by case-insensitive name.
	Delete(ctx context.Context, name string) error
	// Status returns the record count and last refresh timestamp.
	Status(ctx context.Context) (*services.Status, error)
}

// RefreshService defines the refresh pipeline entry point.
type RefreshService interface {
	// Refresh fetches, merges, reconciles, and commits country data.
	Refresh(ctx context.Context) (*services.RefreshResult, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for countries, refresh, and status.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	countrySvc CountryService
	refreshSvc RefreshService
	imagePath  string
}

// New constructs and returns a Handlers instance bound to the given services.
// imagePath is the well-known summary image location served by SummaryImage.
func New(countrySvc CountryService, refreshSvc RefreshService, imagePath string) *Handlers {
	return &Handlers{countrySvc: countrySvc, refreshSvc: refreshSvc, imagePath: imagePath}
}

//
// DTOs
//

// RefreshResponse is the success payload of the refresh endpoint.
type RefreshResponse struct {
	Status             string `json:"status" example:"success"`
	CountriesProcessed int    `json:"countries_processed" example:"250"`
}

//
// Handlers
//

// RefreshCountries godoc
// @ID          refreshCountries
// @Summary     Refresh the country cache
// @Description Fetches country and exchange-rate data from both upstream providers, reconciles it against the cache in one transaction, and regenerates the summary image.
// @Tags        Countries
// @Produce     json
//
// @Success     200  {object}  handlers.RefreshResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Refresh already running"
// @Failure     500  {object}  handlers.ErrorResponse  "Storage failure"
// @Failure     503  {object}  handlers.ErrorResponse  "Upstream unavailable"
// @Router      /countries/refresh [post]
func (h *Handlers) RefreshCountries(c *gin.Context) {
	res, err := h.refreshSvc.Refresh(c.Request.Context())
	if err != nil {
		var ue *upstream.Error
		switch {
		case errors.As(err, &ue):
			fail(c, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable, ue.Error())
		case errors.Is(err, services.ErrRefreshInFlight):
			fail(c, http.StatusConflict, ErrCodeRefreshInFlight, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to refresh country data")
		}
		return
	}
	ok(c, http.StatusOK, RefreshResponse{Status: "success", CountriesProcessed: res.Processed})
}

// ListCountries godoc
// @ID          listCountries
// @Summary     List cached countries
// @Description Returns all cached countries. Supports case-insensitive region and currency filters and GDP-descending sorting.
// @Tags        Countries
// @Produce     json
//
// @Param       region    query  string  false  "Filter by region (case-insensitive)"          example(Africa)
// @Param       currency  query  string  false  "Filter by currency code (case-insensitive)"   example(NGN)
// @Param       sort      query  string  false  "Sort order; only gdp_desc is supported"       example(gdp_desc)
//
// @Success     200  {array}   domain.Country
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /countries [get]
func (h *Handlers) ListCountries(c *gin.Context) {
	gdpDesc := strings.EqualFold(c.Query("sort"), "gdp_desc")
	list, err := h.countrySvc.List(c.Request.Context(), c.Query("region"), c.Query("currency"), gdpDesc)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "failed to list countries")
		return
	}
	if list == nil {
		list = []domain.Country{}
	}
	ok(c, http.StatusOK, list)
}

// GetCountry godoc
// @ID          getCountry
// @Summary     Get one country
// @Description Fetches a single cached country by name (case-insensitive).
// @Tags        Countries
// @Produce     json
//
// @Param       name  path  string  true  "Country name"  example(Ghana)
//
// @Success     200  {object}  domain.Country
// @Failure     404  {object}  handlers.ErrorResponse  "Country not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /countries/{name} [get]
func (h *Handlers) GetCountry(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "country name is required")
		return
	}
	country, err := h.countrySvc.Get(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, services.ErrCountryNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "country not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load country")
		return
	}
	ok(c, http.StatusOK, country)
}

// DeleteCountry godoc
// @ID          deleteCountry
// @Summary     Delete one country
// @Description Removes a cached country by name (case-insensitive). The next refresh will re-create it if the upstream still reports it.
// @Tags        Countries
// @Produce     json
//
// @Param       name  path  string  true  "Country name"  example(Ghana)
//
// @Success     204  {string}  string  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse  "Country not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /countries/{name} [delete]
func (h *Handlers) DeleteCountry(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "country name is required")
		return
	}
	if err := h.countrySvc.Delete(c.Request.Context(), name); err != nil {
		if errors.Is(err, services.ErrCountryNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "country not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to delete country")
		return
	}
	noContent(c)
}

// CacheStatus godoc
// @ID          cacheStatus
// @Summary     Cache status
// @Description Returns the total number of cached countries and the last full refresh timestamp.
// @Tags        Status
// @Produce     json
//
// @Success     200  {object}  services.Status
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /status [get]
func (h *Handlers) CacheStatus(c *gin.Context) {
	st, err := h.countrySvc.Status(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load cache status")
		return
	}
	ok(c, http.StatusOK, st)
}

// SummaryImage godoc
// @ID          summaryImage
// @Summary     Summary image
// @Description Streams the generated summary PNG. Returns 404 until the first successful refresh has generated it.
// @Tags        Status
// @Produce     png
//
// @Success     200  {file}    file
// @Failure     404  {object}  handlers.ErrorResponse  "Image not generated yet"
// @Router      /countries/image [get]
func (h *Handlers) SummaryImage(c *gin.Context) {
	if _, err := os.Stat(h.imagePath); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "summary image not found")
		return
	}
	c.File(h.imagePath)
}
