// Package upstream wraps the two external data providers the refresh
// pipeline depends on: a country listing API and an exchange-rate API.
//
// Both endpoints are fetched concurrently with an independent timeout per
// request, so total fetch time is bounded by the slower call rather than the
// sum. A failure on either endpoint (network error, timeout, or non-2xx
// status) fails the whole fetch: the merge step needs both payloads, and a
// "partial success" has no meaning here.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Service names used in error reporting, so callers can tell which provider
// broke without parsing error text.
const (
	ServiceCountries = "countries API"
	ServiceRates     = "exchange rates API"
)

// Error reports a failed upstream call. StatusCode is zero for network-level
// failures (timeout, refused connection) where no response was received.
type Error struct {
	Service    string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s unreachable: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s unreachable", e.Service)
}

// Unwrap exposes the underlying transport error, if any.
func (e *Error) Unwrap() error { return e.Err }

// RawCountry is one item of the country listing payload. All fields except
// the name are optional; defaulting rules are applied by the merge step.
type RawCountry struct {
	Name       string        `json:"name"`
	Capital    string        `json:"capital"`
	Region     string        `json:"region"`
	Population LooseNumber   `json:"population"`
	Flag       string        `json:"flag"`
	Currencies []RawCurrency `json:"currencies"`
}

// RawCurrency is a single currency entry; only the code is consumed.
type RawCurrency struct {
	Code string `json:"code"`
}

// ratesEnvelope is the exchange-rate payload. A missing "rates" field decodes
// to a nil map, which FetchAll normalizes to an empty one.
type ratesEnvelope struct {
	Rates map[string]LooseNumber `json:"rates"`
}

// Client fetches from both providers. The zero value is not usable; use New.
type Client struct {
	countriesURL string
	ratesURL     string
	http         *http.Client
}

// New returns a Client with a fixed per-request timeout.
func New(countriesURL, ratesURL string, timeout time.Duration) *Client {
	return &Client{
		countriesURL: countriesURL,
		ratesURL:     ratesURL,
		http:         &http.Client{Timeout: timeout},
	}
}

// FetchAll retrieves the country listing and the exchange-rate table
// concurrently. On success the rate map is never nil (an upstream payload
// without rates yields an empty map, meaning "rates currently unknown").
//
// On failure it returns a *Error naming the service that broke. When both
// fail, whichever error surfaced first wins; the caller only needs one cause.
func (c *Client) FetchAll(ctx context.Context) ([]RawCountry, map[string]float64, error) {
	var (
		countries []RawCountry
		rates     map[string]float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, ServiceCountries, c.countriesURL, &countries)
	})
	g.Go(func() error {
		var env ratesEnvelope
		if err := c.getJSON(gctx, ServiceRates, c.ratesURL, &env); err != nil {
			return err
		}
		// Unparsable rate values are dropped here so downstream code only
		// ever sees numeric rates; a missing rates field means an empty map.
		rates = make(map[string]float64, len(env.Rates))
		for code, r := range env.Rates {
			if r.Valid {
				rates[code] = r.Value
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return countries, rates, nil
}

// getJSON performs one GET and decodes the body into out. The status class is
// validated before any body bytes are parsed.
func (c *Client) getJSON(ctx context.Context, service, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{Service: service, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Service: service, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Service: service, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Service: service, Err: err}
	}
	return nil
}
