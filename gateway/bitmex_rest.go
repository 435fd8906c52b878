package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"market-mirror-go/market"
	"market-mirror-go/metrics"
)

// DefaultRestURL is the production REST base.
const DefaultRestURL = "https://www.bitmex.com/api/v1"

// CatalogErrorKind 目录请求失败的类别。
type CatalogErrorKind int

const (
	CatalogBadURL CatalogErrorKind = iota
	CatalogNetworkProblem
	CatalogDecodingError
)

func (k CatalogErrorKind) String() string {
	switch k {
	case CatalogBadURL:
		return "bad_url"
	case CatalogNetworkProblem:
		return "network_problem"
	default:
		return "decoding_error"
	}
}

// CatalogError wraps an instrument catalog failure with its category so the
// caller can decide between retrying and falling back to the default universe.
type CatalogError struct {
	Kind CatalogErrorKind
	Err  error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("instrument catalog %s: %v", e.Kind, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

// InstrumentClient fetches the tradable instrument universe over REST.
type InstrumentClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    RateLimiter
}

func NewInstrumentClient(baseURL string, limiter RateLimiter) *InstrumentClient {
	if baseURL == "" {
		baseURL = DefaultRestURL
	}
	return &InstrumentClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Limiter:    limiter,
	}
}

// Instruments 获取当前活跃 instrument 列表，按 rootSymbol 去重并升序排序。
func (c *InstrumentClient) Instruments(ctx context.Context) ([]market.Instrument, error) {
	metrics.CatalogRequests.Inc()

	endpoint, err := url.JoinPath(c.BaseURL, "instrument", "active")
	if err != nil {
		return nil, c.fail(CatalogBadURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, c.fail(CatalogBadURL, err)
	}

	if c.Limiter != nil {
		c.Limiter.Wait()
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, c.fail(CatalogNetworkProblem, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, c.fail(CatalogNetworkProblem,
			fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var rows []market.Instrument
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, c.fail(CatalogDecodingError, err)
	}
	return market.DedupeInstruments(rows), nil
}

func (c *InstrumentClient) fail(kind CatalogErrorKind, err error) error {
	metrics.CatalogErrors.WithLabelValues(kind.String()).Inc()
	return &CatalogError{Kind: kind, Err: err}
}
