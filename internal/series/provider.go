// Package series fetches monthly index observations from the Banco Central
// do Brasil SGS API.
//
// The fetch here is the engine's single blocking operation. It is bounded by
// a short timeout and by the caller's context; timeouts, transport errors,
// bad statuses and unparseable payloads all surface as *TransientError so
// the orchestrator can take the fallback path without distinguishing causes.
package series

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/advtools/calculo-engine/internal/metrics"
	"github.com/advtools/calculo-engine/pkg/constants"
	"github.com/advtools/calculo-engine/pkg/correction"
	"github.com/advtools/calculo-engine/pkg/indices"
)

var tracer = otel.Tracer("calculo-engine/series")

// TransientError wraps any failure of the live fetch path. It is never
// surfaced to API callers; the orchestrator converts it into a flagged
// estimate.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("time-series source unavailable: %v", e.Cause)
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// ErrNoData reports a fetch that succeeded at the transport level but
// yielded zero usable observations. Treated exactly like a TransientError by
// callers.
var ErrNoData = errors.New("source returned no usable observations")

// RangeResult is a successful range fetch.
type RangeResult struct {
	Observations []correction.Observation
	Source       string
}

// LatestResult is a successful latest-value fetch.
type LatestResult struct {
	Observation correction.Observation
	Source      string
}

// Config holds the provider settings. Zero values fall back to the package
// defaults in pkg/constants.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	LatestTTL time.Duration
}

// Client talks to the SGS API with a fixed timeout and a per-index
// latest-value cache.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
	cache      *latestCache
	now        func() time.Time
}

// NewClient builds a Client. A nil logger is replaced by a no-op one.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.DefaultSGSBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultFetchTimeout
	}
	if cfg.LatestTTL == 0 {
		cfg.LatestTTL = constants.DefaultLatestCacheTTL
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		logger:     logger,
		cache:      newLatestCache(cfg.LatestTTL),
		now:        time.Now,
	}
}

// sgsObservation is the SGS wire format: dates as dd/MM/yyyy, values as
// decimal-comma strings.
type sgsObservation struct {
	Date  string `json:"data"`
	Value string `json:"valor"`
}

// FetchRange retrieves the monthly variations of an index between start and
// end (inclusive), chronologically ascending and duplicate-free.
func (c *Client) FetchRange(ctx context.Context, code indices.Code, start, end time.Time) (RangeResult, error) {
	def, err := indices.Get(code)
	if err != nil {
		return RangeResult{}, err
	}

	ctx, span := tracer.Start(ctx, "series.FetchRange")
	span.SetAttributes(
		attribute.String("index", string(code)),
		attribute.Int("series_id", def.SeriesID),
	)
	defer span.End()

	query := url.Values{}
	query.Set("formato", "json")
	query.Set("dataInicial", start.Format(constants.SGSDateLayout))
	query.Set("dataFinal", end.Format(constants.SGSDateLayout))
	endpoint := fmt.Sprintf("%s/bcdata.sgs.%d/dados?%s", c.baseURL, def.SeriesID, query.Encode())

	observations, err := c.fetch(ctx, def, endpoint)
	if err != nil {
		return RangeResult{}, err
	}

	return RangeResult{Observations: observations, Source: sourceLabel(def)}, nil
}

// FetchLatest retrieves the most recent observation of an index, serving
// from the per-index cache while its TTL holds.
func (c *Client) FetchLatest(ctx context.Context, code indices.Code) (LatestResult, error) {
	def, err := indices.Get(code)
	if err != nil {
		return LatestResult{}, err
	}

	if entry, ok := c.cache.get(code, c.now()); ok {
		metrics.CacheEvents.WithLabelValues(string(code), metrics.EventHit).Inc()
		return LatestResult{Observation: entry.observation, Source: entry.source}, nil
	}
	metrics.CacheEvents.WithLabelValues(string(code), metrics.EventMiss).Inc()

	ctx, span := tracer.Start(ctx, "series.FetchLatest")
	span.SetAttributes(
		attribute.String("index", string(code)),
		attribute.Int("series_id", def.SeriesID),
	)
	defer span.End()

	endpoint := fmt.Sprintf("%s/bcdata.sgs.%d/dados/ultimos/1?formato=json", c.baseURL, def.SeriesID)
	observations, err := c.fetch(ctx, def, endpoint)
	if err != nil {
		return LatestResult{}, err
	}

	latest := observations[len(observations)-1]
	source := sourceLabel(def)
	c.cache.put(code, cachedLatest{observation: latest, source: source, storedAt: c.now()})

	return LatestResult{Observation: latest, Source: source}, nil
}

// fetch performs the HTTP GET and parses the payload. At least one valid
// observation must come back; individually malformed entries are skipped
// with a warning.
func (c *Client) fetch(ctx context.Context, def indices.Definition, endpoint string) ([]correction.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransientError{Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.SeriesFetches.WithLabelValues(string(def.Code), metrics.OutcomeTransport).Inc()
		c.logger.Warn("SGS request failed",
			zap.String("op", "series.fetch"),
			zap.String("index", string(def.Code)),
			zap.Error(err),
		)
		return nil, &TransientError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.SeriesFetches.WithLabelValues(string(def.Code), metrics.OutcomeBadStatus).Inc()
		c.logger.Warn("SGS returned non-OK status",
			zap.String("op", "series.fetch"),
			zap.String("index", string(def.Code)),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &TransientError{Cause: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var payload []sgsObservation
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.SeriesFetches.WithLabelValues(string(def.Code), metrics.OutcomeTransport).Inc()
		c.logger.Warn("SGS payload could not be decoded",
			zap.String("op", "series.fetch"),
			zap.String("index", string(def.Code)),
			zap.Error(err),
		)
		return nil, &TransientError{Cause: err}
	}

	observations := make([]correction.Observation, 0, len(payload))
	for _, raw := range payload {
		obs, err := parseObservation(raw)
		if err != nil {
			c.logger.Warn("skipping malformed SGS observation",
				zap.String("op", "series.fetch"),
				zap.String("index", string(def.Code)),
				zap.String("date", raw.Date),
				zap.String("value", raw.Value),
				zap.Error(err),
			)
			continue
		}
		observations = append(observations, obs)
	}

	if len(observations) == 0 {
		metrics.SeriesFetches.WithLabelValues(string(def.Code), metrics.OutcomeNoData).Inc()
		return nil, fmt.Errorf("series %d: %w", def.SeriesID, ErrNoData)
	}

	metrics.SeriesFetches.WithLabelValues(string(def.Code), metrics.OutcomeOK).Inc()
	return normalize(observations), nil
}

// parseObservation converts one wire entry. Values arrive with a decimal
// comma ("0,42") but a decimal point is tolerated.
func parseObservation(raw sgsObservation) (correction.Observation, error) {
	date, err := time.Parse(constants.SGSDateLayout, strings.TrimSpace(raw.Date))
	if err != nil {
		return correction.Observation{}, fmt.Errorf("bad observation date: %w", err)
	}

	variation, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw.Value), ",", "."))
	if err != nil {
		return correction.Observation{}, fmt.Errorf("bad observation value: %w", err)
	}

	return correction.Observation{Date: date, Variation: variation}, nil
}

// normalize enforces the compounding contract: ascending dates, one
// observation per month. The SGS already serves ascending data; this keeps
// the guarantee independent of the source's behavior.
func normalize(observations []correction.Observation) []correction.Observation {
	sort.SliceStable(observations, func(i, j int) bool {
		return observations[i].Date.Before(observations[j].Date)
	})

	deduped := observations[:0]
	for _, obs := range observations {
		if len(deduped) > 0 && deduped[len(deduped)-1].Date.Equal(obs.Date) {
			continue
		}
		deduped = append(deduped, obs)
	}
	return deduped
}

func sourceLabel(def indices.Definition) string {
	return fmt.Sprintf("SGS %d (%s)", def.SeriesID, def.Source)
}
