// Package fred fetches macroeconomic observations from the St. Louis Fed API.
package fred

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/CycleTrader/internal/model"
	httpClient "github.com/Alias1177/CycleTrader/internal/platform/http"
	"github.com/Alias1177/CycleTrader/internal/timeseries"
)

const defaultBaseURL = "https://api.stlouisfed.org/fred"

// DefaultSeries maps indicator names to FRED series IDs. Yield curve and
// inflation are derived from the treasury and CPI series.
var DefaultSeries = map[string]string{
	model.IndicatorGDPGrowth:    "A191RL1Q225SBEA",
	model.IndicatorUnemployment: "UNRATE",
	model.IndicatorCPI:          "CPIAUCSL",
	model.IndicatorTreasury10Y:  "GS10",
	model.IndicatorTreasury2Y:   "GS2",
}

// Client is the FRED API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new FRED client
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new FRED API client
func NewClient(options ClientOptions) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  options.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetries:      options.MaxRetries,
			MaxRetryTimeout: options.MaxRetryTimeout,
			Component:       "fred_http",
		}),
		logger: log.With().Str("component", "fred_client").Logger(),
	}
}

type observationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// GetSeries fetches all observations of a series from start onwards. FRED marks
// missing observations with "." and those become NaN.
func (c *Client) GetSeries(ctx context.Context, seriesID string, start time.Time) (timeseries.Series, error) {
	query := url.Values{}
	query.Set("series_id", seriesID)
	query.Set("api_key", c.apiKey)
	query.Set("file_type", "json")
	query.Set("observation_start", start.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/series/observations?"+query.Encode(), nil)
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("fetching %s: %w", seriesID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return timeseries.Series{}, fmt.Errorf("reading response body: %w", err)
	}

	var data observationsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return timeseries.Series{}, fmt.Errorf("parsing %s: %w", seriesID, err)
	}
	if data.ErrorMessage != "" {
		return timeseries.Series{}, fmt.Errorf("FRED error for %s: %s", seriesID, data.ErrorMessage)
	}

	times := make([]time.Time, 0, len(data.Observations))
	values := make([]float64, 0, len(data.Observations))
	for _, o := range data.Observations {
		t, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			return timeseries.Series{}, fmt.Errorf("%s: parsing date %q: %w", seriesID, o.Date, err)
		}
		v := math.NaN()
		if o.Value != "." {
			if v, err = strconv.ParseFloat(o.Value, 64); err != nil {
				return timeseries.Series{}, fmt.Errorf("%s: parsing value %q: %w", seriesID, o.Value, err)
			}
		}
		times = append(times, t)
		values = append(values, v)
	}

	c.logger.Debug().Str("series", seriesID).Int("observations", len(times)).Msg("Fetched series")
	return timeseries.New(seriesID, times, values)
}

// FetchSeries downloads every series in ids concurrently, keyed by indicator
// name. A series that fails to download is logged and left out.
func (c *Client) FetchSeries(ctx context.Context, ids map[string]string, start time.Time) (map[string]timeseries.Series, error) {
	var mu sync.Mutex
	raw := make(map[string]timeseries.Series, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for name, id := range ids {
		name, id := name, id
		g.Go(func() error {
			s, err := c.GetSeries(ctx, id, start)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Warn().Err(err).Str("indicator", name).Str("series", id).Msg("Could not fetch indicator")
				return nil
			}
			mu.Lock()
			raw[name] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return raw, nil
}

// FetchIndicators downloads ids and builds the daily indicator table
func (c *Client) FetchIndicators(ctx context.Context, ids map[string]string, start time.Time) (model.IndicatorTable, error) {
	raw, err := c.FetchSeries(ctx, ids, start)
	if err != nil {
		return model.IndicatorTable{}, err
	}

	table, err := model.BuildIndicatorTable(raw)
	if err != nil {
		return model.IndicatorTable{}, fmt.Errorf("building indicator table: %w", err)
	}

	c.logger.Info().
		Int("series", len(raw)).
		Int("days", len(table.Days)).
		Time("from", table.Days[0]).
		Time("to", table.Days[len(table.Days)-1]).
		Msg("Fetched economic indicators")
	return table, nil
}
