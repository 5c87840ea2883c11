package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/CycleTrader/internal/model"
	httpClient "github.com/Alias1177/CycleTrader/internal/platform/http"
)

const (
	defaultBaseURL = "https://api.twelvedata.com"
	// maxOutputSize is the largest page the time_series endpoint returns
	maxOutputSize = 5000
)

// ErrEmptyResponse is returned when the API answers without any bars
var ErrEmptyResponse = errors.New("empty data returned")

// Client is the TwelveData API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new TwelveData client
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new TwelveData API client
func NewClient(options ClientOptions) *Client {
	httpOpts := httpClient.ClientOptions{
		Timeout:         options.RequestTimeout,
		RequestsPerSec:  options.RequestsPerSec,
		MaxRetries:      options.MaxRetries,
		MaxRetryTimeout: options.MaxRetryTimeout,
		Component:       "twelvedata_http",
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:     options.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient.NewClient(httpOpts),
		logger:     log.With().Str("component", "twelvedata_client").Logger(),
	}
}

// GetTimeSeries fetches OHLCV bars for symbol between start and end inclusive,
// oldest first. Bar times carry the exchange time zone.
func (c *Client) GetTimeSeries(ctx context.Context, symbol, interval string, start, end time.Time) ([]model.Candle, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", interval)
	query.Set("start_date", start.Format("2006-01-02 15:04:05"))
	query.Set("end_date", end.Format("2006-01-02 15:04:05"))
	query.Set("outputsize", fmt.Sprint(maxOutputSize))
	query.Set("timezone", "Exchange")
	query.Set("apikey", c.apiKey)

	c.logger.Debug().
		Str("symbol", symbol).
		Str("interval", interval).
		Time("start", start).
		Time("end", end).
		Msg("Fetching time series")

	// Create a new request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/time_series?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var data model.TwelveResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing JSON")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if data.Status == "error" {
		c.logger.Error().Str("message", data.Message).Msg("Twelve Data API error")
		return nil, fmt.Errorf("twelve data API error: %s", data.Message)
	}
	if len(data.Values) == 0 {
		c.logger.Warn().Str("symbol", symbol).Msg("No candles in response")
		return nil, fmt.Errorf("%s %s: %w", symbol, interval, ErrEmptyResponse)
	}

	loc := time.UTC
	if data.Meta.Timezone != "" {
		if l, err := time.LoadLocation(data.Meta.Timezone); err == nil {
			loc = l
		} else {
			c.logger.Warn().Err(err).Str("timezone", data.Meta.Timezone).Msg("Unknown exchange time zone, using UTC")
		}
	}

	candles := make([]model.Candle, 0, len(data.Values))
	for _, v := range data.Values {
		t, err := parseDatetime(v.Datetime, loc)
		if err != nil {
			return nil, err
		}
		candles = append(candles, model.Candle{
			Time:   t,
			Open:   v.Open,
			High:   v.High,
			Low:    v.Low,
			Close:  v.Close,
			Volume: v.Volume,
		})
	}

	// Sort candles by time (oldest first for proper calculations)
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})

	c.logger.Debug().Int("count", len(candles)).Msg("Fetched candles")
	return candles, nil
}

func parseDatetime(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing datetime %q", value)
}
