package fred

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/CycleTrader/internal/model"
)

func fredServer(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/series/observations", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("file_type"))
		body, ok := bodies[r.URL.Query().Get("series_id")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func observations(values ...string) string {
	out := `{"observations":[`
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"date":"2020-%02d-01","value":"%s"}`, i+1, v)
	}
	return out + `]}`
}

func TestGetSeries(t *testing.T) {
	srv := fredServer(t, map[string]string{"UNRATE": observations("3.5", ".", "4.4")})
	client := NewClient(ClientOptions{APIKey: "k", BaseURL: srv.URL, RequestsPerSec: 50})

	s, err := client.GetSeries(context.Background(), "UNRATE", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, 3.5, s.Values[0])
	assert.True(t, math.IsNaN(s.Values[1]))
	assert.Equal(t, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), s.Times[2])
}

func TestGetSeriesErrorMessage(t *testing.T) {
	srv := fredServer(t, map[string]string{"BAD": `{"error_message":"Bad Request. The series does not exist."}`})
	client := NewClient(ClientOptions{BaseURL: srv.URL, RequestsPerSec: 50})

	_, err := client.GetSeries(context.Background(), "BAD", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestFetchIndicatorsSkipsFailedSeries(t *testing.T) {
	srv := fredServer(t, map[string]string{
		"UNRATE": observations("3.5", "3.6", "4.4"),
		"GS10":   observations("1.8", "1.5", "0.9"),
		"GS2":    observations("1.6", "1.3", "0.5"),
	})
	client := NewClient(ClientOptions{BaseURL: srv.URL, RequestsPerSec: 50, MaxRetries: 1})

	table, err := client.FetchIndicators(context.Background(), DefaultSeries, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	_, hasGDP := table.Column(model.IndicatorGDPGrowth)
	assert.False(t, hasGDP)

	curve, ok := table.Column(model.IndicatorYieldCurve)
	require.True(t, ok)
	assert.InDelta(t, 0.2, curve[0], 1e-9)
	assert.InDelta(t, 0.4, curve[len(curve)-1], 1e-9)
	assert.Equal(t, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), table.Days[len(table.Days)-1])
}

func TestFetchIndicatorsNothingFetched(t *testing.T) {
	srv := fredServer(t, nil)
	client := NewClient(ClientOptions{BaseURL: srv.URL, RequestsPerSec: 50})

	_, err := client.FetchIndicators(context.Background(), map[string]string{"X": "NOPE"}, time.Now())
	assert.ErrorIs(t, err, model.ErrNoIndicators)
}
