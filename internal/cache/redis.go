// Package cache keeps downloaded market and macro series in Redis so repeated
// runs over the same date range skip the network.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/CycleTrader/internal/model"
)

const keyPrefix = "cycletrader"

// ErrMiss is returned by Get when the key is absent
var ErrMiss = errors.New("cache miss")

// store is the byte-level backend
type store interface {
	get(ctx context.Context, key string) ([]byte, error)
	set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	close() error
}

type redisStore struct {
	client *redis.Client
}

func (s redisStore) get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return val, err
}

func (s redisStore) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s redisStore) close() error {
	return s.client.Close()
}

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache is a JSON cache of fetched series
type Cache struct {
	store  store
	ttl    time.Duration
	logger zerolog.Logger
}

// New connects to Redis and checks the connection
func New(ctx context.Context, opts Options) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}

	c := newCache(redisStore{client: client}, opts.TTL)
	c.logger.Info().Str("addr", opts.Addr).Dur("ttl", c.ttl).Msg("Connected to Redis")
	return c, nil
}

func newCache(s store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{
		store:  s,
		ttl:    ttl,
		logger: log.With().Str("component", "series_cache").Logger(),
	}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.store.close()
}

// Key builds a cache key for one fetch over a date range
func Key(kind string, parts []string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", keyPrefix, kind, strings.Join(parts, ","),
		start.Format("20060102"), end.Format("20060102"))
}

// IntradayKey builds a cache key for a fetch ending at the current time. The end
// is kept to the hour so a later run the same day refetches newer bars.
func IntradayKey(kind string, parts []string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", keyPrefix, kind, strings.Join(parts, ","),
		start.UTC().Format("20060102T15"), end.UTC().Format("20060102T15"))
}

// Set stores value as JSON
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return c.store.set(ctx, key, data, c.ttl)
}

// Get decodes the value under key into dest. A missing key yields ErrMiss.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.store.get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Candles returns the cached bars under key or calls fetch and caches its result.
// Cache failures are logged and never fail the fetch.
func (c *Cache) Candles(ctx context.Context, key string, fetch func(context.Context) ([]model.Candle, error)) ([]model.Candle, error) {
	var candles []model.Candle
	err := c.Get(ctx, key, &candles)
	if err == nil {
		c.logger.Debug().Str("key", key).Int("count", len(candles)).Msg("Cache hit")
		return candles, nil
	}
	if !errors.Is(err, ErrMiss) {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	candles, err = fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, key, candles); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return candles, nil
}

// wireTable is an IndicatorTable with NaN encoded as null
type wireTable struct {
	Days   []time.Time           `json:"days"`
	Series map[string][]*float64 `json:"series"`
}

func encodeTable(t model.IndicatorTable) wireTable {
	w := wireTable{Days: t.Days, Series: make(map[string][]*float64, len(t.Series))}
	for name, values := range t.Series {
		col := make([]*float64, len(values))
		for i, v := range values {
			if !math.IsNaN(v) {
				v := v
				col[i] = &v
			}
		}
		w.Series[name] = col
	}
	return w
}

func decodeTable(w wireTable) model.IndicatorTable {
	t := model.IndicatorTable{Days: w.Days, Series: make(map[string][]float64, len(w.Series))}
	for name, col := range w.Series {
		values := make([]float64, len(col))
		for i, v := range col {
			values[i] = math.NaN()
			if v != nil {
				values[i] = *v
			}
		}
		t.Series[name] = values
	}
	return t
}

// Indicators returns the cached indicator table under key or calls fetch and
// caches its result
func (c *Cache) Indicators(ctx context.Context, key string, fetch func(context.Context) (model.IndicatorTable, error)) (model.IndicatorTable, error) {
	var w wireTable
	err := c.Get(ctx, key, &w)
	if err == nil {
		c.logger.Debug().Str("key", key).Int("days", len(w.Days)).Msg("Cache hit")
		return decodeTable(w), nil
	}
	if !errors.Is(err, ErrMiss) {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	table, err := fetch(ctx)
	if err != nil {
		return model.IndicatorTable{}, err
	}
	if err := c.Set(ctx, key, encodeTable(table)); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return table, nil
}
