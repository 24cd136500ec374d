package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-analytics/internal/report"
)

const (
	defaultLatestTTL = 24 * time.Hour
	// Reports are rare compared with candles: keep a few hundred per series.
	defaultStreamMaxLen = 500
)

// Config configures the Redis client.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	// TTL of the latest-report key; <= 0 uses 24h.
	TTL time.Duration
	// MaxLen approximately trims each report stream; <= 0 uses 500.
	MaxLen int64
}

// NewClient builds a client and pings the server.
func NewClient(ctx context.Context, cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	slog.Info("redis connected", "addr", cfg.Addr)
	return client, nil
}

// StreamKey is the stream holding every report of a series: "analysis:{series}".
func StreamKey(seriesName string) string { return "analysis:" + seriesName }

// LatestKey holds the newest report JSON: "analysis:{series}:latest".
func LatestKey(seriesName string) string { return "analysis:" + seriesName + ":latest" }

// Channel is the pubsub channel notified of new reports.
func Channel(seriesName string) string { return "pub:analysis:" + seriesName }

// Publisher writes reports to Redis: XADD to the series stream, SET the
// latest key with a TTL and PUBLISH to subscribers, in one pipeline.
type Publisher struct {
	client *goredis.Client
	ttl    time.Duration
	maxLen int64
}

// NewPublisher wraps an existing client.
func NewPublisher(client *goredis.Client, cfg Config) *Publisher {
	p := &Publisher{client: client, ttl: cfg.TTL, maxLen: cfg.MaxLen}
	if p.ttl <= 0 {
		p.ttl = defaultLatestTTL
	}
	if p.maxLen <= 0 {
		p.maxLen = defaultStreamMaxLen
	}
	return p
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// Name identifies the publisher as a report sink.
func (p *Publisher) Name() string { return "redis" }

// Save publishes rep.
func (p *Publisher) Save(ctx context.Context, rep report.Report) error {
	data, err := rep.JSON()
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	jsonData := string(data)

	pipe := p.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: StreamKey(rep.Series),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"run_id": rep.RunID,
			"data":   jsonData,
		},
	})
	pipe.Set(ctx, LatestKey(rep.Series), jsonData, p.ttl)
	pipe.Publish(ctx, Channel(rep.Series), jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish report %s: %w", rep.RunID, err)
	}
	slog.Debug("redis published report", "run_id", rep.RunID, "series", rep.Series)
	return nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
