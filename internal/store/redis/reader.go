package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/go-redis/redis/v8"

	"trading-analytics/internal/report"
)

// ErrNoReport is returned when no report is stored for a series.
var ErrNoReport = errors.New("redis: no report")

// Reader reads published reports back from Redis.
type Reader struct {
	client *goredis.Client
}

// NewReader wraps an existing client.
func NewReader(client *goredis.Client) *Reader {
	return &Reader{client: client}
}

// LatestReport returns the report under LatestKey. It expires after the
// publisher's TTL.
func (r *Reader) LatestReport(ctx context.Context, seriesName string) (report.Report, error) {
	data, err := r.client.Get(ctx, LatestKey(seriesName)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return report.Report{}, fmt.Errorf("%w for %s", ErrNoReport, seriesName)
		}
		return report.Report{}, fmt.Errorf("redis GET %s: %w", LatestKey(seriesName), err)
	}
	var rep report.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return report.Report{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return rep, nil
}

// RecentReports returns up to n reports from the series stream, newest first.
func (r *Reader) RecentReports(ctx context.Context, seriesName string, n int64) ([]report.Report, error) {
	msgs, err := r.client.XRevRangeN(ctx, StreamKey(seriesName), "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("redis XREVRANGE %s: %w", StreamKey(seriesName), err)
	}
	out := make([]report.Report, 0, len(msgs))
	for _, msg := range msgs {
		rep, err := decodeMessage(msg)
		if err != nil {
			// skip poison entries
			slog.Warn("redis skipping stream entry", "id", msg.ID, "error", err)
			continue
		}
		out = append(out, rep)
	}
	return out, nil
}

// Subscribe forwards reports published for a series until ctx is done.
// The returned channel is closed when the subscription ends.
func (r *Reader) Subscribe(ctx context.Context, seriesName string) <-chan report.Report {
	sub := r.client.Subscribe(ctx, Channel(seriesName))
	out := make(chan report.Report, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var rep report.Report
				if err := json.Unmarshal([]byte(msg.Payload), &rep); err != nil {
					slog.Warn("redis bad report payload", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- rep:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func decodeMessage(msg goredis.XMessage) (report.Report, error) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		return report.Report{}, fmt.Errorf("stream entry %s has no data field", msg.ID)
	}
	var rep report.Report
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return report.Report{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return rep, nil
}
