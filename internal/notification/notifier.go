// Package notification delivers finished analysis reports to external
// channels. Every notifier is a report.Sink.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"trading-analytics/internal/report"
)

const defaultTimeout = 10 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// Summary renders rep as a short plain-text message: a header line, then
// one "criterion = value" line per result.
func Summary(rep report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s: %d positions over %d bars\n", rep.Strategy, rep.Series, rep.Positions, rep.Bars)
	for _, r := range rep.Results {
		fmt.Fprintf(&b, "%s = %s\n", r.Criterion, r.Text)
	}
	fmt.Fprintf(&b, "run %s", rep.RunID)
	return b.String()
}

// LogNotifier writes the summary to a logger, useful during development.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Save(_ context.Context, rep report.Report) error {
	log := n.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("report", "run_id", rep.RunID, "summary", Summary(rep))
	return nil
}
