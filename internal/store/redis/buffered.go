package redis

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"trading-analytics/internal/report"
)

// sink is what BufferedPublisher guards.
type sink interface {
	Save(ctx context.Context, rep report.Report) error
}

// BufferedPublisher wraps a Publisher with a circuit breaker.
// While the circuit is open reports are buffered locally and replayed once
// a later call closes the circuit again.
type BufferedPublisher struct {
	pub sink
	cb  *CircuitBreaker

	mu     sync.Mutex
	buffer []report.Report
	maxBuf int // max buffered reports before dropping oldest (default: 1000)

	// Callbacks
	OnBuffer func()          // called when a report is buffered
	OnFlush  func(count int) // called after flushing buffered reports
}

// NewBufferedPublisher guards pub with cb.
func NewBufferedPublisher(pub *Publisher, cb *CircuitBreaker, maxBufferSize int) *BufferedPublisher {
	return newBuffered(pub, cb, maxBufferSize)
}

func newBuffered(pub sink, cb *CircuitBreaker, maxBufferSize int) *BufferedPublisher {
	if maxBufferSize <= 0 {
		maxBufferSize = 1000
	}
	return &BufferedPublisher{pub: pub, cb: cb, maxBuf: maxBufferSize}
}

// Name identifies the publisher as a report sink.
func (bp *BufferedPublisher) Name() string { return "redis" }

// Save publishes rep through the breaker. An open circuit buffers rep and
// returns nil; a successful call replays the buffer first.
func (bp *BufferedPublisher) Save(ctx context.Context, rep report.Report) error {
	err := bp.cb.Execute(func() error {
		return bp.pub.Save(ctx, rep)
	})
	switch {
	case errors.Is(err, ErrCircuitOpen):
		bp.bufferReport(rep)
		return nil
	case err != nil:
		return err
	}
	bp.flush(ctx)
	return nil
}

func (bp *BufferedPublisher) bufferReport(rep report.Report) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if len(bp.buffer) >= bp.maxBuf {
		// Buffer full, drop oldest
		bp.buffer = bp.buffer[1:]
	}
	bp.buffer = append(bp.buffer, rep)

	if bp.OnBuffer != nil {
		bp.OnBuffer()
	}
}

// flush replays buffered reports in order. Reports that fail again go back
// to the front of the buffer.
func (bp *BufferedPublisher) flush(ctx context.Context) {
	bp.mu.Lock()
	if len(bp.buffer) == 0 {
		bp.mu.Unlock()
		return
	}
	toFlush := bp.buffer
	bp.buffer = nil
	bp.mu.Unlock()

	flushed := 0
	for i, rep := range toFlush {
		if err := bp.pub.Save(ctx, rep); err != nil {
			slog.Warn("redis flush failed, re-buffering", "pending", len(toFlush)-i, "error", err)
			bp.mu.Lock()
			bp.buffer = append(append([]report.Report(nil), toFlush[i:]...), bp.buffer...)
			if over := len(bp.buffer) - bp.maxBuf; over > 0 {
				bp.buffer = bp.buffer[over:]
			}
			bp.mu.Unlock()
			break
		}
		flushed++
	}

	if flushed > 0 {
		slog.Info("redis flushed buffered reports", "count", flushed)
	}
	if bp.OnFlush != nil {
		bp.OnFlush(flushed)
	}
}

// PendingCount returns the number of buffered reports waiting to be flushed.
func (bp *BufferedPublisher) PendingCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.buffer)
}

// Pending returns a copy of the buffered reports, oldest first.
func (bp *BufferedPublisher) Pending() []report.Report {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return append([]report.Report(nil), bp.buffer...)
}
