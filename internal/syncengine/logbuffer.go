package syncengine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/ports"
)

const (
	logFlushEntryThreshold = 50
	logFlushInterval       = 5 * time.Second
)

// logBuffer accumulates LogEntry rows in memory and flushes them to the
// catalog at 50 entries or 5 seconds, whichever comes first, plus an
// unconditional final flush.
type logBuffer struct {
	catalog ports.Catalog
	logger  *zap.Logger

	mu      sync.Mutex
	entries []domain.LogEntry

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newLogBuffer(catalog ports.Catalog, logger *zap.Logger) *logBuffer {
	return &logBuffer{
		catalog: catalog,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// run drives the periodic flush; call in its own goroutine and Stop to
// join it.
func (b *logBuffer) run(ctx context.Context) {
	defer close(b.done)

	ticker := time.NewTicker(logFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.flush(context.Background())
			return
		case <-b.stop:
			b.flush(context.Background())
			return
		case <-ticker.C:
			b.flush(ctx)
		}
	}
}

// Append queues an entry, flushing immediately if the threshold is hit.
func (b *logBuffer) Append(ctx context.Context, entry domain.LogEntry) {
	b.mu.Lock()
	b.entries = append(b.entries, entry)
	full := len(b.entries) >= logFlushEntryThreshold
	b.mu.Unlock()

	if full {
		b.flush(ctx)
	}
}

func (b *logBuffer) flush(ctx context.Context) {
	b.mu.Lock()
	if len(b.entries) == 0 {
		b.mu.Unlock()
		return
	}
	pending := b.entries
	b.entries = nil
	b.mu.Unlock()

	if err := b.catalog.SaveLogs(ctx, pending); err != nil {
		b.logger.Error("failed flushing sync log buffer", zap.Error(err), zap.Int("entries", len(pending)))
	}
}

// Stop halts the periodic flush loop and waits for it to finish after an
// unconditional final flush. Safe to call more than once.
func (b *logBuffer) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
}
