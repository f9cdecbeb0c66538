package activity

import (
	"context"
	"sync"
	"time"

	"cityops/internal/logging"
)

// Buffered collects rows and hands them to the next writer in batches,
// either when max rows are queued or when Run's ticker fires.
type Buffered struct {
	mu   sync.Mutex
	rows []Row
	next Writer
	max  int
}

// NewBuffered wraps next. A max below 1 flushes on every write.
func NewBuffered(next Writer, max int) *Buffered {
	if max < 1 {
		max = 1
	}
	return &Buffered{next: next, max: max}
}

// Write queues a row.
func (b *Buffered) Write(row Row) error {
	b.mu.Lock()
	b.rows = append(b.rows, row)
	full := len(b.rows) >= b.max
	b.mu.Unlock()
	if full {
		return b.Flush()
	}
	return nil
}

// Flush writes every queued row.
func (b *Buffered) Flush() error {
	b.mu.Lock()
	rows := b.rows
	b.rows = nil
	b.mu.Unlock()
	return WriteBatch(b.next, rows)
}

// Len returns the number of queued rows.
func (b *Buffered) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows)
}

// Run flushes every interval until ctx is done, then flushes once more.
func (b *Buffered) Run(ctx context.Context, interval time.Duration) {
	log := logging.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				log.Warn("activity flush failed", "err", err)
			}
		case <-ctx.Done():
			if err := b.Flush(); err != nil {
				log.Warn("final activity flush failed", "err", err)
			}
			return
		}
	}
}
