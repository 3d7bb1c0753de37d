// internal/progress/reporter.go
package progress

import (
	"sync"
	"time"

	"github.com/bstardust/gphotos-amazon-transfer/internal/logger"
)

// Reporter tracks and reports transfer progress. The total is not known up
// front because the source is enumerated lazily, so progress is reported as a
// running count.
type Reporter struct {
	mu             sync.Mutex
	succeeded      int
	skipped        int
	failed         int
	startTime      time.Time
	lastUpdateTime time.Time
	updateInterval time.Duration
}

// New creates a new progress reporter
func New() *Reporter {
	return &Reporter{
		updateInterval: 2 * time.Second,
	}
}

// Start begins tracking a run
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.succeeded = 0
	r.skipped = 0
	r.failed = 0
	r.startTime = time.Now()
	r.lastUpdateTime = time.Now()

	logger.Info("Starting transfer")
}

// Succeed marks an item as transferred
func (r *Reporter) Succeed(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.succeeded++
	r.maybeLog()
}

// Skip marks an item as skipped
func (r *Reporter) Skip(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.skipped++
	r.maybeLog()
}

// Fail marks an item as failed
func (r *Reporter) Fail(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failed++
	r.maybeLog()
}

// Finish completes the progress reporting
func (r *Reporter) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	duration := time.Since(r.startTime)
	processed := r.succeeded + r.skipped + r.failed

	logger.Info("Transfer complete: %d items processed, %d transferred, %d skipped, %d failed in %s",
		processed, r.succeeded, r.skipped, r.failed, duration.Round(time.Second))
}

// maybeLog logs a progress line at most once per update interval
func (r *Reporter) maybeLog() {
	now := time.Now()
	if now.Sub(r.lastUpdateTime) < r.updateInterval {
		return
	}

	r.lastUpdateTime = now
	processed := r.succeeded + r.skipped + r.failed
	elapsed := now.Sub(r.startTime)

	logger.Info("Progress: %d items processed (%d transferred, %d skipped, %d failed), elapsed %s",
		processed, r.succeeded, r.skipped, r.failed, elapsed.Round(time.Second))
}
