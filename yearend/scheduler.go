/*
scheduler.go - Automated year-end scheduler

PURPOSE:
  Periodically checks the clock and runs the year-end batch once on
  December 31.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Fires only when the service clock reads December 31
  - Skips fiscal years that already have a completed run
  - Every run is recorded in year_end_runs by the service

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewScheduler(service)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - service.go: the batch
  - api/handlers.go: manual trigger endpoints
*/
package yearend

import (
	"context"
	"sync"
	"time"
)

// Scheduler handles automated year-end processing.
type Scheduler struct {
	Service       *Service
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a new scheduler.
func NewScheduler(service *Service) *Scheduler {
	return &Scheduler{
		Service:       service,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (ys *Scheduler) Start() {
	ys.mu.Lock()
	defer ys.mu.Unlock()

	if !ys.Enabled {
		ys.Service.logf("[Scheduler] Disabled, not starting")
		return
	}
	if ys.ticker != nil {
		return
	}

	ys.ticker = time.NewTicker(ys.CheckInterval)
	ys.stop = make(chan struct{})
	ys.wg.Add(1)

	go ys.run()

	ys.Service.logf("[Scheduler] Started with check interval: %v", ys.CheckInterval)
}

// Stop stops the scheduler.
func (ys *Scheduler) Stop() {
	ys.mu.Lock()
	defer ys.mu.Unlock()

	if ys.ticker != nil {
		ys.ticker.Stop()
		close(ys.stop)
		ys.wg.Wait()
		ys.ticker = nil
		ys.Service.logf("[Scheduler] Stopped")
	}
}

func (ys *Scheduler) run() {
	defer ys.wg.Done()

	// Run immediately on start
	ys.checkAndProcess()

	for {
		select {
		case <-ys.ticker.C:
			ys.checkAndProcess()
		case <-ys.stop:
			return
		}
	}
}

// checkAndProcess runs the batch when due and reports whether it ran.
func (ys *Scheduler) checkAndProcess() *BatchResult {
	ctx := context.Background()
	now := ys.Service.now()

	if !ys.Service.IsYearEnd(now) {
		return nil
	}

	done, err := ys.Service.Store.IsYearEndComplete(ctx, now.Year())
	if err != nil {
		ys.Service.logf("[Scheduler] Error checking year-end status: %v", err)
		return nil
	}
	if done {
		return nil
	}

	result, err := ys.Service.run(ctx, now, TriggerScheduled)
	if err != nil {
		ys.Service.logf("[Scheduler] Year-end %d failed: %v", now.Year(), err)
		return result
	}
	ys.Service.logf("[Scheduler] Year-end %d: %s", now.Year(), result.Message)
	return result
}

// RunNow triggers an immediate check (for testing/admin). It returns nil
// when nothing was due.
func (ys *Scheduler) RunNow() *BatchResult {
	return ys.checkAndProcess()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (ys *Scheduler) GetNextRunTime() time.Time {
	return ys.Service.now().Add(ys.CheckInterval)
}
