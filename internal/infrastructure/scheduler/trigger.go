package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// listPageSize is the page size used when walking the records of a year
const listPageSize = 100

// RecordLister lists accountability records
type RecordLister interface {
	List(ctx context.Context, filter accountability.Filter) ([]accountability.Accountability, int64, error)
}

// SummaryRefresher recomputes and stores the summary of one record
type SummaryRefresher interface {
	UpdateStored(ctx context.Context, id uuid.UUID) (*accountability.FinancialSummary, error)
}

// RefreshExecutor executes jobs through a SummaryRefresher
type RefreshExecutor struct {
	refresher SummaryRefresher
}

// NewRefreshExecutor creates a new RefreshExecutor
func NewRefreshExecutor(refresher SummaryRefresher) *RefreshExecutor {
	return &RefreshExecutor{refresher: refresher}
}

// Execute refreshes the job's record. A record deleted since it was listed
// counts as done.
func (e *RefreshExecutor) Execute(ctx context.Context, job *Job) error {
	_, err := e.refresher.UpdateStored(ctx, job.RecordID)
	if errors.Is(err, shared.ErrAccountabilityNotFound) {
		return nil
	}
	return err
}

// Trigger submits a refresh job for every record of the current academic
// year each time the interval elapses.
type Trigger struct {
	interval  time.Duration
	scheduler *Scheduler
	lister    RecordLister
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewTrigger creates a new trigger
func NewTrigger(interval time.Duration, scheduler *Scheduler, lister RecordLister, logger *zap.Logger) *Trigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{
		interval:  interval,
		scheduler: scheduler,
		lister:    lister,
		logger:    logger,
		now:       time.Now,
	}
}

// Start starts the trigger loop
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return nil
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Summary refresh trigger started", zap.Duration("interval", t.interval))
	return nil
}

// Stop stops the trigger loop
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.cancel()
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Trigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.RunOnce(ctx); err != nil {
				t.logger.Error("Summary refresh round failed", zap.Error(err))
			}
		}
	}
}

// RunOnce submits a job for each record of the current academic year and
// returns how many were queued. Listing stops at the first error; a full
// queue ends the round early.
func (t *Trigger) RunOnce(ctx context.Context) (int, error) {
	year := t.now().Year()
	filter := accountability.Filter{
		Filter:       shared.Filter{Page: 1, PageSize: listPageSize},
		AcademicYear: year,
	}

	queued := 0
	for {
		records, total, err := t.lister.List(ctx, filter)
		if err != nil {
			return queued, err
		}
		for i := range records {
			if err := t.scheduler.ScheduleRefresh(records[i].ID); err != nil {
				if errors.Is(err, ErrJobQueueFull) {
					t.logger.Warn("Refresh queue full, round cut short",
						zap.Int("academic_year", year),
						zap.Int("queued", queued),
					)
					return queued, nil
				}
				return queued, err
			}
			queued++
		}
		if len(records) < listPageSize || int64(filter.Page*listPageSize) >= total {
			break
		}
		filter.Page++
	}

	t.logger.Info("Summary refresh round queued",
		zap.Int("academic_year", year),
		zap.Int("records", queued),
	)
	return queued, nil
}
