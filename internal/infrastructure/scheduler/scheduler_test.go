package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/schoolgrants/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type countingExecutor struct {
	mu       sync.Mutex
	seen     []uuid.UUID
	failures int32
}

func (e *countingExecutor) Execute(_ context.Context, job *Job) error {
	if atomic.AddInt32(&e.failures, -1) >= 0 {
		return errors.New("database unavailable")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, job.RecordID)
	return nil
}

func (e *countingExecutor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.seen)
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Workers:       2,
		JobTimeout:    time.Second,
		RetryAttempts: 2,
		RetryDelay:    10 * time.Millisecond,
	}
}

func startScheduler(t *testing.T, exec JobExecutor) *Scheduler {
	t.Helper()
	s := NewScheduler(testConfig(), exec, nil)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestScheduler_RunsSubmittedJobs(t *testing.T) {
	exec := &countingExecutor{}
	s := startScheduler(t, exec)

	id := uuid.New()
	require.NoError(t, s.ScheduleRefresh(id))
	require.NoError(t, s.ScheduleRefresh(uuid.New()))

	require.Eventually(t, func() bool { return exec.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, exec.seen, id)
}

func TestScheduler_RetriesFailedJob(t *testing.T) {
	exec := &countingExecutor{failures: 2}
	s := startScheduler(t, exec)

	require.NoError(t, s.ScheduleRefresh(uuid.New()))
	require.Eventually(t, func() bool { return exec.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_GivesUpAfterRetries(t *testing.T) {
	exec := &countingExecutor{failures: 10}
	s := startScheduler(t, exec)

	require.NoError(t, s.ScheduleRefresh(uuid.New()))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&exec.failures) == 7 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(7), atomic.LoadInt32(&exec.failures))
	assert.Zero(t, exec.count())
}

func TestScheduler_SubmitWhenStopped(t *testing.T) {
	s := NewScheduler(testConfig(), &countingExecutor{}, nil)
	assert.ErrorIs(t, s.ScheduleRefresh(uuid.New()), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
	assert.ErrorIs(t, s.ScheduleRefresh(uuid.New()), ErrSchedulerNotRunning)
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(uuid.New(), 1)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.Equal(t, "boom", job.Error)
	assert.True(t, job.ShouldRetry())

	job.RetryCount = 1
	assert.False(t, job.ShouldRetry())

	job.Start()
	job.Complete()
	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.Empty(t, job.Error)
}

type pagedLister struct {
	total   int
	err     error
	filters []accountability.Filter
}

func (l *pagedLister) List(_ context.Context, filter accountability.Filter) ([]accountability.Accountability, int64, error) {
	l.filters = append(l.filters, filter)
	if l.err != nil {
		return nil, 0, l.err
	}
	start := (filter.Page - 1) * filter.PageSize
	n := l.total - start
	if n > filter.PageSize {
		n = filter.PageSize
	}
	if n < 0 {
		n = 0
	}
	records := make([]accountability.Accountability, n)
	for i := range records {
		records[i].ID = uuid.New()
	}
	return records, int64(l.total), nil
}

func TestTrigger_RunOnceWalksAllPages(t *testing.T) {
	exec := &countingExecutor{}
	s := startScheduler(t, exec)
	lister := &pagedLister{total: 150}
	trigger := NewTrigger(time.Hour, s, lister, nil)
	trigger.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	queued, err := trigger.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150, queued)
	require.Len(t, lister.filters, 2)
	assert.Equal(t, 2024, lister.filters[0].AcademicYear)
	assert.Equal(t, 2, lister.filters[1].Page)

	require.Eventually(t, func() bool { return exec.count() == 150 }, 2*time.Second, 5*time.Millisecond)
}

func TestTrigger_RunOnceListError(t *testing.T) {
	s := startScheduler(t, &countingExecutor{})
	trigger := NewTrigger(time.Hour, s, &pagedLister{err: errors.New("connection refused")}, nil)

	queued, err := trigger.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Zero(t, queued)
}

func TestTrigger_StartStop(t *testing.T) {
	s := startScheduler(t, &countingExecutor{})
	lister := &pagedLister{total: 1}
	trigger := NewTrigger(10*time.Millisecond, s, lister, nil)

	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))
}

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) UpdateStored(ctx context.Context, id uuid.UUID) (*accountability.FinancialSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountability.FinancialSummary), args.Error(1)
}

func TestRefreshExecutor(t *testing.T) {
	refresher := new(mockRefresher)
	exec := NewRefreshExecutor(refresher)
	ctx := context.Background()
	ok, gone, broken := uuid.New(), uuid.New(), uuid.New()

	refresher.On("UpdateStored", ctx, ok).Return(&accountability.FinancialSummary{}, nil)
	refresher.On("UpdateStored", ctx, gone).Return(nil, shared.ErrAccountabilityNotFound)
	refresher.On("UpdateStored", ctx, broken).Return(nil, errors.New("deadlock detected"))

	assert.NoError(t, exec.Execute(ctx, NewJob(ok, 0)))
	assert.NoError(t, exec.Execute(ctx, NewJob(gone, 0)))
	assert.Error(t, exec.Execute(ctx, NewJob(broken, 0)))
	refresher.AssertExpectations(t)
}
