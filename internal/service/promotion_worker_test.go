package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/repository"
	"github.com/alexanderramin/ascent/internal/testutil"
	"github.com/alexanderramin/ascent/internal/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	trigger = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	runAt   = time.Date(2024, 1, 1, 9, 5, 0, 0, time.UTC)
)

type workerFixture struct {
	db    *sql.DB
	nodes repository.NodeRepo
	tasks repository.TaskRepo
	lists repository.TaskListRepo
	clock *timeutil.FixedClock
}

func setupWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	return &workerFixture{
		db:    database,
		nodes: repository.NewSQLiteNodeRepo(database),
		tasks: repository.NewSQLiteTaskRepo(database),
		lists: repository.NewSQLiteTaskListRepo(database),
		clock: timeutil.NewFixedClock(runAt),
	}
}

func (f *workerFixture) worker(opts ...WorkerOption) *PromotionWorker {
	opts = append([]WorkerOption{WithWorkerClock(f.clock)}, opts...)
	return NewPromotionWorker(f.nodes, f.tasks, testutil.NewTestUoW(f.db), opts...)
}

func (f *workerFixture) createList(t *testing.T, id string) {
	t.Helper()
	list := testutil.NewTestTaskList("List " + id)
	list.ID = id
	require.NoError(t, f.lists.Create(context.Background(), list))
}

// createChain stores a Range-to-Step chain and returns the step.
func (f *workerFixture) createChain(t *testing.T, title string, opts ...testutil.NodeOption) *domain.Node {
	t.Helper()
	chain := testutil.NewTestChain(title, opts...)
	for _, n := range chain {
		require.NoError(t, f.nodes.Create(context.Background(), n))
	}
	return chain[len(chain)-1]
}

func (f *workerFixture) staged(t *testing.T, stepID string) bool {
	t.Helper()
	n, err := f.nodes.GetByID(context.Background(), testutil.TestOwner, stepID)
	if errors.Is(err, repository.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return n.Staged()
}

func (f *workerFixture) listTasks(t *testing.T, listID string) []*domain.Task {
	t.Helper()
	tasks, err := f.tasks.ListByList(context.Background(), testutil.TestOwner, listID)
	require.NoError(t, err)
	return tasks
}

func TestPromotionWorker_MigratesDueStep(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	f.createChain(t, "Draft outline",
		testutil.WithID("s1"),
		testutil.WithSchedule(trigger, "list-A"),
		testutil.WithDuration(45),
		testutil.WithColor("#4f46e5", "pencil"),
	)

	report, err := f.worker().RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runAt, report.AsOf)
	assert.Equal(t, 1, report.Eligible)
	assert.Equal(t, []string{"s1"}, report.Migrated)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []string{"list-A"}, report.TouchedLists)
	assert.NoError(t, report.Err())

	assert.False(t, f.staged(t, "s1"), "s1 must leave the staging set")
	tasks := f.listTasks(t, "list-A")
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, "Draft outline", task.Title)
	assert.Equal(t, 45, task.DurationMin)
	assert.Equal(t, "#4f46e5", task.Color)
	assert.Equal(t, "pencil", task.Icon)
	assert.Equal(t, 0, task.Position, "list positions are renormalized after the run")
	require.NotNil(t, task.SourceStepID)
	assert.Equal(t, "s1", *task.SourceStepID)
}

func TestPromotionWorker_IgnoresStepsNotYetDue(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	step := f.createChain(t, "Later", testutil.WithSchedule(runAt.Add(time.Hour), "list-A"))

	report, err := f.worker().RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Eligible)
	assert.True(t, f.staged(t, step.ID))
	assert.Empty(t, f.listTasks(t, "list-A"))

	// Trigger time equal to asOf is due.
	report, err = f.worker().Run(context.Background(), runAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{step.ID}, report.Migrated)
}

func TestPromotionWorker_SecondRunIsNoop(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	f.createChain(t, "One", testutil.WithSchedule(trigger, "list-A"))
	f.createChain(t, "Two", testutil.WithSchedule(trigger, "list-A"))
	w := f.worker()

	first, err := w.RunNow(context.Background())
	require.NoError(t, err)
	assert.Len(t, first.Migrated, 2)

	second, err := w.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Eligible)
	assert.Empty(t, second.Migrated)
	assert.Empty(t, second.TouchedLists)
	assert.Len(t, f.listTasks(t, "list-A"), 2)
}

func TestPromotionWorker_InsertFailureLeavesStepStaged(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	bad := f.createChain(t, "Bad", testutil.WithSchedule(trigger, "list-A"))
	good := f.createChain(t, "Good", testutil.WithSchedule(trigger.Add(time.Minute), "list-A"))

	tasks := &failingTaskRepo{TaskRepo: f.tasks, failSteps: map[string]bool{bad.ID: true}}
	w := NewPromotionWorker(f.nodes, tasks, testutil.NewTestUoW(f.db), WithWorkerClock(f.clock))

	report, err := w.RunNow(context.Background())
	require.NoError(t, err, "item failures do not abort the run")
	require.Len(t, report.Failed, 1)
	assert.Equal(t, bad.ID, report.Failed[0].StepID)
	assert.Equal(t, domain.StageInsert, report.Failed[0].Stage)
	assert.ErrorIs(t, report.Err(), domain.ErrPromotionItem)
	assert.ErrorIs(t, report.Err(), errInjected)
	assert.Equal(t, []string{good.ID}, report.Migrated)

	assert.True(t, f.staged(t, bad.ID), "failed item stays staged")
	assert.False(t, f.staged(t, good.ID))
	listed := f.listTasks(t, "list-A")
	require.Len(t, listed, 1)
	assert.Equal(t, "Good", listed[0].Title)

	// Next run with a healthy list retries the failed step.
	report, err = f.worker().RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{bad.ID}, report.Migrated)
	assert.Len(t, f.listTasks(t, "list-A"), 2)
}

func TestPromotionWorker_MissingTargetListFailsInsert(t *testing.T) {
	f := setupWorkerFixture(t)
	step := f.createChain(t, "Nowhere", testutil.WithSchedule(trigger, "no-such-list"))

	report, err := f.worker().RunNow(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, domain.StageInsert, report.Failed[0].Stage)
	assert.True(t, f.staged(t, step.ID))
}

func TestPromotionWorker_ResumesInterruptedPromotion(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	step := f.createChain(t, "Half done", testutil.WithSchedule(trigger, "list-A"))

	// A previous run inserted the task and stopped before deleting the step.
	prior := domain.TaskFromStep(step, "task-prior", trigger)
	require.NoError(t, f.tasks.Create(context.Background(), prior))

	report, err := f.worker().RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{step.ID}, report.Resumed)
	assert.Empty(t, report.Migrated)

	assert.False(t, f.staged(t, step.ID))
	tasks := f.listTasks(t, "list-A")
	require.Len(t, tasks, 1, "the task must not be duplicated")
	assert.Equal(t, "task-prior", tasks[0].ID)
}

func TestPromotionWorker_RetriesDelete(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	step := f.createChain(t, "Sticky", testutil.WithSchedule(trigger, "list-A"))

	faults := &deleteFaults{failures: 2}
	w := f.worker(WithWorkerTxNodes(faults.txNodes), WithDeleteAttempts(3))

	report, err := w.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{step.ID}, report.Migrated)
	assert.Equal(t, 3, faults.count())
	assert.False(t, f.staged(t, step.ID))
}

func TestPromotionWorker_DeleteFailureClosesOnNextRun(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	step := f.createChain(t, "Sticky", testutil.WithSchedule(trigger, "list-A"))

	faults := &deleteFaults{failures: 100}
	w := f.worker(WithWorkerTxNodes(faults.txNodes), WithDeleteAttempts(2))

	report, err := w.RunNow(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, domain.StageDelete, report.Failed[0].Stage)
	assert.Equal(t, 2, faults.count())

	report, err = f.worker().RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{step.ID}, report.Resumed)
	assert.False(t, f.staged(t, step.ID))
	assert.Len(t, f.listTasks(t, "list-A"), 1)
}

func TestPromotionWorker_RenumbersRemainingSteps(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	ctx := context.Background()

	chain := testutil.NewTestChain("First", testutil.WithPosition(0))
	for _, n := range chain {
		require.NoError(t, f.nodes.Create(ctx, n))
	}
	lengthID := chain[len(chain)-2].ID
	staged := testutil.NewTestNode(domain.LevelStep, lengthID, "Second",
		testutil.WithPosition(1), testutil.WithSchedule(trigger, "list-A"))
	third := testutil.NewTestNode(domain.LevelStep, lengthID, "Third", testutil.WithPosition(2))
	require.NoError(t, f.nodes.Create(ctx, staged))
	require.NoError(t, f.nodes.Create(ctx, third))

	_, err := f.worker().RunNow(ctx)
	require.NoError(t, err)

	remaining, err := f.nodes.ListChildren(ctx, testutil.TestOwner, lengthID)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, third.ID, remaining[1].ID)
	assert.Equal(t, 1, remaining[1].Position)
}

func TestPromotionWorker_KeepsTriggerOrderWithinRun(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	titles := []string{"First", "Second", "Third", "Fourth"}
	for i, title := range titles {
		f.createChain(t, title, testutil.WithSchedule(trigger.Add(time.Duration(i)*time.Minute), "list-A"))
	}

	_, err := f.worker().RunNow(context.Background())
	require.NoError(t, err)

	tasks := f.listTasks(t, "list-A")
	require.Len(t, tasks, len(titles))
	for i, task := range tasks {
		assert.Equal(t, titles[i], task.Title)
		assert.Equal(t, i, task.Position)
	}
}

func TestPromotionWorker_RenumberFailureRollsBackDelete(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	ctx := context.Background()

	chain := testutil.NewTestChain("Due", testutil.WithPosition(0), testutil.WithSchedule(trigger, "list-A"))
	for _, n := range chain {
		require.NoError(t, f.nodes.Create(ctx, n))
	}
	step := chain[len(chain)-1]
	lengthID := chain[len(chain)-2].ID
	second := testutil.NewTestNode(domain.LevelStep, lengthID, "Second", testutil.WithPosition(1))
	third := testutil.NewTestNode(domain.LevelStep, lengthID, "Third", testutil.WithPosition(2))
	require.NoError(t, f.nodes.Create(ctx, second))
	require.NoError(t, f.nodes.Create(ctx, third))

	// Exec 1 is the delete, exec 2 the first renumber.
	w := NewPromotionWorker(f.nodes, f.tasks, testutil.NewFailOnNthExecUoW(f.db, 2, errInjected),
		WithWorkerClock(f.clock), WithDeleteAttempts(1))
	report, err := w.RunNow(ctx)
	require.NoError(t, err)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, domain.StageDelete, report.Failed[0].Stage)
	assert.ErrorIs(t, report.Err(), errInjected)

	assert.True(t, f.staged(t, step.ID), "the delete is rolled back with the renumber")
	testutil.RequireContiguous(t, f.db, lengthID)
	assert.Len(t, testutil.ChildPositions(t, f.db, lengthID), 3)
	assert.Len(t, f.listTasks(t, "list-A"), 1)

	report, err = f.worker().RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{step.ID}, report.Resumed)
	assert.False(t, f.staged(t, step.ID))
	testutil.RequireContiguous(t, f.db, lengthID)
	assert.Equal(t, map[string]int{second.ID: 0, third.ID: 1}, testutil.ChildPositions(t, f.db, lengthID))
	assert.Len(t, f.listTasks(t, "list-A"), 1)
}

func TestPromotionWorker_AppendsToEndOfList(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	ctx := context.Background()
	for i, title := range []string{"Existing 1", "Existing 2"} {
		require.NoError(t, f.tasks.Create(ctx, testutil.NewTestTask("list-A", title, testutil.WithTaskPosition(i))))
	}
	f.createChain(t, "Promoted", testutil.WithSchedule(trigger, "list-A"))

	_, err := f.worker().RunNow(ctx)
	require.NoError(t, err)

	tasks := f.listTasks(t, "list-A")
	require.Len(t, tasks, 3)
	assert.Equal(t, "Promoted", tasks[2].Title)
	for i, task := range tasks {
		assert.Equal(t, i, task.Position)
	}
}

func TestPromotionWorker_StorageFailureAbortsRun(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("FROM nodes").WillReturnError(errors.New("connection refused"))

	w := NewPromotionWorker(repository.NewSQLiteNodeRepo(mockDB), repository.NewSQLiteTaskRepo(mockDB),
		testutil.NewTestUoW(mockDB), WithWorkerClock(timeutil.NewFixedClock(runAt)))
	report, err := w.RunNow(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionWorker_RejectsOverlappingRuns(t *testing.T) {
	f := setupWorkerFixture(t)
	nodes := &blockingStagedRepo{
		NodeRepo: f.nodes,
		entered:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
	w := NewPromotionWorker(nodes, f.tasks, testutil.NewTestUoW(f.db), WithWorkerClock(f.clock))

	done := make(chan error, 1)
	go func() {
		_, err := w.RunNow(context.Background())
		done <- err
	}()
	<-nodes.entered

	_, err := w.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(nodes.release)
	assert.NoError(t, <-done)

	// The lock is released once the first run returns.
	go func() { <-nodes.entered }()
	_, err = w.RunNow(context.Background())
	assert.NoError(t, err)
}

func TestPromotionWorker_CancelledContextStopsBatch(t *testing.T) {
	f := setupWorkerFixture(t)
	f.createList(t, "list-A")
	step := f.createChain(t, "Untouched", testutil.WithSchedule(trigger, "list-A"))

	ctx, cancel := context.WithCancel(context.Background())
	steps, err := f.nodes.ListStagedDue(ctx, runAt)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	cancel()

	_, err = f.worker().Run(ctx, runAt)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, f.staged(t, step.ID))
}
