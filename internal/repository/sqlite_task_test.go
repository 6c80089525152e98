package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTaskRepos(t *testing.T) (*SQLiteTaskRepo, *SQLiteTaskListRepo) {
	t.Helper()
	database := testutil.NewTestDB(t)
	return NewSQLiteTaskRepo(database), NewSQLiteTaskListRepo(database)
}

func TestTaskListRepo_CreateGetList(t *testing.T) {
	_, lists := setupTaskRepos(t)
	ctx := context.Background()

	l := testutil.NewTestTaskList("Today")
	require.NoError(t, lists.Create(ctx, l))

	got, err := lists.GetByID(ctx, testutil.TestOwner, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Today", got.Name)

	_, err = lists.GetByID(ctx, "owner-2", l.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := lists.ListByOwner(ctx, testutil.TestOwner)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTaskRepo_CreateRequiresExistingList(t *testing.T) {
	tasks, _ := setupTaskRepos(t)
	err := tasks.Create(context.Background(), testutil.NewTestTask("no-such-list", "Orphan"))
	assert.Error(t, err)
}

func TestTaskRepo_CRUDAndSourceStep(t *testing.T) {
	tasks, lists := setupTaskRepos(t)
	ctx := context.Background()

	l := testutil.NewTestTaskList("Today")
	require.NoError(t, lists.Create(ctx, l))

	step := "step-1"
	task := testutil.NewTestTask(l.ID, "Stretch", testutil.WithTaskTime("07:00", 15))
	task.SourceStepID = &step
	require.NoError(t, tasks.Create(ctx, task))

	got, err := tasks.GetBySourceStep(ctx, step)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	require.NotNil(t, got.ScheduledTime)
	assert.Equal(t, "07:00", *got.ScheduledTime)

	dup := testutil.NewTestTask(l.ID, "Stretch again")
	dup.SourceStepID = &step
	assert.Error(t, tasks.Create(ctx, dup), "a step can only be promoted once")

	got.Completed = true
	require.NoError(t, tasks.Update(ctx, got))
	reloaded, err := tasks.GetByID(ctx, testutil.TestOwner, task.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Completed)

	require.NoError(t, tasks.Delete(ctx, testutil.TestOwner, task.ID))
	_, err = tasks.GetBySourceStep(ctx, step)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, tasks.Delete(ctx, testutil.TestOwner, task.ID), ErrNotFound)
}

func TestTaskRepo_NormalizePositions(t *testing.T) {
	tasks, lists := setupTaskRepos(t)
	ctx := context.Background()

	l := testutil.NewTestTaskList("Today")
	require.NoError(t, lists.Create(ctx, l))

	a := testutil.NewTestTask(l.ID, "A", testutil.WithTaskPosition(0))
	b := testutil.NewTestTask(l.ID, "B", testutil.WithTaskPosition(domain.PromotedTaskPosition))
	c := testutil.NewTestTask(l.ID, "C", testutil.WithTaskPosition(4))
	for _, task := range []*domain.Task{a, b, c} {
		require.NoError(t, tasks.Create(ctx, task))
	}

	require.NoError(t, tasks.NormalizePositions(ctx, l.ID))

	got, err := tasks.ListByList(ctx, testutil.TestOwner, l.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, want := range []string{"A", "C", "B"} {
		assert.Equal(t, want, got[i].Title)
		assert.Equal(t, i, got[i].Position)
	}
}
