package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alexanderramin/ascent/internal/db"
	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/metrics"
	"github.com/alexanderramin/ascent/internal/repository"
	"github.com/alexanderramin/ascent/internal/timeutil"
	"github.com/google/uuid"
)

// ErrRunInProgress is returned when Run is called while another run of the
// same worker has not finished.
var ErrRunInProgress = errors.New("promotion run already in progress")

const defaultDeleteAttempts = 3

// PromotionReport summarizes one worker run.
type PromotionReport struct {
	AsOf     time.Time
	Eligible int
	// Migrated lists steps whose task was inserted and whose staged copy was
	// deleted in this run.
	Migrated []string
	// Resumed lists steps whose task already existed from an earlier,
	// interrupted run; only the staged copy was deleted now.
	Resumed      []string
	Failed       []*domain.PromotionItemError
	TouchedLists []string
}

// Err joins the per-item failures, or returns nil when every item migrated.
func (r *PromotionReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// PromotionWorker moves staged steps whose trigger time has elapsed into
// their target task lists. Each step is handled independently; a failed step
// stays staged and is retried on the next run. Removing a step and
// renumbering its siblings commit together, as does renormalizing a list.
type PromotionWorker struct {
	nodes          repository.NodeRepo
	tasks          repository.TaskRepo
	uow            db.UnitOfWork
	txNodes        func(db.DBTX) repository.NodeRepo
	txTasks        func(db.DBTX) repository.TaskRepo
	clock          timeutil.Clock
	logger         *slog.Logger
	newID          func() string
	deleteAttempts int

	running sync.Mutex
}

// WorkerOption configures a PromotionWorker.
type WorkerOption func(*PromotionWorker)

func WithWorkerClock(c timeutil.Clock) WorkerOption {
	return func(w *PromotionWorker) {
		w.clock = c
	}
}

func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *PromotionWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

func WithWorkerIDGenerator(fn func() string) WorkerOption {
	return func(w *PromotionWorker) {
		w.newID = fn
	}
}

// WithDeleteAttempts bounds how often deleting a promoted step is tried
// within one run. Values below 1 are ignored.
func WithDeleteAttempts(n int) WorkerOption {
	return func(w *PromotionWorker) {
		if n > 0 {
			w.deleteAttempts = n
		}
	}
}

// WithWorkerTxNodes replaces how node repositories are built inside a
// transaction.
func WithWorkerTxNodes(fn func(db.DBTX) repository.NodeRepo) WorkerOption {
	return func(w *PromotionWorker) {
		if fn != nil {
			w.txNodes = fn
		}
	}
}

func NewPromotionWorker(nodes repository.NodeRepo, tasks repository.TaskRepo, uow db.UnitOfWork, opts ...WorkerOption) *PromotionWorker {
	w := &PromotionWorker{
		nodes:          nodes,
		tasks:          tasks,
		uow:            uow,
		txNodes:        func(tx db.DBTX) repository.NodeRepo { return repository.NewSQLiteNodeRepo(tx) },
		txTasks:        func(tx db.DBTX) repository.TaskRepo { return repository.NewSQLiteTaskRepo(tx) },
		clock:          timeutil.SystemClock{},
		logger:         slog.Default(),
		newID:          func() string { return uuid.New().String() },
		deleteAttempts: defaultDeleteAttempts,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunNow runs the worker as of the current clock time.
func (w *PromotionWorker) RunNow(ctx context.Context) (*PromotionReport, error) {
	return w.Run(ctx, w.clock.Now())
}

// Run promotes every staged step due at or before asOf. A storage failure
// while listing due steps aborts the run; per-item failures are recorded in
// the report and do not.
func (w *PromotionWorker) Run(ctx context.Context, asOf time.Time) (report *PromotionReport, err error) {
	if !w.running.TryLock() {
		metrics.RecordPromotionSkipped()
		return nil, ErrRunInProgress
	}
	defer w.running.Unlock()

	started := time.Now()
	defer func() {
		metrics.RecordPromotionRun(time.Since(started), err == nil, w.clock.Now())
	}()

	steps, err := w.nodes.ListStagedDue(ctx, asOf)
	if err != nil {
		return nil, domain.NewStorageError("listing staged steps", err)
	}

	report = &PromotionReport{AsOf: asOf, Eligible: len(steps)}
	touchedLists := make(map[string]struct{})

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		resumed, itemErr := w.promote(ctx, step, i)
		if itemErr != nil {
			report.Failed = append(report.Failed, itemErr)
			metrics.RecordPromotionItem(metrics.ItemFailed)
			w.logger.WarnContext(ctx, "promotion item failed",
				"step_id", step.ID,
				"stage", string(itemErr.Stage),
				"error", itemErr.Err,
			)
			continue
		}

		if resumed {
			report.Resumed = append(report.Resumed, step.ID)
			metrics.RecordPromotionItem(metrics.ItemResumed)
		} else {
			report.Migrated = append(report.Migrated, step.ID)
			metrics.RecordPromotionItem(metrics.ItemMigrated)
		}
		touchedLists[*step.TargetListID] = struct{}{}
	}

	for listID := range touchedLists {
		report.TouchedLists = append(report.TouchedLists, listID)
	}
	slices.Sort(report.TouchedLists)
	for _, listID := range report.TouchedLists {
		err := w.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			return w.txTasks(tx).NormalizePositions(ctx, listID)
		})
		if err != nil {
			w.logger.WarnContext(ctx, "normalizing list positions failed",
				"list_id", listID, "error", err)
		}
	}

	w.logger.InfoContext(ctx, "promotion run finished",
		"as_of", asOf.Format(time.RFC3339),
		"eligible", report.Eligible,
		"migrated", len(report.Migrated),
		"resumed", len(report.Resumed),
		"failed", len(report.Failed),
	)
	return report, nil
}

// promote migrates a single step. seq keeps tasks promoted in one run in
// trigger order once their list is renormalized. resumed is true when the
// task had already been inserted by an earlier run.
func (w *PromotionWorker) promote(ctx context.Context, step *domain.Node, seq int) (resumed bool, itemErr *domain.PromotionItemError) {
	fail := func(stage domain.PromotionStage, err error) (bool, *domain.PromotionItemError) {
		return false, &domain.PromotionItemError{StepID: step.ID, Stage: stage, Err: err}
	}

	_, err := w.tasks.GetBySourceStep(ctx, step.ID)
	switch {
	case err == nil:
		resumed = true
	case errors.Is(err, repository.ErrNotFound):
		task := domain.TaskFromStep(step, w.newID(), w.clock.Now())
		task.Position += seq
		if err := w.tasks.Create(ctx, task); err != nil {
			return fail(domain.StageInsert, err)
		}
	default:
		return fail(domain.StageLookup, err)
	}

	var lastErr error
	for attempt := 1; attempt <= w.deleteAttempts; attempt++ {
		lastErr = w.removeStep(ctx, step)
		if lastErr == nil {
			return resumed, nil
		}
		w.logger.DebugContext(ctx, "removing promoted step failed",
			"step_id", step.ID, "attempt", attempt, "error", lastErr)
		if ctx.Err() != nil {
			break
		}
	}
	return fail(domain.StageDelete, fmt.Errorf("after %d attempts: %w", w.deleteAttempts, lastErr))
}

// removeStep deletes a promoted step and renumbers the steps left under its
// parent in one transaction. A step that is already gone still gets its
// siblings renumbered.
func (w *PromotionWorker) removeStep(ctx context.Context, step *domain.Node) error {
	return w.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		nodes := w.txNodes(tx)
		if err := nodes.Delete(ctx, step.OwnerID, step.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		siblings, err := nodes.ListChildren(ctx, step.OwnerID, step.ParentKey())
		if err != nil {
			return err
		}
		ids := make([]string, len(siblings))
		for i, n := range siblings {
			ids[i] = n.ID
		}
		return nodes.UpdatePositions(ctx, step.OwnerID, ids)
	})
}
