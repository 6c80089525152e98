package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/ascent/internal/db"
	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/repository"
)

var errInjected = errors.New("injected failure")

// countingNodeRepo counts ListByOwner calls and can block them until
// release is closed.
type countingNodeRepo struct {
	repository.NodeRepo
	loads   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (r *countingNodeRepo) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Node, error) {
	r.loads.Add(1)
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
	return r.NodeRepo.ListByOwner(ctx, ownerID)
}

// blockingStagedRepo parks ListStagedDue until release is closed.
type blockingStagedRepo struct {
	repository.NodeRepo
	entered chan struct{}
	release chan struct{}
}

func (r *blockingStagedRepo) ListStagedDue(ctx context.Context, asOf time.Time) ([]*domain.Node, error) {
	r.entered <- struct{}{}
	<-r.release
	return r.NodeRepo.ListStagedDue(ctx, asOf)
}

// parkingUpdateRepo parks UpdateFields until release is closed.
type parkingUpdateRepo struct {
	repository.NodeRepo
	entered chan struct{}
	release chan struct{}
}

func (r *parkingUpdateRepo) UpdateFields(ctx context.Context, n *domain.Node, fields ...repository.NodeField) error {
	r.entered <- struct{}{}
	<-r.release
	return r.NodeRepo.UpdateFields(ctx, n, fields...)
}

// deleteFaults fails the first failures Delete calls made through the
// tx-scoped node repositories it builds.
type deleteFaults struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (d *deleteFaults) txNodes(tx db.DBTX) repository.NodeRepo {
	return &flakyDeleteRepo{NodeRepo: repository.NewSQLiteNodeRepo(tx), faults: d}
}

func (d *deleteFaults) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type flakyDeleteRepo struct {
	repository.NodeRepo
	faults *deleteFaults
}

func (r *flakyDeleteRepo) Delete(ctx context.Context, ownerID, id string) error {
	r.faults.mu.Lock()
	r.faults.calls++
	fail := r.faults.calls <= r.faults.failures
	r.faults.mu.Unlock()
	if fail {
		return errInjected
	}
	return r.NodeRepo.Delete(ctx, ownerID, id)
}

// failingTaskRepo rejects inserts of tasks promoted from the listed steps.
type failingTaskRepo struct {
	repository.TaskRepo
	failSteps map[string]bool
}

func (r *failingTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	if t.SourceStepID != nil && r.failSteps[*t.SourceStepID] {
		return errInjected
	}
	return r.TaskRepo.Create(ctx, t)
}

// recordingUoW counts transactions and delegates to the wrapped UoW.
type recordingUoW struct {
	db.UnitOfWork
	calls atomic.Int32
}

func (u *recordingUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	u.calls.Add(1)
	return u.UnitOfWork.WithinTx(ctx, fn)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, event UseCaseEvent) {
	o.mu.Lock()
	o.events = append(o.events, event)
	o.mu.Unlock()
}

func (o *recordingObserver) names() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.events))
	for i, e := range o.events {
		out[i] = e.Name
	}
	return out
}
