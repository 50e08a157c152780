package pipeline

import (
	"time"

	"AcevalImport/internal/logger"

	"github.com/google/uuid"
)

// Artifact describes a persisted stage snapshot.
type Artifact struct {
	RunID     string    `json:"run_id"`
	Stage     Stage     `json:"etapa"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists a stage snapshot. Implementations must not modify c.
type Store interface {
	Save(runID string, c Context) (Artifact, error)
}

// Runner chains each stage computation with its snapshot write. On any error
// the caller's context is returned unchanged and nothing is persisted.
type Runner struct {
	store Store
}

func NewRunner(store Store) *Runner {
	return &Runner{store: store}
}

// Intake builds the stage I items from the uploaded rows.
func (r *Runner) Intake(in IntakeInput) (Context, Artifact, error) {
	items, err := BuildItems(in)
	if err != nil {
		r.reject(StageIntake, in.Header.Invoice, string(in.Header.Supplier), err)
		return Context{}, Artifact{}, err
	}
	next := Context{Header: in.Header.Normalized(), Stage: StageIntake, Items: items}
	return r.commit(Context{}, next)
}

// Banking runs stage II on the context produced by stage I.
func (r *Runner) Banking(c Context, in BankingInput) (Context, Artifact, error) {
	if err := c.ready(StageBanking); err != nil {
		r.reject(StageBanking, c.Header.Invoice, string(c.Header.Supplier), err)
		return c, Artifact{}, err
	}
	next, err := AllocateBanking(c, in)
	if err != nil {
		r.reject(StageBanking, c.Header.Invoice, string(c.Header.Supplier), err)
		return c, Artifact{}, err
	}
	return r.commit(c, next)
}

// Receipt runs stage III on the context produced by stage II.
func (r *Runner) Receipt(c Context, in ReceiptInput) (Context, Artifact, error) {
	if err := c.ready(StageReceipt); err != nil {
		r.reject(StageReceipt, c.Header.Invoice, string(c.Header.Supplier), err)
		return c, Artifact{}, err
	}
	next, err := AllocateReceipt(c, in)
	if err != nil {
		r.reject(StageReceipt, c.Header.Invoice, string(c.Header.Supplier), err)
		return c, Artifact{}, err
	}
	return r.commit(c, next)
}

// Reconciliation runs stage IV on the context produced by stage III.
func (r *Runner) Reconciliation(c Context) (Context, Artifact, error) {
	if err := c.ready(StageReconciliation); err != nil {
		r.reject(StageReconciliation, c.Header.Invoice, string(c.Header.Supplier), err)
		return c, Artifact{}, err
	}
	return r.commit(c, Reconcile(c))
}

func (r *Runner) commit(prev, next Context) (Context, Artifact, error) {
	runID := uuid.NewString()
	art, err := r.store.Save(runID, next)
	if err != nil {
		logger.Audit("run=%s %s invoice=%s supplier=%s snapshot failed: %v",
			runID, next.Stage, next.Header.Invoice, next.Header.Supplier, err)
		return prev, Artifact{}, err
	}
	logger.Audit("run=%s %s invoice=%s supplier=%s items=%d snapshot=%s",
		runID, next.Stage, next.Header.Invoice, next.Header.Supplier, len(next.Items), art.Path)
	return next, art, nil
}

func (r *Runner) reject(stage Stage, invoice, supplier string, err error) {
	logger.Audit("%s invoice=%s supplier=%s rejected: %v", stage, invoice, supplier, err)
}
