// services/escrow-service/internal/txn/manager.go
package txn

import (
	"context"
)

// Manager abstracts the unit of work. Registry and ledger writes made with the
// ctx handed to fn either all become visible or none do.
type Manager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type journalKey struct{}

// journal records compensations for in-memory writes, newest last, and the
// deferred writes to publish once the unit of work succeeds.
type journal struct {
	undo  []func()
	apply []func()
}

func (j *journal) commit() {
	for _, apply := range j.apply {
		apply()
	}
	j.apply = nil
	j.undo = nil
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
	j.apply = nil
}

// MemoryManager gives in-memory backends transactional behaviour by
// journaling an undo step for every write and replaying them in reverse when
// fn fails or panics. Writes registered with OnCommit stay invisible until fn
// has returned nil.
type MemoryManager struct{}

func NewMemoryManager() *MemoryManager {
	return &MemoryManager{}
}

func (m *MemoryManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, nested := ctx.Value(journalKey{}).(*journal); nested {
		// Join the outer unit of work.
		return fn(ctx)
	}
	j := &journal{}
	txCtx := context.WithValue(ctx, journalKey{}, j)

	defer func() {
		if p := recover(); p != nil {
			j.rollback()
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		j.rollback()
		return err
	}
	j.commit()
	return nil
}

// OnRollback registers undo for the unit of work carried by ctx. Outside a
// unit of work the write is final and undo is dropped.
func OnRollback(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

// OnCommit defers apply until the unit of work carried by ctx succeeds. apply
// must not fail. Outside a unit of work it runs at once.
func OnCommit(ctx context.Context, apply func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.apply = append(j.apply, apply)
		return
	}
	apply()
}
