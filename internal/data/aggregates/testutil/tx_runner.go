package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/waxfeed-backend/internal/data/aggregates"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
)

// InjectedTxRunner wraps an optional real runner and injects failures per attempt.
// Without Next the body runs with an empty dbctx (no DB).
type InjectedTxRunner struct {
	mu sync.Mutex

	Next aggregates.TxRunner

	// FailAttempts are returned, in order, instead of running the body. A nil entry lets that
	// attempt through.
	FailAttempts []error
	FailCommit   error

	Attempts      int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	idx := r.Attempts
	r.Attempts++
	var injected error
	if idx < len(r.FailAttempts) {
		injected = r.FailAttempts[idx]
	}
	failCommit := r.FailCommit
	r.mu.Unlock()

	if injected != nil {
		r.count(&r.RollbackCalls)
		return injected
	}
	if fn == nil {
		r.count(&r.CommitCalls)
		return nil
	}

	var err error
	if r.Next != nil {
		err = r.Next.InTx(ctx, fn)
	} else {
		err = fn(dbctx.Context{Ctx: ctx})
	}
	if err == nil && failCommit != nil {
		err = failCommit
	}
	if err != nil {
		r.count(&r.RollbackCalls)
		return err
	}
	r.count(&r.CommitCalls)
	return nil
}

func (r *InjectedTxRunner) count(field *int) {
	r.mu.Lock()
	*field++
	r.mu.Unlock()
}
