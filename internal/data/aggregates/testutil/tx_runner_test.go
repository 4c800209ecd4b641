package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
)

func TestInjectedTxRunnerCommitsOnSuccess(t *testing.T) {
	r := &InjectedTxRunner{}
	called := false
	if err := r.InTx(context.Background(), func(_ dbctx.Context) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if !called {
		t.Fatalf("expected body to run")
	}
	if r.Attempts != 1 || r.CommitCalls != 1 || r.RollbackCalls != 0 {
		t.Fatalf("counters: attempts=%d commit=%d rollback=%d", r.Attempts, r.CommitCalls, r.RollbackCalls)
	}
}

func TestInjectedTxRunnerFailsSelectedAttempts(t *testing.T) {
	boom := errors.New("boom")
	r := &InjectedTxRunner{FailAttempts: []error{boom, nil}}
	runs := 0
	body := func(_ dbctx.Context) error {
		runs++
		return nil
	}

	if err := r.InTx(context.Background(), body); !errors.Is(err, boom) {
		t.Fatalf("attempt 1: want=boom got=%v", err)
	}
	if err := r.InTx(context.Background(), body); err != nil {
		t.Fatalf("attempt 2: %v", err)
	}
	if runs != 1 {
		t.Fatalf("body runs: want=1 got=%d", runs)
	}
	if r.Attempts != 2 || r.CommitCalls != 1 || r.RollbackCalls != 1 {
		t.Fatalf("counters: attempts=%d commit=%d rollback=%d", r.Attempts, r.CommitCalls, r.RollbackCalls)
	}
}

func TestInjectedTxRunnerFailCommit(t *testing.T) {
	commitErr := errors.New("commit failed")
	r := &InjectedTxRunner{FailCommit: commitErr}
	err := r.InTx(context.Background(), func(_ dbctx.Context) error { return nil })
	if !errors.Is(err, commitErr) {
		t.Fatalf("want commit err, got %v", err)
	}
	if r.CommitCalls != 0 || r.RollbackCalls != 1 {
		t.Fatalf("counters: commit=%d rollback=%d", r.CommitCalls, r.RollbackCalls)
	}
}
