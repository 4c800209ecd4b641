package testutil

import (
	"testing"
	"time"
)

func TestHooksRecorderCapturesSignals(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveOperation("Wax.Ledger.Spend", "conflict", time.Millisecond)
	h.ObserveOperation("Wax.Ledger.Spend", "success", 2*time.Millisecond)
	h.IncConflict("Wax.Ledger.Spend")
	h.IncRetry("Wax.Ledger.Earn")

	if len(h.Operations) != 2 {
		t.Fatalf("operations: want=2 got=%d", len(h.Operations))
	}
	if got := h.LastStatus("Wax.Ledger.Spend"); got != "success" {
		t.Fatalf("LastStatus: want=success got=%s", got)
	}
	if got := h.LastStatus("missing"); got != "" {
		t.Fatalf("LastStatus missing: want empty got=%s", got)
	}
	if len(h.Conflicts) != 1 || len(h.Retries) != 1 || h.Retries[0] != "Wax.Ledger.Earn" {
		t.Fatalf("signals: conflicts=%v retries=%v", h.Conflicts, h.Retries)
	}
}
