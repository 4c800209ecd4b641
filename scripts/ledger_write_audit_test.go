package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestServicesWriteLedgerOnlyThroughAggregate(t *testing.T) {
	report, err := auditServices("..")
	if err != nil {
		t.Fatalf("auditServices: %v", err)
	}
	if report.LedgerRepoWriteCallsites != 0 {
		t.Fatalf("ledger repo writes outside the aggregate: %+v", report.Violations)
	}
	if report.AggregateWriteCallsites == 0 {
		t.Fatalf("expected services to write through the ledger aggregate")
	}
	if len(report.LedgerRepoFields) == 0 {
		t.Fatalf("expected ledger repo fields in the inventory")
	}
}

const leakySource = `package services

import (
	"github.com/yungbote/waxfeed-backend/internal/data/repos"
	domainagg "github.com/yungbote/waxfeed-backend/internal/domain/aggregates"
)

type leakyDeps struct {
	Balances repos.WaxBalanceRepo
	Ledger   domainagg.WaxLedgerAggregate
}

type leaky struct {
	deps leakyDeps
	txs  repos.WaxTransactionRepo
}

func (l *leaky) Freeze() {
	l.deps.Balances.SetFrozen(nil, nil, true, "")
	l.txs.Create(nil, nil)
	l.txs.SumDelta(nil, nil)
	l.deps.Ledger.Earn(nil, nil)
}
`

func TestAuditFlagsDirectLedgerWrites(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "internal", "services")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "leaky.go"), []byte(leakySource), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	report, err := auditServices(root)
	if err != nil {
		t.Fatalf("auditServices: %v", err)
	}
	if report.LedgerRepoWriteCallsites != 2 || len(report.Violations) != 1 {
		t.Fatalf("violations: want=2 calls in 1 method got=%d in %d", report.LedgerRepoWriteCallsites, len(report.Violations))
	}
	if got := report.Violations[0].LedgerFieldsWritten; len(got) != 2 || got[0] != "Balances" || got[1] != "txs" {
		t.Fatalf("fields written: %v", got)
	}
	if report.AggregateWriteCallsites != 1 {
		t.Fatalf("aggregate calls: want=1 got=%d", report.AggregateWriteCallsites)
	}
}
