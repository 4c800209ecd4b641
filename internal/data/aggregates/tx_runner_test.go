package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/waxfeed-backend/internal/data/repos/testutil"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
)

func TestLockTimeoutStatement(t *testing.T) {
	cases := []struct {
		dialect string
		d       time.Duration
		want    string
	}{
		{"postgres", 2 * time.Second, "SET LOCAL lock_timeout = '2000ms'"},
		{"postgres", time.Microsecond, "SET LOCAL lock_timeout = '1ms'"},
		{"postgres", 0, ""},
		{"sqlite", 2 * time.Second, ""},
	}
	for _, c := range cases {
		if got := lockTimeoutStatement(c.dialect, c.d); got != c.want {
			t.Fatalf("lockTimeoutStatement(%s,%v): want=%q got=%q", c.dialect, c.d, c.want, got)
		}
	}
}

func TestGormTxRunnerPassesTxToBody(t *testing.T) {
	db := testutil.DB(t)
	r := NewGormTxRunner(db, DefaultLedgerLockTimeout)
	var sawTx bool
	if err := r.InTx(context.Background(), func(dbc dbctx.Context) error {
		sawTx = dbc.Tx != nil
		return dbc.Tx.Exec("SELECT 1").Error
	}); err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if !sawTx {
		t.Fatalf("body ran without a transaction")
	}
}
