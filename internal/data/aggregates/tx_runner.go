package aggregates

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/waxfeed-backend/internal/domain/aggregates"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
)

// TxRunner opens the transaction an aggregate write runs in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

// gormTxRunner bounds how long a write waits on a balance row lock. On Postgres a wait past
// lockTimeout fails with 55P03, which MapError classifies as retryable.
type gormTxRunner struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormTxRunner returns a runner on db. A zero lockTimeout keeps the server default.
func NewGormTxRunner(db *gorm.DB, lockTimeout time.Duration) TxRunner {
	return &gormTxRunner{db: db, lockTimeout: lockTimeout}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	stmt := lockTimeoutStatement(r.db.Dialector.Name(), r.lockTimeout)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if stmt != "" {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

// lockTimeoutStatement is the per-transaction lock wait bound for dialect, or "" when the dialect
// has no such setting (SQLite serialises writers on its own).
func lockTimeoutStatement(dialect string, d time.Duration) string {
	if d <= 0 || dialect != "postgres" {
		return ""
	}
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)
}
