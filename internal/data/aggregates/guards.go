package aggregates

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/waxfeed-backend/internal/domain/aggregates"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
)

// CASGuard applies optimistic compare-and-set updates inside aggregate transactions.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if t := dbc.DB(g.db); t != nil {
		return t, nil
	}
	return nil, ValidationError("missing db transaction context")
}

// UpdateByVersion applies updates only when the row still has expectedVersion.
// It reports whether a row was changed.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, id uuid.UUID, expectedVersion int64, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for UpdateByVersion")
	}
	if expectedVersion < 0 {
		return false, ValidationError("expectedVersion must be >= 0")
	}
	res := db.Table(table).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess turns a lost compare-and-set into a conflict, which executeWrite retries.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

// RequireOwnedTx refuses an aggregate whose contract lets callers own the write transaction.
// Services only hand these aggregates a plain context, never an open tx.
func RequireOwnedTx(agg domainagg.Aggregate) error {
	if agg == nil {
		return ValidationError("aggregate is nil")
	}
	c := agg.Contract()
	if !c.RequiresAggregateOwnedTx() {
		return InvariantError(c.Name + " does not own its write transaction")
	}
	return nil
}

// RequirePositiveAmount rejects zero and negative ledger amounts.
func RequirePositiveAmount(amount int64) error {
	if amount <= 0 {
		return ValidationError("amount must be > 0")
	}
	return nil
}
