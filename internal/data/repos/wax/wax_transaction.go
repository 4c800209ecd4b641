package wax

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

type WaxTransactionRepo interface {
	Create(dbc dbctx.Context, rows []*types.WaxTransaction) ([]*types.WaxTransaction, error)
	GetByIdempotencyKey(dbc dbctx.Context, userID uuid.UUID, key string) (*types.WaxTransaction, error)

	SumDelta(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	// SumCreditsSince sums positive deltas of the given types created at or after since.
	SumCreditsSince(dbc dbctx.Context, userID uuid.UUID, since time.Time, txTypes []types.WaxTransactionType) (int64, error)
	// ListKeysSince returns idempotency keys of one type created at or after since.
	ListKeysSince(dbc dbctx.Context, userID uuid.UUID, txType types.WaxTransactionType, since time.Time) ([]string, error)

	// ListByUser pages newest first. A zero before starts from the latest row.
	ListByUser(dbc dbctx.Context, userID uuid.UUID, before time.Time, limit int) ([]*types.WaxTransaction, error)
}

type waxTransactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWaxTransactionRepo(db *gorm.DB, baseLog *logger.Logger) WaxTransactionRepo {
	return &waxTransactionRepo{db: db, log: baseLog.With("repo", "WaxTransactionRepo")}
}

func (r *waxTransactionRepo) Create(dbc dbctx.Context, rows []*types.WaxTransaction) ([]*types.WaxTransaction, error) {
	if len(rows) == 0 {
		return []*types.WaxTransaction{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *waxTransactionRepo) GetByIdempotencyKey(dbc dbctx.Context, userID uuid.UUID, key string) (*types.WaxTransaction, error) {
	if userID == uuid.Nil || key == "" {
		return nil, nil
	}
	var row types.WaxTransaction
	if err := dbc.DB(r.db).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *waxTransactionRepo) SumDelta(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var sum int64
	err := dbc.DB(r.db).
		Model(&types.WaxTransaction{}).
		Select("COALESCE(SUM(delta), 0)").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *waxTransactionRepo) SumCreditsSince(dbc dbctx.Context, userID uuid.UUID, since time.Time, txTypes []types.WaxTransactionType) (int64, error) {
	if len(txTypes) == 0 {
		return 0, nil
	}
	var sum int64
	err := dbc.DB(r.db).
		Model(&types.WaxTransaction{}).
		Select("COALESCE(SUM(delta), 0)").
		Where("user_id = ? AND delta > 0 AND created_at >= ? AND type IN ?", userID, since.UTC(), txTypes).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *waxTransactionRepo) ListKeysSince(dbc dbctx.Context, userID uuid.UUID, txType types.WaxTransactionType, since time.Time) ([]string, error) {
	var keys []string
	err := dbc.DB(r.db).
		Model(&types.WaxTransaction{}).
		Where("user_id = ? AND type = ? AND created_at >= ? AND idempotency_key IS NOT NULL", userID, txType, since.UTC()).
		Order("created_at DESC").
		Pluck("idempotency_key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *waxTransactionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, before time.Time, limit int) ([]*types.WaxTransaction, error) {
	var out []*types.WaxTransaction
	if userID == uuid.Nil {
		return out, nil
	}
	q := dbc.DB(r.db).Where("user_id = ?", userID)
	if !before.IsZero() {
		q = q.Where("created_at < ?", before.UTC())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
