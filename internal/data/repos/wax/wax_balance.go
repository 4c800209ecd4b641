package wax

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

type WaxBalanceRepo interface {
	// EnsureExists inserts a zero balance row for the user if none exists.
	EnsureExists(dbc dbctx.Context, userID uuid.UUID) error
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.WaxBalance, error)
	// LockByUserID selects the row FOR UPDATE; call it inside a transaction.
	LockByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.WaxBalance, error)
	SetFrozen(dbc dbctx.Context, userID uuid.UUID, frozen bool, reason string) error
}

type waxBalanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWaxBalanceRepo(db *gorm.DB, baseLog *logger.Logger) WaxBalanceRepo {
	return &waxBalanceRepo{db: db, log: baseLog.With("repo", "WaxBalanceRepo")}
}

func (r *waxBalanceRepo) EnsureExists(dbc dbctx.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return nil
	}
	row := &types.WaxBalance{UserID: userID}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

func (r *waxBalanceRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.WaxBalance, error) {
	return r.find(dbc.DB(r.db), userID)
}

func (r *waxBalanceRepo) LockByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.WaxBalance, error) {
	t := dbc.DB(r.db)
	if t == nil {
		return nil, nil
	}
	return r.find(t.Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *waxBalanceRepo) find(q *gorm.DB, userID uuid.UUID) (*types.WaxBalance, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.WaxBalance
	if err := q.Where("user_id = ?", userID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *waxBalanceRepo) SetFrozen(dbc dbctx.Context, userID uuid.UUID, frozen bool, reason string) error {
	if !frozen {
		reason = ""
	}
	return dbc.DB(r.db).
		Model(&types.WaxBalance{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"frozen":        frozen,
			"frozen_reason": reason,
		}).Error
}
