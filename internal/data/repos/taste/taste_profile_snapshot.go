package taste

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

type TasteProfileSnapshotRepo interface {
	Create(dbc dbctx.Context, rows []*types.TasteProfileSnapshot) ([]*types.TasteProfileSnapshot, error)
	// ListByUser returns newest first.
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.TasteProfileSnapshot, error)
}

type tasteProfileSnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTasteProfileSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) TasteProfileSnapshotRepo {
	return &tasteProfileSnapshotRepo{db: db, log: baseLog.With("repo", "TasteProfileSnapshotRepo")}
}

func (r *tasteProfileSnapshotRepo) Create(dbc dbctx.Context, rows []*types.TasteProfileSnapshot) ([]*types.TasteProfileSnapshot, error) {
	if len(rows) == 0 {
		return []*types.TasteProfileSnapshot{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *tasteProfileSnapshotRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.TasteProfileSnapshot, error) {
	var out []*types.TasteProfileSnapshot
	if userID == uuid.Nil {
		return out, nil
	}
	q := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("computed_at DESC, created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
