package user

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

type UserBadgeRepo interface {
	// Award inserts the badge unless the (user, badge, album) row already exists.
	// It reports whether a new row was written.
	Award(dbc dbctx.Context, row *types.UserBadge) (bool, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserBadge, error)
	CountByAlbum(dbc dbctx.Context, badge string, albumID uuid.UUID) (int64, error)
}

type userBadgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserBadgeRepo(db *gorm.DB, baseLog *logger.Logger) UserBadgeRepo {
	return &userBadgeRepo{db: db, log: baseLog.With("repo", "UserBadgeRepo")}
}

func (r *userBadgeRepo) Award(dbc dbctx.Context, row *types.UserBadge) (bool, error) {
	if row == nil || row.UserID == uuid.Nil {
		return false, nil
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge"}, {Name: "album_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *userBadgeRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserBadge, error) {
	var out []*types.UserBadge
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userBadgeRepo) CountByAlbum(dbc dbctx.Context, badge string, albumID uuid.UUID) (int64, error) {
	var n int64
	if err := dbc.DB(r.db).
		Model(&types.UserBadge{}).
		Where("badge = ? AND album_id = ?", badge, albumID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
