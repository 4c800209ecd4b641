package taste

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

var profileColumns = []string{
	"rating_count",
	"genre_vector",
	"top_artists",
	"decades",
	"diversity",
	"rarity",
	"adventurousness",
	"polarity",
	"mean_score",
	"stddev_score",
	"median_score",
	"skew",
	"primary_archetype",
	"secondary_archetype",
	"confidence",
	"complete",
	"computed_at",
	"updated_at",
}

type TasteProfileRepo interface {
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.TasteProfile, error)
	Upsert(dbc dbctx.Context, row *types.TasteProfile) (*types.TasteProfile, error)
	DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error
	// ListCandidates returns other users' profiles ordered by most recently computed.
	ListCandidates(dbc dbctx.Context, excludeUserID uuid.UUID, minRatings, limit int) ([]*types.TasteProfile, error)
}

type tasteProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTasteProfileRepo(db *gorm.DB, baseLog *logger.Logger) TasteProfileRepo {
	return &tasteProfileRepo{db: db, log: baseLog.With("repo", "TasteProfileRepo")}
}

func (r *tasteProfileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.TasteProfile, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.TasteProfile
	if err := dbc.DB(r.db).Where("user_id = ?", userID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *tasteProfileRepo) Upsert(dbc dbctx.Context, row *types.TasteProfile) (*types.TasteProfile, error) {
	if row == nil || row.UserID == uuid.Nil {
		return nil, nil
	}
	row.UpdatedAt = time.Now().UTC()
	err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(profileColumns),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(dbc, row.UserID)
}

func (r *tasteProfileRepo) DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error {
	return dbc.DB(r.db).Where("user_id = ?", userID).Delete(&types.TasteProfile{}).Error
}

func (r *tasteProfileRepo) ListCandidates(dbc dbctx.Context, excludeUserID uuid.UUID, minRatings, limit int) ([]*types.TasteProfile, error) {
	var out []*types.TasteProfile
	q := dbc.DB(r.db).
		Where("user_id <> ?", excludeUserID).
		Where("rating_count >= ?", minRatings).
		Order("computed_at DESC, user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
