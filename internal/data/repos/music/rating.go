package music

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

// RatedAlbum is a rating joined with the album fields the taste engine reads.
type RatedAlbum struct {
	RatingID    uuid.UUID
	AlbumID     uuid.UUID
	Score       float64
	RatedAt     time.Time
	Artist      string
	ReleaseYear int
	Genres      datatypes.JSON
}

type RatingRepo interface {
	Upsert(dbc dbctx.Context, row *types.Rating) (*types.Rating, error)
	GetByUserAndAlbum(dbc dbctx.Context, userID, albumID uuid.UUID) (*types.Rating, error)
	Delete(dbc dbctx.Context, userID, albumID uuid.UUID) (bool, error)

	// ListRatedAlbums returns the user's ratings on albums that are not soft-deleted, oldest first.
	ListRatedAlbums(dbc dbctx.Context, userID uuid.UUID) ([]RatedAlbum, error)
	CountUsable(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	// ReviewerRank is the 1-based position of the user's review among the album's reviews by the
	// time their text was first written, or 0 when the user has never reviewed it.
	ReviewerRank(dbc dbctx.Context, albumID, userID uuid.UUID) (int, error)
}

type ratingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRatingRepo(db *gorm.DB, baseLog *logger.Logger) RatingRepo {
	return &ratingRepo{db: db, log: baseLog.With("repo", "RatingRepo")}
}

func (r *ratingRepo) Upsert(dbc dbctx.Context, row *types.Rating) (*types.Rating, error) {
	if row == nil || row.UserID == uuid.Nil || row.AlbumID == uuid.Nil {
		return nil, nil
	}
	now := time.Now().UTC()
	row.UpdatedAt = now
	if row.Text != "" && row.ReviewedAt == nil {
		row.ReviewedAt = &now
	}
	updates := clause.AssignmentColumns([]string{"score", "text", "updated_at"})
	// An existing review keeps its original timestamp.
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "reviewed_at"},
		Value:  gorm.Expr("COALESCE(rating.reviewed_at, excluded.reviewed_at)"),
	})
	err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "album_id"}},
			DoUpdates: updates,
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	// On conflict the generated id is not the stored one.
	return r.GetByUserAndAlbum(dbc, row.UserID, row.AlbumID)
}

func (r *ratingRepo) GetByUserAndAlbum(dbc dbctx.Context, userID, albumID uuid.UUID) (*types.Rating, error) {
	var row types.Rating
	if err := dbc.DB(r.db).
		Where("user_id = ? AND album_id = ?", userID, albumID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *ratingRepo) Delete(dbc dbctx.Context, userID, albumID uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).
		Where("user_id = ? AND album_id = ?", userID, albumID).
		Delete(&types.Rating{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ratingRepo) ListRatedAlbums(dbc dbctx.Context, userID uuid.UUID) ([]RatedAlbum, error) {
	var out []RatedAlbum
	if userID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Table("rating").
		Select("rating.id AS rating_id, rating.album_id AS album_id, rating.score AS score, " +
			"rating.updated_at AS rated_at, album.artist AS artist, album.release_year AS release_year, " +
			"album.genres AS genres").
		Joins("JOIN album ON album.id = rating.album_id AND album.deleted_at IS NULL").
		Where("rating.user_id = ?", userID).
		Order("rating.created_at ASC, rating.id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ratingRepo) CountUsable(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).
		Table("rating").
		Joins("JOIN album ON album.id = rating.album_id AND album.deleted_at IS NULL").
		Where("rating.user_id = ?", userID).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ratingRepo) ReviewerRank(dbc dbctx.Context, albumID, userID uuid.UUID) (int, error) {
	mine, err := r.GetByUserAndAlbum(dbc, userID, albumID)
	if err != nil || mine == nil || mine.ReviewedAt == nil {
		return 0, err
	}
	at := *mine.ReviewedAt
	var ahead int64
	err = dbc.DB(r.db).
		Model(&types.Rating{}).
		Where("album_id = ? AND reviewed_at IS NOT NULL AND user_id <> ?", albumID, userID).
		Where("reviewed_at < ? OR (reviewed_at = ? AND id < ?)", at, at, mine.ID).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}
