package music

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

// AlbumGenreCount is one album's genre tags with the number of ratings it has received.
type AlbumGenreCount struct {
	AlbumID uuid.UUID
	Genres  datatypes.JSON
	Ratings int64
}

type AlbumRepo interface {
	Create(dbc dbctx.Context, rows []*types.Album) ([]*types.Album, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Album, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Album, error)
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	// RatedGenreCounts feeds platform-wide genre shares. Deleted albums are excluded.
	RatedGenreCounts(dbc dbctx.Context) ([]AlbumGenreCount, error)
}

type albumRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlbumRepo(db *gorm.DB, baseLog *logger.Logger) AlbumRepo {
	return &albumRepo{db: db, log: baseLog.With("repo", "AlbumRepo")}
}

func (r *albumRepo) Create(dbc dbctx.Context, rows []*types.Album) ([]*types.Album, error) {
	if len(rows) == 0 {
		return []*types.Album{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *albumRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Album, error) {
	var out []*types.Album
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *albumRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Album, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *albumRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&types.Album{}).Error
}

func (r *albumRepo) RatedGenreCounts(dbc dbctx.Context) ([]AlbumGenreCount, error) {
	var out []AlbumGenreCount
	err := dbc.DB(r.db).
		Table("rating").
		Select("album.id AS album_id, album.genres AS genres, COUNT(rating.id) AS ratings").
		Joins("JOIN album ON album.id = rating.album_id AND album.deleted_at IS NULL").
		Group("album.id, album.genres").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
