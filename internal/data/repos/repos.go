package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/waxfeed-backend/internal/data/repos/music"
	"github.com/yungbote/waxfeed-backend/internal/data/repos/taste"
	"github.com/yungbote/waxfeed-backend/internal/data/repos/user"
	"github.com/yungbote/waxfeed-backend/internal/data/repos/wax"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserBadgeRepo = user.UserBadgeRepo

type AlbumRepo = music.AlbumRepo
type RatingRepo = music.RatingRepo
type RatedAlbum = music.RatedAlbum
type AlbumGenreCount = music.AlbumGenreCount

type TasteProfileRepo = taste.TasteProfileRepo
type TasteProfileSnapshotRepo = taste.TasteProfileSnapshotRepo

type WaxBalanceRepo = wax.WaxBalanceRepo
type WaxTransactionRepo = wax.WaxTransactionRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserBadgeRepo(db *gorm.DB, baseLog *logger.Logger) UserBadgeRepo {
	return user.NewUserBadgeRepo(db, baseLog)
}

func NewAlbumRepo(db *gorm.DB, baseLog *logger.Logger) AlbumRepo {
	return music.NewAlbumRepo(db, baseLog)
}
func NewRatingRepo(db *gorm.DB, baseLog *logger.Logger) RatingRepo {
	return music.NewRatingRepo(db, baseLog)
}

func NewTasteProfileRepo(db *gorm.DB, baseLog *logger.Logger) TasteProfileRepo {
	return taste.NewTasteProfileRepo(db, baseLog)
}
func NewTasteProfileSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) TasteProfileSnapshotRepo {
	return taste.NewTasteProfileSnapshotRepo(db, baseLog)
}

func NewWaxBalanceRepo(db *gorm.DB, baseLog *logger.Logger) WaxBalanceRepo {
	return wax.NewWaxBalanceRepo(db, baseLog)
}
func NewWaxTransactionRepo(db *gorm.DB, baseLog *logger.Logger) WaxTransactionRepo {
	return wax.NewWaxTransactionRepo(db, baseLog)
}
