package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/waxfeed-backend/internal/data/repos"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

type Repos struct {
	User      repos.UserRepo
	UserBadge repos.UserBadgeRepo

	Album  repos.AlbumRepo
	Rating repos.RatingRepo

	TasteProfile         repos.TasteProfileRepo
	TasteProfileSnapshot repos.TasteProfileSnapshotRepo

	WaxBalance     repos.WaxBalanceRepo
	WaxTransaction repos.WaxTransactionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:                 repos.NewUserRepo(db, log),
		UserBadge:            repos.NewUserBadgeRepo(db, log),
		Album:                repos.NewAlbumRepo(db, log),
		Rating:               repos.NewRatingRepo(db, log),
		TasteProfile:         repos.NewTasteProfileRepo(db, log),
		TasteProfileSnapshot: repos.NewTasteProfileSnapshotRepo(db, log),
		WaxBalance:           repos.NewWaxBalanceRepo(db, log),
		WaxTransaction:       repos.NewWaxTransactionRepo(db, log),
	}
}
