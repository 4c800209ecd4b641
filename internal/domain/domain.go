package domain

import (
	"github.com/yungbote/waxfeed-backend/internal/domain/music"
	"github.com/yungbote/waxfeed-backend/internal/domain/taste"
	"github.com/yungbote/waxfeed-backend/internal/domain/user"
	"github.com/yungbote/waxfeed-backend/internal/domain/wax"
)

type (
	User      = user.User
	UserBadge = user.UserBadge
	Tier      = user.Tier

	Album  = music.Album
	Rating = music.Rating

	TasteProfile         = taste.TasteProfile
	TasteProfileSnapshot = taste.TasteProfileSnapshot
	TasteFingerprint     = taste.Fingerprint

	WaxBalance         = wax.WaxBalance
	WaxTransaction     = wax.WaxTransaction
	WaxTransactionType = wax.TransactionType
)

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&user.User{},
		&user.UserBadge{},
		&music.Album{},
		&music.Rating{},
		&taste.TasteProfile{},
		&taste.TasteProfileSnapshot{},
		&wax.WaxBalance{},
		&wax.WaxTransaction{},
	}
}
