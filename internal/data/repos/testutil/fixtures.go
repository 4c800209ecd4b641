package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/domain/music"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, username string, tier types.Tier) *types.User {
	tb.Helper()
	u := &types.User{
		ID:       uuid.New(),
		Username: username + "_" + uuid.NewString()[:8],
		Tier:     tier,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedAlbum(tb testing.TB, ctx context.Context, tx *gorm.DB, artist string, year int, genres ...string) *types.Album {
	tb.Helper()
	a := &types.Album{
		ID:          uuid.New(),
		Title:       artist + " LP",
		Artist:      artist,
		ReleaseYear: year,
		Genres:      music.GenresJSON(genres...),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed album: %v", err)
	}
	return a
}

func SeedRating(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, albumID uuid.UUID, score float64, text string, at time.Time) *types.Rating {
	tb.Helper()
	if at.IsZero() {
		at = time.Now().UTC()
	}
	r := &types.Rating{
		ID:        uuid.New(),
		UserID:    userID,
		AlbumID:   albumID,
		Score:     score,
		Text:      text,
		CreatedAt: at.UTC(),
		UpdatedAt: at.UTC(),
	}
	if text != "" {
		reviewed := at.UTC()
		r.ReviewedAt = &reviewed
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed rating: %v", err)
	}
	return r
}
