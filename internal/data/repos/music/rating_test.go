package music

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/waxfeed-backend/internal/data/repos/testutil"
	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
)

func TestRatingRepoUpsertOverwritesInPlace(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRatingRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "rater", "free")
	a := testutil.SeedAlbum(t, ctx, tx, "Coltrane", 1965, "Jazz")

	first, err := repo.Upsert(dbc, &types.Rating{UserID: u.ID, AlbumID: a.ID, Score: 3})
	if err != nil || first == nil {
		t.Fatalf("Upsert first: row=%v err=%v", first, err)
	}
	second, err := repo.Upsert(dbc, &types.Rating{UserID: u.ID, AlbumID: a.ID, Score: 4.5, Text: "grew on me"})
	if err != nil || second == nil {
		t.Fatalf("Upsert second: row=%v err=%v", second, err)
	}
	if second.ID != first.ID {
		t.Fatalf("Upsert id: want=%s got=%s", first.ID, second.ID)
	}
	if second.Score != 4.5 || second.Text != "grew on me" {
		t.Fatalf("Upsert fields: got score=%v text=%q", second.Score, second.Text)
	}

	n, err := repo.CountUsable(dbc, u.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountUsable: want=1 got=%d err=%v", n, err)
	}

	deleted, err := repo.Delete(dbc, u.ID, a.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete: deleted=%v err=%v", deleted, err)
	}
	if row, err := repo.GetByUserAndAlbum(dbc, u.ID, a.ID); err != nil || row != nil {
		t.Fatalf("GetByUserAndAlbum after delete: row=%v err=%v", row, err)
	}
}

func TestRatingRepoListRatedAlbumsSkipsDeletedAlbums(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	ratings := NewRatingRepo(db, log)
	albums := NewAlbumRepo(db, log)

	u := testutil.SeedUser(t, ctx, tx, "lister", "free")
	keep := testutil.SeedAlbum(t, ctx, tx, "Radiohead", 1997, "Rock", "Alternative")
	gone := testutil.SeedAlbum(t, ctx, tx, "Nobody", 2001, "Pop")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	testutil.SeedRating(t, ctx, tx, u.ID, keep.ID, 5, "", base)
	testutil.SeedRating(t, ctx, tx, u.ID, gone.ID, 2, "", base.Add(time.Hour))

	if err := albums.SoftDeleteByIDs(dbc, []uuid.UUID{gone.ID}); err != nil {
		t.Fatalf("SoftDeleteByIDs: %v", err)
	}

	rows, err := ratings.ListRatedAlbums(dbc, u.ID)
	if err != nil {
		t.Fatalf("ListRatedAlbums: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ListRatedAlbums len: want=1 got=%d", len(rows))
	}
	if rows[0].AlbumID != keep.ID || rows[0].Artist != "Radiohead" || rows[0].ReleaseYear != 1997 {
		t.Fatalf("ListRatedAlbums row: %+v", rows[0])
	}

	counts, err := albums.RatedGenreCounts(dbc)
	if err != nil {
		t.Fatalf("RatedGenreCounts: %v", err)
	}
	if len(counts) != 1 || counts[0].AlbumID != keep.ID || counts[0].Ratings != 1 {
		t.Fatalf("RatedGenreCounts: %+v", counts)
	}
}

func TestRatingRepoReviewerRank(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRatingRepo(db, testutil.Logger(t))

	a := testutil.SeedAlbum(t, ctx, tx, "Bjork", 1997, "Electronic")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	early := testutil.SeedUser(t, ctx, tx, "early", "free")
	silent := testutil.SeedUser(t, ctx, tx, "silent", "free")
	late := testutil.SeedUser(t, ctx, tx, "late", "free")
	testutil.SeedRating(t, ctx, tx, early.ID, a.ID, 4, "first!", base)
	testutil.SeedRating(t, ctx, tx, silent.ID, a.ID, 4, "", base.Add(time.Minute))
	testutil.SeedRating(t, ctx, tx, late.ID, a.ID, 5, "late take", base.Add(2*time.Minute))

	cases := []struct {
		user uuid.UUID
		want int
	}{
		{early.ID, 1},
		{silent.ID, 0},
		{late.ID, 2},
	}
	for _, c := range cases {
		got, err := repo.ReviewerRank(dbc, a.ID, c.user)
		if err != nil {
			t.Fatalf("ReviewerRank: %v", err)
		}
		if got != c.want {
			t.Fatalf("ReviewerRank: want=%d got=%d", c.want, got)
		}
	}
}

func TestRatingRepoReviewedAtIsSetOnce(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRatingRepo(db, testutil.Logger(t))

	a := testutil.SeedAlbum(t, ctx, tx, "Talk Talk", 1991, "Art Rock")
	u := testutil.SeedUser(t, ctx, tx, "reviewer", "free")

	row, err := repo.Upsert(dbc, &types.Rating{UserID: u.ID, AlbumID: a.ID, Score: 4})
	if err != nil {
		t.Fatalf("Upsert silent: %v", err)
	}
	if row.ReviewedAt != nil {
		t.Fatalf("silent rating reviewed_at: want=nil got=%v", row.ReviewedAt)
	}

	row, err = repo.Upsert(dbc, &types.Rating{UserID: u.ID, AlbumID: a.ID, Score: 4, Text: "patient music"})
	if err != nil {
		t.Fatalf("Upsert review: %v", err)
	}
	if row.ReviewedAt == nil {
		t.Fatalf("review reviewed_at: want set")
	}
	first := *row.ReviewedAt

	row, err = repo.Upsert(dbc, &types.Rating{UserID: u.ID, AlbumID: a.ID, Score: 5, Text: "patient, rewarding music"})
	if err != nil {
		t.Fatalf("Upsert edit: %v", err)
	}
	if row.ReviewedAt == nil || !row.ReviewedAt.Equal(first) {
		t.Fatalf("edit reviewed_at: want=%v got=%v", first, row.ReviewedAt)
	}
	if row.Score != 5 {
		t.Fatalf("edit score: want=5 got=%v", row.Score)
	}
}
