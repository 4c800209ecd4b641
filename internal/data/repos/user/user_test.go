package user

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/waxfeed-backend/internal/data/repos/testutil"
	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserRepo(db, testutil.Logger(t))

	u := &types.User{Username: "userrepo_" + uuid.NewString()[:8]}
	if _, err := repo.Create(dbc, []*types.User{u}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == uuid.Nil {
		t.Fatalf("Create: expected generated id")
	}

	tier, err := repo.GetTier(dbc, u.ID)
	if err != nil {
		t.Fatalf("GetTier: %v", err)
	}
	if tier != types.Tier("free") {
		t.Fatalf("default tier: want=free got=%s", tier)
	}

	if err := repo.UpdateTier(dbc, u.ID, types.Tier("pro")); err != nil {
		t.Fatalf("UpdateTier: %v", err)
	}
	if got, err := repo.GetByID(dbc, u.ID); err != nil || got == nil || got.Tier != types.Tier("pro") {
		t.Fatalf("GetByID after UpdateTier: err=%v row=%+v", err, got)
	}

	if tier, err := repo.GetTier(dbc, uuid.New()); err != nil || tier != "" {
		t.Fatalf("GetTier missing: want empty got=%q err=%v", tier, err)
	}
}

func TestUserBadgeRepoAwardIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserBadgeRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "badger", "free")
	albumID := uuid.New()

	created, err := repo.Award(dbc, &types.UserBadge{UserID: u.ID, Badge: "first_spin", AlbumID: albumID, Position: 1})
	if err != nil || !created {
		t.Fatalf("Award first: created=%v err=%v", created, err)
	}
	created, err = repo.Award(dbc, &types.UserBadge{UserID: u.ID, Badge: "first_spin", AlbumID: albumID, Position: 1})
	if err != nil {
		t.Fatalf("Award second: %v", err)
	}
	if created {
		t.Fatalf("Award second: want created=false")
	}

	n, err := repo.CountByAlbum(dbc, "first_spin", albumID)
	if err != nil {
		t.Fatalf("CountByAlbum: %v", err)
	}
	if n != 1 {
		t.Fatalf("CountByAlbum: want=1 got=%d", n)
	}
	rows, err := repo.ListByUser(dbc, u.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ListByUser: err=%v len=%d", err, len(rows))
	}
}
