package wax

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/waxfeed-backend/internal/data/repos/testutil"
	types "github.com/yungbote/waxfeed-backend/internal/domain"
	domainwax "github.com/yungbote/waxfeed-backend/internal/domain/wax"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
)

func TestWaxBalanceRepoEnsureExistsAndFreeze(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewWaxBalanceRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "balance", "free")
	for i := 0; i < 2; i++ {
		if err := repo.EnsureExists(dbc, u.ID); err != nil {
			t.Fatalf("EnsureExists #%d: %v", i, err)
		}
	}

	row, err := repo.LockByUserID(dbc, u.ID)
	if err != nil || row == nil {
		t.Fatalf("LockByUserID: row=%v err=%v", row, err)
	}
	if row.Balance != 0 || row.Version != 0 || row.Frozen {
		t.Fatalf("fresh balance row: %+v", row)
	}

	if err := repo.SetFrozen(dbc, u.ID, true, "ledger mismatch"); err != nil {
		t.Fatalf("SetFrozen: %v", err)
	}
	row, err = repo.GetByUserID(dbc, u.ID)
	if err != nil || row == nil || !row.Frozen || row.FrozenReason != "ledger mismatch" {
		t.Fatalf("GetByUserID after freeze: row=%+v err=%v", row, err)
	}
}

func TestWaxTransactionRepoSums(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewWaxTransactionRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "ledger", "free")
	day := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	key := "daily_claim:2026-06-10"
	rows := []*types.WaxTransaction{
		{UserID: u.ID, Delta: 5, Type: domainwax.TypeDailyClaim, IdempotencyKey: &key, CreatedAt: day.Add(time.Hour)},
		{UserID: u.ID, Delta: 5, Type: domainwax.TypeReview, CreatedAt: day.Add(2 * time.Hour)},
		{UserID: u.ID, Delta: 100, Type: domainwax.TypePurchase, CreatedAt: day.Add(3 * time.Hour)},
		{UserID: u.ID, Delta: -30, Type: domainwax.TypeBoost, CreatedAt: day.Add(4 * time.Hour)},
		{UserID: u.ID, Delta: 5, Type: domainwax.TypeReview, CreatedAt: day.Add(-time.Hour)},
	}
	if _, err := repo.Create(dbc, rows); err != nil {
		t.Fatalf("Create: %v", err)
	}

	sum, err := repo.SumDelta(dbc, u.ID)
	if err != nil {
		t.Fatalf("SumDelta: %v", err)
	}
	if sum != 85 {
		t.Fatalf("SumDelta: want=85 got=%d", sum)
	}

	capped := []types.WaxTransactionType{domainwax.TypeDailyClaim, domainwax.TypeReview}
	today, err := repo.SumCreditsSince(dbc, u.ID, day, capped)
	if err != nil {
		t.Fatalf("SumCreditsSince: %v", err)
	}
	if today != 10 {
		t.Fatalf("SumCreditsSince: want=10 got=%d", today)
	}

	got, err := repo.GetByIdempotencyKey(dbc, u.ID, key)
	if err != nil || got == nil || got.Delta != 5 {
		t.Fatalf("GetByIdempotencyKey: row=%v err=%v", got, err)
	}

	keys, err := repo.ListKeysSince(dbc, u.ID, domainwax.TypeDailyClaim, day.AddDate(0, 0, -7))
	if err != nil || len(keys) != 1 || keys[0] != key {
		t.Fatalf("ListKeysSince: keys=%v err=%v", keys, err)
	}

	page, err := repo.ListByUser(dbc, u.ID, day.Add(3*time.Hour), 2)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(page) != 2 || page[0].Type != domainwax.TypeReview || page[1].Type != domainwax.TypeDailyClaim {
		t.Fatalf("ListByUser page: %+v", page)
	}
}

func TestWaxTransactionRepoRejectsDuplicateKey(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewWaxTransactionRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "dupe", "free")
	key := "first_spin:abc"
	if _, err := repo.Create(dbc, []*types.WaxTransaction{{UserID: u.ID, Delta: 10, Type: domainwax.TypeFirstSpin, IdempotencyKey: &key}}); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	if testutil.IsPostgres(db) {
		// A failed insert aborts the Postgres transaction; the SQLite path covers the constraint.
		return
	}
	if _, err := repo.Create(dbc, []*types.WaxTransaction{{UserID: u.ID, Delta: 10, Type: domainwax.TypeFirstSpin, IdempotencyKey: &key}}); err == nil {
		t.Fatalf("Create duplicate: expected unique violation")
	}
}
