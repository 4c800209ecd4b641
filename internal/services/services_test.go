package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/waxfeed-backend/internal/data/aggregates"
	"github.com/yungbote/waxfeed-backend/internal/data/repos"
	repotest "github.com/yungbote/waxfeed-backend/internal/data/repos/testutil"
	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/platform/apierr"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
	"github.com/yungbote/waxfeed-backend/internal/wax"
)

var testNow = time.Date(2026, 6, 8, 9, 0, 0, 0, time.UTC)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	hits int
	sets int
}

func newMemoryCache() *memoryCache { return &memoryCache{data: map[string][]byte{}} }

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = append([]byte(nil), val...)
	return nil
}

func (c *memoryCache) Close() error { return nil }

type serviceStack struct {
	db      *gorm.DB
	cache   *memoryCache
	taste   TasteService
	wax     WaxService
	ratings RatingService
}

func newServiceStack(t *testing.T, rules *wax.Rules) *serviceStack {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	clock := func() time.Time { return testNow }

	balances := repos.NewWaxBalanceRepo(db, log)
	txs := repos.NewWaxTransactionRepo(db, log)
	ratingRepo := repos.NewRatingRepo(db, log)
	albums := repos.NewAlbumRepo(db, log)

	ledger := aggregates.NewWaxLedgerAggregate(aggregates.WaxLedgerAggregateDeps{
		Base:         aggregates.BaseDeps{DB: db, Log: log, MaxRetries: aggregates.DefaultLedgerRetries},
		Balances:     balances,
		Transactions: txs,
		Clock:        clock,
	})
	s := &serviceStack{db: db, cache: newMemoryCache()}
	s.wax = NewWaxService(WaxServiceDeps{
		DB:           db,
		Log:          log,
		Users:        repos.NewUserRepo(db, log),
		Balances:     balances,
		Transactions: txs,
		Ledger:       ledger,
		Rules:        rules,
		Clock:        clock,
	})
	s.taste = NewTasteService(TasteServiceDeps{
		DB:        db,
		Log:       log,
		Ratings:   ratingRepo,
		Albums:    albums,
		Profiles:  repos.NewTasteProfileRepo(db, log),
		Snapshots: repos.NewTasteProfileSnapshotRepo(db, log),
		Cache:     s.cache,
		Clock:     clock,
	})
	s.ratings = NewRatingService(RatingServiceDeps{
		Log:     log,
		Albums:  albums,
		Ratings: ratingRepo,
		Badges:  repos.NewUserBadgeRepo(db, log),
		Taste:   s.taste,
		Wax:     s.wax,
	})
	return s
}

func (s *serviceStack) count(t *testing.T, model any, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := s.db.Model(model).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func wantAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("want api error %d/%s got=%v", status, code, err)
	}
	if ae.Status != status || (code != "" && ae.Code != code) {
		t.Fatalf("api error: want=%d/%s got=%d/%s (%v)", status, code, ae.Status, ae.Code, err)
	}
}

func TestTasteComputeInsufficientDataWritesNoProfile(t *testing.T) {
	s := newServiceStack(t, nil)
	ctx := context.Background()
	u := repotest.SeedUser(t, ctx, s.db, "thin", "free")
	for _, g := range []string{"rock", "jazz"} {
		a := repotest.SeedAlbum(t, ctx, s.db, "Artist "+g, 1990, g)
		repotest.SeedRating(t, ctx, s.db, u.ID, a.ID, 4, "", time.Time{})
	}

	res, err := s.taste.ComputeProfile(ctx, u.ID)
	if err != nil {
		t.Fatalf("ComputeProfile: %v", err)
	}
	if res.Status != "insufficient_data" || res.Profile != nil || res.Needed != 1 {
		t.Fatalf("result: %+v", res)
	}
	if n := s.count(t, &types.TasteProfile{}, u.ID); n != 0 {
		t.Fatalf("profiles: want=0 got=%d", n)
	}
	if n := s.count(t, &types.TasteProfileSnapshot{}, u.ID); n != 0 {
		t.Fatalf("snapshots: want=0 got=%d", n)
	}
	_, err = s.taste.GetProfile(ctx, u.ID)
	wantAPIError(t, err, http.StatusNotFound, "profile_not_found")
}

// Falling below the minimum removes the current profile row and keeps earlier snapshots.
func TestTasteComputeInsufficientDataDropsCurrentProfile(t *testing.T) {
	s := newServiceStack(t, nil)
	ctx := context.Background()
	u := repotest.SeedUser(t, ctx, s.db, "shrinking", "free")
	var ratings []*types.Rating
	for _, g := range []string{"rock", "jazz", "soul"} {
		a := repotest.SeedAlbum(t, ctx, s.db, "Artist "+g, 1990, g)
		ratings = append(ratings, repotest.SeedRating(t, ctx, s.db, u.ID, a.ID, 4, "", time.Time{}))
	}
	if res, err := s.taste.ComputeProfile(ctx, u.ID); err != nil || res.Status != "ok" {
		t.Fatalf("first compute: res=%+v err=%v", res, err)
	}
	if err := s.db.Delete(&types.Rating{}, "id = ?", ratings[0].ID).Error; err != nil {
		t.Fatalf("delete rating: %v", err)
	}

	res, err := s.taste.ComputeProfile(ctx, u.ID)
	if err != nil {
		t.Fatalf("second compute: %v", err)
	}
	if res.Status != "insufficient_data" {
		t.Fatalf("second status: want=insufficient_data got=%s", res.Status)
	}
	if n := s.count(t, &types.TasteProfile{}, u.ID); n != 0 {
		t.Fatalf("profiles: want=0 got=%d", n)
	}
	if n := s.count(t, &types.TasteProfileSnapshot{}, u.ID); n != 1 {
		t.Fatalf("snapshots: want=1 got=%d", n)
	}
}

func TestTasteComputePersistsProfileAndHistory(t *testing.T) {
	s := newServiceStack(t, nil)
	ctx := context.Background()
	u := repotest.SeedUser(t, ctx, s.db, "rocker", "free")
	seed := []struct {
		genre string
		score float64
	}{{"Rock", 5}, {"rock", 4}, {"Jazz", 3}}
	for i, r := range seed {
		a := repotest.SeedAlbum(t, ctx, s.db, "Artist", 1970+i*10, r.genre)
		repotest.SeedRating(t, ctx, s.db, u.ID, a.ID, r.score, "", time.Time{})
	}
	gone := repotest.SeedAlbum(t, ctx, s.db, "Ghost", 2001, "pop")
	repotest.SeedRating(t, ctx, s.db, u.ID, gone.ID, 1, "", time.Time{})
	if err := repos.NewAlbumRepo(s.db, repotest.Logger(t)).SoftDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{gone.ID}); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	res, err := s.taste.ComputeProfile(ctx, u.ID)
	if err != nil || res.Status != "ok" {
		t.Fatalf("ComputeProfile: res=%+v err=%v", res, err)
	}
	p, err := s.taste.GetProfile(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.RatingCount != 3 {
		t.Fatalf("rating count: want=3 got=%d", p.RatingCount)
	}
	if len(p.GenreVector) != 2 || !closeTo(p.GenreVector["rock"], 0.75) || !closeTo(p.GenreVector["jazz"], 0.25) {
		t.Fatalf("genre vector: %v", p.GenreVector)
	}
	if p.Decades[1970] != 1 || p.Primary == "" || !p.ComputedAt.Equal(testNow) {
		t.Fatalf("profile: decades=%v primary=%s computed_at=%s", p.Decades, p.Primary, p.ComputedAt)
	}

	if _, err := s.taste.ComputeProfile(ctx, u.ID); err != nil {
		t.Fatalf("second ComputeProfile: %v", err)
	}
	hist, err := s.taste.History(ctx, u.ID, 0)
	if err != nil || len(hist) != 2 {
		t.Fatalf("History: len=%d err=%v", len(hist), err)
	}
	if n := s.count(t, &types.TasteProfile{}, u.ID); n != 1 {
		t.Fatalf("current profiles: want=1 got=%d", n)
	}
}

func TestTasteMatchRanksAndCaches(t *testing.T) {
	s := newServiceStack(t, nil)
	ctx := context.Background()
	me := repotest.SeedUser(t, ctx, s.db, "me", "free")
	twin := repotest.SeedUser(t, ctx, s.db, "twin", "free")
	for _, u := range []*types.User{me, twin} {
		for i, g := range []string{"metal", "rock", "punk"} {
			a := repotest.SeedAlbum(t, ctx, s.db, "Band"+g, 1980+i, g)
			repotest.SeedRating(t, ctx, s.db, u.ID, a.ID, 4.5, "", time.Time{})
		}
		if _, err := s.taste.ComputeProfile(ctx, u.ID); err != nil {
			t.Fatalf("ComputeProfile: %v", err)
		}
	}

	matches, err := s.taste.Match(ctx, me.ID, "twins", 5)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	found := false
	for _, m := range matches {
		if m.UserID == me.ID {
			t.Fatalf("matched self")
		}
		if m.UserID == twin.ID {
			found = true
			if m.Mode != "twins" || !closeTo(m.Score, 1) {
				t.Fatalf("twin match: %+v", m)
			}
		}
	}
	if !found {
		t.Fatalf("twin missing from %+v", matches)
	}
	if s.cache.sets != 1 || s.cache.hits != 0 {
		t.Fatalf("cache after miss: sets=%d hits=%d", s.cache.sets, s.cache.hits)
	}

	again, err := s.taste.Match(ctx, me.ID, "twins", 5)
	if err != nil || len(again) != len(matches) {
		t.Fatalf("cached Match: len=%d err=%v", len(again), err)
	}
	if s.cache.hits != 1 || s.cache.sets != 1 {
		t.Fatalf("cache after hit: sets=%d hits=%d", s.cache.sets, s.cache.hits)
	}

	_, err = s.taste.Match(ctx, me.ID, "frenemies", 5)
	wantAPIError(t, err, http.StatusBadRequest, "invalid_mode")
	stranger := repotest.SeedUser(t, ctx, s.db, "stranger", "free")
	_, err = s.taste.Match(ctx, stranger.ID, "twins", 5)
	wantAPIError(t, err, http.StatusNotFound, "profile_not_found")
}

func TestWaxServiceUsesTierLimits(t *testing.T) {
	s := newServiceStack(t, nil)
	ctx := context.Background()
	pro := repotest.SeedUser(t, ctx, s.db, "pro", "pro")
	free := repotest.SeedUser(t, ctx, s.db, "free", "free")

	proClaim, err := s.wax.ClaimDaily(ctx, pro.ID)
	if err != nil || proClaim.Earned != 20 {
		t.Fatalf("pro claim: res=%+v err=%v", proClaim, err)
	}
	freeClaim, err := s.wax.ClaimDaily(ctx, free.ID)
	if err != nil || freeClaim.Earned != 5 {
		t.Fatalf("free claim: res=%+v err=%v", freeClaim, err)
	}

	view, err := s.wax.Balance(ctx, pro.ID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if view.Balance != 20 || view.DailyCap != 200 || view.WeeklyCap != 1000 || view.EarnedToday != 20 || !view.ClaimedToday {
		t.Fatalf("balance view: %+v", view)
	}

	txs, err := s.wax.Transactions(ctx, pro.ID, time.Time{}, 0)
	if err != nil || len(txs) != 1 || txs[0].Delta != 20 {
		t.Fatalf("Transactions: len=%d err=%v", len(txs), err)
	}

	_, err = s.wax.ClaimDaily(ctx, uuid.New())
	wantAPIError(t, err, http.StatusNotFound, "user_not_found")
}

func TestWaxServiceSpendAndFreeze(t *testing.T) {
	s := newServiceStack(t, nil)
	ctx := context.Background()
	u := repotest.SeedUser(t, ctx, s.db, "spender", "free")

	if _, err := s.wax.Earn(ctx, EarnWaxInput{UserID: u.ID, Amount: 100, Type: "admin_grant"}); err != nil {
		t.Fatalf("Earn: %v", err)
	}
	res, err := s.wax.Spend(ctx, SpendWaxInput{UserID: u.ID, Amount: 30, Type: "boost"})
	if err != nil || !res.Success || res.NewBalance != 70 {
		t.Fatalf("Spend 30: res=%+v err=%v", res, err)
	}
	res, err = s.wax.Spend(ctx, SpendWaxInput{UserID: u.ID, Amount: 150, Type: "boost"})
	if err != nil || res.Success || res.Error != "insufficient_balance" || res.NewBalance != 70 {
		t.Fatalf("Spend 150: res=%+v err=%v", res, err)
	}
	_, err = s.wax.Spend(ctx, SpendWaxInput{UserID: u.ID, Amount: 5, Type: "review"})
	wantAPIError(t, err, http.StatusBadRequest, "invalid_request")

	if err := s.db.Model(&types.WaxBalance{}).Where("user_id = ?", u.ID).Update("balance", 1).Error; err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	rec, err := s.wax.Reconcile(ctx, u.ID)
	wantAPIError(t, err, http.StatusConflict, "wax_account_frozen")
	if !rec.Frozen || rec.LedgerSum != 70 {
		t.Fatalf("reconcile result: %+v", rec)
	}
	_, err = s.wax.ClaimDaily(ctx, u.ID)
	wantAPIError(t, err, http.StatusConflict, "wax_account_frozen")
}

func TestRatingUpsertPaysReviewAndFirstSpin(t *testing.T) {
	rules := wax.Default()
	rules.Earn.FirstSpinSlots = 2
	s := newServiceStack(t, rules)
	ctx := context.Background()
	album := repotest.SeedAlbum(t, ctx, s.db, "Slowdive", 1993, "shoegaze")

	var users []*types.User
	for _, name := range []string{"first", "second", "third"} {
		users = append(users, repotest.SeedUser(t, ctx, s.db, name, "free"))
	}
	for i, u := range users {
		res, err := s.ratings.Upsert(ctx, UpsertRatingInput{UserID: u.ID, AlbumID: album.ID, Score: 4.5, Text: "washes over you"})
		if err != nil {
			t.Fatalf("Upsert %d: %v", i, err)
		}
		wantSpin := i < 2
		if res.FirstSpin != wantSpin {
			t.Fatalf("reviewer %d first spin: want=%v got=%v", i, wantSpin, res.FirstSpin)
		}
		wantWax := int64(5)
		if wantSpin {
			wantWax += 10
			if res.Position != i+1 {
				t.Fatalf("reviewer %d position: want=%d got=%d", i, i+1, res.Position)
			}
		}
		if res.WaxEarned != wantWax {
			t.Fatalf("reviewer %d wax: want=%d got=%d", i, wantWax, res.WaxEarned)
		}
	}

	edit, err := s.ratings.Upsert(ctx, UpsertRatingInput{UserID: users[0].ID, AlbumID: album.ID, Score: 5, Text: "even better"})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edit.WaxEarned != 0 || edit.Rating.Score != 5 {
		t.Fatalf("edit: %+v", edit)
	}
	if n := s.count(t, &types.UserBadge{}, users[0].ID); n != 1 {
		t.Fatalf("badges: want=1 got=%d", n)
	}
	if n := s.count(t, &types.Rating{}, users[0].ID); n != 1 {
		t.Fatalf("ratings: want=1 got=%d", n)
	}
}

func (s *serviceStack) albumBadges(t *testing.T, albumID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := s.db.Model(&types.UserBadge{}).Where("album_id = ?", albumID).Count(&n).Error; err != nil {
		t.Fatalf("count badges: %v", err)
	}
	return n
}

func TestFirstSpinIgnoresLateReviewText(t *testing.T) {
	rules := wax.Default()
	rules.Earn.FirstSpinSlots = 2
	s := newServiceStack(t, rules)
	ctx := context.Background()
	album := repotest.SeedAlbum(t, ctx, s.db, "Low", 1994, "slowcore")

	lurker := repotest.SeedUser(t, ctx, s.db, "lurker", "free")
	if _, err := s.ratings.Upsert(ctx, UpsertRatingInput{UserID: lurker.ID, AlbumID: album.ID, Score: 4}); err != nil {
		t.Fatalf("silent rating: %v", err)
	}
	for _, name := range []string{"a", "b"} {
		u := repotest.SeedUser(t, ctx, s.db, name, "free")
		res, err := s.ratings.Upsert(ctx, UpsertRatingInput{UserID: u.ID, AlbumID: album.ID, Score: 4, Text: "slow and heavy"})
		if err != nil {
			t.Fatalf("review %s: %v", name, err)
		}
		if !res.FirstSpin {
			t.Fatalf("review %s: want first spin", name)
		}
	}

	res, err := s.ratings.Upsert(ctx, UpsertRatingInput{UserID: lurker.ID, AlbumID: album.ID, Score: 4, Text: "finally wrote it up"})
	if err != nil {
		t.Fatalf("late review: %v", err)
	}
	if res.FirstSpin || res.Position != 0 {
		t.Fatalf("late review first spin: want=false got=%v position=%d", res.FirstSpin, res.Position)
	}
	if res.WaxEarned != rules.Earn.Review {
		t.Fatalf("late review wax: want=%d got=%d", rules.Earn.Review, res.WaxEarned)
	}
	if n := s.albumBadges(t, album.ID); n != 2 {
		t.Fatalf("album badges: want=2 got=%d", n)
	}
}

func TestFirstSpinSlotsSurviveDeletedReview(t *testing.T) {
	rules := wax.Default()
	rules.Earn.FirstSpinSlots = 2
	s := newServiceStack(t, rules)
	ctx := context.Background()
	album := repotest.SeedAlbum(t, ctx, s.db, "Duster", 1998, "slowcore")

	var early []*types.User
	for _, name := range []string{"a", "b"} {
		u := repotest.SeedUser(t, ctx, s.db, name, "free")
		if _, err := s.ratings.Upsert(ctx, UpsertRatingInput{UserID: u.ID, AlbumID: album.ID, Score: 5, Text: "stratosphere"}); err != nil {
			t.Fatalf("review %s: %v", name, err)
		}
		early = append(early, u)
	}
	if _, err := s.ratings.Delete(ctx, early[0].ID, album.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	late := repotest.SeedUser(t, ctx, s.db, "c", "free")
	res, err := s.ratings.Upsert(ctx, UpsertRatingInput{UserID: late.ID, AlbumID: album.ID, Score: 4, Text: "late to it"})
	if err != nil {
		t.Fatalf("third review: %v", err)
	}
	if res.FirstSpin {
		t.Fatalf("third review first spin: want=false got=true position=%d", res.Position)
	}
	if n := s.albumBadges(t, album.ID); n != 2 {
		t.Fatalf("album badges: want=2 got=%d", n)
	}
	if n := s.count(t, &types.WaxTransaction{}, late.ID); n != 1 {
		t.Fatalf("third reviewer ledger rows: want=1 got=%d", n)
	}
}

func TestRatingThresholdRecompute(t *testing.T) {
	s := newServiceStack(t, nil)
	ctx := context.Background()
	u := repotest.SeedUser(t, ctx, s.db, "threshold", "free")

	var albums []*types.Album
	for i, g := range []string{"jazz", "soul", "funk"} {
		albums = append(albums, repotest.SeedAlbum(t, ctx, s.db, "Act"+g, 1965+i, g))
	}
	for i, a := range albums {
		res, err := s.ratings.Upsert(ctx, UpsertRatingInput{UserID: u.ID, AlbumID: a.ID, Score: 4})
		if err != nil {
			t.Fatalf("Upsert %d: %v", i, err)
		}
		if res.Recomputed != (i == 2) {
			t.Fatalf("rating %d recomputed: got=%v", i, res.Recomputed)
		}
	}
	if n := s.count(t, &types.TasteProfile{}, u.ID); n != 1 {
		t.Fatalf("profile after third rating: want=1 got=%d", n)
	}

	res, err := s.ratings.Delete(ctx, u.ID, albums[0].ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !res.Recomputed || res.TasteStatus != "insufficient_data" || res.RatingCount != 2 {
		t.Fatalf("delete result: %+v", res)
	}
	if n := s.count(t, &types.TasteProfile{}, u.ID); n != 0 {
		t.Fatalf("profile after dropping below minimum: want=0 got=%d", n)
	}

	_, err = s.ratings.Delete(ctx, u.ID, albums[0].ID)
	wantAPIError(t, err, http.StatusNotFound, "rating_not_found")
}

func TestRatingUpsertValidation(t *testing.T) {
	s := newServiceStack(t, nil)
	ctx := context.Background()
	u := repotest.SeedUser(t, ctx, s.db, "validator", "free")
	album := repotest.SeedAlbum(t, ctx, s.db, "Any", 2000, "pop")

	_, err := s.ratings.Upsert(ctx, UpsertRatingInput{UserID: u.ID, AlbumID: album.ID, Score: 4.3})
	wantAPIError(t, err, http.StatusBadRequest, "invalid_score")
	_, err = s.ratings.Upsert(ctx, UpsertRatingInput{UserID: u.ID, AlbumID: album.ID, Score: 0})
	wantAPIError(t, err, http.StatusBadRequest, "invalid_score")
	_, err = s.ratings.Upsert(ctx, UpsertRatingInput{UserID: u.ID, AlbumID: uuid.New(), Score: 3})
	wantAPIError(t, err, http.StatusNotFound, "album_not_found")
	_, err = s.ratings.Upsert(ctx, UpsertRatingInput{AlbumID: album.ID, Score: 3})
	wantAPIError(t, err, http.StatusUnauthorized, "unauthorized")
}

func TestCrossesThreshold(t *testing.T) {
	cases := []struct {
		before, after int64
		want          bool
	}{
		{2, 3, true},
		{3, 2, true},
		{3, 4, false},
		{19, 20, true},
		{20, 20, false},
		{49, 50, true},
		{100, 99, true},
		{101, 102, false},
	}
	for _, c := range cases {
		if got := crossesThreshold(c.before, c.after); got != c.want {
			t.Fatalf("crossesThreshold(%d,%d): want=%v got=%v", c.before, c.after, c.want, got)
		}
	}
}

func closeTo(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}
