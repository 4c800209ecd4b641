package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/waxfeed-backend/internal/clients/redis"
	"github.com/yungbote/waxfeed-backend/internal/data/repos"
	types "github.com/yungbote/waxfeed-backend/internal/domain"
	"github.com/yungbote/waxfeed-backend/internal/observability"
	"github.com/yungbote/waxfeed-backend/internal/platform/apierr"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
	"github.com/yungbote/waxfeed-backend/internal/taste"
)

type repoRatedAlbum = repos.RatedAlbum
type repoAlbumGenreCount = repos.AlbumGenreCount

const (
	defaultMatchCacheTTL  = 10 * time.Minute
	defaultCandidateLimit = 500
	defaultHistoryLimit   = 20
	maxHistoryLimit       = 100
	matchCacheKeyFormat   = "taste:matches:%s:%d:%s:%d"
	matchCacheOpTimeout   = 250 * time.Millisecond
)

type TasteService interface {
	ComputeProfile(ctx context.Context, userID uuid.UUID) (taste.Result, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*taste.Profile, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]taste.Profile, error)
	Match(ctx context.Context, userID uuid.UUID, mode string, limit int) ([]taste.Match, error)
}

type TasteServiceDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Ratings   repos.RatingRepo
	Albums    repos.AlbumRepo
	Profiles  repos.TasteProfileRepo
	Snapshots repos.TasteProfileSnapshotRepo

	Cache          redis.MatchCache
	CacheTTL       time.Duration
	CandidateLimit int

	Metrics *observability.Metrics
	Clock   func() time.Time
}

type tasteService struct {
	deps TasteServiceDeps
	log  *logger.Logger
}

func NewTasteService(deps TasteServiceDeps) TasteService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Cache == nil {
		deps.Cache = redis.NoopMatchCache{}
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = defaultMatchCacheTTL
	}
	if deps.CandidateLimit <= 0 {
		deps.CandidateLimit = defaultCandidateLimit
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &tasteService{deps: deps, log: deps.Log.With("service", "TasteService")}
}

func (s *tasteService) ready() error {
	if s.deps.DB == nil || s.deps.Ratings == nil || s.deps.Albums == nil || s.deps.Profiles == nil || s.deps.Snapshots == nil {
		return apierr.New(http.StatusInternalServerError, "taste_not_configured", fmt.Errorf("missing deps"))
	}
	return nil
}

// ComputeProfile rebuilds the fingerprint from the user's full rating set. Below the minimum the
// current profile is dropped and nothing new is written.
func (s *tasteService) ComputeProfile(ctx context.Context, userID uuid.UUID) (taste.Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "TasteService.ComputeProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID.String()))

	if userID == uuid.Nil {
		return taste.Result{}, apierr.New(http.StatusUnauthorized, "unauthorized", nil)
	}
	if err := s.ready(); err != nil {
		return taste.Result{}, err
	}

	var (
		rated  []repos.RatedAlbum
		counts []repos.AlbumGenreCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.deps.Ratings.ListRatedAlbums(dbctx.Context{Ctx: gctx}, userID)
		if err != nil {
			return fmt.Errorf("load ratings: %w", err)
		}
		rated = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.deps.Albums.RatedGenreCounts(dbctx.Context{Ctx: gctx})
		if err != nil {
			return fmt.Errorf("load genre stats: %w", err)
		}
		counts = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		s.deps.Metrics.IncTasteCompute("error")
		return taste.Result{}, apierr.New(http.StatusInternalServerError, "load_ratings_failed", err)
	}

	res := taste.Compute(entriesFromRatedAlbums(rated), taste.Options{
		Now:        s.deps.Clock(),
		GenreStats: genreStatsFromCounts(counts),
	})
	span.SetAttributes(
		attribute.String("taste.status", string(res.Status)),
		attribute.Int("taste.rating_count", res.RatingCount),
	)

	if res.Status != taste.StatusOK {
		if err := s.deps.Profiles.DeleteByUserID(dbctx.Context{Ctx: ctx}, userID); err != nil {
			s.log.Warn("drop stale taste profile failed", "user_id", userID, "error", err)
		}
		s.deps.Metrics.IncTasteCompute(string(res.Status))
		return res, nil
	}

	fp, err := fingerprintFromProfile(res.Profile)
	if err != nil {
		s.deps.Metrics.IncTasteCompute("error")
		return taste.Result{}, apierr.New(http.StatusInternalServerError, "encode_profile_failed", err)
	}
	err = s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.deps.Snapshots.Create(inner, []*types.TasteProfileSnapshot{{UserID: userID, Fingerprint: fp}}); err != nil {
			return err
		}
		_, err := s.deps.Profiles.Upsert(inner, &types.TasteProfile{UserID: userID, Fingerprint: fp})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.deps.Metrics.IncTasteCompute("error")
		s.log.Error("persist taste profile failed", "user_id", userID, "error", err)
		return taste.Result{}, apierr.New(http.StatusInternalServerError, "save_profile_failed", err)
	}
	s.deps.Metrics.IncTasteCompute(string(res.Status))
	return res, nil
}

func (s *tasteService) GetProfile(ctx context.Context, userID uuid.UUID) (*taste.Profile, error) {
	if userID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", nil)
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	row, err := s.deps.Profiles.GetByUserID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_profile_failed", err)
	}
	if row == nil {
		return nil, apierr.New(http.StatusNotFound, "profile_not_found", fmt.Errorf("rate at least %d albums to get a taste profile", taste.MinRatings))
	}
	p, err := profileFromFingerprint(row.Fingerprint)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "decode_profile_failed", err)
	}
	return &p, nil
}

func (s *tasteService) History(ctx context.Context, userID uuid.UUID, limit int) ([]taste.Profile, error) {
	if userID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", nil)
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	rows, err := s.deps.Snapshots.ListByUser(dbctx.Context{Ctx: ctx}, userID, limit)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_history_failed", err)
	}
	out := make([]taste.Profile, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		p, err := profileFromFingerprint(r.Fingerprint)
		if err != nil {
			s.log.Warn("skip unreadable taste snapshot", "snapshot_id", r.ID, "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *tasteService) Match(ctx context.Context, userID uuid.UUID, rawMode string, limit int) ([]taste.Match, error) {
	ctx, span := observability.Tracer().Start(ctx, "TasteService.Match")
	defer span.End()

	if userID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", nil)
	}
	mode, err := taste.ParseMode(rawMode)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_mode", err)
	}
	limit = taste.ClampLimit(limit)
	span.SetAttributes(attribute.String("taste.mode", string(mode)), attribute.Int("taste.limit", limit))

	me, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf(matchCacheKeyFormat, userID, me.ComputedAt.UnixNano(), mode, limit)
	if cached, ok := s.cachedMatches(ctx, key); ok {
		span.SetAttributes(attribute.Bool("taste.cache_hit", true))
		return cached, nil
	}

	rows, err := s.deps.Profiles.ListCandidates(dbctx.Context{Ctx: ctx}, userID, taste.MinRatings, s.deps.CandidateLimit)
	if err != nil {
		span.RecordError(err)
		return nil, apierr.New(http.StatusInternalServerError, "load_candidates_failed", err)
	}
	cands := make([]taste.Candidate, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		p, err := profileFromFingerprint(r.Fingerprint)
		if err != nil {
			s.log.Warn("skip unreadable candidate profile", "other_user_id", r.UserID, "error", err)
			continue
		}
		cands = append(cands, taste.Candidate{UserID: r.UserID, Profile: p})
	}

	matches := taste.Rank(userID, *me, cands, mode, limit)
	s.deps.Metrics.ObserveMatchResults(len(matches))
	s.storeMatches(ctx, key, matches)
	return matches, nil
}

func (s *tasteService) cachedMatches(ctx context.Context, key string) ([]taste.Match, bool) {
	cctx, cancel := context.WithTimeout(ctx, matchCacheOpTimeout)
	defer cancel()
	raw, ok, err := s.deps.Cache.Get(cctx, key)
	if err != nil {
		s.deps.Metrics.IncMatchCache("error")
		s.log.Warn("match cache get failed", "error", err)
		return nil, false
	}
	if !ok {
		s.deps.Metrics.IncMatchCache("miss")
		return nil, false
	}
	var out []taste.Match
	if err := json.Unmarshal(raw, &out); err != nil {
		s.deps.Metrics.IncMatchCache("error")
		return nil, false
	}
	s.deps.Metrics.IncMatchCache("hit")
	return out, true
}

func (s *tasteService) storeMatches(ctx context.Context, key string, matches []taste.Match) {
	raw, err := json.Marshal(matches)
	if err != nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, matchCacheOpTimeout)
	defer cancel()
	if err := s.deps.Cache.Set(cctx, key, raw, s.deps.CacheTTL); err != nil {
		s.log.Warn("match cache set failed", "error", err)
	}
}
