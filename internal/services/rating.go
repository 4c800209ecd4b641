package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/waxfeed-backend/internal/data/repos"
	types "github.com/yungbote/waxfeed-backend/internal/domain"
	domainmusic "github.com/yungbote/waxfeed-backend/internal/domain/music"
	domainuser "github.com/yungbote/waxfeed-backend/internal/domain/user"
	domainwax "github.com/yungbote/waxfeed-backend/internal/domain/wax"
	"github.com/yungbote/waxfeed-backend/internal/platform/apierr"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
	"github.com/yungbote/waxfeed-backend/internal/taste"
)

const maxReviewTextLen = 10000

// Usable rating counts at which the taste profile is rebuilt, in either direction.
var recomputeThresholds = []int64{taste.MinRatings, taste.CompleteRatings, 50, 100}

type UpsertRatingInput struct {
	UserID  uuid.UUID
	AlbumID uuid.UUID
	Score   float64
	Text    string
}

type RatingResult struct {
	Rating      *types.Rating `json:"rating,omitempty"`
	Deleted     bool          `json:"deleted,omitempty"`
	RatingCount int64         `json:"rating_count"`
	Recomputed  bool          `json:"recomputed"`
	TasteStatus taste.Status  `json:"taste_status,omitempty"`
	WaxEarned   int64         `json:"wax_earned"`
	FirstSpin   bool          `json:"first_spin"`
	Position    int           `json:"first_spin_position,omitempty"`
}

type RatingService interface {
	Upsert(ctx context.Context, in UpsertRatingInput) (*RatingResult, error)
	Delete(ctx context.Context, userID, albumID uuid.UUID) (*RatingResult, error)
}

type RatingServiceDeps struct {
	Log     *logger.Logger
	Albums  repos.AlbumRepo
	Ratings repos.RatingRepo
	Badges  repos.UserBadgeRepo
	Taste   TasteService
	Wax     WaxService
}

type ratingService struct {
	deps RatingServiceDeps
	log  *logger.Logger
}

func NewRatingService(deps RatingServiceDeps) RatingService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &ratingService{deps: deps, log: deps.Log.With("service", "RatingService")}
}

// Upsert writes the rating, then pays review rewards and rebuilds the profile when the usable
// count crosses a threshold. Reward and recompute failures are logged, the rating still stands.
func (s *ratingService) Upsert(ctx context.Context, in UpsertRatingInput) (*RatingResult, error) {
	if in.UserID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", nil)
	}
	if in.AlbumID == uuid.Nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_album_id", fmt.Errorf("missing album_id"))
	}
	if !domainmusic.ValidScore(in.Score) {
		return nil, apierr.New(http.StatusBadRequest, "invalid_score",
			fmt.Errorf("score must be between %.0f and %.0f in half steps", domainmusic.MinScore, domainmusic.MaxScore))
	}
	text := strings.TrimSpace(in.Text)
	if len(text) > maxReviewTextLen {
		return nil, apierr.New(http.StatusBadRequest, "review_too_long", fmt.Errorf("review text over %d bytes", maxReviewTextLen))
	}
	if s.deps.Albums == nil || s.deps.Ratings == nil {
		return nil, apierr.New(http.StatusInternalServerError, "rating_not_configured", fmt.Errorf("missing deps"))
	}

	dbc := dbctx.Context{Ctx: ctx}
	album, err := s.deps.Albums.GetByID(dbc, in.AlbumID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_album_failed", err)
	}
	if album == nil {
		return nil, apierr.New(http.StatusNotFound, "album_not_found", nil)
	}

	before, err := s.deps.Ratings.CountUsable(dbc, in.UserID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "count_ratings_failed", err)
	}
	row, err := s.deps.Ratings.Upsert(dbc, &types.Rating{
		UserID:  in.UserID,
		AlbumID: in.AlbumID,
		Score:   in.Score,
		Text:    text,
	})
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "save_rating_failed", err)
	}
	after, err := s.deps.Ratings.CountUsable(dbc, in.UserID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "count_ratings_failed", err)
	}

	out := &RatingResult{Rating: row, RatingCount: after}
	if text != "" {
		s.rewardReview(ctx, in.UserID, album, out)
	}
	s.maybeRecompute(ctx, in.UserID, before, after, out)
	return out, nil
}

func (s *ratingService) Delete(ctx context.Context, userID, albumID uuid.UUID) (*RatingResult, error) {
	if userID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", nil)
	}
	if albumID == uuid.Nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_album_id", fmt.Errorf("missing album_id"))
	}
	if s.deps.Ratings == nil {
		return nil, apierr.New(http.StatusInternalServerError, "rating_not_configured", fmt.Errorf("missing deps"))
	}

	dbc := dbctx.Context{Ctx: ctx}
	before, err := s.deps.Ratings.CountUsable(dbc, userID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "count_ratings_failed", err)
	}
	deleted, err := s.deps.Ratings.Delete(dbc, userID, albumID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "delete_rating_failed", err)
	}
	if !deleted {
		return nil, apierr.New(http.StatusNotFound, "rating_not_found", nil)
	}
	after, err := s.deps.Ratings.CountUsable(dbc, userID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "count_ratings_failed", err)
	}

	out := &RatingResult{Deleted: true, RatingCount: after}
	s.maybeRecompute(ctx, userID, before, after, out)
	return out, nil
}

// rewardReview pays the per-album review credit and, for the album's first reviewers, the First
// Spin badge and its credit. FirstSpin in the result means the badge was awarded by this call.
// Idempotency keys make edits and retries free.
func (s *ratingService) rewardReview(ctx context.Context, userID uuid.UUID, album *types.Album, out *RatingResult) {
	if s.deps.Wax == nil {
		return
	}
	rules := s.deps.Wax.Rules()
	albumKey := album.ID.String()

	if rules.Earn.Review > 0 {
		res, err := s.deps.Wax.Earn(ctx, EarnWaxInput{
			UserID:         userID,
			Amount:         rules.Earn.Review,
			Type:           domainwax.TypeReview,
			Reason:         fmt.Sprintf("Review of %s", album.Title),
			Metadata:       map[string]any{"album_id": albumKey},
			IdempotencyKey: "review:" + albumKey,
		})
		if err != nil {
			s.log.Warn("review reward failed", "user_id", userID, "album_id", album.ID, "error", err)
		} else {
			out.WaxEarned += res.Earned
		}
	}

	if s.deps.Badges == nil || rules.Earn.FirstSpinSlots <= 0 {
		return
	}
	dbc := dbctx.Context{Ctx: ctx}
	rank, err := s.deps.Ratings.ReviewerRank(dbc, album.ID, userID)
	if err != nil {
		s.log.Warn("reviewer rank failed", "user_id", userID, "album_id", album.ID, "error", err)
		return
	}
	if rank < 1 || rank > rules.Earn.FirstSpinSlots {
		return
	}
	// Deleted reviews free a rank but never a slot.
	awarded, err := s.deps.Badges.CountByAlbum(dbc, domainuser.BadgeFirstSpin, album.ID)
	if err != nil {
		s.log.Warn("first spin count failed", "user_id", userID, "album_id", album.ID, "error", err)
		return
	}
	if awarded >= int64(rules.Earn.FirstSpinSlots) {
		return
	}
	created, err := s.deps.Badges.Award(dbc, &types.UserBadge{
		UserID:   userID,
		Badge:    domainuser.BadgeFirstSpin,
		AlbumID:  album.ID,
		Position: rank,
	})
	if err != nil {
		s.log.Warn("first spin badge failed", "user_id", userID, "album_id", album.ID, "error", err)
		return
	}
	if !created {
		return
	}
	out.FirstSpin = true
	out.Position = rank
	if rules.Earn.FirstSpin <= 0 {
		return
	}
	res, err := s.deps.Wax.Earn(ctx, EarnWaxInput{
		UserID:         userID,
		Amount:         rules.Earn.FirstSpin,
		Type:           domainwax.TypeFirstSpin,
		Reason:         fmt.Sprintf("First Spin #%d on %s", rank, album.Title),
		Metadata:       map[string]any{"album_id": albumKey, "position": rank},
		IdempotencyKey: "first_spin:" + albumKey,
	})
	if err != nil {
		s.log.Warn("first spin reward failed", "user_id", userID, "album_id", album.ID, "error", err)
		return
	}
	out.WaxEarned += res.Earned
}

func (s *ratingService) maybeRecompute(ctx context.Context, userID uuid.UUID, before, after int64, out *RatingResult) {
	if s.deps.Taste == nil || !crossesThreshold(before, after) {
		return
	}
	res, err := s.deps.Taste.ComputeProfile(ctx, userID)
	if err != nil {
		s.log.Warn("threshold recompute failed", "user_id", userID, "error", err)
		return
	}
	out.Recomputed = true
	out.TasteStatus = res.Status
}

// crossesThreshold reports whether moving from before to after passes any recompute threshold.
func crossesThreshold(before, after int64) bool {
	lo, hi := before, after
	if lo > hi {
		lo, hi = hi, lo
	}
	for _, t := range recomputeThresholds {
		if lo < t && t <= hi {
			return true
		}
	}
	return false
}
