package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/waxfeed-backend/internal/data/aggregates"
	"github.com/yungbote/waxfeed-backend/internal/data/repos"
	types "github.com/yungbote/waxfeed-backend/internal/domain"
	domainagg "github.com/yungbote/waxfeed-backend/internal/domain/aggregates"
	"github.com/yungbote/waxfeed-backend/internal/platform/apierr"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
	"github.com/yungbote/waxfeed-backend/internal/wax"
)

const (
	defaultTransactionPage = 50
	maxTransactionPage     = 200
)

type EarnWaxInput struct {
	UserID         uuid.UUID
	Amount         int64
	Type           types.WaxTransactionType
	Reason         string
	Metadata       map[string]any
	IdempotencyKey string
}

type SpendWaxInput struct {
	UserID   uuid.UUID
	Amount   int64
	Type     types.WaxTransactionType
	Reason   string
	Metadata map[string]any
}

type WaxBalanceView struct {
	UserID         uuid.UUID  `json:"user_id"`
	Balance        int64      `json:"balance"`
	Frozen         bool       `json:"frozen"`
	Tier           types.Tier `json:"tier"`
	DailyCap       int64      `json:"daily_cap"`
	WeeklyCap      int64      `json:"weekly_cap"`
	EarnedToday    int64      `json:"earned_today"`
	EarnedThisWeek int64      `json:"earned_this_week"`
	ClaimedToday   bool       `json:"claimed_today"`
}

type WaxService interface {
	Earn(ctx context.Context, in EarnWaxInput) (domainagg.EarnWaxResult, error)
	Spend(ctx context.Context, in SpendWaxInput) (domainagg.SpendWaxResult, error)
	ClaimDaily(ctx context.Context, userID uuid.UUID) (domainagg.ClaimDailyResult, error)
	Balance(ctx context.Context, userID uuid.UUID) (*WaxBalanceView, error)
	Transactions(ctx context.Context, userID uuid.UUID, before time.Time, limit int) ([]*types.WaxTransaction, error)
	Reconcile(ctx context.Context, userID uuid.UUID) (domainagg.ReconcileResult, error)
	Rules() *wax.Rules
}

type WaxServiceDeps struct {
	DB           *gorm.DB
	Log          *logger.Logger
	Users        repos.UserRepo
	Balances     repos.WaxBalanceRepo
	Transactions repos.WaxTransactionRepo
	Ledger       domainagg.WaxLedgerAggregate
	Rules        *wax.Rules
	Clock        func() time.Time
}

type waxService struct {
	deps WaxServiceDeps
	log  *logger.Logger
}

func NewWaxService(deps WaxServiceDeps) WaxService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Rules == nil {
		deps.Rules = wax.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &waxService{deps: deps, log: deps.Log.With("service", "WaxService")}
}

func (s *waxService) Rules() *wax.Rules { return s.deps.Rules }

// limitsFor resolves the caller's tier. A missing user is a 404.
func (s *waxService) limitsFor(ctx context.Context, userID uuid.UUID) (types.Tier, domainagg.WaxLimits, error) {
	if userID == uuid.Nil {
		return "", domainagg.WaxLimits{}, apierr.New(http.StatusUnauthorized, "unauthorized", nil)
	}
	if s.deps.Users == nil || s.deps.Ledger == nil {
		return "", domainagg.WaxLimits{}, apierr.New(http.StatusInternalServerError, "wax_not_configured", fmt.Errorf("missing deps"))
	}
	tier, err := s.deps.Users.GetTier(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return "", domainagg.WaxLimits{}, apierr.New(http.StatusInternalServerError, "load_user_failed", err)
	}
	if tier == "" {
		return "", domainagg.WaxLimits{}, apierr.New(http.StatusNotFound, "user_not_found", nil)
	}
	return tier, s.deps.Rules.Limits(tier), nil
}

func (s *waxService) Earn(ctx context.Context, in EarnWaxInput) (domainagg.EarnWaxResult, error) {
	_, limits, err := s.limitsFor(ctx, in.UserID)
	if err != nil {
		return domainagg.EarnWaxResult{}, err
	}
	res, err := s.deps.Ledger.Earn(ctx, domainagg.EarnWaxInput{
		UserID:         in.UserID,
		Amount:         in.Amount,
		Type:           in.Type,
		Reason:         in.Reason,
		Metadata:       in.Metadata,
		IdempotencyKey: in.IdempotencyKey,
		Limits:         limits,
	})
	if err != nil {
		s.log.Warn("wax earn failed", "user_id", in.UserID, "type", in.Type, "error", err)
		return domainagg.EarnWaxResult{}, aggregateAPIError(err, "wax_earn_failed")
	}
	return res, nil
}

func (s *waxService) Spend(ctx context.Context, in SpendWaxInput) (domainagg.SpendWaxResult, error) {
	if _, _, err := s.limitsFor(ctx, in.UserID); err != nil {
		return domainagg.SpendWaxResult{}, err
	}
	res, err := s.deps.Ledger.Spend(ctx, domainagg.SpendWaxInput{
		UserID:   in.UserID,
		Amount:   in.Amount,
		Type:     in.Type,
		Reason:   in.Reason,
		Metadata: in.Metadata,
	})
	if err != nil {
		s.log.Warn("wax spend failed", "user_id", in.UserID, "type", in.Type, "error", err)
		return domainagg.SpendWaxResult{}, aggregateAPIError(err, "wax_spend_failed")
	}
	return res, nil
}

func (s *waxService) ClaimDaily(ctx context.Context, userID uuid.UUID) (domainagg.ClaimDailyResult, error) {
	_, limits, err := s.limitsFor(ctx, userID)
	if err != nil {
		return domainagg.ClaimDailyResult{}, err
	}
	res, err := s.deps.Ledger.ClaimDaily(ctx, domainagg.ClaimDailyInput{UserID: userID, Limits: limits})
	if err != nil {
		s.log.Warn("wax daily claim failed", "user_id", userID, "error", err)
		return domainagg.ClaimDailyResult{}, aggregateAPIError(err, "wax_claim_failed")
	}
	return res, nil
}

func (s *waxService) Balance(ctx context.Context, userID uuid.UUID) (*WaxBalanceView, error) {
	tier, limits, err := s.limitsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	now := s.deps.Clock().UTC()
	view := &WaxBalanceView{
		UserID:    userID,
		Tier:      tier,
		DailyCap:  limits.DailyCap,
		WeeklyCap: limits.WeeklyCap,
	}

	bal, err := s.deps.Balances.GetByUserID(dbc, userID)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_balance_failed", err)
	}
	if bal != nil {
		view.Balance = bal.Balance
		view.Frozen = bal.Frozen
	}
	capped := aggregates.CappedTypes()
	if view.EarnedToday, err = s.deps.Transactions.SumCreditsSince(dbc, userID, aggregates.StartOfUTCDay(now), capped); err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_balance_failed", err)
	}
	if view.EarnedThisWeek, err = s.deps.Transactions.SumCreditsSince(dbc, userID, aggregates.StartOfISOWeek(now), capped); err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_balance_failed", err)
	}
	claim, err := s.deps.Transactions.GetByIdempotencyKey(dbc, userID, aggregates.DailyClaimKey(now))
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_balance_failed", err)
	}
	view.ClaimedToday = claim != nil
	return view, nil
}

func (s *waxService) Transactions(ctx context.Context, userID uuid.UUID, before time.Time, limit int) ([]*types.WaxTransaction, error) {
	if userID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", nil)
	}
	if limit <= 0 {
		limit = defaultTransactionPage
	}
	if limit > maxTransactionPage {
		limit = maxTransactionPage
	}
	rows, err := s.deps.Transactions.ListByUser(dbctx.Context{Ctx: ctx}, userID, before, limit)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "load_transactions_failed", err)
	}
	return rows, nil
}

// Reconcile returns the result alongside the error on a mismatch so callers can show both sums.
func (s *waxService) Reconcile(ctx context.Context, userID uuid.UUID) (domainagg.ReconcileResult, error) {
	if userID == uuid.Nil {
		return domainagg.ReconcileResult{}, apierr.New(http.StatusUnauthorized, "unauthorized", nil)
	}
	if s.deps.Ledger == nil {
		return domainagg.ReconcileResult{}, apierr.New(http.StatusInternalServerError, "wax_not_configured", fmt.Errorf("missing deps"))
	}
	res, err := s.deps.Ledger.Reconcile(ctx, userID)
	if err != nil {
		return res, aggregateAPIError(err, "wax_reconcile_failed")
	}
	return res, nil
}
