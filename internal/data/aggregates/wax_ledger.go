package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/waxfeed-backend/internal/data/repos"
	types "github.com/yungbote/waxfeed-backend/internal/domain"
	domainagg "github.com/yungbote/waxfeed-backend/internal/domain/aggregates"
	domainwax "github.com/yungbote/waxfeed-backend/internal/domain/wax"
	"github.com/yungbote/waxfeed-backend/internal/observability"
	"github.com/yungbote/waxfeed-backend/internal/platform/ctxutil"
	"github.com/yungbote/waxfeed-backend/internal/platform/dbctx"
)

const (
	waxBalanceTable = "wax_balance"

	dailyClaimKeyPrefix  = "daily_claim:"
	streakBonusKeyPrefix = "streak_bonus:"
	claimDayLayout       = "2006-01-02"

	// Streaks are counted back at most this far.
	maxStreakLookbackDays = 371

	DefaultLedgerRetries     = 3
	DefaultLedgerLockTimeout = 2 * time.Second

	// Metadata key holding the id of the request that wrote a ledger row.
	MetadataRequestID = "request_id"
)

var cappedTypes = []types.WaxTransactionType{
	domainwax.TypeDailyClaim,
	domainwax.TypeReview,
	domainwax.TypeFirstSpin,
	domainwax.TypeBadge,
	domainwax.TypeStreakBonus,
}

// CappedTypes lists the credit types that count toward daily and weekly caps.
func CappedTypes() []types.WaxTransactionType {
	return append([]types.WaxTransactionType(nil), cappedTypes...)
}

type WaxLedgerAggregateDeps struct {
	Base BaseDeps

	Balances     repos.WaxBalanceRepo
	Transactions repos.WaxTransactionRepo

	Metrics *observability.Metrics
	Clock   func() time.Time
}

type waxLedgerAggregate struct {
	deps WaxLedgerAggregateDeps
}

func NewWaxLedgerAggregate(deps WaxLedgerAggregateDeps) domainagg.WaxLedgerAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &waxLedgerAggregate{deps: deps}
}

func (a *waxLedgerAggregate) Contract() domainagg.Contract {
	return domainagg.WaxLedgerAggregateContract
}

// DailyClaimKey is the idempotency key that makes a claim at-most-once per UTC day.
func DailyClaimKey(now time.Time) string {
	return dailyClaimKeyPrefix + now.UTC().Format(claimDayLayout)
}

// StartOfUTCDay truncates t to midnight UTC.
func StartOfUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfISOWeek returns Monday 00:00 UTC of t's ISO week.
func StartOfISOWeek(t time.Time) time.Time {
	day := StartOfUTCDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func (a *waxLedgerAggregate) now(in time.Time) time.Time {
	if !in.IsZero() {
		return in.UTC()
	}
	return a.deps.Clock().UTC()
}

func (a *waxLedgerAggregate) checkDeps(op string) error {
	if a.deps.Balances == nil || a.deps.Transactions == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "wax ledger repos not configured", nil)
	}
	return nil
}

func (a *waxLedgerAggregate) Earn(ctx context.Context, in domainagg.EarnWaxInput) (domainagg.EarnWaxResult, error) {
	const op = "Wax.Ledger.Earn"
	var out domainagg.EarnWaxResult

	if err := a.checkDeps(op); err != nil {
		return out, err
	}
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if err := RequirePositiveAmount(in.Amount); err != nil {
		return out, MapError(op, err)
	}
	if !in.Type.IsCredit() {
		return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown earn type %q", in.Type), nil)
	}
	metadata, err := encodeMetadata(ctx, in.Metadata)
	if err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "metadata must be JSON encodable", err)
	}
	now := a.now(in.Now)
	key := strings.TrimSpace(in.IdempotencyKey)

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.EarnWaxResult{}
		bal, err := a.lockBalance(dbc, op, in.UserID)
		if err != nil {
			return err
		}
		out.NewBalance = bal.Balance

		if key != "" {
			existing, err := a.deps.Transactions.GetByIdempotencyKey(dbc, in.UserID, key)
			if err != nil {
				return err
			}
			if existing != nil {
				out.Duplicate = true
				out.TransactionID = existing.ID
				return nil
			}
		}

		earned := in.Amount
		if in.Type.Capped() {
			remaining, bound, err := a.capRemaining(dbc, in.UserID, in.Limits, now)
			if err != nil {
				return err
			}
			if earned > remaining {
				earned = remaining
				out.Capped = true
				out.CappedBy = bound
			}
		}
		if earned <= 0 {
			out.Capped = true
			return nil
		}

		row, err := a.appendAndApply(dbc, op, bal, appendInput{
			Delta:    earned,
			Type:     in.Type,
			Reason:   in.Reason,
			Metadata: metadata,
			Key:      key,
			At:       now,
		})
		if err != nil {
			return err
		}
		out.Earned = earned
		out.NewBalance = bal.Balance
		out.TransactionID = row.ID
		return nil
	})
	if err != nil {
		return domainagg.EarnWaxResult{}, err
	}
	a.deps.Metrics.AddWax(string(in.Type), out.Earned)
	if out.Capped {
		a.deps.Metrics.IncWaxCapped(string(in.Type))
	}
	return out, nil
}

func (a *waxLedgerAggregate) Spend(ctx context.Context, in domainagg.SpendWaxInput) (domainagg.SpendWaxResult, error) {
	const op = "Wax.Ledger.Spend"
	var out domainagg.SpendWaxResult

	if err := a.checkDeps(op); err != nil {
		return out, err
	}
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if err := RequirePositiveAmount(in.Amount); err != nil {
		return out, MapError(op, err)
	}
	if !in.Type.IsDebit() {
		return out, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown spend type %q", in.Type), nil)
	}
	metadata, err := encodeMetadata(ctx, in.Metadata)
	if err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "metadata must be JSON encodable", err)
	}
	now := a.now(in.Now)

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.SpendWaxResult{}
		bal, err := a.lockBalance(dbc, op, in.UserID)
		if err != nil {
			return err
		}
		out.NewBalance = bal.Balance
		if bal.Balance < in.Amount {
			out.Error = domainagg.SpendErrorInsufficientBalance
			return nil
		}
		row, err := a.appendAndApply(dbc, op, bal, appendInput{
			Delta:    -in.Amount,
			Type:     in.Type,
			Reason:   in.Reason,
			Metadata: metadata,
			At:       now,
		})
		if err != nil {
			return err
		}
		out.Success = true
		out.Spent = in.Amount
		out.NewBalance = bal.Balance
		out.TransactionID = row.ID
		return nil
	})
	if err != nil {
		return domainagg.SpendWaxResult{}, err
	}
	a.deps.Metrics.AddWax(string(in.Type), -out.Spent)
	return out, nil
}

func (a *waxLedgerAggregate) ClaimDaily(ctx context.Context, in domainagg.ClaimDailyInput) (domainagg.ClaimDailyResult, error) {
	const op = "Wax.Ledger.ClaimDaily"
	var out domainagg.ClaimDailyResult

	if err := a.checkDeps(op); err != nil {
		return out, err
	}
	if in.UserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	if in.Limits.DailyClaimAmount <= 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "daily claim amount must be > 0", nil)
	}
	now := a.now(in.Now)
	key := DailyClaimKey(now)
	day := StartOfUTCDay(now)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.ClaimDailyResult{}
		bal, err := a.lockBalance(dbc, op, in.UserID)
		if err != nil {
			return err
		}
		out.NewBalance = bal.Balance

		existing, err := a.deps.Transactions.GetByIdempotencyKey(dbc, in.UserID, key)
		if err != nil {
			return err
		}
		if existing != nil {
			out.AlreadyClaimed = true
			out.Message = "Already claimed today"
			return nil
		}

		remaining, bound, err := a.capRemaining(dbc, in.UserID, in.Limits, now)
		if err != nil {
			return err
		}
		amount := min(in.Limits.DailyClaimAmount, remaining)
		if amount <= 0 {
			out.CappedBy = bound
			if bound == domainagg.CapWeekly {
				out.Message = "Weekly earning cap reached"
			} else {
				out.Message = "Daily earning cap reached"
			}
			return nil
		}
		if _, err := a.appendAndApply(dbc, op, bal, appendInput{
			Delta:    amount,
			Type:     domainwax.TypeDailyClaim,
			Reason:   "Daily claim",
			Metadata: mustMetadata(ctx, nil),
			Key:      key,
			At:       now,
		}); err != nil {
			return err
		}
		out.Earned = amount
		out.NewBalance = bal.Balance
		out.Message = fmt.Sprintf("Claimed %d wax", amount)

		if in.Limits.StreakDays <= 1 || in.Limits.StreakBonus <= 0 {
			return nil
		}
		streak, err := a.claimStreak(dbc, in.UserID, day)
		if err != nil {
			return err
		}
		out.Streak = streak
		if streak%in.Limits.StreakDays != 0 {
			return nil
		}
		bonus := min(in.Limits.StreakBonus, remaining-amount)
		if bonus <= 0 {
			return nil
		}
		if _, err := a.appendAndApply(dbc, op, bal, appendInput{
			Delta:    bonus,
			Type:     domainwax.TypeStreakBonus,
			Reason:   fmt.Sprintf("%d day claim streak", streak),
			Metadata: mustMetadata(ctx, map[string]any{"streak": streak}),
			Key:      streakBonusKeyPrefix + day.Format(claimDayLayout),
			At:       now,
		}); err != nil {
			return err
		}
		out.StreakBonus = bonus
		out.NewBalance = bal.Balance
		out.Message = fmt.Sprintf("Claimed %d wax plus a %d wax streak bonus", amount, bonus)
		return nil
	})
	if err != nil {
		return domainagg.ClaimDailyResult{}, err
	}
	a.deps.Metrics.AddWax(string(domainwax.TypeDailyClaim), out.Earned)
	a.deps.Metrics.AddWax(string(domainwax.TypeStreakBonus), out.StreakBonus)
	return out, nil
}

func (a *waxLedgerAggregate) Reconcile(ctx context.Context, userID uuid.UUID) (domainagg.ReconcileResult, error) {
	const op = "Wax.Ledger.Reconcile"
	out := domainagg.ReconcileResult{UserID: userID}

	if err := a.checkDeps(op); err != nil {
		return out, err
	}
	if userID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.ReconcileResult{UserID: userID}
		bal, err := a.ensureAndLock(dbc, op, userID)
		if err != nil {
			return err
		}
		sum, err := a.deps.Transactions.SumDelta(dbc, userID)
		if err != nil {
			return err
		}
		out.Balance = bal.Balance
		out.LedgerSum = sum
		out.Consistent = bal.Balance == sum
		out.Frozen = bal.Frozen
		if out.Consistent || bal.Frozen {
			return nil
		}
		reason := fmt.Sprintf("balance %d does not match ledger sum %d", bal.Balance, sum)
		if err := a.deps.Balances.SetFrozen(dbc, userID, true, reason); err != nil {
			return err
		}
		out.Frozen = true
		return nil
	})
	if err != nil {
		return domainagg.ReconcileResult{UserID: userID}, err
	}
	if !out.Consistent {
		a.deps.Base.Log.Error("wax ledger mismatch, account frozen",
			"user_id", userID, "balance", out.Balance, "ledger_sum", out.LedgerSum)
		return out, domainagg.NewError(domainagg.CodeInvariantViolation, op,
			fmt.Sprintf("balance %d does not match ledger sum %d", out.Balance, out.LedgerSum), nil)
	}
	return out, nil
}

// Unfreeze lifts a freeze once the balance matches the ledger again.
func (a *waxLedgerAggregate) Unfreeze(ctx context.Context, userID uuid.UUID) (domainagg.ReconcileResult, error) {
	const op = "Wax.Ledger.Unfreeze"
	out := domainagg.ReconcileResult{UserID: userID}

	if err := a.checkDeps(op); err != nil {
		return out, err
	}
	if userID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing user_id", nil)
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.ReconcileResult{UserID: userID}
		bal, err := a.ensureAndLock(dbc, op, userID)
		if err != nil {
			return err
		}
		sum, err := a.deps.Transactions.SumDelta(dbc, userID)
		if err != nil {
			return err
		}
		out.Balance = bal.Balance
		out.LedgerSum = sum
		out.Consistent = bal.Balance == sum
		out.Frozen = bal.Frozen
		if !out.Consistent {
			return InvariantError(fmt.Sprintf("balance %d still differs from ledger sum %d", bal.Balance, sum))
		}
		if !bal.Frozen {
			return nil
		}
		if err := a.deps.Balances.SetFrozen(dbc, userID, false, ""); err != nil {
			return err
		}
		out.Frozen = false
		return nil
	})
	if err != nil {
		return domainagg.ReconcileResult{UserID: userID}, err
	}
	return out, nil
}

func (a *waxLedgerAggregate) ensureAndLock(dbc dbctx.Context, op string, userID uuid.UUID) (*types.WaxBalance, error) {
	if err := a.deps.Balances.EnsureExists(dbc, userID); err != nil {
		return nil, err
	}
	bal, err := a.deps.Balances.LockByUserID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if bal == nil || bal.ID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "wax balance row missing after ensure", nil)
	}
	return bal, nil
}

// lockBalance locks the row for a write and refuses frozen accounts.
func (a *waxLedgerAggregate) lockBalance(dbc dbctx.Context, op string, userID uuid.UUID) (*types.WaxBalance, error) {
	bal, err := a.ensureAndLock(dbc, op, userID)
	if err != nil {
		return nil, err
	}
	if bal.Frozen {
		return nil, domainagg.NewError(domainagg.CodeInvariantViolation, op,
			"wax account is frozen pending reconciliation", nil)
	}
	return bal, nil
}

// capRemaining is how much more capped credit the user may receive at now, and which cap is the
// tighter one ("" when neither applies). The weekly cap wins a tie.
func (a *waxLedgerAggregate) capRemaining(dbc dbctx.Context, userID uuid.UUID, limits domainagg.WaxLimits, now time.Time) (int64, string, error) {
	remaining := int64(math.MaxInt64)
	bound := ""
	if limits.DailyCap > 0 {
		used, err := a.deps.Transactions.SumCreditsSince(dbc, userID, StartOfUTCDay(now), cappedTypes)
		if err != nil {
			return 0, "", err
		}
		remaining, bound = limits.DailyCap-used, domainagg.CapDaily
	}
	if limits.WeeklyCap > 0 {
		used, err := a.deps.Transactions.SumCreditsSince(dbc, userID, StartOfISOWeek(now), cappedTypes)
		if err != nil {
			return 0, "", err
		}
		if left := limits.WeeklyCap - used; left <= remaining {
			remaining, bound = left, domainagg.CapWeekly
		}
	}
	return max(remaining, 0), bound, nil
}

// claimStreak counts consecutive claimed days ending at today (inclusive).
func (a *waxLedgerAggregate) claimStreak(dbc dbctx.Context, userID uuid.UUID, today time.Time) (int, error) {
	since := today.AddDate(0, 0, -(maxStreakLookbackDays - 1))
	keys, err := a.deps.Transactions.ListKeysSince(dbc, userID, domainwax.TypeDailyClaim, since)
	if err != nil {
		return 0, err
	}
	claimed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		claimed[strings.TrimPrefix(k, dailyClaimKeyPrefix)] = struct{}{}
	}

	streak := 0
	for d := today; streak < maxStreakLookbackDays; d = d.AddDate(0, 0, -1) {
		if _, ok := claimed[d.Format(claimDayLayout)]; !ok {
			break
		}
		streak++
	}
	return streak, nil
}

type appendInput struct {
	Delta    int64
	Type     types.WaxTransactionType
	Reason   string
	Metadata datatypes.JSON
	Key      string
	At       time.Time
}

// appendAndApply writes one ledger row and moves the locked balance by the same delta.
// bal is updated in place so several rows can be appended in one attempt.
func (a *waxLedgerAggregate) appendAndApply(dbc dbctx.Context, op string, bal *types.WaxBalance, in appendInput) (*types.WaxTransaction, error) {
	next := bal.Balance + in.Delta
	if next < 0 {
		return nil, InvariantError(fmt.Sprintf("%s would leave balance at %d", op, next))
	}
	row := &types.WaxTransaction{
		UserID:    bal.UserID,
		Delta:     in.Delta,
		Type:      in.Type,
		Reason:    strings.TrimSpace(in.Reason),
		Metadata:  in.Metadata,
		CreatedAt: in.At.UTC(),
	}
	if in.Key != "" {
		key := in.Key
		row.IdempotencyKey = &key
	}
	if _, err := a.deps.Transactions.Create(dbc, []*types.WaxTransaction{row}); err != nil {
		return nil, err
	}
	ok, err := a.deps.Base.CASGuard.UpdateByVersion(dbc, waxBalanceTable, bal.ID, bal.Version, map[string]any{
		"balance":    next,
		"version":    bal.Version + 1,
		"updated_at": in.At.UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := RequireCASSuccess(ok, "wax balance version changed"); err != nil {
		return nil, err
	}
	bal.Balance = next
	bal.Version++
	return row, nil
}

// encodeMetadata copies m and stamps the request id from ctx unless the caller set one.
func encodeMetadata(ctx context.Context, m map[string]any) (datatypes.JSON, error) {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	if td := ctxutil.GetTraceData(ctx); td != nil && td.RequestID != "" {
		if _, set := out[MetadataRequestID]; !set {
			out[MetadataRequestID] = td.RequestID
		}
	}
	if len(out) == 0 {
		return datatypes.JSON([]byte("{}")), nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func mustMetadata(ctx context.Context, m map[string]any) datatypes.JSON {
	b, err := encodeMetadata(ctx, m)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return b
}
