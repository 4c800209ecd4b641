package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainwax "github.com/yungbote/waxfeed-backend/internal/domain/wax"
)

var WaxLedgerAggregateContract = Contract{
	Name:             "Wax.LedgerAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns wax_balance and wax_transaction. Every write appends one transaction row and " +
		"moves the balance in the same DB transaction so balance == SUM(delta) holds.",
}

// WaxLedgerAggregate owns every write to a user's wax balance.
//
// Business outcomes (cap reached, insufficient balance, already claimed) are reported in results.
// Errors are *aggregates.Error with CodeValidation, CodeInvariantViolation (frozen or inconsistent
// account), CodeConflict, CodeRetryable or CodeInternal.
type WaxLedgerAggregate interface {
	Aggregate

	Earn(ctx context.Context, in EarnWaxInput) (EarnWaxResult, error)
	Spend(ctx context.Context, in SpendWaxInput) (SpendWaxResult, error)
	ClaimDaily(ctx context.Context, in ClaimDailyInput) (ClaimDailyResult, error)

	// Reconcile compares the cached balance with the ledger sum and freezes the account on mismatch.
	Reconcile(ctx context.Context, userID uuid.UUID) (ReconcileResult, error)
	// Unfreeze lifts a freeze; it refuses while the balance and ledger still disagree.
	Unfreeze(ctx context.Context, userID uuid.UUID) (ReconcileResult, error)
}

// WaxLimits are the tier-resolved numbers the aggregate enforces. Zero caps mean unlimited.
type WaxLimits struct {
	DailyCap         int64
	WeeklyCap        int64
	DailyClaimAmount int64
	StreakDays       int
	StreakBonus      int64
}

type EarnWaxInput struct {
	UserID         uuid.UUID
	Amount         int64
	Type           domainwax.TransactionType
	Reason         string
	Metadata       map[string]any
	IdempotencyKey string
	Limits         WaxLimits
	Now            time.Time
}

// Cap names for EarnWaxResult.CappedBy and ClaimDailyResult.CappedBy.
const (
	CapDaily  = "daily"
	CapWeekly = "weekly"
)

type EarnWaxResult struct {
	Earned        int64     `json:"earned"`
	Capped        bool      `json:"capped"`
	CappedBy      string    `json:"capped_by,omitempty"`
	Duplicate     bool      `json:"duplicate"`
	NewBalance    int64     `json:"new_balance"`
	TransactionID uuid.UUID `json:"transaction_id"`
}

const SpendErrorInsufficientBalance = "insufficient_balance"

type SpendWaxInput struct {
	UserID   uuid.UUID
	Amount   int64
	Type     domainwax.TransactionType
	Reason   string
	Metadata map[string]any
	Now      time.Time
}

type SpendWaxResult struct {
	Success       bool      `json:"success"`
	Spent         int64     `json:"spent"`
	NewBalance    int64     `json:"new_balance"`
	Error         string    `json:"error,omitempty"`
	TransactionID uuid.UUID `json:"transaction_id"`
}

type ClaimDailyInput struct {
	UserID uuid.UUID
	Limits WaxLimits
	Now    time.Time
}

type ClaimDailyResult struct {
	Earned         int64  `json:"earned"`
	StreakBonus    int64  `json:"streak_bonus,omitempty"`
	Streak         int    `json:"streak,omitempty"`
	AlreadyClaimed bool   `json:"already_claimed"`
	CappedBy       string `json:"capped_by,omitempty"`
	NewBalance     int64  `json:"new_balance"`
	Message        string `json:"message,omitempty"`
}

type ReconcileResult struct {
	UserID     uuid.UUID `json:"user_id"`
	Balance    int64     `json:"balance"`
	LedgerSum  int64     `json:"ledger_sum"`
	Consistent bool      `json:"consistent"`
	Frozen     bool      `json:"frozen"`
}
