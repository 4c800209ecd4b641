package wax

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TypeDailyClaim  TransactionType = "daily_claim"
	TypeReview      TransactionType = "review"
	TypeFirstSpin   TransactionType = "first_spin"
	TypeBadge       TransactionType = "badge"
	TypeStreakBonus TransactionType = "streak_bonus"
	TypePurchase    TransactionType = "purchase"
	TypeAdminGrant  TransactionType = "admin_grant"
	TypeRefund      TransactionType = "refund"

	TypeBoost     TransactionType = "boost"
	TypeStoreItem TransactionType = "store_item"
	TypeTip       TransactionType = "tip"
)

// IsCredit reports whether t is a known earning type.
func (t TransactionType) IsCredit() bool {
	switch t {
	case TypeDailyClaim, TypeReview, TypeFirstSpin, TypeBadge, TypeStreakBonus,
		TypePurchase, TypeAdminGrant, TypeRefund:
		return true
	}
	return false
}

// IsDebit reports whether t is a known spending type.
func (t TransactionType) IsDebit() bool {
	switch t {
	case TypeBoost, TypeStoreItem, TypeTip:
		return true
	}
	return false
}

// Capped reports whether credits of this type count against the tier's earning caps.
func (t TransactionType) Capped() bool {
	switch t {
	case TypePurchase, TypeAdminGrant, TypeRefund:
		return false
	}
	return t.IsCredit()
}

// WaxBalance is a cached projection of SUM(delta) over the user's transactions.
type WaxBalance struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Balance      int64     `gorm:"column:balance;not null;default:0" json:"balance"`
	Version      int64     `gorm:"column:version;not null;default:0" json:"version"`
	Frozen       bool      `gorm:"column:frozen;not null;default:false" json:"frozen"`
	FrozenReason string    `gorm:"column:frozen_reason" json:"frozen_reason,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (WaxBalance) TableName() string { return "wax_balance" }

func (b *WaxBalance) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// WaxTransaction is append-only. Credits carry a positive delta and debits a negative one.
type WaxTransaction struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_wax_tx_user_time,priority:1;uniqueIndex:idx_wax_tx_user_idem,priority:1" json:"user_id"`
	Delta          int64           `gorm:"column:delta;not null" json:"delta"`
	Type           TransactionType `gorm:"column:type;not null;index" json:"type"`
	Reason         string          `gorm:"column:reason" json:"reason,omitempty"`
	Metadata       datatypes.JSON  `gorm:"column:metadata" json:"metadata,omitempty"`
	IdempotencyKey *string         `gorm:"column:idempotency_key;uniqueIndex:idx_wax_tx_user_idem,priority:2" json:"idempotency_key,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_wax_tx_user_time,priority:2" json:"created_at"`
}

func (WaxTransaction) TableName() string { return "wax_transaction" }

func (t *WaxTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if len(t.Metadata) == 0 {
		t.Metadata = datatypes.JSON([]byte("{}"))
	}
	return nil
}
