package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tier is the subscription level. It is written by the billing integration and only read here.
type Tier string

const (
	TierFree Tier = "free"
	TierPlus Tier = "plus"
	TierPro  Tier = "pro"
)

// ParseTier maps unknown or empty values to TierFree.
func ParseTier(raw string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierPlus:
		return TierPlus
	case TierPro:
		return TierPro
	default:
		return TierFree
	}
}

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username string    `gorm:"uniqueIndex;not null;column:username" json:"username"`
	Tier     Tier      `gorm:"column:tier;not null;default:'free'" json:"tier"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Tier == "" {
		u.Tier = TierFree
	}
	return nil
}

const BadgeFirstSpin = "first_spin"

// UserBadge records a badge award. FirstSpin badges are scoped to an album.
type UserBadge struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge_scope,priority:1" json:"user_id"`
	Badge    string    `gorm:"column:badge;not null;uniqueIndex:idx_user_badge_scope,priority:2" json:"badge"`
	AlbumID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge_scope,priority:3" json:"album_id"`
	Position int       `gorm:"column:position;not null" json:"position"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (UserBadge) TableName() string { return "user_badge" }

func (b *UserBadge) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
