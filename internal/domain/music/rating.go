package music

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinScore = 1.0
	MaxScore = 5.0
)

// Rating is one user's score (and optional review text) for one album.
// Edits overwrite the row and bump UpdatedAt. ReviewedAt is set the first time text appears
// and never moves afterwards; First Spin order is based on it.
type Rating struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_album,priority:1" json:"user_id"`
	AlbumID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_album,priority:2;index" json:"album_id"`
	Score   float64   `gorm:"column:score;not null" json:"score"`
	Text    string    `gorm:"column:text;type:text" json:"text"`

	ReviewedAt *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}

func (Rating) TableName() string { return "rating" }

func (r *Rating) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	if r.ReviewedAt == nil && r.Text != "" {
		at := r.CreatedAt
		r.ReviewedAt = &at
	}
	return nil
}

// ValidScore reports whether s is within range and on a half-point step.
func ValidScore(s float64) bool {
	if s < MinScore || s > MaxScore {
		return false
	}
	doubled := s * 2
	return doubled == float64(int(doubled))
}
