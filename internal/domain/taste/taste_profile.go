package taste

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Fingerprint holds the computed columns shared by the current profile and its snapshots.
type Fingerprint struct {
	RatingCount int `gorm:"column:rating_count;not null" json:"rating_count"`

	GenreVector datatypes.JSON `gorm:"column:genre_vector" json:"genre_vector"`
	TopArtists  datatypes.JSON `gorm:"column:top_artists" json:"top_artists"`
	Decades     datatypes.JSON `gorm:"column:decades" json:"decades"`

	Diversity       float64 `gorm:"column:diversity;not null" json:"diversity"`
	Rarity          float64 `gorm:"column:rarity;not null" json:"rarity"`
	Adventurousness float64 `gorm:"column:adventurousness;not null" json:"adventurousness"`
	Polarity        float64 `gorm:"column:polarity;not null" json:"polarity"`
	MeanScore       float64 `gorm:"column:mean_score;not null" json:"mean_score"`
	StdDevScore     float64 `gorm:"column:stddev_score;not null" json:"stddev_score"`
	MedianScore     float64 `gorm:"column:median_score;not null" json:"median_score"`
	Skew            float64 `gorm:"column:skew;not null" json:"skew"`

	PrimaryArchetype   string  `gorm:"column:primary_archetype;index" json:"primary_archetype"`
	SecondaryArchetype string  `gorm:"column:secondary_archetype" json:"secondary_archetype,omitempty"`
	Confidence         float64 `gorm:"column:confidence;not null" json:"confidence"`
	Complete           bool    `gorm:"column:complete;not null" json:"complete"`

	ComputedAt time.Time `gorm:"column:computed_at;not null;index" json:"computed_at"`
}

// TasteProfile is the current fingerprint for a user. Recompute upserts on user_id.
type TasteProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	Fingerprint `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (TasteProfile) TableName() string { return "taste_profile" }

func (p *TasteProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TasteProfileSnapshot is an append-only copy of every recompute.
type TasteProfileSnapshot struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_taste_snapshot_user_time,priority:1" json:"user_id"`

	Fingerprint `gorm:"embedded"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_taste_snapshot_user_time,priority:2" json:"created_at"`
}

func (TasteProfileSnapshot) TableName() string { return "taste_profile_snapshot" }

func (s *TasteProfileSnapshot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
