package music

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Album metadata is ingested elsewhere; this service reads it to build taste profiles.
type Album struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Artist      string         `gorm:"column:artist;not null;index" json:"artist"`
	ReleaseYear int            `gorm:"column:release_year" json:"release_year"`
	Genres      datatypes.JSON `gorm:"column:genres" json:"genres"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Album) TableName() string { return "album" }

func (a *Album) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if len(a.Genres) == 0 {
		a.Genres = datatypes.JSON([]byte("[]"))
	}
	return nil
}

// GenreTags decodes the genre column. Malformed JSON yields no tags.
func (a *Album) GenreTags() []string {
	if a == nil || len(a.Genres) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(a.Genres, &out); err != nil {
		return nil
	}
	return out
}

// GenresJSON encodes tags for the genre column.
func GenresJSON(tags ...string) datatypes.JSON {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return datatypes.JSON(b)
}
