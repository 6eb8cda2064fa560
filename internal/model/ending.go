package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Ending struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	GenreName         string    `gorm:"size:64;not null;index" json:"genre_name"`
	EndingType        string    `gorm:"size:64;not null" json:"ending_type"`
	EndingName        string    `gorm:"size:128;not null" json:"ending_name"`
	EndingDescription string    `gorm:"type:text;not null" json:"ending_description"`
	EndingDate        time.Time `gorm:"not null;index" json:"ending_date"`
	CreatedBy         string    `gorm:"size:64;not null;index" json:"created_by"`
	// Rating is the average of the ending's Rating rows, 0 when unrated.
	Rating float64 `gorm:"not null;default:0;index" json:"rating"`
}

func (e *Ending) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// OwnedBy reports whether username authored the ending.
func (e *Ending) OwnedBy(username string) bool {
	return username != "" && e.CreatedBy == username
}

// Highlights are the two singletons shown on the landing page.
type Highlights struct {
	Latest   *Ending `json:"latest,omitempty"`
	TopRated *Ending `json:"top_rated,omitempty"`
}
