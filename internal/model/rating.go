package model

import "time"

// Rating is one user's score for one ending. A user re-rating overwrites the score.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EndingID  string    `gorm:"size:36;not null;uniqueIndex:idx_rating_ending_user" json:"ending_id"`
	Username  string    `gorm:"size:64;not null;uniqueIndex:idx_rating_ending_user" json:"username"`
	Score     int       `gorm:"not null" json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
