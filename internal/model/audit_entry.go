package model

import "time"

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
	ActionRated   = "rated"
)

// EndingEvent describes a mutation of an ending. It travels over RabbitMQ and the live feed.
type EndingEvent struct {
	Action     string    `json:"action"`
	EndingID   string    `json:"ending_id"`
	EndingName string    `json:"ending_name,omitempty"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}

type AuditEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Action     string    `gorm:"size:16;not null;index" json:"action"`
	EndingID   string    `gorm:"size:36;not null;index" json:"ending_id"`
	Actor      string    `gorm:"size:64;not null" json:"actor"`
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}
