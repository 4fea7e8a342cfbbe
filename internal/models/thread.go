package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Thread is the metadata record for one conversation session. The message
// content itself lives in an external conversational-state engine keyed by
// the thread ID; this record only guarantees that the ID stays a valid key
// for as long as the row exists.
type Thread struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	// Title is nil until the caller derives one (usually from the first message).
	Title *string `json:"title"`
	// Preview holds a short excerpt of the latest message, maintained by the caller.
	Preview   *string   `json:"preview"`
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt orders a user's thread list by recency.
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (t *Thread) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
