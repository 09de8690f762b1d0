package models

import "gorm.io/gorm"

// Message is an immutable row in the conversation's append-only log.
// The auto-increment ID doubles as the pagination cursor; within a
// conversation ids are monotonically increasing in persistence order.
// A message must carry content or a media reference (or both).
type Message struct {
	gorm.Model
	ConversationID uint   `gorm:"index;not null"`
	SenderID       uint   `gorm:"index;not null"`
	Content        string `gorm:"type:text"`
	MediaURL       string `gorm:"size:500"`
	MediaKey       string `gorm:"size:255"`
	MediaType      string `gorm:"size:50"`
}
