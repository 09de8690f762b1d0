package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is a strictly two-party messaging thread. The pair is stored
// normalized (UserLo < UserHi) so the unique index makes get-or-create
// race-free: the loser of a concurrent create hits the constraint and
// re-reads the surviving row.
type Conversation struct {
	gorm.Model
	UserLo         uint      `gorm:"not null;uniqueIndex:idx_conversation_pair"`
	UserHi         uint      `gorm:"not null;uniqueIndex:idx_conversation_pair"`
	LastActivityAt time.Time `gorm:"not null;index"`

	Participants []Participant `gorm:"constraint:OnDelete:CASCADE"`
	Messages     []Message     `gorm:"constraint:OnDelete:CASCADE"`
}

// Participant is one user's membership in a conversation and carries that
// user's personal read-marker. LastReadAt == nil means never read.
type Participant struct {
	gorm.Model
	ConversationID uint       `gorm:"not null;uniqueIndex:idx_participant_member"`
	UserID         uint       `gorm:"not null;uniqueIndex:idx_participant_member;index"`
	JoinedAt       time.Time  `gorm:"not null"`
	LastReadAt     *time.Time
}
