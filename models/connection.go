package models

import "gorm.io/gorm"

const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
)

// Connection is a directed request between two users that becomes
// bidirectional once accepted. Messaging requires the accepted state.
// The normalized pair carries a unique index so at most one connection
// row exists per unordered pair.
type Connection struct {
	gorm.Model
	RequesterID uint   `gorm:"not null;index"`
	RecipientID uint   `gorm:"not null;index"`
	UserLo      uint   `gorm:"not null;uniqueIndex:idx_connection_pair"`
	UserHi      uint   `gorm:"not null;uniqueIndex:idx_connection_pair"`
	Status      string `gorm:"size:20;not null"`
}
