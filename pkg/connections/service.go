package connections

import (
	"errors"
	"time"

	"SportLink/models"

	"gorm.io/gorm"
)

var (
	ErrSelfConnection = errors.New("cannot connect with yourself")
	ErrAlreadyExists  = errors.New("connection already exists for this pair")
	ErrNotFound       = errors.New("connection not found")
	ErrNotRecipient   = errors.New("only the recipient can accept a request")
)

// Service owns the connection request/accept state machine:
// none -> pending (requester -> recipient) -> accepted.
// Its IsConnected method is the gate messaging authorization consumes.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func orderPair(a, b uint) (uint, uint) {
	if a < b {
		return a, b
	}
	return b, a
}

// IsConnected reports whether the pair holds an accepted connection.
func (s *Service) IsConnected(userA, userB uint) (bool, error) {
	if userA == userB {
		return false, nil
	}
	lo, hi := orderPair(userA, userB)
	var n int64
	err := s.db.Model(&models.Connection{}).
		Where("user_lo = ? AND user_hi = ? AND status = ?", lo, hi, models.ConnectionAccepted).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Request creates a pending connection from requester to recipient. The
// unique pair index rejects a second request in either direction.
func (s *Service) Request(requesterID, recipientID uint) (*models.Connection, error) {
	if requesterID == recipientID {
		return nil, ErrSelfConnection
	}
	lo, hi := orderPair(requesterID, recipientID)

	var existing models.Connection
	err := s.db.Where("user_lo = ? AND user_hi = ?", lo, hi).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conn := &models.Connection{
		RequesterID: requesterID,
		RecipientID: recipientID,
		UserLo:      lo,
		UserHi:      hi,
		Status:      models.ConnectionPending,
	}
	if createErr := s.db.Create(conn).Error; createErr != nil {
		// lost a race with the opposite-direction request
		if err := s.db.Where("user_lo = ? AND user_hi = ?", lo, hi).First(&existing).Error; err == nil {
			return nil, ErrAlreadyExists
		}
		return nil, createErr
	}
	return conn, nil
}

// Accept moves a pending request to accepted. Only the recipient of the
// request may accept it; accepting twice is a no-op.
func (s *Service) Accept(connectionID, userID uint) error {
	var conn models.Connection
	err := s.db.First(&conn, connectionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if conn.RecipientID != userID {
		return ErrNotRecipient
	}
	if conn.Status == models.ConnectionAccepted {
		return nil
	}
	return s.db.Model(&conn).
		Updates(map[string]any{"status": models.ConnectionAccepted, "updated_at": time.Now()}).Error
}

// ListFor returns all connections (pending and accepted) involving the
// user, most recent first.
func (s *Service) ListFor(userID uint) ([]models.Connection, error) {
	var out []models.Connection
	err := s.db.Where("requester_id = ? OR recipient_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&out).Error
	return out, err
}
