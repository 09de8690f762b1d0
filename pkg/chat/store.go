package chat

import (
	"errors"
	"strings"
	"time"

	"SportLink/models"

	"gorm.io/gorm"
)

const (
	// MaxContentLength bounds message text; longer sends are rejected.
	MaxContentLength = 4000

	DefaultPageSize = 20
	MaxPageSize     = 50
)

// Gate answers whether two users hold a mutually accepted connection.
// It is owned by the connections subsystem; messaging only consumes it.
type Gate interface {
	IsConnected(userA, userB uint) (bool, error)
}

// Store owns conversation, participant and message persistence. All
// mutation goes through its methods, each internally atomic, so unread
// counts derived from read-markers stay correct under any interleaving
// of sends and reads.
type Store struct {
	db   *gorm.DB
	gate Gate
}

func NewStore(db *gorm.DB, gate Gate) *Store {
	return &Store{db: db, gate: gate}
}

// SendInput carries the optional text and media of one send. At least one
// of Content and MediaURL must be present.
type SendInput struct {
	Content   string
	MediaURL  string
	MediaKey  string
	MediaType string
}

// Summary is one row of a conversation list page, enriched for display.
type Summary struct {
	Conversation models.Conversation
	OtherUserID  uint
	LastMessage  *models.Message
	UnreadCount  int64
}

func orderPair(a, b uint) (uint, uint) {
	if a < b {
		return a, b
	}
	return b, a
}

// GetOrCreate returns the conversation for the unordered user pair,
// creating it (with both participant rows, atomically) on first use.
/// The unique (user_lo, user_hi) index resolves concurrent creates: the
// loser re-reads and returns the winner's row with isNew=false.
func (s *Store) GetOrCreate(userA, userB uint) (*models.Conversation, bool, error) {
	if userA == userB {
		return nil, false, ErrSelfConversation
	}
	connected, err := s.gate.IsConnected(userA, userB)
	if err != nil {
		return nil, false, err
	}
	if !connected {
		return nil, false, ErrNotConnected
	}

	lo, hi := orderPair(userA, userB)

	var conv models.Conversation
	err = s.db.Where("user_lo = ? AND user_hi = ?", lo, hi).First(&conv).Error
	if err == nil {
		return &conv, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	now := time.Now()
	conv = models.Conversation{
		UserLo:         lo,
		UserHi:         hi,
		LastActivityAt: now,
		Participants: []models.Participant{
			{UserID: userA, JoinedAt: now},
			{UserID: userB, JoinedAt: now},
		},
	}
	if createErr := s.db.Create(&conv).Error; createErr != nil {
		var existing models.Conversation
		if err := s.db.Where("user_lo = ? AND user_hi = ?", lo, hi).First(&existing).Error; err != nil {
			return nil, false, createErr
		}
		return &existing, false, nil
	}
	return &conv, true, nil
}

func (s *Store) participant(conversationID, userID uint) (*models.Participant, error) {
	var p models.Participant
	err := s.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotParticipant
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// IsParticipant reports membership; unknown conversations fail the same
// way as non-membership.
func (s *Store) IsParticipant(conversationID, userID uint) error {
	_, err := s.participant(conversationID, userID)
	return err
}

// OtherParticipantID resolves the peer of userID in the conversation.
func (s *Store) OtherParticipantID(conversationID, userID uint) (uint, error) {
	var p models.Participant
	err := s.db.Where("conversation_id = ? AND user_id <> ?", conversationID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotParticipant
	}
	if err != nil {
		return 0, err
	}
	return p.UserID, nil
}

// Send appends a message and bumps the conversation's last activity in
// one transaction, so list ordering is never stale relative to the
// message's existence. Messages are immutable after this point.
func (s *Store) Send(conversationID, senderID uint, in SendInput) (*models.Message, error) {
	if _, err := s.participant(conversationID, senderID); err != nil {
		return nil, err
	}

	content := strings.TrimSpace(in.Content)
	mediaURL := strings.TrimSpace(in.MediaURL)
	if content == "" && mediaURL == "" {
		return nil, ErrEmptyMessage
	}
	if len(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		MediaURL:       mediaURL,
		MediaKey:       strings.TrimSpace(in.MediaKey),
		MediaType:      strings.TrimSpace(in.MediaType),
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			Update("last_activity_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Messages returns one page of history, newest first, with cursor as an
// exclusive upper bound on message id. Fetching the newest page (no
// cursor) advances the caller's read-marker; older pages do not.
func (s *Store) Messages(conversationID, userID uint, limit int, cursor uint) ([]models.Message, bool, error) {
	p, err := s.participant(conversationID, userID)
	if err != nil {
		return nil, false, err
	}
	limit = clampLimit(limit)

	q := s.db.Where("conversation_id = ?", conversationID)
	if cursor > 0 {
		q = q.Where("id < ?", cursor)
	}
	var msgs []models.Message
	if err := q.Order("id DESC").Limit(limit + 1).Find(&msgs).Error; err != nil {
		return nil, false, err
	}
	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}

	if cursor == 0 {
		if err := s.touchReadMarker(p.ID); err != nil {
			return nil, false, err
		}
	}
	return msgs, hasMore, nil
}

// MarkRead sets the caller's read-marker to now. Idempotent: repeating it
// only refreshes the timestamp.
func (s *Store) MarkRead(conversationID, userID uint) error {
	p, err := s.participant(conversationID, userID)
	if err != nil {
		return err
	}
	return s.touchReadMarker(p.ID)
}

func (s *Store) touchReadMarker(participantID uint) error {
	return s.db.Model(&models.Participant{}).
		Where("id = ?", participantID).
		Update("last_read_at", time.Now()).Error
}

// UnreadCount derives the count from immutable message timestamps
// compared against the read-marker; there is no mutable counter to
// drift under concurrent sends.
func (s *Store) UnreadCount(conversationID, userID uint) (int64, error) {
	p, err := s.participant(conversationID, userID)
	if err != nil {
		return 0, err
	}
	return s.unreadFor(p)
}

func (s *Store) unreadFor(p *models.Participant) (int64, error) {
	q := s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", p.ConversationID, p.UserID)
	if p.LastReadAt != nil {
		q = q.Where("created_at > ?", *p.LastReadAt)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// GlobalUnread sums unread counts across every conversation the user
// participates in, in a single derived query.
func (s *Store) GlobalUnread(userID uint) (int64, error) {
	var n int64
	err := s.db.Model(&models.Message{}).
		Joins("JOIN participants p ON p.conversation_id = messages.conversation_id AND p.user_id = ? AND p.deleted_at IS NULL", userID).
		Where("messages.sender_id <> ?", userID).
		Where("p.last_read_at IS NULL OR messages.created_at > p.last_read_at").
		Count(&n).Error
	return n, err
}

// RecentIncoming returns the newest incoming message per conversation
// across all of the user's conversations, most recent first, ties broken
// by message id descending.
func (s *Store) RecentIncoming(userID uint, limit int) ([]models.Message, error) {
	limit = clampLimit(limit)

	memberOf := s.db.Model(&models.Participant{}).
		Select("conversation_id").
		Where("user_id = ?", userID)
	latest := s.db.Model(&models.Message{}).
		Select("MAX(id)").
		Where("sender_id <> ?", userID).
		Where("conversation_id IN (?)", memberOf).
		Group("conversation_id")

	var msgs []models.Message
	err := s.db.Where("id IN (?)", latest).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// List returns one page of the user's conversations ordered by last
// activity descending, paged on the compound (lastActivityAt, id) key so
// a conversation bumped to the top mid-pagination cannot duplicate or
// hide rows on later pages. otherIn, when non-nil, restricts results to
// conversations whose peer is in the set (display-name search).
func (s *Store) List(userID uint, limit int, cursorAt time.Time, cursorID uint, otherIn []uint) ([]Summary, bool, error) {
	limit = clampLimit(limit)

	q := s.db.Model(&models.Conversation{}).
		Joins("JOIN participants me ON me.conversation_id = conversations.id AND me.user_id = ? AND me.deleted_at IS NULL", userID)
	if otherIn != nil {
		q = q.Joins("JOIN participants peer ON peer.conversation_id = conversations.id AND peer.user_id <> ? AND peer.deleted_at IS NULL", userID).
			Where("peer.user_id IN ?", otherIn)
	}
	if cursorID > 0 {
		q = q.Where("(conversations.last_activity_at < ? OR (conversations.last_activity_at = ? AND conversations.id < ?))",
			cursorAt, cursorAt, cursorID)
	}

	var convs []models.Conversation
	if err := q.Order("conversations.last_activity_at DESC, conversations.id DESC").
		Limit(limit + 1).
		Find(&convs).Error; err != nil {
		return nil, false, err
	}
	hasMore := len(convs) > limit
	if hasMore {
		convs = convs[:limit]
	}

	summaries := make([]Summary, 0, len(convs))
	for _, conv := range convs {
		other := conv.UserLo
		if other == userID {
			other = conv.UserHi
		}

		var page []models.Message
		if err := s.db.Where("conversation_id = ?", conv.ID).
			Order("id DESC").Limit(1).Find(&page).Error; err != nil {
			return nil, false, err
		}
		var last *models.Message
		if len(page) > 0 {
			last = &page[0]
		}

		p, err := s.participant(conv.ID, userID)
		if err != nil {
			return nil, false, err
		}
		unread, err := s.unreadFor(p)
		if err != nil {
			return nil, false, err
		}

		summaries = append(summaries, Summary{
			Conversation: conv,
			OtherUserID:  other,
			LastMessage:  last,
			UnreadCount:  unread,
		})
	}
	return summaries, hasMore, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
