package chat

import "errors"

var (
	// ErrNotConnected rejects get-or-create between users without an
	// accepted connection.
	ErrNotConnected = errors.New("users are not connected")
	// ErrNotParticipant covers both non-membership and unknown
	// conversation ids so callers cannot probe for conversations they
	// are not part of.
	ErrNotParticipant   = errors.New("not a participant of this conversation")
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")
	ErrEmptyMessage     = errors.New("message requires content or media")
	ErrContentTooLong   = errors.New("message content too long")
	ErrBadCursor        = errors.New("malformed pagination cursor")
)
