package chat

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Conversation lists page on a compound (lastActivityAt, id) key because
// last-activity timestamps can collide. The cursor is opaque to clients:
// base64 of "<unix nanos>:<conversation id>". Message history pages on the
// bare message id and needs no encoding.

func EncodeListCursor(lastActivityAt time.Time, id uint) string {
	raw := fmt.Sprintf("%d:%d", lastActivityAt.UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeListCursor accepts the empty string as "first page".
func DecodeListCursor(s string) (time.Time, uint, error) {
	if s == "" {
		return time.Time{}, 0, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return time.Time{}, 0, ErrBadCursor
	}
	parts := strings.SplitN(string(b), ":", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, ErrBadCursor
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, 0, ErrBadCursor
	}
	id, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, 0, ErrBadCursor
	}
	return time.Unix(0, nanos), uint(id), nil
}

// ParseMessageCursor turns the client-supplied message cursor into an id
// bound. Empty means "newest page".
func ParseMessageCursor(s string) (uint, error) {
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrBadCursor
	}
	return uint(id), nil
}
