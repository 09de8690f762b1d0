package controllers

import (
	"net/http"
	"strconv"
	"time"

	"SportLink/middleware"
	"SportLink/pkg/chat"
	"SportLink/pkg/config"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RecentMessages returns the newest incoming message per conversation
// across all of the caller's conversations, for the notification
// preview dropdown.
func RecentMessages(store *chat.Store, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := currentUserID(c)
		limit, _ := strconv.Atoi(c.Query("limit"))

		msgs, err := store.RecentIncoming(uid, limit)
		if err != nil {
			abortChatErr(c, err)
			return
		}

		rows := make([]gin.H, 0, len(msgs))
		for i := range msgs {
			sender, err := publicIdentity(db, msgs[i].SenderID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
				return
			}
			row := messageJSON(&msgs[i])
			row["sender"] = sender
			rows = append(rows, row)
		}
		c.JSON(http.StatusOK, gin.H{"messages": rows})
	}
}

// UnreadCount returns the caller's global unread badge count.
func UnreadCount(store *chat.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := currentUserID(c)
		n, err := store.GlobalUnread(uid)
		if err != nil {
			abortChatErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": n})
	}
}

// UnreadCountStream pushes the global unread count over SSE once per
// tick until the client disconnects. It is a polling convenience only:
// no ordering or delivery guarantee beyond "eventually reflects a recent
// count". Streams per user are bounded by the middleware slot.
func UnreadCountStream(store *chat.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no") // nginx buffering off

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.String(http.StatusInternalServerError, "streaming unsupported")
			return
		}

		uid := currentUserID(c)
		raw, _ := c.Get(middleware.ContextUserIDKey)
		uidStr, _ := raw.(string)
		release := middleware.AcquireUserSlot(uidStr)
		defer release()

		emit := func() bool {
			n, err := store.GlobalUnread(uid)
			if err != nil {
				return false
			}
			if err := sse.Encode(c.Writer, sse.Event{
				Event: "unread",
				Data:  map[string]any{"count": n},
			}); err != nil {
				return false
			}
			flusher.Flush()
			return true
		}

		if !emit() {
			return
		}
		ticker := time.NewTicker(time.Duration(config.UnreadStreamTickSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-c.Request.Context().Done():
				return
			case <-ticker.C:
				if !emit() {
					return
				}
			}
		}
	}
}
