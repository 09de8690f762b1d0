package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"SportLink/models"
	"SportLink/pkg/chat"
	"SportLink/pkg/realtime"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func chatErrStatus(err error) int {
	switch {
	case errors.Is(err, chat.ErrNotParticipant), errors.Is(err, chat.ErrNotConnected):
		return http.StatusForbidden
	case errors.Is(err, chat.ErrSelfConversation),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrContentTooLong),
		errors.Is(err, chat.ErrBadCursor):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortChatErr(c *gin.Context, err error) {
	status := chatErrStatus(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"msg": "db error"})
		return
	}
	c.JSON(status, gin.H{"msg": err.Error()})
}

func conversationParam(c *gin.Context) uint {
	cid, _ := strconv.Atoi(c.Param("conversation_id"))
	return uint(cid)
}

// GetOrCreateConversation opens (or returns) the conversation between the
// caller and the requested user. Idempotent on the pair: repeated or
// concurrent calls from both sides land on the same conversation.
func GetOrCreateConversation(store *chat.Store, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := currentUserID(c)

		var body struct {
			UserID uint `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.UserID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "user_id is required"})
			return
		}

		conv, isNew, err := store.GetOrCreate(uid, body.UserID)
		if err != nil {
			abortChatErr(c, err)
			return
		}

		other, err := publicIdentity(db, body.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		status := http.StatusOK
		if isNew {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{
			"id":         conv.ID,
			"other_user": other,
			"is_new":     isNew,
		})
	}
}

// ListConversations returns one page of the caller's conversations,
// newest activity first, each enriched with the peer's identity, a
// last-message preview and the caller's unread count.
func ListConversations(store *chat.Store, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := currentUserID(c)

		limit, _ := strconv.Atoi(c.Query("limit"))
		cursorAt, cursorID, err := chat.DecodeListCursor(strings.TrimSpace(c.Query("cursor")))
		if err != nil {
			abortChatErr(c, err)
			return
		}

		var otherIn []uint
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			pat := "%" + strings.ToLower(search) + "%"
			if err := db.Model(&models.User{}).
				Where("LOWER(display_name) LIKE ? OR LOWER(username) LIKE ?", pat, pat).
				Pluck("id", &otherIn).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
				return
			}
			if len(otherIn) == 0 {
				c.JSON(http.StatusOK, gin.H{"conversations": []gin.H{}, "next_cursor": "", "has_more": false})
				return
			}
		}

		summaries, hasMore, err := store.List(uid, limit, cursorAt, cursorID, otherIn)
		if err != nil {
			abortChatErr(c, err)
			return
		}

		rows := make([]gin.H, 0, len(summaries))
		for _, s := range summaries {
			other, err := publicIdentity(db, s.OtherUserID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
				return
			}
			row := gin.H{
				"id":               s.Conversation.ID,
				"other_user":       other,
				"unread_count":     s.UnreadCount,
				"last_activity_at": s.Conversation.LastActivityAt,
			}
			if s.LastMessage != nil {
				row["last_message"] = messageJSON(s.LastMessage)
			}
			rows = append(rows, row)
		}

		nextCursor := ""
		if hasMore && len(summaries) > 0 {
			last := summaries[len(summaries)-1].Conversation
			nextCursor = chat.EncodeListCursor(last.LastActivityAt, last.ID)
		}
		c.JSON(http.StatusOK, gin.H{
			"conversations": rows,
			"next_cursor":   nextCursor,
			"has_more":      hasMore,
		})
	}
}

// GetConversationMessages pages message history newest-first. Fetching
// the newest page (no cursor) marks the conversation read for the
// caller; older pages are a pure read.
func GetConversationMessages(store *chat.Store, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := currentUserID(c)
		cid := conversationParam(c)

		limit, _ := strconv.Atoi(c.Query("limit"))
		cursor, err := chat.ParseMessageCursor(strings.TrimSpace(c.Query("cursor")))
		if err != nil {
			abortChatErr(c, err)
			return
		}

		msgs, hasMore, err := store.Messages(cid, uid, limit, cursor)
		if err != nil {
			abortChatErr(c, err)
			return
		}

		otherID, err := store.OtherParticipantID(cid, uid)
		if err != nil {
			abortChatErr(c, err)
			return
		}
		other, err := publicIdentity(db, otherID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}

		rows := make([]gin.H, 0, len(msgs))
		for i := range msgs {
			rows = append(rows, messageJSON(&msgs[i]))
		}
		nextCursor := ""
		if hasMore && len(msgs) > 0 {
			nextCursor = strconv.Itoa(int(msgs[len(msgs)-1].ID))
		}
		c.JSON(http.StatusOK, gin.H{
			"messages":    rows,
			"other_user":  other,
			"next_cursor": nextCursor,
			"has_more":    hasMore,
		})
	}
}

// SendMessage persists a message over HTTP and fans it out to the
// conversation's live room, in persistence order.
func SendMessage(store *chat.Store, hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := currentUserID(c)
		cid := conversationParam(c)

		var body struct {
			Content   string `json:"content"`
			MediaURL  string `json:"media_url"`
			MediaKey  string `json:"media_key"`
			MediaType string `json:"media_type"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}

		release := hub.AcquireConversation(cid)
		msg, err := store.Send(cid, uid, chat.SendInput{
			Content:   body.Content,
			MediaURL:  body.MediaURL,
			MediaKey:  body.MediaKey,
			MediaType: body.MediaType,
		})
		if err != nil {
			release()
			abortChatErr(c, err)
			return
		}
		payload := messageEvent(msg)
		hub.Broadcast(cid, payload)
		// the sender's open tabs see their own HTTP send too
		hub.NotifyUser(uid, cid, payload)
		release()

		c.JSON(http.StatusCreated, messageJSON(msg))
	}
}

// MarkConversationRead advances the caller's read-marker and tells the
// room so the peer can update seen indicators.
func MarkConversationRead(store *chat.Store, hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := currentUserID(c)
		cid := conversationParam(c)

		if err := store.MarkRead(cid, uid); err != nil {
			abortChatErr(c, err)
			return
		}
		hub.Broadcast(cid, readReceiptEvent(cid, uid, time.Now()))
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
