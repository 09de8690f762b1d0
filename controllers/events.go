package controllers

import (
	"encoding/json"
	"time"

	"SportLink/models"

	"github.com/gin-gonic/gin"
)

// Realtime event payloads. The same shapes go out over the websocket
// rooms and (for message events) as HTTP response bodies, so clients see
// one message format everywhere.

func messageJSON(m *models.Message) gin.H {
	out := gin.H{
		"id":              m.ID,
		"conversation_id": m.ConversationID,
		"sender_id":       m.SenderID,
		"created_at":      m.CreatedAt,
	}
	if m.Content != "" {
		out["content"] = m.Content
	}
	if m.MediaURL != "" {
		out["media_url"] = m.MediaURL
		out["media_key"] = m.MediaKey
		out["media_type"] = m.MediaType
	}
	return out
}

func messageEvent(m *models.Message) []byte {
	payload, _ := json.Marshal(gin.H{
		"type":            "message",
		"conversation_id": m.ConversationID,
		"message":         messageJSON(m),
	})
	return payload
}

func readReceiptEvent(conversationID, readerID uint, at time.Time) []byte {
	payload, _ := json.Marshal(gin.H{
		"type":            "read_receipt",
		"conversation_id": conversationID,
		"user_id":         readerID,
		"read_at":         at,
	})
	return payload
}
