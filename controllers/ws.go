package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"SportLink/pkg/chat"
	"SportLink/pkg/config"
	"SportLink/pkg/realtime"
	tokenstore "SportLink/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled at HTTP level; allow WS here
		return true
	},
}

const wsReadTimeout = 60 * time.Second

type wsFrame struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id"`
	Content        string `json:"content,omitempty"`
	MediaURL       string `json:"media_url,omitempty"`
	MediaKey       string `json:"media_key,omitempty"`
	MediaType      string `json:"media_type,omitempty"`
}

// wsUserID authenticates the channel from its ?token= query before any
// room operation is permitted. Identity comes from the session token,
// never from a client-supplied claim.
func wsUserID(c *gin.Context) (uint, bool) {
	tokenStr := strings.TrimSpace(c.Query("token"))
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "missing token query"})
		return 0, false
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
		return 0, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid token claims"})
		return 0, false
	}
	jti, _ := claims["jti"].(string)
	if tokenstore.IsRevoked(jti) {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "Token has been revoked (logout)"})
		return 0, false
	}
	var userIDStr string
	if sub, ok := claims["sub"].(string); ok {
		userIDStr = sub
	} else if subf, ok := claims["sub"].(float64); ok {
		userIDStr = strconv.Itoa(int(subf))
	}
	uid, _ := strconv.Atoi(userIDStr)
	if uid <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "invalid subject in token"})
		return 0, false
	}
	return uint(uid), true
}

// ChatWS is the realtime messaging channel.
// Client protocol (JSON frames):
//
//	-> {type: "join", conversation_id: number}
//	-> {type: "leave", conversation_id: number}
//	-> {type: "send", conversation_id: number, content?, media_url?, media_key?, media_type?}
//	-> {type: "markRead", conversation_id: number}
//	<- {type: "connected"} | {type: "joined"|"left", conversation_id}
//	<- {type: "message", conversation_id, message: {...}}
//	<- {type: "read_receipt", conversation_id, user_id, read_at}
//	<- {type: "error", code, error}
func ChatWS(store *chat.Store, hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := wsUserID(c)
		if !ok {
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ws] upgrade error: %v", err)
			return
		}

		conn := realtime.NewConnection(uid, ws)
		hub.Attach(conn)
		defer func() {
			hub.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20) // 1MB
		_ = ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(wsReadTimeout))
		})

		sendJSON(conn, gin.H{"type": "connected"})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				log.Printf("[ws] read error user=%d: %v", uid, err)
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(wsReadTimeout))

			var frame wsFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				sendError(conn, "bad_request", "invalid payload")
				continue
			}
			if frame.ConversationID == 0 {
				sendError(conn, "bad_request", "conversation_id is required")
				continue
			}

			switch frame.Type {
			case "join":
				handleJoin(store, hub, conn, frame.ConversationID)
			case "leave":
				hub.Leave(frame.ConversationID, conn)
				sendJSON(conn, gin.H{"type": "left", "conversation_id": frame.ConversationID})
			case "send":
				handleSend(store, hub, conn, frame)
			case "markRead":
				handleMarkRead(store, hub, conn, frame.ConversationID)
			default:
				sendError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func handleJoin(store *chat.Store, hub *realtime.Hub, conn *realtime.Connection, cid uint) {
	if err := store.IsParticipant(cid, conn.UserID); err != nil {
		replyChatErr(conn, err)
		return
	}
	hub.Join(cid, conn)
	sendJSON(conn, gin.H{"type": "joined", "conversation_id": cid})
}

// handleSend persists then broadcasts under the per-conversation lock so
// room delivery order always matches message ids.
func handleSend(store *chat.Store, hub *realtime.Hub, conn *realtime.Connection, frame wsFrame) {
	release := hub.AcquireConversation(frame.ConversationID)
	msg, err := store.Send(frame.ConversationID, conn.UserID, chat.SendInput{
		Content:   frame.Content,
		MediaURL:  frame.MediaURL,
		MediaKey:  frame.MediaKey,
		MediaType: frame.MediaType,
	})
	if err != nil {
		release()
		replyChatErr(conn, err)
		return
	}
	payload := messageEvent(msg)
	hub.Broadcast(frame.ConversationID, payload)
	// sender's tabs not watching the room still see the message
	hub.NotifyUser(conn.UserID, frame.ConversationID, payload)
	release()
}

func handleMarkRead(store *chat.Store, hub *realtime.Hub, conn *realtime.Connection, cid uint) {
	if err := store.MarkRead(cid, conn.UserID); err != nil {
		replyChatErr(conn, err)
		return
	}
	hub.Broadcast(cid, readReceiptEvent(cid, conn.UserID, time.Now()))
}

func replyChatErr(conn *realtime.Connection, err error) {
	code := "bad_request"
	msg := err.Error()
	switch chatErrStatus(err) {
	case http.StatusForbidden:
		code = "forbidden"
	case http.StatusInternalServerError:
		code = "internal_error"
		msg = "db error"
	}
	sendError(conn, code, msg)
}

func sendError(conn *realtime.Connection, code, msg string) {
	sendJSON(conn, gin.H{"type": "error", "code": code, "error": msg})
}

func sendJSON(conn *realtime.Connection, v gin.H) {
	if payload, err := json.Marshal(v); err == nil {
		_ = conn.Send(payload)
	}
}
