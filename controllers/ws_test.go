package controllers

import (
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"SportLink/models"
	"SportLink/pkg/chat"
	"SportLink/pkg/config"
	"SportLink/pkg/realtime"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type allowAllGate struct{}

func (allowAllGate) IsConnected(a, b uint) (bool, error) { return true, nil }

func newWSServer(t *testing.T) (*httptest.Server, *chat.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if config.JWTSecret == "" {
		config.JWTSecret = "ws-test-secret"
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Participant{}, &models.Message{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := chat.NewStore(db, allowAllGate{})
	hub := realtime.NewHub()
	t.Cleanup(hub.Close)

	r := gin.New()
	r.GET("/ws/chat", ChatWS(store, hub))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func wsTestToken(t *testing.T, uid uint) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": strconv.Itoa(int(uid)),
		"jti": uuid.NewString(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// dialWS opens an authenticated client socket and consumes the initial
// connected frame.
func dialWS(t *testing.T, srv *httptest.Server, uid uint) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?token=" + wsTestToken(t, uid)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial user %d: %v", uid, err)
	}
	t.Cleanup(func() { ws.Close() })
	if ev := readEvent(t, ws); ev.Type != "connected" {
		t.Fatalf("expected connected frame, got %q", ev.Type)
	}
	return ws
}

type wsEvent struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id"`
	Code           string `json:"code"`
	Message        struct {
		ID       uint   `json:"id"`
		SenderID uint   `json:"sender_id"`
		Content  string `json:"content"`
	} `json:"message"`
}

func readEvent(t *testing.T, ws *websocket.Conn) wsEvent {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var ev wsEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode frame %q: %v", data, err)
	}
	return ev
}

func joinRoom(t *testing.T, ws *websocket.Conn, cid uint) {
	t.Helper()
	if err := ws.WriteJSON(wsFrame{Type: "join", ConversationID: cid}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if ev := readEvent(t, ws); ev.Type != "joined" {
		t.Fatalf("expected joined ack, got %q", ev.Type)
	}
}

// Two tabs of the same user hammer one conversation; the peer watching
// the room must see every message exactly once, in persisted id order.
func TestConcurrentSendsDeliverInPersistOrder(t *testing.T) {
	srv, store := newWSServer(t)
	conv, _, err := store.GetOrCreate(1, 2)
	if err != nil {
		t.Fatalf("get-or-create: %v", err)
	}

	watcher := dialWS(t, srv, 2)
	joinRoom(t, watcher, conv.ID)

	const perTab = 10
	tabs := []*websocket.Conn{dialWS(t, srv, 1), dialWS(t, srv, 1)}
	var wg sync.WaitGroup
	for ti, tab := range tabs {
		wg.Add(1)
		go func(ti int, tab *websocket.Conn) {
			defer wg.Done()
			for i := 0; i < perTab; i++ {
				frame := wsFrame{
					Type:           "send",
					ConversationID: conv.ID,
					Content:        "tab" + strconv.Itoa(ti) + "-" + strconv.Itoa(i),
				}
				if err := tab.WriteJSON(frame); err != nil {
					t.Errorf("tab %d send %d: %v", ti, i, err)
					return
				}
			}
		}(ti, tab)
	}
	wg.Wait()

	lastID := uint(0)
	for i := 0; i < perTab*len(tabs); i++ {
		ev := readEvent(t, watcher)
		if ev.Type != "message" {
			t.Fatalf("frame %d: expected message, got %q", i, ev.Type)
		}
		if ev.Message.ID <= lastID {
			t.Fatalf("frame %d: id %d arrived after id %d", i, ev.Message.ID, lastID)
		}
		lastID = ev.Message.ID
	}

	msgs, _, err := store.Messages(conv.ID, 2, chat.MaxPageSize, 0)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != perTab*len(tabs) {
		t.Fatalf("persisted %d messages, want %d", len(msgs), perTab*len(tabs))
	}
}

// A send from one tab reaches the sender's other tabs even when they are
// not watching the conversation, and room members never get duplicates.
func TestSendReachesSendersOtherTabs(t *testing.T) {
	srv, store := newWSServer(t)
	conv, _, err := store.GetOrCreate(1, 2)
	if err != nil {
		t.Fatalf("get-or-create: %v", err)
	}

	tabA := dialWS(t, srv, 1)
	tabB := dialWS(t, srv, 1)

	// neither tab watches the room yet
	if err := tabA.WriteJSON(wsFrame{Type: "send", ConversationID: conv.ID, Content: "first"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	for _, tab := range []*websocket.Conn{tabA, tabB} {
		ev := readEvent(t, tab)
		if ev.Type != "message" || ev.Message.Content != "first" {
			t.Fatalf("expected message echo, got %+v", ev)
		}
	}

	// once a tab watches the room it gets the broadcast copy only
	joinRoom(t, tabB, conv.ID)
	if err := tabA.WriteJSON(wsFrame{Type: "send", ConversationID: conv.ID, Content: "second"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if ev := readEvent(t, tabA); ev.Message.Content != "second" {
		t.Fatalf("sender tab echo: %+v", ev)
	}
	if ev := readEvent(t, tabB); ev.Message.Content != "second" {
		t.Fatalf("watching tab: %+v", ev)
	}
	_ = tabB.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, data, err := tabB.ReadMessage(); err == nil {
		t.Fatalf("watching tab received a duplicate frame: %s", data)
	}
}
