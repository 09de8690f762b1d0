package realtime

import "sync"

// Hub is the process-local registry of live websocket sessions and the
// rooms (conversations) they watch. It is constructed at startup and
// torn down on shutdown; all membership mutation happens under one lock
// so a broadcast in flight either includes or excludes a transitioning
// session, never half of one.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]*Connection         // session id -> connection
	userSessions map[uint]map[string]struct{}   // user id -> session ids
	rooms        map[uint]map[string]*Connection // conversation id -> session id -> connection
	sessionRooms map[string]map[uint]struct{}   // session id -> joined conversation ids

	convMu    sync.Mutex
	convLocks map[uint]*sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]*Connection),
		userSessions: make(map[uint]map[string]struct{}),
		rooms:        make(map[uint]map[string]*Connection),
		sessionRooms: make(map[string]map[uint]struct{}),
		convLocks:    make(map[uint]*sync.Mutex),
	}
}

// Attach registers a connection and starts its write loop. Multiple
// sessions per user are allowed so open tabs stay in sync.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	h.sessions[conn.ID] = conn
	set := h.userSessions[conn.UserID]
	if set == nil {
		set = make(map[string]struct{})
		h.userSessions[conn.UserID] = set
	}
	set[conn.ID] = struct{}{}
	h.sessionRooms[conn.ID] = make(map[uint]struct{})
	h.mu.Unlock()

	conn.Start()
}

// Detach removes the connection from every room it joined and forgets
// the session. Safe to call after an abrupt disconnect.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	h.detachLocked(conn.ID)
	h.mu.Unlock()
}

// Join adds the connection to the conversation's room. Membership is
// idempotent.
func (h *Hub) Join(conversationID uint, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[conn.ID]; !ok {
		return
	}
	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[string]*Connection)
		h.rooms[conversationID] = room
	}
	room[conn.ID] = conn
	h.sessionRooms[conn.ID][conversationID] = struct{}{}
}

// Leave removes the connection from the room; no-op if not joined.
func (h *Hub) Leave(conversationID uint, conn *Connection) {
	h.mu.Lock()
	h.leaveLocked(conversationID, conn.ID)
	h.mu.Unlock()
}

// InRoom reports whether the session currently watches the conversation.
func (h *Hub) InRoom(conversationID uint, sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := h.rooms[conversationID]
	if room == nil {
		return false
	}
	_, ok := room[sessionID]
	return ok
}

// Broadcast delivers payload to every session in the conversation's
// room, the sender's own sessions included. Returns the delivered count.
func (h *Hub) Broadcast(conversationID uint, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, conn := range h.rooms[conversationID] {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// NotifyUser delivers payload to every live session of the user except
// those already in skipRoom's room, which a Broadcast reached. A zero
// skipRoom reaches every session. Echoes a sender's own message to tabs
// that are not watching the conversation.
func (h *Hub) NotifyUser(userID, skipRoom uint, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := h.rooms[skipRoom]
	delivered := 0
	for sid := range h.userSessions[userID] {
		if _, inRoom := room[sid]; inRoom {
			continue
		}
		if conn := h.sessions[sid]; conn != nil {
			if err := conn.Send(payload); err == nil {
				delivered++
			}
		}
	}
	return delivered
}

// AcquireConversation serializes the persist-then-broadcast section per
// conversation so broadcast order always matches persistence order, even
// with both participants sending at once. Returns the release func.
func (h *Hub) AcquireConversation(conversationID uint) (release func()) {
	h.convMu.Lock()
	l := h.convLocks[conversationID]
	if l == nil {
		l = &sync.Mutex{}
		h.convLocks[conversationID] = l
	}
	h.convMu.Unlock()
	l.Lock()
	return l.Unlock
}

// Close terminates all tracked connections and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		conns = append(conns, conn)
	}
	h.sessions = make(map[string]*Connection)
	h.userSessions = make(map[uint]map[string]struct{})
	h.rooms = make(map[uint]map[string]*Connection)
	h.sessionRooms = make(map[string]map[uint]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close(1001, "hub shutdown")
	}
}

func (h *Hub) detachLocked(sessionID string) {
	conn, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(h.sessions, sessionID)

	if set, ok := h.userSessions[conn.UserID]; ok {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(h.userSessions, conn.UserID)
		}
	}
	for roomID := range h.sessionRooms[sessionID] {
		h.leaveLocked(roomID, sessionID)
	}
	delete(h.sessionRooms, sessionID)
}

func (h *Hub) leaveLocked(conversationID uint, sessionID string) {
	room := h.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
	if memberships, ok := h.sessionRooms[sessionID]; ok {
		delete(memberships, conversationID)
	}
}
