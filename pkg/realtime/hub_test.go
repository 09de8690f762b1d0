package realtime

import (
	"sync"
	"testing"
)

// test connections are never Started, so Send only enqueues and the
// buffered channel can be drained directly.

func drain(c *Connection) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcastReachesRoomMembersOnly(t *testing.T) {
	h := NewHub()
	a := NewConnection(1, nil)
	b := NewConnection(2, nil)
	outsider := NewConnection(3, nil)
	for _, c := range []*Connection{a, b, outsider} {
		h.mu.Lock()
		h.sessions[c.ID] = c
		h.sessionRooms[c.ID] = make(map[uint]struct{})
		set := h.userSessions[c.UserID]
		if set == nil {
			set = make(map[string]struct{})
			h.userSessions[c.UserID] = set
		}
		set[c.ID] = struct{}{}
		h.mu.Unlock()
	}

	h.Join(7, a)
	h.Join(7, b)

	if n := h.Broadcast(7, []byte("hi")); n != 2 {
		t.Fatalf("expected delivery to 2 members, got %d", n)
	}
	if got := drain(a); len(got) != 1 || string(got[0]) != "hi" {
		t.Fatalf("member a: %q", got)
	}
	if got := drain(b); len(got) != 1 {
		t.Fatalf("member b got %d messages", len(got))
	}
	if got := drain(outsider); len(got) != 0 {
		t.Fatalf("outsider received %d messages", len(got))
	}
}

func TestJoinLeaveMembership(t *testing.T) {
	h := NewHub()
	a := NewConnection(1, nil)
	h.mu.Lock()
	h.sessions[a.ID] = a
	h.sessionRooms[a.ID] = make(map[uint]struct{})
	h.userSessions[1] = map[string]struct{}{a.ID: {}}
	h.mu.Unlock()

	if h.InRoom(5, a.ID) {
		t.Fatalf("fresh session should not be in a room")
	}
	h.Join(5, a)
	if !h.InRoom(5, a.ID) {
		t.Fatalf("join did not register membership")
	}
	// leave is a no-op when not joined
	h.Leave(6, a)
	h.Leave(5, a)
	if h.InRoom(5, a.ID) {
		t.Fatalf("leave did not remove membership")
	}
	if n := h.Broadcast(5, []byte("x")); n != 0 {
		t.Fatalf("broadcast after leave delivered %d", n)
	}
}

func TestDetachRemovesFromAllRooms(t *testing.T) {
	h := NewHub()
	a := NewConnection(1, nil)
	b := NewConnection(2, nil)
	h.mu.Lock()
	for _, c := range []*Connection{a, b} {
		h.sessions[c.ID] = c
		h.sessionRooms[c.ID] = make(map[uint]struct{})
		h.userSessions[c.UserID] = map[string]struct{}{c.ID: {}}
	}
	h.mu.Unlock()

	h.Join(1, a)
	h.Join(2, a)
	h.Join(1, b)

	h.Detach(a)

	if h.InRoom(1, a.ID) || h.InRoom(2, a.ID) {
		t.Fatalf("detached session still in rooms")
	}
	if n := h.Broadcast(1, []byte("still here")); n != 1 {
		t.Fatalf("expected remaining member to receive, got %d", n)
	}
	if n := h.NotifyUser(1, 0, []byte("gone")); n != 0 {
		t.Fatalf("detached user still notified %d times", n)
	}
}

func TestNotifyUserReachesEverySession(t *testing.T) {
	h := NewHub()
	tab1 := NewConnection(9, nil)
	tab2 := NewConnection(9, nil)
	h.mu.Lock()
	for _, c := range []*Connection{tab1, tab2} {
		h.sessions[c.ID] = c
		h.sessionRooms[c.ID] = make(map[uint]struct{})
	}
	h.userSessions[9] = map[string]struct{}{tab1.ID: {}, tab2.ID: {}}
	h.mu.Unlock()

	if n := h.NotifyUser(9, 0, []byte("sync")); n != 2 {
		t.Fatalf("expected both tabs notified, got %d", n)
	}
}

func TestNotifyUserSkipsRoomMembers(t *testing.T) {
	h := NewHub()
	watching := NewConnection(9, nil)
	idle := NewConnection(9, nil)
	h.mu.Lock()
	for _, c := range []*Connection{watching, idle} {
		h.sessions[c.ID] = c
		h.sessionRooms[c.ID] = make(map[uint]struct{})
	}
	h.userSessions[9] = map[string]struct{}{watching.ID: {}, idle.ID: {}}
	h.mu.Unlock()
	h.Join(4, watching)

	// broadcast reaches the watching tab, notify covers the idle one
	if n := h.Broadcast(4, []byte("m1")); n != 1 {
		t.Fatalf("broadcast delivered %d", n)
	}
	if n := h.NotifyUser(9, 4, []byte("m1")); n != 1 {
		t.Fatalf("notify delivered %d, want only the idle tab", n)
	}
	if got := drain(watching); len(got) != 1 {
		t.Fatalf("watching tab got %d messages, want exactly 1", len(got))
	}
	if got := drain(idle); len(got) != 1 {
		t.Fatalf("idle tab got %d messages, want exactly 1", len(got))
	}
}

func TestAcquireConversationSerializes(t *testing.T) {
	h := NewHub()

	release := h.AcquireConversation(3)
	acquired := make(chan struct{})
	go func() {
		r := h.AcquireConversation(3)
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatalf("second acquire succeeded while lock held")
	default:
	}

	release()
	<-acquired

	// independent conversations do not contend
	r1 := h.AcquireConversation(4)
	r2 := h.AcquireConversation(5)
	r1()
	r2()
}

func TestBroadcastConcurrentWithMembershipChanges(t *testing.T) {
	h := NewHub()
	conns := make([]*Connection, 16)
	h.mu.Lock()
	for i := range conns {
		conns[i] = NewConnection(uint(i+1), nil)
		h.sessions[conns[i].ID] = conns[i]
		h.sessionRooms[conns[i].ID] = make(map[uint]struct{})
		h.userSessions[uint(i+1)] = map[string]struct{}{conns[i].ID: {}}
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for i, c := range conns {
		wg.Add(1)
		go func(i int, c *Connection) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				h.Join(1, c)
				h.Broadcast(1, []byte("m"))
				h.Leave(1, c)
			}
		}(i, c)
	}
	wg.Wait()

	if n := h.Broadcast(1, []byte("after")); n != 0 {
		t.Fatalf("room should be empty after all leaves, delivered %d", n)
	}
}
