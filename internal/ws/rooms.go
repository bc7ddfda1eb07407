package ws

import "sync"

// UserRoom names the per-user broadcast group joined automatically at connect
// time. It reaches a user regardless of which chat they are viewing.
func UserRoom(userID string) string { return "user:" + userID }

// ChatRoom names the broadcast group of connections actively viewing a chat.
func ChatRoom(chatID string) string { return "chat:" + chatID }

// RoomRouter maintains broadcast group membership. Rooms are transient
// routing constructs: they exist only while at least one connection is
// joined. Join and Leave are idempotent.
type RoomRouter struct {
	mu    sync.RWMutex
	rooms map[string]map[string]bool // room -> set of connIDs
	conns map[string]map[string]bool // connID -> set of rooms
}

func NewRoomRouter() *RoomRouter {
	return &RoomRouter{
		rooms: make(map[string]map[string]bool),
		conns: make(map[string]map[string]bool),
	}
}

func (r *RoomRouter) Join(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[string]bool)
	}
	r.rooms[room][connID] = true

	if r.conns[connID] == nil {
		r.conns[connID] = make(map[string]bool)
	}
	r.conns[connID][room] = true
}

func (r *RoomRouter) Leave(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, room)
}

func (r *RoomRouter) leaveLocked(connID, room string) {
	if r.rooms[room] != nil {
		delete(r.rooms[room], connID)
		if len(r.rooms[room]) == 0 {
			delete(r.rooms, room)
		}
	}
	if r.conns[connID] != nil {
		delete(r.conns[connID], room)
		if len(r.conns[connID]) == 0 {
			delete(r.conns, connID)
		}
	}
}

// LeaveAll removes the connection from every room it joined. Called on
// disconnect; requires no acknowledgement from other connections.
func (r *RoomRouter) LeaveAll(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.conns[connID] {
		r.leaveLocked(connID, room)
	}
}

// Members returns the connection IDs currently joined to room.
func (r *RoomRouter) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.rooms[room]))
	for connID := range r.rooms[room] {
		members = append(members, connID)
	}
	return members
}
