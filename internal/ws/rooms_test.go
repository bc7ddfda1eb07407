package ws

import (
	"sort"
	"testing"
)

func TestRoomJoinLeave(t *testing.T) {
	r := NewRoomRouter()

	r.Join("conn1", ChatRoom("chat1"))
	r.Join("conn2", ChatRoom("chat1"))
	r.Join("conn1", ChatRoom("chat1")) // idempotent

	members := r.Members(ChatRoom("chat1"))
	sort.Strings(members)
	if len(members) != 2 || members[0] != "conn1" || members[1] != "conn2" {
		t.Errorf("expected [conn1 conn2], got %v", members)
	}

	r.Leave("conn1", ChatRoom("chat1"))
	r.Leave("conn1", ChatRoom("chat1")) // idempotent

	members = r.Members(ChatRoom("chat1"))
	if len(members) != 1 || members[0] != "conn2" {
		t.Errorf("expected [conn2], got %v", members)
	}
}

func TestRoomLeaveAll(t *testing.T) {
	r := NewRoomRouter()

	r.Join("conn1", UserRoom("user1"))
	r.Join("conn1", ChatRoom("chat1"))
	r.Join("conn1", ChatRoom("chat2"))
	r.Join("conn2", ChatRoom("chat1"))

	r.LeaveAll("conn1")

	if len(r.Members(UserRoom("user1"))) != 0 {
		t.Error("expected user room to be empty")
	}
	if len(r.Members(ChatRoom("chat2"))) != 0 {
		t.Error("expected chat2 room to be empty")
	}
	if len(r.Members(ChatRoom("chat1"))) != 1 {
		t.Error("expected conn2 to remain in chat1")
	}
}

func TestRoomNames(t *testing.T) {
	if UserRoom("abc") != "user:abc" {
		t.Errorf("unexpected user room name %q", UserRoom("abc"))
	}
	if ChatRoom("xyz") != "chat:xyz" {
		t.Errorf("unexpected chat room name %q", ChatRoom("xyz"))
	}
}
