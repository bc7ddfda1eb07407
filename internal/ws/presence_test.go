package ws

import (
	"sort"
	"testing"
)

func TestPresenceMarkOnlineOverwrites(t *testing.T) {
	p := NewPresence()

	if replaced := p.MarkOnline("user1", "conn1"); replaced {
		t.Error("first registration should not report replacement")
	}
	if replaced := p.MarkOnline("user1", "conn2"); !replaced {
		t.Error("second registration for same user should overwrite")
	}
	if !p.Online("user1") {
		t.Error("expected user1 to be online")
	}
}

func TestPresenceStaleOfflineIsNoOp(t *testing.T) {
	p := NewPresence()

	p.MarkOnline("user1", "conn1")
	p.MarkOnline("user1", "conn2")

	// The disconnect of the older connection races the newer registration
	// and must not evict it.
	if removed := p.MarkOffline("user1", "conn1"); removed {
		t.Error("stale MarkOffline should be a no-op")
	}
	if !p.Online("user1") {
		t.Error("user1 should still be online via conn2")
	}

	if removed := p.MarkOffline("user1", "conn2"); !removed {
		t.Error("matching MarkOffline should remove the entry")
	}
	if p.Online("user1") {
		t.Error("user1 should be offline")
	}
}

func TestPresenceSnapshotExcludesSelf(t *testing.T) {
	p := NewPresence()

	p.MarkOnline("user1", "conn1")
	p.MarkOnline("user2", "conn2")
	p.MarkOnline("user3", "conn3")

	snapshot := p.Snapshot("user2")
	sort.Strings(snapshot)

	if len(snapshot) != 2 || snapshot[0] != "user1" || snapshot[1] != "user3" {
		t.Errorf("expected [user1 user3], got %v", snapshot)
	}
}
