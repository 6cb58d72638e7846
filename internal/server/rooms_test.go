package server

import "testing"

func TestEnsureIsIdempotent(t *testing.T) {
	d := newRoomDirectory()
	d.ensure("lobby")
	d.ensure("lobby")

	if names := d.names(); len(names) != 1 || names[0] != "lobby" {
		t.Errorf("Expected single lobby entry, got %v", names)
	}
}

func TestJoinMovesSessionBetweenRooms(t *testing.T) {
	d := newRoomDirectory()
	s := &Session{id: 1}

	d.join("lobby", s)
	if s.room != "lobby" || d.memberCount("lobby") != 1 {
		t.Fatalf("Expected membership in lobby, got room=%q count=%d", s.room, d.memberCount("lobby"))
	}

	d.join("general", s)
	if s.room != "general" {
		t.Errorf("Expected session room general, got %q", s.room)
	}
	if d.memberCount("lobby") != 0 {
		t.Error("Expected lobby membership to be dropped on move")
	}
	if d.memberCount("general") != 1 {
		t.Error("Expected exactly one general membership")
	}
}

func TestLeaveKeepsEmptyRoom(t *testing.T) {
	d := newRoomDirectory()
	s := &Session{id: 1}
	d.join("general", s)
	d.leave("general", s)

	if s.room != "" {
		t.Errorf("Expected cleared session room, got %q", s.room)
	}
	found := false
	for _, name := range d.names() {
		if name == "general" {
			found = true
		}
	}
	if !found {
		t.Error("Expected empty room to persist in listings")
	}
}

func TestNamesPreserveCreationOrder(t *testing.T) {
	d := newRoomDirectory()
	d.ensure("lobby")
	d.ensure("general")
	d.ensure("random")

	names := d.names()
	want := []string{"lobby", "general", "random"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Expected room order %v, got %v", want, names)
		}
	}
}
