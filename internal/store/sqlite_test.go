package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestSQLite(t *testing.T, retention int) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "parley.db"), retention)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteRoomsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t, 10)

	for _, room := range []string{"lobby", "general", "lobby"} {
		if err := s.EnsureRoom(ctx, room); err != nil {
			t.Fatalf("EnsureRoom failed: %v", err)
		}
	}

	rooms, err := s.Rooms(ctx)
	if err != nil {
		t.Fatalf("Rooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("Expected two rooms, got %v", rooms)
	}
}

func TestSQLiteAppendAndHistory(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t, 10)

	for i, text := range []string{"one", "two", "three"} {
		msg := Message{Username: "alice", Text: text, Ts: int64(i)}
		if err := s.AppendRoom(ctx, "lobby", msg); err != nil {
			t.Fatalf("AppendRoom failed: %v", err)
		}
	}

	history, err := s.RoomHistory(ctx, "lobby", 0)
	if err != nil {
		t.Fatalf("RoomHistory failed: %v", err)
	}
	if len(history) != 3 || history[0].Text != "one" || history[2].Text != "three" {
		t.Errorf("Expected append order [one two three], got %v", history)
	}

	newest, err := s.RoomHistory(ctx, "lobby", 2)
	if err != nil {
		t.Fatalf("RoomHistory with limit failed: %v", err)
	}
	if len(newest) != 2 || newest[0].Text != "two" {
		t.Errorf("Expected newest two messages [two three], got %v", newest)
	}
}

func TestSQLiteRetention(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t, 3)

	for _, text := range []string{"a", "b", "c", "d", "e"} {
		if err := s.AppendRoom(ctx, "lobby", Message{Username: "alice", Text: text}); err != nil {
			t.Fatalf("AppendRoom failed: %v", err)
		}
	}

	history, err := s.RoomHistory(ctx, "lobby", 0)
	if err != nil {
		t.Fatalf("RoomHistory failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("Expected 3 retained messages, got %d", len(history))
	}
	for i, want := range []string{"c", "d", "e"} {
		if history[i].Text != want {
			t.Errorf("Expected history[%d] = %q, got %q", i, want, history[i].Text)
		}
	}
}

func TestSQLiteDMSharedLog(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t, 10)

	if err := s.AppendDM(ctx, "alice", "bob", Message{Username: "alice", Text: "hi"}); err != nil {
		t.Fatalf("AppendDM failed: %v", err)
	}
	if err := s.AppendDM(ctx, "bob", "alice", Message{Username: "bob", Text: "yo"}); err != nil {
		t.Fatalf("AppendDM failed: %v", err)
	}

	history, err := s.DMHistory(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("DMHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("Expected both directions in one log, got %d messages", len(history))
	}

	// DM traffic must never leak into room listings or logs.
	rooms, _ := s.Rooms(ctx)
	if len(rooms) != 0 {
		t.Errorf("Expected no rooms from dm traffic, got %v", rooms)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "parley.db")

	s, err := OpenSQLite(path, 10)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := s.AppendRoom(ctx, "lobby", Message{Username: "alice", Text: "hi", Ts: 42}); err != nil {
		t.Fatalf("AppendRoom failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := OpenSQLite(path, 10)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	history, err := reopened.RoomHistory(ctx, "lobby", 0)
	if err != nil {
		t.Fatalf("RoomHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].Text != "hi" || history[0].Ts != 42 {
		t.Errorf("Expected persisted message, got %v", history)
	}
}
