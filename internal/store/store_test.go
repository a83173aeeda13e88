package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSessionRoundTrip(t *testing.T) {
	st := openTestStore(t)

	err := st.SaveSession(Session{Username: "alice", AccessToken: "a1", RefreshToken: "r1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess, err := st.LoadSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess == nil {
		t.Fatal("expected a session")
	}
	if sess.Username != "alice" || sess.AccessToken != "a1" || sess.RefreshToken != "r1" {
		t.Errorf("unexpected session: %+v", sess)
	}
}

func TestSaveSessionReplaces(t *testing.T) {
	st := openTestStore(t)

	st.SaveSession(Session{Username: "alice", AccessToken: "a1", RefreshToken: "r1"})
	st.SaveSession(Session{Username: "bob", AccessToken: "a2", RefreshToken: "r2"})

	sess, err := st.LoadSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Username != "bob" || sess.AccessToken != "a2" {
		t.Errorf("expected replaced session, got %+v", sess)
	}
}

func TestUpdateAccessToken(t *testing.T) {
	st := openTestStore(t)

	st.SaveSession(Session{Username: "alice", AccessToken: "old", RefreshToken: "r1"})
	if err := st.UpdateAccessToken("new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sess, _ := st.LoadSession()
	if sess.AccessToken != "new" {
		t.Errorf("expected updated access token, got %q", sess.AccessToken)
	}
	if sess.RefreshToken != "r1" {
		t.Errorf("refresh token must be untouched, got %q", sess.RefreshToken)
	}
}

func TestLoadSessionAbsent(t *testing.T) {
	st := openTestStore(t)
	sess, err := st.LoadSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil session, got %+v", sess)
	}
}

func TestLoadSessionIncompleteRow(t *testing.T) {
	st := openTestStore(t)
	st.SaveSession(Session{Username: "alice", AccessToken: "a1", RefreshToken: ""})

	sess, err := st.LoadSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != nil {
		t.Errorf("incomplete row must load as no session, got %+v", sess)
	}
}

func TestClearSessionIdempotent(t *testing.T) {
	st := openTestStore(t)
	st.SaveSession(Session{Username: "alice", AccessToken: "a1", RefreshToken: "r1"})

	if err := st.ClearSession(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := st.ClearSession(); err != nil {
		t.Fatalf("clearing an absent session should succeed, got %v", err)
	}

	sess, _ := st.LoadSession()
	if sess != nil {
		t.Errorf("expected no session after clear, got %+v", sess)
	}
}

func TestSessionSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	st.SaveSession(Session{Username: "alice", AccessToken: "a1", RefreshToken: "r1"})
	st.Close()

	st, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer st.Close()

	sess, err := st.LoadSession()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess == nil || sess.Username != "alice" {
		t.Errorf("expected persisted session after reopen, got %+v", sess)
	}
}

func TestHistoryReplaceAndRead(t *testing.T) {
	st := openTestStore(t)

	err := st.ReplaceHistory([]HistoryEntry{
		{ID: 1, Title: "First", CreatedAt: "2026-08-01T10:00:00Z"},
		{ID: 2, Title: "Second", CreatedAt: "2026-08-02T10:00:00Z"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := st.History()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != 2 {
		t.Errorf("expected newest first, got %+v", entries[0])
	}

	err = st.ReplaceHistory([]HistoryEntry{{ID: 3, Title: "Only", CreatedAt: "2026-08-03T10:00:00Z"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, _ = st.History()
	if len(entries) != 1 || entries[0].ID != 3 {
		t.Errorf("expected replaced cache, got %+v", entries)
	}
}

func TestClearHistory(t *testing.T) {
	st := openTestStore(t)
	st.ReplaceHistory([]HistoryEntry{{ID: 1, Title: "X", CreatedAt: "2026-08-01T10:00:00Z"}})

	if err := st.ClearHistory(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, _ := st.History()
	if len(entries) != 0 {
		t.Errorf("expected empty cache, got %d entries", len(entries))
	}
}
