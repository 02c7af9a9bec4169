package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewManager(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{
			name: "with custom TTL",
			ttl:  12 * time.Hour,
			want: 12 * time.Hour,
		},
		{
			name: "with zero TTL uses default",
			ttl:  0,
			want: 24 * time.Hour,
		},
		{
			name: "with negative TTL uses default",
			ttl:  -time.Minute,
			want: 24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager[string](tt.ttl)
			if m == nil {
				t.Fatal("expected manager, got nil")
			}
			if m.ttl != tt.want {
				t.Errorf("ttl = %v, want %v", m.ttl, tt.want)
			}
			if m.sessions == nil {
				t.Error("sessions map not initialized")
			}
		})
	}
}

func TestCreateSession(t *testing.T) {
	m := NewManager[string](1 * time.Hour)

	sess, err := m.CreateSession("Hi. Hi there friend.")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if sess.ID == "" {
		t.Error("expected session ID, got empty string")
	}
	if sess.Value != "Hi. Hi there friend." {
		t.Errorf("Value = %q, want %q", sess.Value, "Hi. Hi there friend.")
	}
	if sess.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	if sess.LastAccess.IsZero() {
		t.Error("LastAccess not set")
	}

	// Verify session is stored
	stored, exists := m.sessions[sess.ID]
	if !exists {
		t.Error("session not stored in manager")
	}
	if stored != sess {
		t.Error("stored session doesn't match returned session")
	}
}

func TestGetSession(t *testing.T) {
	m := NewManager[string](1 * time.Hour)

	// Create a session
	sess, err := m.CreateSession("Hi. Hi there friend.")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Test getting existing session
	retrieved, exists := m.GetSession(sess.ID)
	if !exists {
		t.Error("expected session to exist")
	}
	if retrieved.ID != sess.ID {
		t.Errorf("retrieved ID = %s, want %s", retrieved.ID, sess.ID)
	}
	if retrieved.Value != sess.Value {
		t.Errorf("retrieved Value = %s, want %s", retrieved.Value, sess.Value)
	}

	// Test getting non-existent session
	_, exists = m.GetSession("nonexistent")
	if exists {
		t.Error("expected no session for non-existent ID")
	}
}

func TestSessionExpiration(t *testing.T) {
	// Use very short TTL for testing
	m := NewManager[string](50 * time.Millisecond)

	sess, err := m.CreateSession("Hi. Hi there friend.")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Session should exist immediately
	_, exists := m.GetSession(sess.ID)
	if !exists {
		t.Error("session should exist immediately after creation")
	}

	// Wait for expiration
	time.Sleep(100 * time.Millisecond)

	// Session should be expired and removed
	_, exists = m.GetSession(sess.ID)
	if exists {
		t.Error("session should be expired and removed")
	}

	// Verify it's actually removed from the map
	m.mu.RLock()
	_, stillInMap := m.sessions[sess.ID]
	m.mu.RUnlock()
	if stillInMap {
		t.Error("expired session still in map")
	}
}

func TestSessionLastAccessUpdate(t *testing.T) {
	m := NewManager[string](1 * time.Hour)

	sess, err := m.CreateSession("Hi. Hi there friend.")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	originalAccess := sess.LastAccess

	// Wait a bit to ensure time difference
	time.Sleep(10 * time.Millisecond)

	// Get session should update LastAccess
	retrieved, exists := m.GetSession(sess.ID)
	if !exists {
		t.Fatal("session should exist")
	}

	if !retrieved.LastAccess.After(originalAccess) {
		t.Error("LastAccess should be updated after GetSession")
	}
}

func TestDeleteSession(t *testing.T) {
	m := NewManager[string](1 * time.Hour)

	sess, err := m.CreateSession("Hi. Hi there friend.")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Verify session exists
	_, exists := m.GetSession(sess.ID)
	if !exists {
		t.Error("session should exist before deletion")
	}

	// Delete the session
	m.DeleteSession(sess.ID)

	// Verify session is deleted
	_, exists = m.GetSession(sess.ID)
	if exists {
		t.Error("session should not exist after deletion")
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	m := NewManager[string](100 * time.Millisecond) // Longer TTL to avoid race conditions

	// Create multiple sessions
	sess1, _ := m.CreateSession("text 1")
	sess2, _ := m.CreateSession("text 2")
	sess3, _ := m.CreateSession("text 3")

	// Access sess1 to keep it fresh
	m.GetSession(sess1.ID)

	// Wait for some time, but not enough to expire sess1
	time.Sleep(60 * time.Millisecond)

	// Access sess1 again to update its LastAccess - keeps it fresh
	m.GetSession(sess1.ID)

	// Wait for sess2 and sess3 to expire (they weren't accessed)
	time.Sleep(60 * time.Millisecond) // Now sess2 and sess3 are over 120ms old, sess1 is ~60ms

	// Run cleanup
	count := m.CleanupExpiredSessions()

	// Should have cleaned up 2 sessions (sess2 and sess3)
	if count != 2 {
		t.Errorf("CleanupExpiredSessions returned %d, want 2", count)
	}

	// sess1 should still exist
	_, exists := m.GetSession(sess1.ID)
	if !exists {
		t.Error("sess1 should still exist after cleanup")
	}

	// sess2 and sess3 should not exist
	_, exists = m.GetSession(sess2.ID)
	if exists {
		t.Error("sess2 should not exist after cleanup")
	}

	_, exists = m.GetSession(sess3.ID)
	if exists {
		t.Error("sess3 should not exist after cleanup")
	}
}

func TestConcurrentAccess(t *testing.T) {
	m := NewManager[string](1 * time.Hour)

	// Create initial session
	sess, err := m.CreateSession("text")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	done := make(chan bool)

	// Concurrent reads
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_, _ = m.GetSession(sess.ID)
			}
			done <- true
		}()
	}

	// Concurrent writes
	for i := 0; i < 5; i++ {
		go func(id int) {
			for j := 0; j < 100; j++ {
				_, _ = m.CreateSession("text")
			}
			done <- true
		}(i)
	}

	// Wait for all goroutines
	for i := 0; i < 15; i++ {
		<-done
	}

	// Should not panic or deadlock
	_, exists := m.GetSession(sess.ID)
	if !exists {
		t.Error("original session should still exist")
	}
}

func TestGenerateSessionID(t *testing.T) {
	ids := make(map[string]bool)

	// Generate multiple IDs and check for uniqueness
	for i := 0; i < 100; i++ {
		id, err := generateSessionID()
		if err != nil {
			t.Fatalf("generateSessionID failed: %v", err)
		}

		if id == "" {
			t.Error("generated empty session ID")
		}

		// Check length (32 bytes = 64 hex characters)
		if len(id) != 64 {
			t.Errorf("session ID length = %d, want 64", len(id))
		}

		// Check uniqueness
		if ids[id] {
			t.Errorf("duplicate session ID generated: %s", id)
		}
		ids[id] = true
	}
}

func TestOnEvict(t *testing.T) {
	m := NewManager[string](50 * time.Millisecond)

	var evicted []string
	m.OnEvict(func(s *Session[string]) {
		evicted = append(evicted, s.Value)
	})

	deleted, _ := m.CreateSession("deleted")
	expired, _ := m.CreateSession("expired")

	m.DeleteSession(deleted.ID)
	m.DeleteSession(deleted.ID) // already gone, no second eviction

	time.Sleep(100 * time.Millisecond)
	if _, exists := m.GetSession(expired.ID); exists {
		t.Fatal("session should be expired")
	}

	if len(evicted) != 2 || evicted[0] != "deleted" || evicted[1] != "expired" {
		t.Errorf("evicted = %v, want [deleted expired]", evicted)
	}

	closed, _ := m.CreateSession("closed")
	m.Close()
	if m.Len() != 0 {
		t.Errorf("Len() = %d after Close, want 0", m.Len())
	}
	if _, exists := m.GetSession(closed.ID); exists {
		t.Error("session should be gone after Close")
	}
	if evicted[len(evicted)-1] != "closed" {
		t.Errorf("Close did not evict, got %v", evicted)
	}
}

func TestStartCleanup(t *testing.T) {
	m := NewManager[string](20 * time.Millisecond)

	var removed atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartCleanup(ctx, 10*time.Millisecond, func(n int) {
		removed.Add(int32(n))
	})

	for i := 0; i < 3; i++ {
		if _, err := m.CreateSession("text"); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for removed.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("cleanup reported %d removed sessions, want 3", removed.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if m.Len() != 0 {
		t.Errorf("Len() = %d after cleanup, want 0", m.Len())
	}
}

func TestStartCleanupTinyInterval(t *testing.T) {
	m := NewManager[int](time.Nanosecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var passes atomic.Int32
	// TTL()/2 rounds down to zero, which must not reach time.NewTicker
	m.StartCleanup(ctx, m.TTL()/2, func(int) { passes.Add(1) })
	m.StartCleanup(ctx, 0, nil)

	deadline := time.Now().Add(time.Second)
	for passes.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("cleanup never ran")
		}
		time.Sleep(time.Millisecond)
	}
}
