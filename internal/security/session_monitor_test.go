package security

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/sndwiz/veriscase-backend/internal/models"
)

func newTestMonitor(t *testing.T, sink EventSink) *SessionMonitor {
	t.Helper()
	m, err := NewSessionMonitor(128, sink)
	if err != nil {
		t.Fatalf("Failed to create session monitor: %v", err)
	}
	return m
}

func TestSessionMonitor_FirstSightSeedsState(t *testing.T) {
	m := newTestMonitor(t, nil)
	m.Track("sess-1", "user-1", "10.0.0.1", "Mozilla/5.0")

	state, ok := m.Info("sess-1")
	if !ok {
		t.Fatal("Expected session to be tracked")
	}
	if state.InitialIP != "10.0.0.1" || state.LastIP != "10.0.0.1" {
		t.Errorf("Expected initial and last address 10.0.0.1, got %s / %s", state.InitialIP, state.LastIP)
	}
	if len(state.History) != 1 {
		t.Errorf("Expected history seeded with one entry, got %d", len(state.History))
	}
	if state.LastActivity.IsZero() {
		t.Error("Expected last activity stamped")
	}
}

func TestSessionMonitor_AddressDriftRaisesEvent(t *testing.T) {
	sink := &captureSink{}
	m := newTestMonitor(t, sink)

	m.Track("sess-1", "user-1", "10.0.0.1", "Mozilla/5.0")
	m.Track("sess-1", "user-1", "10.0.0.2", "Mozilla/5.0")

	events := sink.byType(models.EventSessionIPChange)
	if len(events) != 1 {
		t.Fatalf("Expected exactly one drift event, got %d", len(events))
	}
	if events[0].Severity != models.SeverityWarning {
		t.Errorf("Expected warning severity, got %s", events[0].Severity)
	}
	var details models.SessionIPChangeDetails
	if err := json.Unmarshal([]byte(events[0].Details), &details); err != nil {
		t.Fatalf("Failed to decode details: %v", err)
	}
	if details.PreviousIP != "10.0.0.1" || details.NewIP != "10.0.0.2" {
		t.Errorf("Expected previousIp=10.0.0.1 newIp=10.0.0.2, got %+v", details)
	}
	if details.UserID != "user-1" {
		t.Errorf("Expected user id in details, got %q", details.UserID)
	}

	state, _ := m.Info("sess-1")
	if state.LastIP != "10.0.0.2" {
		t.Errorf("Expected last address updated to 10.0.0.2, got %s", state.LastIP)
	}
	if state.InitialIP != "10.0.0.1" {
		t.Errorf("Initial address must not change, got %s", state.InitialIP)
	}
}

func TestSessionMonitor_SameAddressIsQuiet(t *testing.T) {
	sink := &captureSink{}
	m := newTestMonitor(t, sink)

	for i := 0; i < 5; i++ {
		m.Track("sess-1", "user-1", "10.0.0.1", "Mozilla/5.0")
	}
	if got := len(sink.byType(models.EventSessionIPChange)); got != 0 {
		t.Errorf("Expected no drift events for a stable address, got %d", got)
	}
	state, _ := m.Info("sess-1")
	if len(state.History) != 1 {
		t.Errorf("Expected history unchanged, got %d entries", len(state.History))
	}
}

func TestSessionMonitor_HistoryCapped(t *testing.T) {
	m := newTestMonitor(t, &captureSink{})

	for i := 0; i < 25; i++ {
		m.Track("sess-1", "user-1", fmt.Sprintf("10.0.0.%d", i+1), "Mozilla/5.0")
	}

	state, _ := m.Info("sess-1")
	if len(state.History) != models.SessionHistoryCap {
		t.Errorf("Expected history capped at %d, got %d", models.SessionHistoryCap, len(state.History))
	}
	// Oldest entries evicted first: the newest observation is the last element.
	newest := state.History[len(state.History)-1]
	if newest.IPAddress != "10.0.0.25" {
		t.Errorf("Expected newest address last, got %s", newest.IPAddress)
	}
	if state.LastIP != "10.0.0.25" {
		t.Errorf("Expected last address 10.0.0.25, got %s", state.LastIP)
	}
}

func TestSessionMonitor_Forget(t *testing.T) {
	m := newTestMonitor(t, nil)
	m.Track("sess-1", "user-1", "10.0.0.1", "")
	m.Forget("sess-1")
	if _, ok := m.Info("sess-1"); ok {
		t.Error("Expected session state dropped after Forget")
	}
}

func TestSessionMonitor_UntrackedSessionInfo(t *testing.T) {
	m := newTestMonitor(t, nil)
	if _, ok := m.Info("never-seen"); ok {
		t.Error("Expected untracked session to report not found")
	}
}

// Exercises concurrent Track/Info/Forget on a shared session; run under
// -race this fails if state access is not synchronized.
func TestSessionMonitor_ConcurrentAccess(t *testing.T) {
	m := newTestMonitor(t, &captureSink{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.Track("sess-1", "user-1", fmt.Sprintf("10.0.%d.%d", n, j), "Mozilla/5.0")
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if state, ok := m.Info("sess-1"); ok && len(state.History) > models.SessionHistoryCap {
					t.Errorf("History exceeded cap: %d", len(state.History))
					return
				}
			}
		}()
	}
	wg.Wait()

	state, ok := m.Info("sess-1")
	if !ok {
		t.Fatal("Expected session tracked after concurrent writes")
	}
	if len(state.History) == 0 || len(state.History) > models.SessionHistoryCap {
		t.Errorf("Expected bounded non-empty history, got %d entries", len(state.History))
	}
}
