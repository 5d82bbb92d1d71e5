package security

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sndwiz/veriscase-backend/internal/models"
)

// SessionMonitor tracks the client address each authenticated session is
// seen from and raises a session_ip_change event on drift. State is held
// in memory keyed by session ID and bounded by an LRU, matching the
// session's own lifetime: entries for dead sessions simply age out.
// The mutex covers every access to the stored states, not just the cache
// itself; the LRU hands out shared pointers.
type SessionMonitor struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *models.SessionState]
	events   EventSink
}

// NewSessionMonitor creates a monitor bounding state to maxSessions entries.
// events may be nil.
func NewSessionMonitor(maxSessions int, events EventSink) (*SessionMonitor, error) {
	cache, err := lru.New[string, *models.SessionState](maxSessions)
	if err != nil {
		return nil, err
	}
	return &SessionMonitor{sessions: cache, events: events}, nil
}

// Track observes one authenticated request. First sight of a session seeds
// its state; subsequent sights refresh activity and detect address drift.
// Concurrent requests on the same session serialize on the monitor lock;
// whichever lands last wins, which is acceptable for an advisory history.
func (m *SessionMonitor) Track(sessionID, userID, ip, userAgent string) {
	if sessionID == "" {
		return
	}
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions.Get(sessionID)
	if !ok {
		m.sessions.Add(sessionID, &models.SessionState{
			InitialIP:    ip,
			LastIP:       ip,
			History:      []models.IPObservation{{IPAddress: ip, Timestamp: now}},
			LastActivity: now,
		})
		return
	}

	state.LastActivity = now
	if ip == state.LastIP {
		return
	}

	previous := state.LastIP
	state.History = append(state.History, models.IPObservation{IPAddress: ip, Timestamp: now})
	if len(state.History) > models.SessionHistoryCap {
		state.History = state.History[len(state.History)-models.SessionHistoryCap:]
	}
	state.LastIP = ip

	if m.events != nil {
		m.events.Record(&models.SecurityEvent{
			EventType: models.EventSessionIPChange,
			UserID:    optional(userID),
			IPAddress: ip,
			UserAgent: userAgent,
			Severity:  models.SeverityWarning,
			Details: models.MarshalDetails(models.SessionIPChangeDetails{
				PreviousIP: previous,
				NewIP:      ip,
				UserID:     userID,
			}),
		})
	}
}

// Info returns a copy of the session's tracked state, or false when the
// session is untracked.
func (m *SessionMonitor) Info(sessionID string) (models.SessionState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions.Get(sessionID)
	if !ok {
		return models.SessionState{}, false
	}
	out := *state
	out.History = make([]models.IPObservation, len(state.History))
	copy(out.History, state.History)
	return out, true
}

// Forget drops a session's tracked state. Called when the session ends.
func (m *SessionMonitor) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Remove(sessionID)
}
