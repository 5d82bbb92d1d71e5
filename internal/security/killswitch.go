package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sndwiz/veriscase-backend/internal/models"
	"github.com/sndwiz/veriscase-backend/internal/pkg/metrics"
)

// Kill switch transition errors. Mapped to 400-class responses at the HTTP
// boundary; never retried automatically.
var (
	ErrAlreadyActive      = errors.New("kill switch is already active")
	ErrNotActive          = errors.New("kill switch is not active")
	ErrInvalidRecoveryKey = errors.New("invalid recovery key")
)

const defaultLockdownReason = "Emergency lockdown activated"

// activationActions are appended to the action log, in order, on every
// activation.
var activationActions = []string{
	"Kill switch activated",
	"All normal processing stopped",
	"Enhanced audit logging enabled",
	"Honeypot endpoints deployed",
	"Full request logging activated",
	"Privileged permissions locked",
}

// Actor identifies who is operating the kill switch. The surrounding
// authorization layer has already verified the admin role; this component
// trusts the identity it is handed.
type Actor struct {
	ID        string
	IP        string
	UserAgent string
}

// KillSwitch is the process-wide emergency lockdown state machine. One
// exclusive lock guards every transition and read so activation is
// all-or-nothing: no reader can observe active=true without a recovery key
// behind it, or a partially appended action log.
type KillSwitch struct {
	mu          sync.Mutex
	active      bool
	activatedAt time.Time
	activatedBy string
	reason      string
	recoveryKey string
	actionLog   []models.KillSwitchAction

	events EventSink
}

// NewKillSwitch returns an inactive kill switch. events may be nil.
func NewKillSwitch(events EventSink) *KillSwitch {
	return &KillSwitch{events: events}
}

// Activate engages the lockdown and returns the one-time recovery key. The
// key is surfaced here and nowhere else; state reads never include it.
func (k *KillSwitch) Activate(actor Actor, reason string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.active {
		return "", ErrAlreadyActive
	}

	key, err := generateRecoveryKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate recovery key: %w", err)
	}
	if reason == "" {
		reason = defaultLockdownReason
	}

	now := time.Now().UTC()
	k.active = true
	k.activatedAt = now
	k.activatedBy = actor.ID
	k.reason = reason
	k.recoveryKey = key
	for _, action := range activationActions {
		k.actionLog = append(k.actionLog, models.KillSwitchAction{
			Action:    action,
			Actor:     actor.ID,
			Timestamp: now,
		})
	}
	metrics.KillSwitchActive.Set(1)

	if k.events != nil {
		k.events.Record(&models.SecurityEvent{
			EventType: models.EventKillSwitchActivated,
			UserID:    optional(actor.ID),
			IPAddress: actor.IP,
			UserAgent: actor.UserAgent,
			Severity:  models.SeverityCritical,
			Details:   models.MarshalDetails(models.KillSwitchDetails{Actor: actor.ID, Reason: reason}),
		})
	}
	return key, nil
}

// Deactivate lifts the lockdown when suppliedKey matches the stored recovery
// key exactly. A wrong key is itself logged to the action log before the
// error returns, so brute-force attempts stay visible.
func (k *KillSwitch) Deactivate(actor Actor, suppliedKey string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.active {
		return ErrNotActive
	}
	if suppliedKey != k.recoveryKey {
		k.actionLog = append(k.actionLog, models.KillSwitchAction{
			Action:    "Invalid recovery key attempt",
			Actor:     actor.ID,
			Timestamp: time.Now().UTC(),
		})
		return ErrInvalidRecoveryKey
	}

	now := time.Now().UTC()
	k.active = false
	k.activatedAt = time.Time{}
	k.activatedBy = ""
	k.reason = ""
	k.recoveryKey = ""
	k.actionLog = append(k.actionLog,
		models.KillSwitchAction{Action: "Kill switch deactivated", Actor: actor.ID, Timestamp: now},
		models.KillSwitchAction{Action: "Normal operations resumed", Actor: actor.ID, Timestamp: now},
	)
	metrics.KillSwitchActive.Set(0)

	if k.events != nil {
		k.events.Record(&models.SecurityEvent{
			EventType: models.EventKillSwitchDeactivated,
			UserID:    optional(actor.ID),
			IPAddress: actor.IP,
			UserAgent: actor.UserAgent,
			Severity:  models.SeverityCritical,
			Details:   models.MarshalDetails(models.KillSwitchDetails{Actor: actor.ID}),
		})
	}
	return nil
}

// IsLocked reports whether the lockdown is engaged. Handlers performing
// irreversible or sensitive operations must consult this before proceeding.
func (k *KillSwitch) IsLocked() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.active
}

// State returns the current state without the recovery key.
func (k *KillSwitch) State() models.KillSwitchStatus {
	k.mu.Lock()
	defer k.mu.Unlock()

	status := models.KillSwitchStatus{
		Active:      k.active,
		ActivatedBy: k.activatedBy,
		Reason:      k.reason,
		ActionLog:   make([]models.KillSwitchAction, len(k.actionLog)),
	}
	copy(status.ActionLog, k.actionLog)
	if k.active {
		at := k.activatedAt
		status.ActivatedAt = &at
	}
	return status
}

// generateRecoveryKey returns a 6 hex-character uppercase key.
func generateRecoveryKey() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
