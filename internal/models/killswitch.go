package models

import "time"

// KillSwitchAction is one timestamped line in the kill switch action log.
type KillSwitchAction struct {
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// KillSwitchStatus is the externally visible kill switch state. The recovery
// key is deliberately absent: it is returned once, at activation, and never
// appears in any read projection.
type KillSwitchStatus struct {
	Active      bool               `json:"active"`
	ActivatedAt *time.Time         `json:"activated_at,omitempty"`
	ActivatedBy string             `json:"activated_by,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	ActionLog   []KillSwitchAction `json:"action_log"`
}
