package models

import "time"

// SessionHistoryCap bounds the per-session address history; oldest entries
// are evicted first.
const SessionHistoryCap = 10

// IPObservation is one address seen on a session, with when it was first seen.
type IPObservation struct {
	IPAddress string    `json:"ip_address"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionState tracks the addresses an authenticated session has been seen
// from. Keyed by session ID, one-to-one with a live session.
type SessionState struct {
	InitialIP    string          `json:"initial_ip"`
	LastIP       string          `json:"last_ip"`
	History      []IPObservation `json:"history"`
	LastActivity time.Time       `json:"last_activity"`
}
