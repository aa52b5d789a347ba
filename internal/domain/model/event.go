package model

import "time"

// Event types emitted by the platform.
const (
	EventSearch = "SEARCH"
)

// PlatformEvent is an immutable telemetry event. Payload shape is open:
// handlers must tolerate unknown or missing keys.
type PlatformEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}
