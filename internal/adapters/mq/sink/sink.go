// Package sink exports platform events to external brokers. Each sink's
// Handle method is registered as an event queue handler.
package sink

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
)

// envelope is the wire shape shared by every sink.
type envelope struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Encode renders an event as JSON with an RFC 3339 timestamp.
func Encode(e model.PlatformEvent) ([]byte, error) {
	data, err := json.Marshal(envelope{
		ID:        e.ID,
		Type:      e.Type,
		Source:    e.Source,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Payload:   e.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	return data, nil
}
