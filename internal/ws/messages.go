package ws

import (
	"encoding/json"

	"energy_dashboard/internal/dashboard"
	"energy_dashboard/internal/options"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> Server messages

type ChartRequestPayload struct {
	ID      string         `json:"id"`
	Page    string         `json:"page"`
	Options options.Values `json:"options"`
}

// Server -> Client messages

type SessionPayload struct {
	SessionID string   `json:"sessionId"`
	Pages     []string `json:"pages"`
}

type ChartDataPayload struct {
	ID   string `json:"id"`
	Page string `json:"page"`
	Data any    `json:"data"`
}

type ChartErrorPayload struct {
	ID string `json:"id"`
	dashboard.Failure
}

type ConfigReloadedPayload struct {
	Pages     []string `json:"pages"`
	Threshold float64  `json:"threshold"`
}

// Message type constants
const (
	// Client -> Server
	TypeChartRequest = "chart:request"

	// Server -> Client
	TypeSession        = "session:ready"
	TypeChartData      = "chart:data"
	TypeChartError     = "chart:error"
	TypeConfigReloaded = "config:reloaded"
)

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}
