package ws

import (
	"log/slog"

	"energy_dashboard/internal/config"
	"energy_dashboard/internal/dashboard"
)

// Bridge tells connected clients about page-context reloads so they can
// request their charts again.
type Bridge struct {
	hub *Hub
}

func NewBridge(hub *Hub) *Bridge {
	return &Bridge{hub: hub}
}

// OnPagesReloaded is handed to config.Watch after the new pages are in use.
func (b *Bridge) OnPagesReloaded(p *config.Pages) {
	msg, err := NewEnvelope(TypeConfigReloaded, ConfigReloadedPayload{
		Pages:     dashboard.PageIDs,
		Threshold: p.EnergyInOut.Threshold,
	})
	if err != nil {
		b.hub.logger.Error("marshaling config:reloaded", slog.Any("error", err))
		return
	}
	b.hub.Broadcast(msg)
}
