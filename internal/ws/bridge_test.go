package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy_dashboard/internal/config"
	"energy_dashboard/internal/dashboard"
)

func newTestBridge() (*Bridge, *Client) {
	hub := NewHub(nil)
	client := &Client{hub: hub, send: make(chan []byte, 256)}
	hub.Register(client)
	bridge := NewBridge(hub)
	return bridge, client
}

func receiveEnvelope(t *testing.T, c *Client) Envelope {
	t.Helper()
	msg := <-c.send
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestBridge_OnPagesReloaded(t *testing.T) {
	bridge, client := newTestBridge()

	pages, err := config.DefaultPages()
	require.NoError(t, err)
	pages.EnergyInOut.Threshold = 0.25

	bridge.OnPagesReloaded(pages)

	env := receiveEnvelope(t, client)
	assert.Equal(t, TypeConfigReloaded, env.Type)

	var p ConfigReloadedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, dashboard.PageIDs, p.Pages)
	assert.InDelta(t, 0.25, p.Threshold, 1e-9)
}

func TestBridge_NoClients(t *testing.T) {
	pages, err := config.DefaultPages()
	require.NoError(t, err)

	assert.NotPanics(t, func() { NewBridge(NewHub(nil)).OnPagesReloaded(pages) })
}
