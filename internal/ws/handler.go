package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"energy_dashboard/internal/dashboard"
	"energy_dashboard/internal/options"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Renderer runs a page pipeline.
type Renderer interface {
	Render(ctx context.Context, page string, v options.Values) (any, error)
}

// Handler manages WebSocket connections and answers chart requests.
type Handler struct {
	hub      *Hub
	renderer Renderer
}

func NewHandler(hub *Hub, renderer Renderer) *Handler {
	return &Handler{hub: hub, renderer: renderer}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	h.sendSession(client)

	// Requests are answered in order, one at a time per connection.
	h.readPump(r.Context(), client)
}

func (h *Handler) readPump(ctx context.Context, c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.hub.logger.Warn("websocket read error", slog.String("session", c.id), slog.Any("error", err))
			}
			return
		}

		h.handleMessage(ctx, c, msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *Client, msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		h.hub.logger.Warn("invalid message", slog.String("session", c.id), slog.Any("error", err))
		return
	}

	switch env.Type {
	case TypeChartRequest:
		var p ChartRequestPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			h.hub.logger.Warn("invalid chart:request payload", slog.String("session", c.id), slog.Any("error", err))
			return
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		h.handleChartRequest(ctx, c, p)

	default:
		h.hub.logger.Warn("unknown message type", slog.String("session", c.id), slog.String("type", env.Type))
	}
}

func (h *Handler) handleChartRequest(ctx context.Context, c *Client, p ChartRequestPayload) {
	data, err := h.renderer.Render(ctx, p.Page, p.Options)
	if err != nil {
		failure := dashboard.Describe(err)
		if failure.Kind == dashboard.KindError {
			h.hub.logger.Error("chart request failed",
				slog.String("session", c.id), slog.String("request", p.ID), slog.String("page", p.Page), slog.Any("error", err))
		}
		h.send(c, TypeChartError, ChartErrorPayload{ID: p.ID, Failure: failure})
		return
	}
	h.send(c, TypeChartData, ChartDataPayload{ID: p.ID, Page: p.Page, Data: data})
}

func (h *Handler) sendSession(c *Client) {
	h.send(c, TypeSession, SessionPayload{SessionID: c.id, Pages: dashboard.PageIDs})
}

func (h *Handler) send(c *Client, msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		h.hub.logger.Error("marshaling message", slog.String("type", msgType), slog.Any("error", err))
		return
	}
	select {
	case c.send <- msg:
	default:
		h.hub.logger.Warn("client buffer full, dropping message", slog.String("session", c.id), slog.String("type", msgType))
	}
}
