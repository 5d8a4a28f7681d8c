// Package hub pushes game events to spectators over WebSocket.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"marketsim-server/internal/economy"
	"marketsim-server/internal/market"
	"marketsim-server/internal/world"
)

const (
	EventGameCreated  = "game_created"
	EventTurnResolved = "turn_resolved"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Message is the JSON envelope of every event.
type Message struct {
	Type    string `json:"type"`
	GameID  string `json:"game_id"`
	Turn    int    `json:"turn"`
	Payload any    `json:"payload"`
}

// TurnSummary is the turn_resolved payload; spectators get the public market
// outcome, not the per-company books.
type TurnSummary struct {
	Climate   market.Climate                                `json:"climate"`
	Ranking   []world.RankEntry                             `json:"ranking"`
	UnitsSold map[economy.Product]map[economy.Country]int64 `json:"units_sold"`
	Digest    string                                        `json:"digest"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected clients and fans broadcast messages out to them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	connected  atomic.Int64

	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub accepts upgrades from the given origins; an empty list allows any origin.
func NewHub(allowedOrigins []string, logger *slog.Logger) *Hub {
	h := &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	logger := h.logger.With("component", "hub")
	logger.Info("WebSocket hub started")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			logger.Info("WebSocket hub stopped")
			return

		case c := <-h.register:
			h.clients[c] = true
			h.connected.Add(1)
			logger.Debug("Client registered", "clients", len(h.clients))

		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
				logger.Debug("Client unregistered", "clients", len(h.clients))
			}

		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					logger.Warn("Dropping slow client")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.connected.Add(-1)
}

// Clients reports how many sockets are registered.
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}

// Publish queues a message for every connected client.
func (h *Hub) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", msg.Type, err)
	}

	select {
	case h.broadcast <- payload:
		return nil
	case <-h.done:
		return fmt.Errorf("hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Name() string { return "hub" }

func (h *Hub) GameCreated(ctx context.Context, gameID string, cfg world.Config) error {
	return h.Publish(ctx, Message{
		Type:   EventGameCreated,
		GameID: gameID,
		Turn:   1,
		Payload: map[string]any{
			"total_turns":      cfg.TotalTurns,
			"computer_players": cfg.ComputerPlayers,
			"player_name":      cfg.PlayerName,
		},
	})
}

func (h *Hub) TurnResolved(ctx context.Context, gameID string, report *world.TurnReport) error {
	units := make(map[economy.Product]map[economy.Country]int64)
	for _, s := range report.Sales {
		if units[s.Product] == nil {
			units[s.Product] = make(map[economy.Country]int64)
		}
		units[s.Product][s.Country] += s.Quantity
	}

	return h.Publish(ctx, Message{
		Type:   EventTurnResolved,
		GameID: gameID,
		Turn:   report.Turn,
		Payload: TurnSummary{
			Climate:   report.Climate,
			Ranking:   report.Ranking,
			UnitsSold: units,
			Digest:    report.Digest,
		},
	})
}

// ServeWS upgrades the request and attaches the socket to the hub. The feed is
// one-way: inbound frames other than control frames are discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "component", "hub", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("WebSocket closed unexpectedly", "component", "hub", "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
