// Package ws pushes signal-bus events to websocket clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Channels are the signal-bus channels bridged to clients. New clients are
// subscribed to all of them.
var Channels = []string{
	domain.ChannelOpportunity,
	domain.ChannelTrade,
	domain.ChannelScan,
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[string]bool
	mu   sync.RWMutex
}

// subscribeMsg lets a client narrow or widen its channels:
// {"action":"unsubscribe","channels":["ch:scan"]}
type subscribeMsg struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

// envelope wraps every frame sent to a client.
type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type broadcastMsg struct {
	channel string
	data    []byte
}

// Hub fans signal-bus messages out to connected clients.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	bus        domain.SignalBus
	upgrader   websocket.Upgrader
	mode       string
	startedAt  time.Time
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub creates a Hub. bus may be nil, in which case only Publish feeds
// clients. allowedOrigins restricts the Origin header; empty allows all.
func NewHub(bus domain.SignalBus, mode string, allowedOrigins []string, logger *slog.Logger) *Hub {
	h := &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		bus:        bus,
		mode:       mode,
		startedAt:  time.Now().UTC(),
		logger:     logger.With(slog.String("component", "ws")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Run bridges the bus channels and serves client registration until ctx is
// done.
func (h *Hub) Run(ctx context.Context) error {
	if h.bus != nil {
		for _, ch := range Channels {
			go h.subscribe(ctx, ch)
		}
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", slog.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", slog.Int("clients", n))

		case msg := <-h.broadcast:
			frame, err := json.Marshal(envelope{Channel: msg.channel, Data: msg.data})
			if err != nil {
				h.logger.Warn("dropping non-JSON message", slog.String("channel", msg.channel))
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				if !c.isSubscribed(msg.channel) {
					continue
				}
				select {
				case c.send <- frame:
				default:
					h.logger.Warn("dropping message for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish queues data for clients subscribed to channel.
func (h *Hub) Publish(ctx context.Context, channel string, data []byte) {
	select {
	case h.broadcast <- broadcastMsg{channel: channel, data: data}:
	case <-ctx.Done():
	}
}

func (h *Hub) subscribe(ctx context.Context, channel string) {
	msgs, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("subscribe failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.Info("subscribed", slog.String("channel", channel))

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgs:
			if !ok {
				h.logger.Warn("subscription closed", slog.String("channel", channel))
				return
			}
			h.Publish(ctx, channel, data)
		}
	}
}

// HandleWS upgrades the request and registers the client.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool, len(Channels)),
	}
	for _, ch := range Channels {
		c.subs[ch] = true
	}

	h.register <- c
	c.sendHello()

	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close", slog.String("error", err.Error()))
			}
			return
		}
		var sub subscribeMsg
		if json.Unmarshal(message, &sub) == nil && sub.Action != "" {
			c.handleSubscription(sub)
		}
	}
}

func (c *client) handleSubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Action {
	case "subscribe":
		for _, ch := range msg.Channels {
			c.subs[ch] = true
		}
	case "unsubscribe":
		for _, ch := range msg.Channels {
			delete(c.subs, ch)
		}
	}
}

// sendHello tells the client which mode the process runs in and which
// channels it receives.
func (c *client) sendHello() {
	data, err := json.Marshal(map[string]any{
		"mode":           c.hub.mode,
		"channels":       Channels,
		"uptime_seconds": int64(time.Since(c.hub.startedAt).Seconds()),
	})
	if err != nil {
		return
	}
	frame, err := json.Marshal(envelope{Channel: "hello", Data: data})
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[channel]
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
