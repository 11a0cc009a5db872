package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/aquarium-core/internal/bus"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/config"
	"github.com/nerrad567/aquarium-core/internal/infrastructure/logging"
	"github.com/nerrad567/aquarium-core/internal/protocol"
)

// Frame types exchanged with WebSocket clients.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// WSChannelAll subscribes a client to every aquarium topic.
const WSChannelAll = "*"

const (
	wsSendBuffer        = 64
	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
)

// WSMessage is a frame sent to a client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload lists channels: aquarium topics, or "*".
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// wsRequest is a frame received from a client.
type wsRequest struct {
	Type    string             `json:"type"`
	ID      string             `json:"id"`
	Payload WSSubscribePayload `json:"payload"`
}

// WSEvent carries one bus message in wire form.
type WSEvent struct {
	Topic string `json:"topic"`
	Value string `json:"value"`
}

// Hub relays bus traffic to WebSocket clients. It is a bus.Subscriber
// attached to every aquarium topic; delivery never blocks the bus.
type Hub struct {
	ping, pong time.Duration
	readLimit  int64
	logger     *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is one connection. Frames queue on send and are written by the
// client's writer goroutine; done is closed exactly once when it leaves.
type WSClient struct {
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	channels map[string]bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origins are enforced by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub creates a hub. Zero timings fall back to 30s ping and 10s pong.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	h := &Hub{
		ping:      defaultPingInterval,
		pong:      defaultPongTimeout,
		readLimit: int64(cfg.MaxMessageSize),
		logger:    logger,
		clients:   make(map[*WSClient]struct{}),
	}
	if cfg.PingInterval > 0 {
		h.ping = time.Duration(cfg.PingInterval) * time.Second
	}
	if cfg.PongTimeout > 0 {
		h.pong = time.Duration(cfg.PongTimeout) * time.Second
	}
	return h
}

func newWSClient(conn *websocket.Conn, channels ...string) *WSClient {
	c := &WSClient{
		conn:     conn,
		send:     make(chan []byte, wsSendBuffer),
		done:     make(chan struct{}),
		channels: make(map[string]bool),
	}
	for _, ch := range channels {
		c.channels[ch] = true
	}
	return c
}

// Attach subscribes the hub to every aquarium topic on b.
func (h *Hub) Attach(b bus.Bus) error {
	for _, topic := range (protocol.Topics{}).All() {
		if err := b.Subscribe(topic, h); err != nil {
			return err
		}
	}
	return nil
}

// Deliver implements bus.Subscriber.
func (h *Hub) Deliver(ev bus.Event) {
	msg, err := bus.Encode(ev)
	if err != nil {
		return
	}
	h.Broadcast(msg.Topic, WSEvent{Topic: msg.Topic, Value: string(msg.Payload)})
}

// Reject implements bus.Subscriber. Malformed traffic is not relayed.
func (h *Hub) Reject(topic string, _ []byte, err error) {
	h.logger.Debug("not relaying malformed message", "topic", topic, "error", err)
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.stop()
	}
}

func (h *Hub) add(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

func (h *Hub) remove(c *WSClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.stop()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Broadcast sends an event frame to every client subscribed to channel.
// A client whose buffer is full misses the frame.
func (h *Hub) Broadcast(channel string, payload any) {
	frame, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("marshalling websocket event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.wants(channel) && !c.enqueue(frame) {
			h.logger.Debug("websocket client lagging, frame dropped", "channel", channel)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleWebSocket upgrades the connection and attaches it to the hub.
// Clients receive nothing until they subscribe.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newWSClient(conn)
	s.hub.add(c)
	go s.hub.write(c)
	go s.hub.read(c)
}

// read handles client frames until the connection fails or closes.
func (h *Hub) read(c *WSClient) {
	defer h.remove(c)

	if h.readLimit > 0 {
		c.conn.SetReadLimit(h.readLimit)
	}
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(h.ping + h.pong)) }
	extend() //nolint:errcheck // A failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		extend() //nolint:errcheck // Any frame counts as liveness
		c.handle(data)
	}
}

// write drains the send queue and pings until the client stops.
func (h *Hub) write(c *WSClient) {
	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		var (
			kind = websocket.TextMessage
			data []byte
		)
		select {
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(h.pong)) //nolint:errcheck // Best effort
			return
		case data = <-c.send:
		case <-ticker.C:
			kind = websocket.PingMessage
		}

		c.conn.SetWriteDeadline(time.Now().Add(h.pong)) //nolint:errcheck // Write error caught below
		if err := c.conn.WriteMessage(kind, data); err != nil {
			c.stop()
			return
		}
	}
}

func (c *WSClient) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// enqueue queues a frame without blocking. It reports false when the
// client has stopped or its buffer is full.
func (c *WSClient) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *WSClient) wants(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channels[WSChannelAll] || c.channels[channel]
}

func (c *WSClient) handle(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply("", WSTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}

	switch req.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		subscribe := req.Type == WSTypeSubscribe
		c.mu.Lock()
		for _, ch := range req.Payload.Channels {
			if subscribe {
				c.channels[ch] = true
			} else {
				delete(c.channels, ch)
			}
		}
		c.mu.Unlock()
		c.reply(req.ID, WSTypeResponse, map[string]any{req.Type + "d": req.Payload.Channels})
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	default:
		c.reply(req.ID, WSTypeError, map[string]string{"message": "unknown message type: " + req.Type})
	}
}

func (c *WSClient) reply(id, kind string, payload any) {
	frame, err := json.Marshal(WSMessage{
		Type:      kind,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.enqueue(frame)
}
