package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/carrier-core/internal/event"
	"github.com/nerrad567/carrier-core/internal/infrastructure/config"
	"github.com/nerrad567/carrier-core/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// wsSendBufferSize is the per-client outbound queue length.
	wsSendBufferSize = 256
)

// Broadcast channels. A subscription ending in "*" matches every channel
// with that prefix, so "event.*" receives all deliveries.
const (
	ChannelSession     = "session"
	ChannelEventPrefix = "event."
)

// Defaults applied when the WebSocket config leaves a field unset.
const (
	defaultWSPath           = "/ws"
	defaultWSMaxMessageSize = 8192
	defaultWSPingInterval   = 30
	defaultWSPongTimeout    = 10
)

// EventChannel returns the broadcast channel for deliveries of kind k.
func EventChannel(k event.Kind) string {
	return ChannelEventPrefix + k.String()
}

// WSMessage is a message sent to a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe requests.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// wsRequest is a message received from a client. The payload is decoded
// once the type is known.
type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans dispatcher deliveries out to WebSocket clients.
//
// Clients receive nothing until they subscribe. Subscribing to
// ChannelSession also sends the current session status straight away, so
// a fresh client never waits for the next event to learn the state.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	pingInterval time.Duration
	pongWait     time.Duration

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	status  func() event.Status
}

// WSClient is one connected WebSocket client.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu            sync.RWMutex
	subscriptions map[string]struct{}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a hub, filling unset config fields with defaults.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	if cfg.Path == "" {
		cfg.Path = defaultWSPath
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultWSMaxMessageSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultWSPingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultWSPongTimeout
	}
	return &Hub{
		cfg:          cfg,
		logger:       logger,
		pingInterval: time.Duration(cfg.PingInterval) * time.Second,
		pongWait:     time.Duration(cfg.PongTimeout) * time.Second,
		clients:      make(map[*WSClient]struct{}),
	}
}

// SetStatusSource installs the function used to greet session subscribers.
func (h *Hub) SetStatusSource(fn func() event.Status) {
	h.mu.Lock()
	h.status = fn
	h.mu.Unlock()
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

// Unregister removes a client from the hub. Only the caller that removes
// the client closes its send channel.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(client.send)
		h.logger.Debug("websocket client disconnected", "clients", n)
	}
}

// Broadcast sends payload to every client subscribed to channel.
// The hub lock is released before per-client subscription checks.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(eventMessage(channel, payload))
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	recipients := 0
	for _, client := range clients {
		if client.isSubscribed(channel) {
			client.trySend(data)
			recipients++
		}
	}
	if recipients > 0 {
		h.logger.Debug("broadcast sent", "channel", channel, "recipients", recipients)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

func (h *Hub) currentStatus() (event.Status, bool) {
	h.mu.RLock()
	fn := h.status
	h.mu.RUnlock()
	if fn == nil {
		return event.Status{}, false
	}
	return fn(), true
}

// ObserveEvent implements event.Observer. Each delivery is broadcast on
// the channel of its kind and the session status on ChannelSession.
func (h *Hub) ObserveEvent(_ context.Context, d event.Delivery) {
	h.Broadcast(EventChannel(d.Event.Kind), d)
	h.Broadcast(ChannelSession, d.Status)
}

// handleWebSocket upgrades the request and starts the client pumps.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: make(map[string]struct{}),
	}
	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

// readPump reads client requests until the connection fails. Any inbound
// message, not only a pong, extends the read deadline.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	keepalive := c.hub.pingInterval + c.hub.pongWait
	c.conn.SetReadLimit(int64(c.hub.cfg.MaxMessageSize))
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(keepalive))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(keepalive))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(keepalive))
		c.handleMessage(data)
	}
}

// writePump drains the send queue and pings on the configured interval.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(c.hub.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) write(messageType int, data []byte) error {
	//nolint:errcheck // Write error is reported below
	c.conn.SetWriteDeadline(time.Now().Add(c.hub.pongWait))
	return c.conn.WriteMessage(messageType, data)
}

func (c *WSClient) handleMessage(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch req.Type {
	case WSTypeSubscribe:
		c.updateSubscriptions(req, true)
	case WSTypeUnsubscribe:
		c.updateSubscriptions(req, false)
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	default:
		c.sendError(req.ID, "unknown message type: "+req.Type)
	}
}

// updateSubscriptions adds or removes the requested channels and
// acknowledges them. A new session subscription is followed by the
// current status.
func (c *WSClient) updateSubscriptions(req wsRequest, subscribe bool) {
	var sub WSSubscribePayload
	if len(req.Payload) == 0 || json.Unmarshal(req.Payload, &sub) != nil {
		c.sendError(req.ID, "invalid "+req.Type+" payload")
		return
	}

	c.mu.Lock()
	for _, ch := range sub.Channels {
		if subscribe {
			c.subscriptions[ch] = struct{}{}
		} else {
			delete(c.subscriptions, ch)
		}
	}
	c.mu.Unlock()

	if !subscribe {
		c.reply(req.ID, WSTypeResponse, map[string]any{"unsubscribed": sub.Channels})
		return
	}

	c.hub.logger.Debug("websocket client subscribed", "channels", sub.Channels)
	c.reply(req.ID, WSTypeResponse, map[string]any{"subscribed": sub.Channels})

	if !c.isSubscribed(ChannelSession) {
		return
	}
	if status, ok := c.hub.currentStatus(); ok {
		if data, err := json.Marshal(eventMessage(ChannelSession, status)); err == nil {
			c.trySend(data)
		}
	}
}

// trySend queues data without blocking. A full queue drops the message and
// a closed one (client left during a broadcast) is ignored.
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
	}
}

// isSubscribed reports whether channel matches a subscription, directly
// or through a prefix wildcard.
func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.subscriptions[channel]; ok {
		return true
	}
	for sub := range c.subscriptions {
		if prefix, ok := strings.CutSuffix(sub, "*"); ok && strings.HasPrefix(channel, prefix) {
			return true
		}
	}
	return false
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func (c *WSClient) sendError(id, message string) {
	c.reply(id, WSTypeError, map[string]string{"message": message})
}

func eventMessage(channel string, payload any) WSMessage {
	return WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	}
}
