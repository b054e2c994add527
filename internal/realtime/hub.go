package realtime

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wattrewards/wattrewards/pkg/logger"
)

const (
	writeTimeout    = 10 * time.Second
	idleTimeout     = 60 * time.Second
	keepAlivePeriod = 50 * time.Second
	maxInboundBytes = 4 << 10
	outboxSize      = 32
)

// Message is the JSON frame pushed to stream subscribers.
type Message struct {
	Stream string         `json:"stream"`
	Event  string         `json:"event"`
	Data   any            `json:"data,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// Broadcaster delivers realtime messages to a user's open sessions.
type Broadcaster interface {
	BroadcastToUser(stream, userID string, message Message)
}

type audience struct {
	stream string
	userID string
}

// Hub tracks open websocket sessions per stream and recipient.
type Hub struct {
	mu       sync.RWMutex
	sessions map[audience]map[*session]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// HubOption customises a Hub.
type HubOption func(*Hub)

// WithAllowedOrigins accepts browser upgrades from the listed origins in
// addition to same-host and loopback origins. Requests without an Origin
// header, such as those from the mobile app, are always accepted.
func WithAllowedOrigins(origins ...string) HubOption {
	hosts := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		if host := originHost(origin); host != "" {
			hosts[host] = struct{}{}
		}
	}
	return func(h *Hub) {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			if trustedOrigin(r) {
				return true
			}
			_, ok := hosts[originHost(r.Header.Get("Origin"))]
			return ok
		}
	}
}

// NewHub constructs an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		sessions: make(map[audience]map[*session]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     trustedOrigin,
		},
		log: logger.WithModule("realtime"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve upgrades the request and keeps the session open until the client
// disconnects. Unknown stream names are ignored.
func (h *Hub) Serve(userID string, streams []string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	s := &session{
		hub:    h,
		conn:   conn,
		userID: userID,
		outbox: make(chan Message, outboxSize),
		closed: make(chan struct{}),
	}
	for _, stream := range streams {
		stream = strings.ToLower(strings.TrimSpace(stream))
		if !KnownStream(stream) {
			h.log.Debug("ignoring unknown stream", zap.String("stream", stream), zap.String("user_id", userID))
			continue
		}
		s.streams = append(s.streams, stream)
	}
	h.attach(s)

	go s.pump()
	s.listen()
}

// BroadcastToUser queues message on every session userID holds on stream.
// Sessions whose outbox is full are disconnected.
func (h *Hub) BroadcastToUser(stream, userID string, message Message) {
	if userID == "" || !KnownStream(stream) {
		return
	}
	message.Stream = stream

	h.mu.RLock()
	targets := make([]*session, 0, len(h.sessions[audience{stream, userID}]))
	for s := range h.sessions[audience{stream, userID}] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.deliver(message)
	}
}

// ConnectionCount reports the sessions open on stream for userID, or for
// every user when userID is empty.
func (h *Hub) ConnectionCount(stream, userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if userID != "" {
		return len(h.sessions[audience{stream, userID}])
	}
	total := 0
	for key, set := range h.sessions {
		if key.stream == stream {
			total += len(set)
		}
	}
	return total
}

func (h *Hub) attach(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range s.streams {
		key := audience{stream, s.userID}
		if h.sessions[key] == nil {
			h.sessions[key] = make(map[*session]struct{})
		}
		h.sessions[key][s] = struct{}{}
	}
}

func (h *Hub) detach(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range s.streams {
		key := audience{stream, s.userID}
		delete(h.sessions[key], s)
		if len(h.sessions[key]) == 0 {
			delete(h.sessions, key)
		}
	}
}

type session struct {
	hub     *Hub
	conn    *websocket.Conn
	userID  string
	streams []string
	outbox  chan Message
	closed  chan struct{}
	once    sync.Once
}

type clientFrame struct {
	Action string `json:"action"`
}

func (s *session) deliver(message Message) {
	select {
	case <-s.closed:
	case s.outbox <- message:
	default:
		s.hub.log.Warn("disconnecting slow websocket client", zap.String("user_id", s.userID))
		go s.shutdown()
	}
}

// listen consumes client frames. The only client action is "ping".
func (s *session) listen() {
	defer s.shutdown()

	s.conn.SetReadLimit(maxInboundBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.log.Debug("websocket closed", zap.String("user_id", s.userID), zap.Error(err))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(idleTimeout))

		var frame clientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			s.deliver(Message{Event: eventError, Data: map[string]string{"message": "malformed frame"}})
			continue
		}
		if strings.EqualFold(strings.TrimSpace(frame.Action), "ping") {
			s.deliver(Message{Event: eventPong})
		}
	}
}

func (s *session) pump() {
	keepAlive := time.NewTicker(keepAlivePeriod)
	defer keepAlive.Stop()
	defer s.shutdown()

	for {
		select {
		case message := <-s.outbox:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(message); err != nil {
				return
			}
		case <-keepAlive.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-s.closed:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		}
	}
}

func (s *session) shutdown() {
	s.once.Do(func() {
		s.hub.detach(s)
		close(s.closed)
		_ = s.conn.Close()
	})
}

// trustedOrigin accepts requests without an Origin header, same-host origins
// and loopback origins.
func trustedOrigin(r *http.Request) bool {
	raw := r.Header.Get("Origin")
	if raw == "" {
		return true
	}
	host := originHost(raw)
	if host == "" {
		return false
	}
	if host == originHost(r.Host) {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return host == "localhost"
}

// originHost lowercases the host of an origin URL or host[:port] string.
func originHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		return strings.ToLower(parsed.Hostname())
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(raw)
}
