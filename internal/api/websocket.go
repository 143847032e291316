package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/cotbridge/internal/infrastructure/config"
	"github.com/nerrad567/cotbridge/internal/infrastructure/logging"
	"github.com/nerrad567/cotbridge/internal/listener"
)

// Stream channels. A client picks channels with ?channels=a,b when it
// connects; without the parameter it receives both.
const (
	ChannelEvents = "cot.event"
	ChannelStatus = "listener.status"
)

// streamQueue is the number of frames buffered per client before frames are
// dropped for that client.
const streamQueue = 256

// Frame is one message written to a stream client.
type Frame struct {
	Channel string `json:"channel"`
	At      string `json:"at"`
	Data    any    `json:"data"`
}

// StatusChange is the listener.status payload.
type StatusChange struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	From     string `json:"from"`
	To       string `json:"to"`
	Reason   string `json:"reason"`
	Error    string `json:"error,omitempty"`
}

// Hub fans enriched events and listener transitions out to websocket
// clients. It implements listener.Observer.
type Hub struct {
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool
}

type streamClient struct {
	conn     *websocket.Conn
	channels map[string]bool
	out      chan []byte
	remote   string
}

// NewHub creates a hub. Run must be called to tie its lifetime to a context.
func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			// Stream consumers are dashboards on other origins; CORS does
			// not apply to the upgrade request.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*streamClient]struct{}),
	}
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

// Clients returns the number of connected stream clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues payload for every client on channel. A client whose queue
// is full misses the frame.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(Frame{
		Channel: channel,
		At:      time.Now().UTC().Format(time.RFC3339Nano),
		Data:    payload,
	})
	if err != nil {
		h.logger.Error("encoding stream frame", "channel", channel, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	dropped := 0
	for c := range h.clients {
		if !c.channels[channel] {
			continue
		}
		select {
		case c.out <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("stream clients lagging", "channel", channel, "dropped", dropped)
	}
}

// ListenerTransition implements listener.Observer.
func (h *Hub) ListenerTransition(tr listener.Transition) {
	change := StatusChange{
		Port:     tr.Port,
		Protocol: string(tr.Protocol),
		From:     string(tr.From),
		To:       string(tr.To),
		Reason:   tr.Reason,
	}
	if tr.Err != nil {
		change.Error = tr.Err.Error()
	}
	h.Broadcast(ChannelStatus, change)
}

func (h *Hub) attach(c *streamClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Debug("stream client connected", "remote", c.remote, "clients", len(h.clients))
	return true
}

func (h *Hub) detach(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
	h.logger.Debug("stream client disconnected", "remote", c.remote, "clients", len(h.clients))
}

// dropLocked removes c and closes its queue once. Caller holds h.mu.
func (h *Hub) dropLocked(c *streamClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.out)
}

// parseChannels reads the channels query parameter.
func parseChannels(raw string) (map[string]bool, error) {
	if raw == "" {
		return map[string]bool{ChannelEvents: true, ChannelStatus: true}, nil
	}
	channels := make(map[string]bool)
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case ChannelEvents, ChannelStatus:
			channels[name] = true
		case "":
		default:
			return nil, fmt.Errorf("unknown channel %q", name)
		}
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels requested")
	}
	return channels, nil
}

// handleStream upgrades the request to a websocket and streams frames for
// the requested channels until either side closes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	channels, err := parseChannels(r.URL.Query().Get("channels"))
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := s.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Warn("stream upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &streamClient{
		conn:     conn,
		channels: channels,
		out:      make(chan []byte, streamQueue),
		remote:   r.RemoteAddr,
	}
	if !s.hub.attach(c) {
		conn.Close()
		return
	}

	go c.writeLoop(s.wsCfg)
	go c.readLoop(s.hub, s.wsCfg)
}

// readLoop discards client frames; reading keeps pong handling and the
// read deadline alive and notices the client going away.
func (c *streamClient) readLoop(h *Hub, cfg config.WebSocketConfig) {
	defer func() {
		h.detach(c)
		c.conn.Close()
	}()

	idle := cfg.PingEvery() + cfg.PongWait()
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(idle)) }

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	extend("") //nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("stream client read failed", "remote", c.remote, "error", err)
			}
			return
		}
		extend("") //nolint:errcheck // see above
	}
}

// writeLoop drains the client queue and pings on the configured interval.
// It exits when the hub closes the queue or a write fails.
func (c *streamClient) writeLoop(cfg config.WebSocketConfig) {
	ping := time.NewTicker(cfg.PingEvery())
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	wait := cfg.PongWait()
	for {
		select {
		case data, ok := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(wait)) //nolint:errcheck // write error caught below
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(wait)) //nolint:errcheck // write error caught below
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
