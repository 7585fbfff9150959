package webui

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"spooktrunt/logging"
	"spooktrunt/studio"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SnapshotHub pushes studio snapshots to WebSocket clients. Each connection
// follows the studio of the session that opened it; a browser with several
// tabs open gets one connection per tab.
//
// Thread-safe for concurrent connections.
type SnapshotHub struct {
	sessions *SessionStore
	logger   *logging.Logger
	config   HubConfig
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// HubConfig holds configuration for the SnapshotHub.
type HubConfig struct {
	// PingInterval is how often to send ping messages (default: 30s)
	PingInterval time.Duration

	// PongWait is how long to wait for a pong response (default: 60s)
	PongWait time.Duration

	// WriteWait is time allowed to write a message (default: 10s)
	WriteWait time.Duration

	// MaxMessageSize is max message size from client (default: 512 bytes)
	MaxMessageSize int64

	// SendBufferSize is the per-client queue length (default: 32)
	SendBufferSize int
}

// DefaultHubConfig returns the default configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 512,
		SendBufferSize: 32,
	}
}

type wsClient struct {
	conn       *websocket.Conn
	remoteAddr string
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

// close stops the pumps and the connection. Safe to call repeatedly.
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewSnapshotHub creates a hub resolving connections through sessions.
func NewSnapshotHub(sessions *SessionStore, config HubConfig, logger *logging.Logger) *SnapshotHub {
	defaults := DefaultHubConfig()
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.PongWait <= 0 {
		config.PongWait = defaults.PongWait
	}
	if config.WriteWait <= 0 {
		config.WriteWait = defaults.WriteWait
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = defaults.SendBufferSize
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SnapshotHub{
		sessions: sessions,
		logger:   logger.Named("ws"),
		config:   config,
		clients:  make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// same-origin deployment; the session cookie is SameSite=Lax
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades the request and streams the caller's studio.
// The current snapshot is sent immediately, then one per change.
func (h *SnapshotHub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	sessionID, st, cookie := h.sessions.lookupOrCreate(r)
	var header http.Header
	if cookie != nil {
		header = http.Header{"Set-Cookie": {cookie.String()}}
	}

	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err))
		return
	}

	c := &wsClient{
		conn:       conn,
		remoteAddr: conn.RemoteAddr().String(),
		send:       make(chan []byte, h.config.SendBufferSize),
		done:       make(chan struct{}),
	}
	h.add(c)

	unsubscribe := st.Subscribe(func(snap studio.Snapshot) {
		h.enqueue(c, NewSnapshotMessage(snap))
	})
	h.enqueue(c, NewSnapshotMessage(st.Snapshot()))

	h.logger.Debug("client connected",
		logging.SessionID(sessionID),
		zap.String("remote_addr", c.remoteAddr),
		zap.Int("clients", h.ClientCount()))

	go h.writePump(c)
	go func() {
		h.readPump(c)
		unsubscribe()
		h.remove(c)
		h.logger.Debug("client disconnected",
			logging.SessionID(sessionID),
			zap.String("remote_addr", c.remoteAddr))
	}()
}

// ClientCount returns the current number of connected clients.
func (h *SnapshotHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *SnapshotHub) Close() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.logger.Debug("all clients disconnected", zap.Int("count", len(clients)))
}

func (h *SnapshotHub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *SnapshotHub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// enqueue never blocks the studio. A client too slow to drain its queue is
// disconnected; the front-end reconnects and receives a fresh snapshot.
func (h *SnapshotHub) enqueue(c *wsClient, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		h.logger.Warn("client send buffer full, closing", zap.String("remote_addr", c.remoteAddr))
		c.close()
	}
}

// readPump discards client messages; it exists to process pongs and close
// frames.
func (h *SnapshotHub) readPump(c *wsClient) {
	c.conn.SetReadLimit(h.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("unexpected close", zap.Error(err))
			}
			return
		}
	}
}

func (h *SnapshotHub) writePump(c *wsClient) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("write failed", zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
