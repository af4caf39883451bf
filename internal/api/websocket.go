package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/sensord/internal/infrastructure/config"
	"github.com/nerrad567/sensord/internal/stream"
)

// closeWriteDeadline bounds the close handshake control frame write.
const closeWriteDeadline = time.Second

// getLastKnownLocation is the inbound request message a location-attached
// connection may send to receive a one-off unicast fix reply.
const getLastKnownLocation = "getlastknownlocation"

// upgrader configures the WebSocket upgrader. Streaming clients are LAN
// tools and scripts, not browsers; origin checking is intentionally open.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// wsClient is one streaming WebSocket connection. It implements
// stream.Conn: the dispatcher hands it frames through Send, and the write
// pump is the only goroutine touching the socket for data frames.
type wsClient struct {
	id     string
	remote string
	server *Server
	att    stream.Attachment
	conn   *websocket.Conn
	send   chan []byte

	closeOnce sync.Once
}

// ID returns the connection's unique identifier.
func (c *wsClient) ID() string { return c.id }

// RemoteAddr returns the client's network address.
func (c *wsClient) RemoteAddr() string { return c.remote }

// Send queues a frame for the write pump. It never blocks: a full buffer
// or a closed connection drops the frame and returns false.
func (c *wsClient) Send(data []byte) (ok bool) {
	defer func() {
		// Absorb send-on-closed-channel during disconnect races.
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// handleStream upgrades the request, validates it with resolve, and on
// success attaches the connection for streaming. Validation failures are
// answered over the upgraded socket with an application close code.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, resolve func() (stream.Attachment, *closeError)) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err, "path", r.URL.Path)
		return
	}

	att, cerr := resolve()
	if cerr == nil {
		cerr = s.checkPreconditions(att)
	}
	if cerr != nil {
		s.logger.Info("connection rejected",
			"path", r.URL.Path, "code", cerr.code, "reason", cerr.reason, "remote", r.RemoteAddr)
		closeWith(conn, cerr.code, cerr.reason)
		return
	}

	client := &wsClient{
		id:     uuid.NewString(),
		remote: r.RemoteAddr,
		server: s,
		att:    att,
		conn:   conn,
		send:   make(chan []byte, s.wsCfg.SendBufferSize),
	}

	s.register(client)
	s.registry.Attach(client, att)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// closeWith performs the close handshake with an application code and
// reason, then drops the transport.
func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, truncateReason(reason))
	//nolint:errcheck // Best-effort close handshake; transport is dropped either way
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteDeadline))
	conn.Close()
}

// register adds a client to the server's connection set.
func (s *Server) register(c *wsClient) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()
	s.logger.Debug("websocket client connected",
		"conn", c.id, "remote", c.remote, "kind", c.att.Kind.String(), "clients", count)
}

// unregister removes a client from the connection set. Only the goroutine
// that removes the client from the map closes the send channel, preventing
// double-close panics during shutdown.
func (s *Server) unregister(c *wsClient) {
	s.mu.Lock()
	_, existed := s.clients[c]
	delete(s.clients, c)
	count := len(s.clients)
	s.mu.Unlock()

	if existed {
		close(c.send)
	}
	s.logger.Debug("websocket client disconnected", "conn", c.id, "clients", count)
}

// readPump reads inbound messages until the connection dies.
//
// Its deferred teardown is the single detach point for the connection:
// detach completes before the transport is released, so a closed
// connection can never appear in a later dispatch lookup.
func (c *wsClient) readPump(cfg config.WebSocketConfig) {
	s := c.server
	defer func() {
		s.registry.Detach(c)
		s.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "conn", c.id, "error", err)
			} else {
				s.logger.Debug("websocket closed", "conn", c.id, "error", err)
			}
			return
		}
		// Any client message resets the read deadline.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes queued frames and protocol pings to the connection.
func (c *wsClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Server closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an inbound message. The only recognised request
// is getLastKnownLocation on a location-attached connection; everything
// else is ignored.
func (c *wsClient) handleMessage(data []byte) {
	msg := strings.ToLower(strings.Trim(strings.TrimSpace(string(data)), `"`))
	if msg == getLastKnownLocation && c.att.WantsLocation() {
		c.replyLastKnown()
		return
	}
	c.server.logger.Debug("inbound message ignored", "conn", c.id, "bytes", len(data))
}

// replyLastKnown answers a getLastKnownLocation request on this connection
// only, bypassing the broadcast path. Silent when no fix exists yet.
func (c *wsClient) replyLastKnown() {
	payload, ok := c.server.location.LastKnownPayload()
	if !ok {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		c.server.logger.Error("failed to marshal location reply", "conn", c.id, "error", err)
		return
	}
	c.Send(data)
}

// shutdown terminates the connection with an application close code.
// Used by server shutdown (CloseServerStopped) and host operator action
// (CloseHostAction). Detach is performed here, before the transport drops,
// so the shutdown sequence can stop producers knowing no connection
// remains attached.
func (c *wsClient) shutdown(code int, reason string) {
	c.server.registry.Detach(c)
	c.closeOnce.Do(func() {
		closeWith(c.conn, code, reason)
	})
}
