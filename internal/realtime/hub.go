package realtime

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/onboardhr/onboarding/internal/auth"
	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 64
)

// connection is one websocket subscriber. Staff see every event, candidates
// only their own.
type connection struct {
	id      string
	subject *auth.AuthContext
	conn    *websocket.Conn
	send    chan portalmodel.StepEvent
}

func (c *connection) wants(event portalmodel.StepEvent) bool {
	return c.subject.CanAccessCandidate(event.CandidateID)
}

// Hub fans step events out to websocket subscribers.
type Hub struct {
	issuer   *auth.TokenIssuer
	upgrader websocket.Upgrader
	logger   *slog.Logger

	register   chan *connection
	unregister chan *connection
	broadcast  chan portalmodel.StepEvent
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once

	count atomic.Int64
}

// NewHub starts the hub loop. Tokens are read from the Authorization header or
// the token query parameter, since browsers cannot set headers on websockets.
func NewHub(issuer *auth.TokenIssuer, allowedOrigins []string) *Hub {
	h := &Hub{
		issuer: issuer,
		logger: slog.Default().With("module", "realtime"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		register:   make(chan *connection),
		unregister: make(chan *connection),
		broadcast:  make(chan portalmodel.StepEvent, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// Publish queues an event for every interested subscriber. It never blocks;
// events are dropped when the queue is full.
func (h *Hub) Publish(event portalmodel.StepEvent) {
	select {
	case <-h.stop:
		return
	default:
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast queue full, dropping event", "candidate_id", event.CandidateID, "step_id", event.StepID)
	}
}

// ConnectionCount reports the number of registered subscribers.
func (h *Hub) ConnectionCount() int {
	return int(h.count.Load())
}

// Close disconnects every subscriber and stops the hub loop.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// ServeWS upgrades GET /api/ws.
func (h *Hub) ServeWS(c *gin.Context) {
	subject := auth.FromGin(c)
	if subject == nil {
		if token := c.Query("token"); token != "" && h.issuer != nil {
			if parsed, err := h.issuer.Parse(token); err == nil {
				subject = parsed
			}
		}
	}
	if subject == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := &connection{
		id:      uuid.NewString(),
		subject: subject,
		conn:    ws,
		send:    make(chan portalmodel.StepEvent, sendBuffer),
	}

	select {
	case h.register <- conn:
	case <-h.stop:
		_ = ws.Close()
		return
	}

	go h.writePump(conn)
	go h.readPump(conn)
}

func (h *Hub) run() {
	defer close(h.done)
	connections := make(map[*connection]struct{})

	drop := func(c *connection) {
		if _, ok := connections[c]; !ok {
			return
		}
		delete(connections, c)
		close(c.send)
		h.count.Store(int64(len(connections)))
	}

	for {
		select {
		case c := <-h.register:
			connections[c] = struct{}{}
			h.count.Store(int64(len(connections)))
			h.logger.Debug("subscriber registered", "connection_id", c.id, "user_id", c.subject.UserID)

		case c := <-h.unregister:
			drop(c)
			h.logger.Debug("subscriber unregistered", "connection_id", c.id)

		case event := <-h.broadcast:
			for c := range connections {
				if !c.wants(event) {
					continue
				}
				select {
				case c.send <- event:
				default:
					h.logger.Warn("subscriber too slow, disconnecting", "connection_id", c.id)
					drop(c)
				}
			}

		case <-h.stop:
			for c := range connections {
				drop(c)
			}
			return
		}
	}
}

// readPump only services control frames; subscribers never send data.
func (h *Hub) readPump(c *connection) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stop:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read failed", "connection_id", c.id, "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
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

// originChecker allows requests without an Origin header and those whose
// origin is listed. An empty list or "*" allows everything.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}
