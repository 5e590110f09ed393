package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"support-insights-go/internal/logger"
	"support-insights-go/internal/metrics"
)

const writeWait = 5 * time.Second

// PanelChanged is pushed to every socket of a session when one of its
// panels has new state to fetch.
type PanelChanged struct {
	Panel string `json:"panel"`
}

type client struct {
	session string
	conn    *websocket.Conn
}

type notification struct {
	session string
	msg     PanelChanged
}

// Hub fans panel notifications out to the sockets of the owning session.
type Hub struct {
	log     *logger.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[*client]bool

	broadcast  chan notification
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

func NewHub(log *logger.Logger, m *metrics.Metrics) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		log:        log.Component("hub"),
		metrics:    m,
		clients:    make(map[*client]bool),
		broadcast:  make(chan notification, 100),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Notify queues a notification. It never blocks; when the queue is full the
// notification is dropped since the next one triggers the same refetch.
func (h *Hub) Notify(sessionID, panel string) {
	select {
	case h.broadcast <- notification{session: sessionID, msg: PanelChanged{Panel: panel}}:
	default:
		h.log.WithField("session", sessionID).WithField("panel", panel).Warn("notification queue full, dropping")
	}
}

// Run serves register, unregister and broadcast until ctx is done, then
// closes every socket.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.conn.Close()
				delete(h.clients, c)
				h.metrics.WebsocketDelta(-1)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.WebsocketDelta(1)
			h.log.WithField("session", c.session).WithField("clients", n).Debug("client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.conn.Close()
				h.metrics.WebsocketDelta(-1)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.WithField("session", c.session).WithField("clients", n).Debug("client disconnected")

		case n := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if c.session != n.session {
					continue
				}
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteJSON(n.msg); err != nil {
					h.log.WithError(err).WithField("session", c.session).Warn("websocket write failed")
					c.conn.Close()
					delete(h.clients, c)
					h.metrics.WebsocketDelta(-1)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Clients reports how many sockets are registered for a session.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.session == sessionID {
			n++
		}
	}
	return n
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

// serve upgrades the request and keeps reading until the browser goes away.
// Incoming messages are ignored.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &client{session: sessionID, conn: conn}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- c:
			case <-h.done:
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
