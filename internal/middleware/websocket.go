package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"hostreport/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return strings.HasSuffix(origin, "://"+r.Host)
	},
}

// PayloadFunc builds the message pushed to every client watching label.
type PayloadFunc func(ctx context.Context, label string) interface{}

type client struct {
	conn  *websocket.Conn
	label string
}

// Hub pushes a freshly built payload to each live-feed client on every tick.
// Only the Run goroutine writes to connections.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mutex      sync.RWMutex
	interval   time.Duration
	payload    PayloadFunc
	logger     *utils.Logger
}

func NewHub(interval time.Duration, payload PayloadFunc, logger *utils.Logger) *Hub {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		interval:   interval,
		payload:    payload,
		logger:     logger,
	}
}

// Run serves registrations and ticks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case cl := <-h.register:
			h.mutex.Lock()
			h.clients[cl] = true
			h.mutex.Unlock()
			h.logf("WebSocket client connected (label %q)", cl.label)
			h.push(ctx, []*client{cl})

		case cl := <-h.unregister:
			h.drop(cl)
			h.logf("WebSocket client disconnected")

		case <-ticker.C:
			h.push(ctx, h.snapshotClients())

		case <-ctx.Done():
			h.mutex.Lock()
			for cl := range h.clients {
				_ = cl.conn.Close()
				delete(h.clients, cl)
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *Hub) snapshotClients() []*client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	out := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		out = append(out, cl)
	}
	return out
}

// push builds one payload per distinct label.
func (h *Hub) push(ctx context.Context, targets []*client) {
	if h.payload == nil || len(targets) == 0 {
		return
	}
	messages := make(map[string][]byte)
	for _, cl := range targets {
		msg, ok := messages[cl.label]
		if !ok {
			b, err := json.Marshal(h.payload(ctx, cl.label))
			if err != nil {
				h.logf("WebSocket encode error: %v", err)
				continue
			}
			msg = b
			messages[cl.label] = msg
		}
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logf("WebSocket write error: %v", err)
			h.drop(cl)
		}
	}
}

func (h *Hub) drop(cl *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		_ = cl.conn.Close()
	}
}

func (h *Hub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request; the host query parameter selects the
// label for every pushed snapshot.
func (h *Hub) HandleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		label := strings.TrimSpace(c.Query("host"))
		if label == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "host is required"})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logf("WebSocket upgrade error: %v", err)
			return
		}
		cl := &client{conn: conn, label: label}
		select {
		case h.register <- cl:
		case <-h.done:
			_ = conn.Close()
			return
		}
		defer func() {
			select {
			case h.unregister <- cl:
			case <-h.done:
			}
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logf("WebSocket error: %v", err)
				}
				break
			}
		}
	}
}

func (h *Hub) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if h.logger != nil {
		h.logger.Write(msg)
		return
	}
	log.Println(msg)
}
