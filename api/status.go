package api

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	pingPeriod  = 30 * time.Second
	writeWait   = 5 * time.Second
	clientQueue = 8
)

// SizeMessage is what status clients receive.
type SizeMessage struct {
	Size int `json:"size"`
}

type statusClient struct {
	send chan int
}

/*
StatusHub is the status display: the janitor reports the cache size to it after every
sweep and it pushes that number to every connected websocket client.

ReportSize never blocks. A client whose queue is full misses that report.
*/
type StatusHub struct {
	log      logrus.FieldLogger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*statusClient]struct{}
	origins []string
	last    int
}

// NewStatusHub creates a hub with no clients. A nil log discards output.
func NewStatusHub(log logrus.FieldLogger) *StatusHub {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	h := &StatusHub{
		log:     log,
		clients: make(map[*statusClient]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// AllowOrigins restricts which browser origins may open /ws/status.
// With no origins every origin is accepted, matching the CORS setup of the router.
func (h *StatusHub) AllowOrigins(origins ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.origins = append([]string(nil), origins...)
}

// checkOrigin accepts requests without an Origin header (non-browser clients)
// and browser requests from an allowed origin.
func (h *StatusHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.origins) == 0 {
		return true
	}
	for _, o := range h.origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// ReportSize implements types.SizeObserver.
func (h *StatusHub) ReportSize(size int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = size
	for c := range h.clients {
		select {
		case c.send <- size:
		default:
			h.log.Debug("status client is slow, report skipped")
		}
	}
}

// Last returns the most recent report (0 before the first sweep).
func (h *StatusHub) Last() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Clients returns how many websocket clients are connected.
func (h *StatusHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *StatusHub) add() (*statusClient, int) {
	c := &statusClient{send: make(chan int, clientQueue)}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	return c, h.last
}

func (h *StatusHub) remove(c *statusClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// ServeWS upgrades the request and streams size reports until the client goes away.
// The last known size is sent immediately on connect.
// WS /ws/status
func (h *StatusHub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	client, last := h.add()
	defer h.remove(client)
	h.log.WithField("remote", c.Request.RemoteAddr).Debug("status client connected")

	// Reader goroutine only detects disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, last); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			h.log.WithField("remote", c.Request.RemoteAddr).Debug("status client disconnected")
			return
		case size := <-client.send:
			if err := h.write(conn, size); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *StatusHub) write(conn *websocket.Conn, size int) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(SizeMessage{Size: size})
}
