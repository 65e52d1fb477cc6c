package facade

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/unicornultrafoundation/p2pcore/internal/beacon"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// hub fans out beacon events to connected viewer websockets: a pure push
// channel, no client-to-server messages are consumed.
type hub struct {
	mu      sync.RWMutex
	viewers map[*websocket.Conn]struct{}
	log     *slog.Logger
}

func newHub(log *slog.Logger) *hub {
	return &hub{
		viewers: make(map[*websocket.Conn]struct{}),
		log:     log.With("component", "facade-ws"),
	}
}

func (h *hub) handleConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "err", err)
		return
	}

	h.mu.Lock()
	h.viewers[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.viewers, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// The viewer connection is push-only; this loop's sole purpose is to
	// detect client disconnects (read errors) and reclaim the socket.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) broadcast(ev beacon.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.viewers {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			h.log.Debug("websocket write failed", "err", err)
		}
	}
}
