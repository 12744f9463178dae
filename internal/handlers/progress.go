package handlers

import (
	"net/http"
	"sync"

	"gridsettle/internal/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type runEventHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

var progressHub = &runEventHub{conns: make(map[*websocket.Conn]bool)}

// Broadcast sends a run event to every connected client. Connections that
// fail to accept the write are dropped.
func (h *runEventHub) Broadcast(ev reconcile.RunEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(ev); err != nil {
			log.Warnf("Dropping progress subscriber: %v", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

func (h *runEventHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
}

func (h *runEventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[conn] {
		conn.Close()
		delete(h.conns, conn)
	}
}

// ReconcileProgressHandler upgrades the connection and streams run events
// until the client disconnects.
func ReconcileProgressHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	progressHub.add(conn)
	defer progressHub.remove(conn)

	// Clients only listen; the read loop just detects disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
