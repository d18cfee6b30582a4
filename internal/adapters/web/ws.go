package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jarvis-lab/netguard/internal/adapters/web/middleware"
	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
)

const (
	statsPushInterval = 2 * time.Second
	wsWriteTimeout    = 5 * time.Second
)

// WSMessage is the envelope every push shares.
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type statsFunc func(context.Context) (domain.SystemStats, error)

// WSManager fans service events out to connected dashboard clients and
// pushes a stats snapshot on a short interval.
type WSManager struct {
	stats    statsFunc
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]string // conn -> username
}

var _ ports.EventNotifier = (*WSManager)(nil)

func NewWSManager(stats statsFunc, allowedOrigins []string) *WSManager {
	m := &WSManager{
		stats:   stats,
		clients: make(map[*websocket.Conn]string),
	}
	m.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Same-origin clients send no Origin header.
				return true
			}
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			slog.Warn("websocket origin rejected", "origin", origin)
			return false
		},
	}
	return m
}

// Start launches the periodic stats push.
func (m *WSManager) Start(ctx context.Context) {
	go m.pushLoop(ctx)
}

// HandleWebSocket upgrades an authenticated request and keeps the
// connection registered until the peer goes away.
func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	m.mu.Lock()
	m.clients[conn] = user.Username
	m.mu.Unlock()
	slog.Info("websocket connected", "user", user.Username)

	go m.readUntilClose(conn, user.Username)
}

// readUntilClose drains the connection so close frames are processed,
// then unregisters it.
func (m *WSManager) readUntilClose(conn *websocket.Conn, username string) {
	defer func() {
		conn.Close()
		m.mu.Lock()
		delete(m.clients, conn)
		m.mu.Unlock()
		slog.Info("websocket disconnected", "user", username)
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ClientCount reports connected clients.
func (m *WSManager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *WSManager) pushLoop(ctx context.Context) {
	ticker := time.NewTicker(statsPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pushStats(ctx)
		}
	}
}

func (m *WSManager) pushStats(ctx context.Context) {
	// Skip the database work while nobody is watching.
	if m.ClientCount() == 0 {
		return
	}
	stats, err := m.stats(ctx)
	if err != nil {
		slog.Warn("stats push skipped", "error", err)
		return
	}
	m.broadcast(WSMessage{Type: "stats", Payload: stats})
}

func (m *WSManager) NotifyDevice(device domain.Device) {
	m.broadcast(WSMessage{Type: "device_update", Payload: device})
}

func (m *WSManager) NotifyAlert(alert domain.SecurityAlert) {
	m.broadcast(WSMessage{Type: "new_alert", Payload: alert})
}

func (m *WSManager) NotifyVulnerability(vuln domain.Vulnerability) {
	m.broadcast(WSMessage{Type: "new_vulnerability", Payload: vuln})
}

func (m *WSManager) NotifyAnalysis(analysis domain.Analysis) {
	m.broadcast(WSMessage{Type: "new_analysis", Payload: analysis})
}

func (m *WSManager) broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("broadcast encode failed", "type", msg.Type, "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.clients {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
}
