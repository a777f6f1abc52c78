package transport

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// WebsocketBridge upgrades HTTP requests into push connections fed by a
// hub subscriber.
type WebsocketBridge struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebsocketBridge creates a bridge over the given hub.
func NewWebsocketBridge(hub *Hub, logger *zap.Logger) *WebsocketBridge {
	return &WebsocketBridge{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Dashboard is served from arbitrary dev origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the connection and streams hub events until the
// client disconnects.
func (b *WebsocketBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket-upgrade-failed", zap.Error(err))
		return
	}

	sub := b.hub.Subscribe()
	b.logger.Info("websocket-client-connected",
		zap.String("subscriber-id", sub.ID()),
		zap.String("remote-addr", r.RemoteAddr))

	done := make(chan struct{})
	go b.readLoop(conn, done)
	b.writeLoop(conn, sub, done)

	b.hub.Unsubscribe(sub.ID())
	_ = conn.Close()
	b.logger.Info("websocket-client-disconnected", zap.String("subscriber-id", sub.ID()))
}

// readLoop drains client frames so close and pong handling work. The
// push surface accepts no client commands.
func (b *WebsocketBridge) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *WebsocketBridge) writeLoop(conn *websocket.Conn, sub *Subscriber, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				b.logger.Error("event-marshal-failed",
					zap.String("type", string(event.Type)),
					zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				b.logger.Debug("websocket-write-failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
