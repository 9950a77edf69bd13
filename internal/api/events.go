package api

import (
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"github.com/JaimeStill/lineage/pkg/middleware"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// newUpgrader accepts same-host origins, plus the CORS origins when CORS is
// enabled.
func newUpgrader(cors *middleware.CORSConfig) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if cors.Enabled && slices.Contains(cors.Origins, origin) {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// events streams the session state over a WebSocket: the current state on
// connect, then the latest state after every change. Intermediate states may
// be skipped when the client reads slowly. Client messages are ignored.
func (h *sessionHandler) events(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	states, unsubscribe := h.session.Subscribe()
	defer unsubscribe()

	go func() {
		defer unsubscribe()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	h.logger.DebugContext(r.Context(), "event stream opened", "addr", r.RemoteAddr)

	for {
		select {
		case state, ok := <-states:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				h.logger.DebugContext(r.Context(), "event stream closed", "addr", r.RemoteAddr)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(h.view(state)); err != nil {
				h.logger.DebugContext(r.Context(), "event stream write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
