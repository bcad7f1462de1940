package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"ledger-server/src/auth"
	"ledger-server/src/feed"
	"ledger-server/src/logger"
	"ledger-server/src/middleware"
	"ledger-server/src/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// FeedMessage is one frame on the client feed socket.
type FeedMessage struct {
	Type   string              `json:"type"`
	Event  *models.ChangeEvent `json:"event,omitempty"`
	State  string              `json:"state,omitempty"`
	Reason string              `json:"reason,omitempty"`
}

// Feed streams the caller's change events over a WebSocket and tells the
// client when its session is signed out.
func Feed(hub *feed.Hub, events *auth.Events, allowedOrigins []string) http.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowed) == 0 || origin == "" || allowed[origin]
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			middleware.WriteError(w, http.StatusUnauthorized, "missing token")
			return
		}

		// Subscribe before the handshake completes so nothing written after
		// the client sees the upgrade is missed.
		sub := hub.Subscribe(userID)
		defer sub.Close()
		sessionEvents, stop := events.Subscribe()
		defer stop()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to upgrade feed connection")
			return
		}
		defer conn.Close()

		// The reader only handles control frames; it ends when the client goes away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		send := func(msg FeedMessage) bool {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Int64("user_id", userID).Msg("Feed client write failed")
				return false
			}
			return true
		}

		log.Info().Int64("user_id", userID).Msg("Feed client connected")
		for {
			select {
			case <-gone:
				return
			case ev, open := <-sub.Events():
				if !open {
					reason := "closed"
					if err := sub.Err(); err != nil {
						reason = err.Error()
					}
					send(FeedMessage{Type: "resync", Reason: reason})
					return
				}
				if !send(FeedMessage{Type: "change", Event: &ev}) {
					return
				}
			case sev, open := <-sessionEvents:
				if !open {
					return
				}
				if sev.UserID == userID && sev.Kind == auth.SignedOut {
					send(FeedMessage{Type: "session", State: string(auth.SignedOut)})
					conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"),
						time.Now().Add(writeWait))
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
