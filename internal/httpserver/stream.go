// internal/httpserver/stream.go
//
// Live snapshot stream over WebSocket (GET /session/stream).
// Responsibilities:
//   - Push the current snapshot on connect and whenever its version changes.
//   - Ping periodically and mark the session active while connected.
//   - End when the client goes away, the session is removed or the server stops.

package httpserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semantic-signal/internal/game"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

// streamMessage is the frame pushed to stream clients.
type streamMessage struct {
	Type     string        `json:"type"` // always "snapshot"
	Snapshot game.Snapshot `json:"snapshot"`
}

// handleStream upgrades to a WebSocket and pushes a snapshot immediately and
// whenever the session version changes. Client frames are read and dropped;
// a read error ends the stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", sess.ID()).Msg("stream upgrade")
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	poll := time.NewTicker(s.streamInterval)
	defer poll.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	var last uint64
	sent := false
	for {
		if v := sess.Version(); !sent || v != last {
			snap := sess.Snapshot()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(streamMessage{Type: "snapshot", Snapshot: snap}); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Str("session", sess.ID()).Msg("stream write")
				}
				return
			}
			last, sent = snap.Version, true
		}

		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			// A connected stream keeps the session alive; stop once it is gone.
			if _, err := s.store.Get(r.Context(), sess.ID()); err != nil {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-poll.C:
		}
	}
}
