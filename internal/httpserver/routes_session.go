// internal/httpserver/routes_session.go
//
// HTTP routes for a player session.
//   - POST   /session          → create a classic or daily session, returns a token
//   - GET    /session          → current snapshot
//   - DELETE /session          → discard the session
//   - POST   /session/start    → start (or restart) at level 1
//   - POST   /session/restart  → same as start
//   - POST   /session/quit     → back to the title state
//   - POST   /session/finish   → end the game now and record the score
//   - POST   /session/pause    → freeze clock and drops
//   - POST   /session/resume   → undo pause
//   - POST   /session/rescan   → replace the field for the current level
//   - POST   /session/advance  → skip to the next level
//   - POST   /session/drop     → resolve a drag released at (x, y)
//
// Every route except creation requires the bearer token issued on creation.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semantic-signal/internal/game"
)

func (s *Server) mountSession(r chi.Router) {
	r.Post("/session", s.handleCreateSession)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/session", s.handleSnapshot)
		r.Delete("/session", s.handleDeleteSession)
		r.Post("/session/start", s.handleStart)
		r.Post("/session/restart", s.handleStart)
		r.Post("/session/quit", s.simple(func(g *game.Session) { g.Quit() }))
		r.Post("/session/pause", s.simple(func(g *game.Session) { g.Pause() }))
		r.Post("/session/resume", s.simple(func(g *game.Session) { g.Resume() }))
		r.Post("/session/finish", s.handleFinish)
		r.Post("/session/rescan", s.handleRescan)
		r.Post("/session/advance", s.handleAdvance)
		r.Post("/session/drop", s.handleDrop)
	})
}

// createSessionReq is the optional body of POST /session.
type createSessionReq struct {
	Mode string `json:"mode"` // "classic" (default) | "daily"
}

type createSessionRes struct {
	SessionID string        `json:"sessionId"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Snapshot  game.Snapshot `json:"snapshot"`
}

// handleCreateSession registers a new session and signs its token.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	sess, err := s.factory.NewSession(r.Context(), req.Mode)
	if errors.Is(err, ErrUnknownMode) {
		writeError(w, http.StatusBadRequest, "unknown_mode")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("create session")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	tok, exp, err := s.tokens.Sign(sess.ID())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	log.Info().Str("session", sess.ID()).Str("mode", sess.Mode()).Msg("session created")

	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createSessionRes{
		SessionID: sess.ID(),
		Token:     tok,
		ExpiresAt: exp,
		Snapshot:  sess.Snapshot(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(sessionFrom(r).Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Quit()
	_ = s.store.Delete(r.Context(), sess.ID())
	w.WriteHeader(http.StatusNoContent)
}

// simple wraps a mutator that cannot fail and replies with the new snapshot.
func (s *Server) simple(fn func(*game.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		fn(sess)
		_ = json.NewEncoder(w).Encode(sess.Snapshot())
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := sess.Start(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "start_failed")
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	ended := sess.Finish(r.Context())
	_ = json.NewEncoder(w).Encode(map[string]any{"ended": ended, "snapshot": sess.Snapshot()})
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	switch err := sess.RequestRescan(r.Context()); {
	case errors.Is(err, game.ErrBusy):
		writeError(w, http.StatusConflict, "busy")
	case errors.Is(err, game.ErrNotPlaying):
		writeError(w, http.StatusConflict, "not_playing")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "rescan_failed")
	default:
		_ = json.NewEncoder(w).Encode(sess.Snapshot())
	}
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	advanced := sess.AdvanceLevel()
	_ = json.NewEncoder(w).Encode(map[string]any{"advanced": advanced, "snapshot": sess.Snapshot()})
}

// dropReq is the payload for POST /session/drop: where a dragged word was released.
type dropReq struct {
	WordID string  `json:"wordId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type dropRes struct {
	Dropped  bool             `json:"dropped"` // false: missed the receiver or stale id
	Result   *game.DropResult `json:"result,omitempty"`
	Snapshot game.Snapshot    `json:"snapshot"`
}

func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	var req dropReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if req.WordID == "" {
		writeError(w, http.StatusBadRequest, "missing_word_id")
		return
	}
	sess := sessionFrom(r)
	res, ok := sess.ResolveDrop(r.Context(), req.WordID, req.X, req.Y)
	out := dropRes{Dropped: ok, Snapshot: sess.Snapshot()}
	if ok {
		out.Result = &res
	}
	_ = json.NewEncoder(w).Encode(out)
}
