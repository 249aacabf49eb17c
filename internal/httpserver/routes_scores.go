// internal/httpserver/routes_scores.go
//
// HTTP routes for scores.
//   - GET /scores/top         → persisted top score
//   - GET /scores/leaderboard → best finished games for ?date= (default today, UTC)

package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semantic-signal/internal/daily"
	"github.com/robalobadob/semantic-signal/internal/store"
)

const maxLeaderboardLimit = 100

func (s *Server) mountScores(r chi.Router) {
	r.Route("/scores", func(r chi.Router) {
		r.Get("/top", s.handleTopScore)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
}

func (s *Server) handleTopScore(w http.ResponseWriter, r *http.Request) {
	top, _, err := s.scores.LoadTopScore(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("load top score")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]int{"topScore": top})
}

// lbRes is returned by /scores/leaderboard.
type lbRes struct {
	Date string                 `json:"date"`
	Top  []store.LeaderboardRow `json:"top"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	if date == "" {
		date = daily.DateKey(s.now())
	}
	limit := store.DefaultLeaderboardLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_limit")
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}
	rows, err := s.scores.Leaderboard(r.Context(), date, limit)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
