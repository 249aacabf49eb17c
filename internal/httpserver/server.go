// internal/httpserver/server.go
//
// HTTP server wiring for the Semantic Signal backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/levels", "/debug/words".
//   - Session endpoints (bearer session token): mounted under /session.
//   - Scores endpoints: mounted under /scores.
//   - Live snapshot stream over WebSocket: GET /session/stream.
//
// Notes:
//   - CORS allows a single configured origin.
//   - The stream route sits outside the request timeout so long-lived
//     connections are not cut off.

package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semantic-signal/internal/store"
)

const (
	defaultClientOrigin   = "http://localhost:5173"
	defaultStreamInterval = 100 * time.Millisecond
	requestTimeout        = 10 * time.Second
	shutdownTimeout       = 10 * time.Second
)

// Options wires a Server. Store, Scores, Factory and Tokens are required.
type Options struct {
	Store          store.Store
	Scores         store.Scores
	Factory        *Factory
	Tokens         *Tokens
	ClientOrigin   string
	StreamInterval time.Duration // how often a stream checks for a new snapshot
	Now            func() time.Time
}

// Server bundles router, session registry and score storage.
type Server struct {
	r              *chi.Mux
	store          store.Store
	scores         store.Scores
	factory        *Factory
	tokens         *Tokens
	origin         string
	streamInterval time.Duration
	now            func() time.Time
	upgrader       websocket.Upgrader
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = defaultClientOrigin
	}
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = defaultStreamInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		r:              chi.NewRouter(),
		store:          opts.Store,
		scores:         opts.Scores,
		factory:        opts.Factory,
		tokens:         opts.Tokens,
		origin:         opts.ClientOrigin,
		streamInterval: opts.StreamInterval,
		now:            opts.Now,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(jsonContentType) // default JSON responses
	s.r.Use(s.cors)

	// Long-lived stream, no request timeout.
	s.r.With(s.requireSession).Get("/session/stream", s.handleStream)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"semantic-signal","endpoints":["/health","/levels","POST /session","/session/*","/scores/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/levels", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(s.factory.Levels)
		})
		r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]int{
				"vocabulary": s.factory.Vocab.Len(),
				"sessions":   s.store.Len(),
			})
		})

		s.mountSession(r)
		s.mountScores(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Serve listens on addr until ctx is done, then stops accepting connections
// and waits up to shutdownTimeout for in-flight requests. Open streams are
// closed once the drain finishes.
func (s *Server) Serve(ctx context.Context, addr string) error {
	base, closeStreams := context.WithCancel(context.Background())
	defer closeStreams()

	hs := &http.Server{
		Addr:        addr,
		Handler:     s.r,
		BaseContext: func(net.Listener) context.Context { return base },
	}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", shutdownTimeout).Msg("draining http server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin accepts same-origin clients (no Origin header) and the configured origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	o := r.Header.Get("Origin")
	return o == "" || o == s.origin
}

// writeError writes {"error": code} with the given status.
func writeError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
