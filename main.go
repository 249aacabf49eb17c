package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/semantic-signal/assets"
	"github.com/robalobadob/semantic-signal/internal/config"
	"github.com/robalobadob/semantic-signal/internal/httpserver"
	"github.com/robalobadob/semantic-signal/internal/level"
	"github.com/robalobadob/semantic-signal/internal/store"
	"github.com/robalobadob/semantic-signal/internal/words"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vocab, err := words.Load(cfg.VocabFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load vocabulary")
	}

	scores, db := openScores(ctx, cfg.DatabasePath)
	if db != nil {
		defer db.Close()
	}

	sessions := store.NewMemoryStore()
	srv := httpserver.New(httpserver.Options{
		Store:  sessions,
		Scores: scores,
		Factory: &httpserver.Factory{
			Vocab:     vocab,
			Levels:    level.Default,
			Scores:    scores,
			DailySalt: cfg.DailySalt,
			Field:     cfg.Field,
			Game:      cfg.Game,
		},
		Tokens:       httpserver.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		ClientOrigin: cfg.ClientOrigin,
	})
	clockDone := make(chan struct{})
	go func() {
		defer close(clockDone)
		httpserver.NewClock(sessions, cfg.Game.TickInterval, cfg.IdleTTL).Run(ctx)
	}()

	log.Info().Str("port", cfg.Port).Int("vocabulary", vocab.Len()).Msg("starting semantic-signal")
	if err := srv.Serve(ctx, ":"+cfg.Port); err != nil {
		log.Error().Err(err).Msg("server exited")
	}
	stop()
	<-clockDone
	log.Info().Msg("shut down")
}

// openScores opens the SQLite score store. An empty path, or any failure,
// falls back to in-memory scores so play is never blocked on storage.
func openScores(ctx context.Context, path string) (store.Scores, *sql.DB) {
	if path == "" {
		return store.NewMemoryScores(), nil
	}
	db, err := store.OpenSQLite(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("open database; using in-memory scores")
		return store.NewMemoryScores(), nil
	}
	if err := store.Migrate(ctx, db, assets.Migrations()); err != nil {
		log.Warn().Err(err).Msg("migrate database; using in-memory scores")
		_ = db.Close()
		return store.NewMemoryScores(), nil
	}
	return store.NewSQLStore(db), db
}
