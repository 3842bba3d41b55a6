package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cob-labs/carebot/internal/booking"
	"github.com/cob-labs/carebot/internal/config"
	"github.com/cob-labs/carebot/internal/dialog"
	"github.com/cob-labs/carebot/internal/escalation"
	"github.com/cob-labs/carebot/internal/httpapi"
	"github.com/cob-labs/carebot/internal/intent"
	"github.com/cob-labs/carebot/internal/knowledge"
	"github.com/cob-labs/carebot/internal/observability"
	"github.com/cob-labs/carebot/internal/retrieval"
	"github.com/cob-labs/carebot/internal/session"
	"github.com/cob-labs/carebot/internal/transcript"
	"github.com/cob-labs/carebot/pkg/logx"
	"github.com/cob-labs/carebot/pkg/redisx"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("config error")
	}

	logx.Init(logx.Opts{Environment: cfg.Environment, Level: cfg.LogLevel})
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()

	archive, err := transcript.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logx.Fatal().Err(err).Msg("transcript store init failed")
	}
	defer archive.Close()
	if cfg.DatabaseURL != "" {
		logx.Info().Msg("transcript store: postgres")
	} else {
		logx.Info().Msg("transcript store: in-memory")
	}

	sessionStore := newSessionStore(cfg)
	defer sessionStore.Close()

	sessions := session.NewManager(sessionStore, cfg.SessionIdleTimeout)
	sessions.SetExpireHook(func(sess *session.Session) {
		metrics.ActiveSessions.Dec()
		logx.Debug().Str("session", sess.ID).Msg("session expired")
	})

	embedder := retrieval.NewHashingEmbedder(cfg.EmbeddingDim)
	index := newVectorIndex(ctx, cfg, embedder)
	retriever := retrieval.NewEngine(embedder, index, retrieval.Options{
		TopK:           cfg.RetrievalTopK,
		ScoreThreshold: cfg.RetrievalThreshold,
		Timeout:        cfg.RetrievalTimeout,
	})

	booker := booking.NewService(cfg.BookingMode, cfg.BookingURL, cfg.BookingTimeout)
	escalator := escalation.NewEngine(nil, escalation.Options{
		FrustrationThreshold: cfg.FrustrationThreshold,
		FailureWindow:        cfg.FailureWindow,
	})
	classifier := intent.NewClassifier(nil, cfg.IntentMinConfidence)

	dialogs := dialog.NewManager(sessions, classifier, escalator, retriever, booker, archive, metrics, dialog.Options{
		HistoryLimit:     cfg.HistoryLimit,
		MaxMessageLength: cfg.MaxMessageLength,
	})

	api := httpapi.New(cfg, sessions, dialogs, escalator, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, cfg.JanitorInterval)

	go func() {
		logx.Info().Str("addr", cfg.BindAddr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logx.Info().Msg("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	logx.Info().Msg("shutdown complete")
}

// newSessionStore picks the session backend: Redis when configured (or
// required), in-memory otherwise.
func newSessionStore(cfg config.Config) session.Store {
	switch cfg.SessionBackend {
	case "memory":
		logx.Info().Msg("session store: in-memory")
		return session.NewMemoryStore()
	case "redis":
		client, err := redisx.FromEnv()
		if err != nil {
			logx.Fatal().Err(err).Msg("SESSION_BACKEND=redis but Redis is unavailable")
		}
		logx.Info().Msg("session store: redis")
		return session.NewRedisStore(client, cfg.SessionIdleTimeout)
	default: // auto
		if redisx.Configured() {
			client, err := redisx.FromEnv()
			if err == nil {
				logx.Info().Msg("session store: redis")
				return session.NewRedisStore(client, cfg.SessionIdleTimeout)
			}
			logx.Warn().Err(err).Msg("redis unavailable, falling back to in-memory sessions")
		}
		logx.Info().Msg("session store: in-memory")
		return session.NewMemoryStore()
	}
}

// newVectorIndex loads the knowledge base and builds the passage index:
// SQLite-backed when VECTOR_INDEX_PATH is set, in-memory otherwise. An
// already-populated SQLite index is reused without re-embedding.
func newVectorIndex(ctx context.Context, cfg config.Config, embedder retrieval.Embedder) retrieval.Index {
	passages, err := knowledge.LoadDir(cfg.KnowledgeDir)
	if err != nil {
		logx.Warn().Err(err).Str("dir", cfg.KnowledgeDir).Msg("knowledge base not loaded, FAQ answers will fall back")
		passages = nil
	}

	if cfg.VectorIndexPath != "" {
		index, err := retrieval.NewSQLiteIndex(cfg.VectorIndexPath)
		if err != nil {
			logx.Fatal().Err(err).Str("path", cfg.VectorIndexPath).Msg("vector index init failed")
		}
		count, err := index.Count(ctx)
		if err == nil && count > 0 {
			logx.Info().Int("passages", count).Str("path", cfg.VectorIndexPath).Msg("vector index: sqlite (existing)")
			return index
		}
		seedIndex(ctx, index, embedder, passages)
		logx.Info().Int("passages", len(passages)).Str("path", cfg.VectorIndexPath).Msg("vector index: sqlite")
		return index
	}

	index := retrieval.NewMemoryIndex()
	seedIndex(ctx, index, embedder, passages)
	logx.Info().Int("passages", len(passages)).Msg("vector index: in-memory")
	return index
}

func seedIndex(ctx context.Context, index retrieval.Index, embedder retrieval.Embedder, passages []knowledge.Passage) {
	for _, p := range passages {
		vec, err := embedder.Embed(ctx, p.Text)
		if err != nil {
			logx.Warn().Err(err).Str("passage", p.ID).Msg("embed failed, passage skipped")
			continue
		}
		if err := index.Upsert(ctx, p, vec); err != nil {
			logx.Warn().Err(err).Str("passage", p.ID).Msg("index failed, passage skipped")
		}
	}
}
