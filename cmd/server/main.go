package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/quizspire/quizspire-server/internal/auth"
	"github.com/quizspire/quizspire-server/internal/config"
	"github.com/quizspire/quizspire-server/internal/deck"
	"github.com/quizspire/quizspire-server/internal/match"
	"github.com/quizspire/quizspire-server/internal/msgcat"
	"github.com/quizspire/quizspire-server/internal/notify"
	"github.com/quizspire/quizspire-server/internal/obslog"
	"github.com/quizspire/quizspire-server/internal/quiz"
	"github.com/quizspire/quizspire-server/internal/stats"
	"github.com/quizspire/quizspire-server/internal/ws"
)

// leaderboardHandler serves the global quiz top scores. Without a
// stats store the endpoint is unavailable rather than empty.
func leaderboardHandler(st *stats.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		top, err := st.TopQuizScores(ctx, 10)
		if err != nil {
			obslog.L().Warn("leaderboard_read_error", zap.Error(err))
			http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(top)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	cat, err := msgcat.New(cfg.MsgOverrideDir)
	if err != nil {
		obslog.L().Fatal("msgcat_init_error", zap.Error(err))
	}

	var st *stats.Store
	if cfg.RedisURL != "" {
		st, err = stats.NewStore(cfg.RedisURL)
		if err != nil {
			obslog.L().Fatal("stats_init_error", zap.Error(err))
		}
		defer func() { _ = st.Close() }()
	} else {
		obslog.L().Warn("stats_disabled", zap.String("reason", "REDIS_URL not set"))
	}

	decks, err := deck.NewPGRepository(cfg.DatabaseURL)
	if err != nil {
		obslog.L().Fatal("deck_repo_init_error", zap.Error(err))
	}
	defer func() { _ = decks.Close() }()

	nd := notify.NewDispatcher(cfg.NotifyWebhookURL)
	verifier := auth.NewVerifier(cfg.TokenSecret)
	clk := clockwork.NewRealClock()
	matchCoord := match.NewCoordinator(clk, st, nd, cat)
	quizCoord := quiz.NewCoordinator(clk, decks, st, nd, cat, cfg.MaxLobbyPlayers)

	mux := http.NewServeMux()
	mux.Handle("/ws/chess", ws.ChessHandler(matchCoord, verifier, cat))
	mux.Handle("/ws/quizspire", ws.QuizHandler(quizCoord, verifier, cat))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/quizspire/leaderboard", leaderboardHandler(st))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		obslog.L().Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("server_listen_error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	obslog.L().Info("server_shutdown", zap.String("signal", s.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		obslog.L().Error("server_shutdown_error", zap.Error(err))
	}
}
