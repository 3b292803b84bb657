package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/deepgram/relay/internal/api/v1/routes"
	"github.com/deepgram/relay/internal/config"
	"github.com/deepgram/relay/internal/connections"
	"github.com/deepgram/relay/internal/services"
	"github.com/deepgram/relay/pkg/httpext"
	"github.com/deepgram/relay/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Info(logger.APP, "Configuration loaded (sentiment provider: %s, chat paths: %v)", cfg.SentimentProvider, cfg.ChatRoutePaths)

	svcs, err := services.InitializeServices(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer svcs.Close()

	if annotator := svcs.GetAnnotator(); annotator != nil {
		logger.Info(logger.APP, "Sentiment annotator: %s (target: %s)", annotator.Name(), cfg.SentimentTarget)
	}

	manager := connections.NewManager(cfg.WebSocket)
	server := newServer(cfg, setupRouter(svcs, cfg, manager))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", server.Addr).Strs("chat_paths", cfg.ChatRoutePaths).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	closed := manager.CloseAll("server shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Int("websockets_closed", closed).Msg("Server stopped")
}

// newServer builds the HTTP server. A chat exchange spans several upstream
// calls plus run polling, so responses have no write deadline of their own;
// RUN_POLL_TIMEOUT and the request context bound them instead.
func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}
}

func setupRouter(svcs *services.Services, cfg *config.Config, manager *connections.Manager) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpext.JsonError(w, "Not Found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpext.JsonError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	routes.RegisterRoutes(r, svcs, cfg, manager)

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodOptions, http.MethodHead,
		},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}
