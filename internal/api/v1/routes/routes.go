package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	v1chat "github.com/deepgram/relay/internal/api/v1/handlers/chat"
	v1websocket "github.com/deepgram/relay/internal/api/v1/handlers/websocket"
	v1mware "github.com/deepgram/relay/internal/api/v1/middleware"
	"github.com/deepgram/relay/internal/config"
	"github.com/deepgram/relay/internal/connections"
	"github.com/deepgram/relay/internal/services"
	"github.com/deepgram/relay/pkg/httpext"
)

// RegisterRoutes mounts the chat endpoint on every configured path plus the
// WebSocket stream and health check
func RegisterRoutes(router *mux.Router, services *services.Services, cfg *config.Config, manager *connections.Manager) {
	router.Use(v1mware.RequestLogger)

	// Public routes (no auth required)
	router.HandleFunc("/healthz", HandleHealth).Methods("GET")

	// Protected routes (require auth when a secret is configured)
	protected := router.NewRoute().Subrouter()
	protected.Use(v1mware.RequireAuth(cfg.AuthJWTSecret))

	// /ws charges each request frame rather than the upgrade
	protected.Handle("/ws", v1websocket.NewHandler(
		services.GetChatService(),
		manager,
		cfg.AllowedOrigins,
		v1websocket.WithRateLimit(cfg.RateLimit, services.GetChatLimiter()),
	)).Methods("GET")

	// Rate limit runs before auth so failed token guesses are throttled too
	chatRouter := router.NewRoute().Subrouter()
	chatRouter.Use(v1mware.RateLimit(v1mware.ChatLimitKey, cfg.RateLimit, services.GetChatLimiter()))
	chatRouter.Use(v1mware.RequireAuth(cfg.AuthJWTSecret))

	for _, path := range cfg.ChatRoutePaths {
		chatRouter.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			v1chat.HandlePosts(services.GetChatService(), w, r)
		}).Methods("POST")
	}
}

// HandleHealth reports liveness
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	httpext.JsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
