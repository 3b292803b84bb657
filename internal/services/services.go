package services

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/relay/internal/config"
	"github.com/deepgram/relay/internal/infrastructure/clova"
	"github.com/deepgram/relay/internal/infrastructure/google"
	"github.com/deepgram/relay/internal/infrastructure/openai"
	"github.com/deepgram/relay/internal/infrastructure/redis"
	"github.com/deepgram/relay/internal/services/assistant"
	"github.com/deepgram/relay/internal/services/chat"
	"github.com/deepgram/relay/internal/services/sentiment"
	"github.com/deepgram/relay/pkg/ratelimit"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	chatService   *chat.Implementation
	openAIService *openai.Service
	redisService  *redis.Service
	annotator     sentiment.Annotator
	chatLimiter   *ratelimit.Limiter
}

// InitializeServices initializes all required services
func InitializeServices(cfg *config.Config) (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	log.Info().Msg("Initializing core services")

	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

	// Initialize Redis service (optional)
	redisService := redis.NewService(cfg.RedisURL, cfg.RedisPassword)
	var store ratelimit.Store
	if redisService != nil {
		store = ratelimit.NewCounterStore(redisService, "ratelimit:chat")
		log.Info().Msg("Rate limiting backed by Redis")
	} else {
		store = ratelimit.NewMemoryStore()
		log.Info().Msg("Rate limiting backed by in-process memory")
	}
	chatLimiter := ratelimit.NewLimiter(store, cfg.RateLimit.Window, cfg.RateLimit.MaxHits)

	// Initialize sentiment annotator (optional)
	annotator, err := newAnnotator(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	// Initialize OpenAI service (required)
	openAIService := openai.NewService(cfg.OpenAIKey, cfg.OpenAIBaseURL, httpClient)
	if openAIService == nil {
		log.Error().Msg("Failed to initialize OpenAI service - service is required for core functionality")
		return nil, fmt.Errorf("failed to initialize assistant client: %w", chat.ErrClientInitialization)
	}

	opts := []chat.Option{}
	if annotator != nil {
		opts = append(opts, chat.WithAnnotator(annotator, cfg.SentimentTarget))
	}

	// Initialize chat service (required)
	chatService, err := chat.NewService(openAIService, assistant.PollerConfig{
		Interval:    cfg.Poll.Interval,
		Timeout:     cfg.Poll.Timeout,
		MaxAttempts: cfg.Poll.MaxAttempts,
	}, opts...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize chat service - required for message processing")
		return nil, fmt.Errorf("failed to initialize chat service: %w", err)
	}

	log.Info().
		Str("sentiment_provider", cfg.SentimentProvider).
		Str("sentiment_target", cfg.SentimentTarget).
		Msg("All services initialized successfully")

	return &Services{
		chatService:   chatService,
		openAIService: openAIService,
		redisService:  redisService,
		annotator:     annotator,
		chatLimiter:   chatLimiter,
	}, nil
}

// newAnnotator builds the single sentiment strategy selected by configuration
func newAnnotator(cfg *config.Config, httpClient *http.Client) (sentiment.Annotator, error) {
	switch cfg.SentimentProvider {
	case config.SentimentProviderGoogle:
		svc := google.NewService(cfg.GoogleAPIKey, httpClient)
		if svc == nil {
			return nil, fmt.Errorf("failed to initialize google sentiment service")
		}
		if cfg.GoogleBaseURL != "" {
			svc.SetBaseURL(cfg.GoogleBaseURL)
		}
		return sentiment.NewScoreAnnotator(svc), nil
	case config.SentimentProviderClova:
		svc := clova.NewService(cfg.ClovaClientID, cfg.ClovaClientSecret, httpClient)
		if svc == nil {
			return nil, fmt.Errorf("failed to initialize clova sentiment service")
		}
		if cfg.ClovaBaseURL != "" {
			svc.SetBaseURL(cfg.ClovaBaseURL)
		}
		return sentiment.NewLabelAnnotator(svc), nil
	default:
		log.Info().Msg("Sentiment annotation disabled")
		return nil, nil
	}
}

// GetChatService returns the chat service, or a nil interface when it was never built
func (s *Services) GetChatService() chat.Service {
	if s.chatService == nil {
		return nil
	}
	return s.chatService
}

// GetChatLimiter returns the limiter guarding the chat routes
func (s *Services) GetChatLimiter() *ratelimit.Limiter {
	return s.chatLimiter
}

// GetAnnotator returns the active sentiment strategy, or nil when disabled
func (s *Services) GetAnnotator() sentiment.Annotator {
	return s.annotator
}

// Close releases connections held by the services
func (s *Services) Close() error {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	if s.redisService != nil {
		return s.redisService.Close()
	}
	return nil
}
