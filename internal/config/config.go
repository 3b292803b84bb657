package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/deepgram/relay/pkg/logger"
)

// Config is the process configuration, resolved once at startup
type Config struct {
	Port              string
	ChatRoutePaths    []string
	AllowedOrigins    []string
	HTTPClientTimeout time.Duration

	OpenAIKey     string
	OpenAIBaseURL string

	SentimentProvider string
	SentimentTarget   string
	GoogleAPIKey      string
	ClovaClientID     string
	ClovaClientSecret string
	GoogleBaseURL     string
	ClovaBaseURL      string

	Poll      PollConfig
	RateLimit RateLimitConfig
	WebSocket WebSocketConfig

	RedisURL      string
	RedisPassword string

	AuthJWTSecret []byte

	LogLevel  string
	LogFormat string
}

// Load reads the environment, optionally from a .env file, and validates
// that every required key is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn(logger.CONFIG, "Failed to read .env file: %v", err)
	}

	cfg := &Config{
		Port:              GetPort(),
		ChatRoutePaths:    GetChatRoutePaths(),
		AllowedOrigins:    GetAllowedOrigins(),
		HTTPClientTimeout: GetHTTPClientTimeout(),
		OpenAIKey:         GetOpenAIKey(),
		OpenAIBaseURL:     GetOpenAIBaseURL(),
		SentimentProvider: GetSentimentProvider(),
		SentimentTarget:   GetSentimentTarget(),
		GoogleAPIKey:      GetGoogleAPIKey(),
		ClovaClientID:     GetClovaClientID(),
		ClovaClientSecret: GetClovaClientSecret(),
		GoogleBaseURL:     GetGoogleBaseURL(),
		ClovaBaseURL:      GetClovaBaseURL(),
		Poll:              GetPollConfig(),
		RateLimit:         GetRateLimitConfig("chat"),
		WebSocket:         GetWebSocketConfig(),
		RedisURL:          GetRedisURL(),
		RedisPassword:     GetRedisPassword(),
		AuthJWTSecret:     GetAuthJWTSecret(),
		LogLevel:          GetLogLevel(),
		LogFormat:         GetLogFormat(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.OpenAIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}

	switch c.SentimentProvider {
	case SentimentProviderNone:
	case SentimentProviderGoogle:
		if c.GoogleAPIKey == "" {
			errs = append(errs, errors.New("GOOGLE_API_KEY is required when SENTIMENT_PROVIDER=google"))
		}
	case SentimentProviderClova:
		if c.ClovaClientID == "" || c.ClovaClientSecret == "" {
			errs = append(errs, errors.New("CLOVA_CLIENT_ID and CLOVA_CLIENT_SECRET are required when SENTIMENT_PROVIDER=clova"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SENTIMENT_PROVIDER %q", c.SentimentProvider))
	}

	if c.SentimentTarget != SentimentTargetUser && c.SentimentTarget != SentimentTargetResponse {
		errs = append(errs, fmt.Errorf("unknown SENTIMENT_TARGET %q", c.SentimentTarget))
	}

	if c.Poll.Interval <= 0 {
		errs = append(errs, errors.New("RUN_POLL_INTERVAL must be positive"))
	}

	if c.Poll.Timeout < 0 {
		errs = append(errs, errors.New("RUN_POLL_TIMEOUT must not be negative"))
	}

	if c.Poll.MaxAttempts < 0 {
		errs = append(errs, errors.New("RUN_POLL_MAX_ATTEMPTS must not be negative"))
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"WS_PONG_WAIT", c.WebSocket.PongWait},
		{"WS_PING_PERIOD", c.WebSocket.PingPeriod},
		{"WS_WRITE_WAIT", c.WebSocket.WriteWait},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.name))
		}
	}

	if c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		errs = append(errs, errors.New("WS_PING_PERIOD must be shorter than WS_PONG_WAIT"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
