package config

import "github.com/deepgram/relay/pkg/logger"

// GetOpenAIKey returns the assistant service key. OPENAI_KEY is accepted as a fallback
// for deployments configured before OPENAI_API_KEY was introduced.
func GetOpenAIKey() string {
	value := GetEnvOrDefault("OPENAI_API_KEY", GetEnvOrDefault("OPENAI_KEY", ""))
	if value == "" {
		logger.Error(logger.CONFIG, "OPENAI_API_KEY environment variable not set")
	}
	return value
}

func GetOpenAIBaseURL() string {
	return GetEnvOrDefault("OPENAI_BASE_URL", "")
}
