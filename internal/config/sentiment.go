package config

import "strings"

// Sentiment providers. Exactly one is active per process.
const (
	SentimentProviderNone   = "none"
	SentimentProviderGoogle = "google"
	SentimentProviderClova  = "clova"
)

// Sentiment targets select which side of the exchange is annotated.
const (
	SentimentTargetUser     = "user"
	SentimentTargetResponse = "response"
)

func GetSentimentProvider() string {
	return strings.ToLower(GetEnvOrDefault("SENTIMENT_PROVIDER", SentimentProviderNone))
}

func GetSentimentTarget() string {
	return strings.ToLower(GetEnvOrDefault("SENTIMENT_TARGET", SentimentTargetUser))
}

func GetGoogleAPIKey() string {
	return GetEnvOrDefault("GOOGLE_API_KEY", "")
}

func GetClovaClientID() string {
	return GetEnvOrDefault("CLOVA_CLIENT_ID", "")
}

func GetClovaClientSecret() string {
	return GetEnvOrDefault("CLOVA_CLIENT_SECRET", "")
}

// GetGoogleBaseURL overrides the Cloud Natural Language endpoint, mostly for tests
func GetGoogleBaseURL() string {
	return GetEnvOrDefault("GOOGLE_LANGUAGE_BASE_URL", "")
}

func GetClovaBaseURL() string {
	return GetEnvOrDefault("CLOVA_BASE_URL", "")
}
