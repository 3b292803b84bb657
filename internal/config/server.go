package config

import "time"

func GetPort() string {
	return GetEnvOrDefault("PORT", "8080")
}

// GetHTTPClientTimeout bounds every outbound call to the assistant and sentiment services
func GetHTTPClientTimeout() time.Duration {
	return parseEnvDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second)
}

// GetChatRoutePaths returns the paths the chat endpoint is mounted on
func GetChatRoutePaths() []string {
	paths := splitList(GetEnvOrDefault("CHAT_ROUTE_PATHS", "/api/posts"))
	if len(paths) == 0 {
		return []string{"/api/posts"}
	}
	return paths
}

func GetLogLevel() string {
	return GetEnvOrDefault("LOG_LEVEL", "info")
}

func GetLogFormat() string {
	return GetEnvOrDefault("LOG_FORMAT", "json")
}
