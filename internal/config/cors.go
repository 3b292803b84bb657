package config

// GetAllowedOrigins lists the browser origins allowed to call the API
func GetAllowedOrigins() []string {
	return splitList(GetEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"))
}
