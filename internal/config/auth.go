package config

// GetAuthJWTSecret returns the HMAC secret used to verify bearer tokens on chat routes.
// Authentication is disabled when it is empty.
func GetAuthJWTSecret() []byte {
	value := GetEnvOrDefault("AUTH_JWT_SECRET", "")
	if value == "" {
		return nil
	}
	return []byte(value)
}
