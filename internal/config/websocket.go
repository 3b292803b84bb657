package config

import "time"

// WebSocketConfig holds the keepalive settings for /ws connections
type WebSocketConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

func GetWebSocketConfig() WebSocketConfig {
	pongWait := parseEnvDuration("WS_PONG_WAIT", 30*time.Second)
	return WebSocketConfig{
		PongWait:   pongWait,
		PingPeriod: parseEnvDuration("WS_PING_PERIOD", (pongWait*9)/10),
		WriteWait:  parseEnvDuration("WS_WRITE_WAIT", 10*time.Second),
	}
}
