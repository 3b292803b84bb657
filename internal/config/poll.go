package config

import "time"

type PollConfig struct {
	Interval    time.Duration
	Timeout     time.Duration
	MaxAttempts int
}

// GetPollConfig returns the run polling settings. A zero Timeout or MaxAttempts disables that bound.
func GetPollConfig() PollConfig {
	return PollConfig{
		Interval:    parseEnvDuration("RUN_POLL_INTERVAL", 500*time.Millisecond),
		Timeout:     parseEnvDuration("RUN_POLL_TIMEOUT", 120*time.Second),
		MaxAttempts: parseEnvInt("RUN_POLL_MAX_ATTEMPTS", 0),
	}
}
