package providers

import "time"

// fallbackShutdownTimeout bounds graceful shutdown when the configuration leaves it unset.
const fallbackShutdownTimeout = 30 * time.Second

func shutdownBudget(configured time.Duration) time.Duration {
	if configured <= 0 {
		return fallbackShutdownTimeout
	}
	return configured
}
