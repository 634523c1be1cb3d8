package createloanapplication

import (
	"time"

	"vehicle-financing/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(workerCfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(workerCfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{Timeout: timeout}
}
