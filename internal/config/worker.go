package config

import "time"

// WorkerConfig bounds the logout cleanup worker. Jobs beyond QueueSize are
// dropped with a warning instead of growing an unbounded backlog.
type WorkerConfig struct {
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func loadWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		Workers:         getEnvAsInt("CLEANUP_WORKERS", 2),
		QueueSize:       getEnvAsInt("CLEANUP_QUEUE_SIZE", 64),
		JobTimeout:      getEnvAsDuration("CLEANUP_JOB_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getEnvAsDuration("CLEANUP_SHUTDOWN_TIMEOUT", 5*time.Second),
	}
}
