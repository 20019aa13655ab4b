package main

import "time"

type Config struct {
	LogLevel string `env:"LOG_LEVEL,default=info"`
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8080"`

	// Storage selects the message store: "postgres" or "memory".
	Storage     string `env:"STORAGE,default=memory"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Broker selects the event channel: "redis" or "memory".
	Broker   string `env:"BROKER,default=memory"`
	RedisURL string `env:"REDIS_URL,default=redis://localhost:6379"`

	RestartInterval    time.Duration `env:"RESTART_INTERVAL,default=5s"`
	BrokerPingInterval time.Duration `env:"BROKER_PING_INTERVAL,default=15s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}
