package config

import "time"

// Duration accepts "5s"-style strings or integer nanoseconds in both JSON and YAML.
type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigins    []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// GatewayConfig describes how to reach the LearnDB service.
type GatewayConfig struct {
	BaseURL    string   `json:"base_url" yaml:"base_url"`
	APIKey     string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	JWTSecret  string   `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`
	JWTIssuer  string   `json:"jwt_issuer,omitempty" yaml:"jwt_issuer,omitempty"`
	JWTTTL     Duration `json:"jwt_ttl,omitempty" yaml:"jwt_ttl,omitempty"`
	Timeout    Duration `json:"timeout" yaml:"timeout"`
	MaxRetries int      `json:"max_retries" yaml:"max_retries"`
}

type SessionConfig struct {
	HistoryLimit int    `json:"history_limit" yaml:"history_limit"`
	Ordering     string `json:"ordering" yaml:"ordering"`
	AutoCreate   bool   `json:"auto_create" yaml:"auto_create"`
}

type ChallengeConfig struct {
	AwardPolicy string `json:"award_policy" yaml:"award_policy"`
}

type ProgressConfig struct {
	Driver    string `json:"driver" yaml:"driver"`
	DSN       string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	ProfileID string `json:"profile_id" yaml:"profile_id"`
}

type RealtimeConfig struct {
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	Channel   string `json:"channel" yaml:"channel"`
}

type OtelConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name"`
}

type Config struct {
	Env       string          `json:"env" yaml:"env"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	Gateway   GatewayConfig   `json:"gateway" yaml:"gateway"`
	Session   SessionConfig   `json:"session" yaml:"session"`
	Challenge ChallengeConfig `json:"challenge" yaml:"challenge"`
	Progress  ProgressConfig  `json:"progress" yaml:"progress"`
	Realtime  RealtimeConfig  `json:"realtime" yaml:"realtime"`
	Otel      OtelConfig      `json:"otel" yaml:"otel"`
}

const (
	OrderingLatestDispatch   = "latest_dispatch"
	OrderingLatestCompletion = "latest_completion"

	AwardEveryPass = "every_pass"
	AwardFirstPass = "first_pass"

	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)
