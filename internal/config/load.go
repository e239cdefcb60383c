package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/learndb-studio/internal/platform/envutil"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		n, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	return d.parse(node.Value)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              "127.0.0.1:8090",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 10 * time.Second},
			AllowedOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Gateway: GatewayConfig{
			BaseURL:    "http://localhost:8000/api",
			JWTIssuer:  "learndb-studio",
			JWTTTL:     Duration{Duration: 15 * time.Minute},
			Timeout:    Duration{Duration: 30 * time.Second},
			MaxRetries: 2,
		},
		Session: SessionConfig{
			HistoryLimit: 50,
			Ordering:     OrderingLatestDispatch,
			AutoCreate:   true,
		},
		Challenge: ChallengeConfig{AwardPolicy: AwardEveryPass},
		Progress:  ProgressConfig{Driver: DriverMemory, ProfileID: "local"},
		Realtime:  RealtimeConfig{Channel: "learndb-studio"},
		Otel:      OtelConfig{ServiceName: "learndb-studio"},
	}
}

// Load builds the config from defaults, an optional file and the environment.
func Load() (*Config, error) {
	cfg := defaultConfig()

	path := strings.TrimSpace(os.Getenv("STUDIO_CONFIG_PATH"))
	if path == "" {
		path = findDefaultFile()
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findDefaultFile() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{"studio.yaml", "studio.yml", "studio.json"} {
		p := filepath.Join(wd, "config", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.HTTP.Addr = envutil.String("STUDIO_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.AllowedOrigins = envutil.List("CORS_ALLOWED_ORIGINS", cfg.HTTP.AllowedOrigins)

	cfg.Gateway.BaseURL = envutil.String("LEARNDB_BASE_URL", cfg.Gateway.BaseURL)
	cfg.Gateway.APIKey = envutil.String("LEARNDB_API_KEY", cfg.Gateway.APIKey)
	cfg.Gateway.JWTSecret = envutil.String("LEARNDB_JWT_SECRET", cfg.Gateway.JWTSecret)
	cfg.Gateway.Timeout.Duration = envutil.Duration("LEARNDB_TIMEOUT", cfg.Gateway.Timeout.Duration)
	cfg.Gateway.MaxRetries = envutil.Int("LEARNDB_MAX_RETRIES", cfg.Gateway.MaxRetries)

	cfg.Session.Ordering = envutil.String("STUDIO_ORDERING", cfg.Session.Ordering)
	cfg.Session.AutoCreate = envutil.Bool("STUDIO_AUTO_SESSION", cfg.Session.AutoCreate)
	cfg.Challenge.AwardPolicy = envutil.String("STUDIO_AWARD_POLICY", cfg.Challenge.AwardPolicy)

	cfg.Progress.ProfileID = envutil.String("STUDIO_PROFILE_ID", cfg.Progress.ProfileID)
	cfg.Progress.Driver = envutil.String("PROGRESS_DRIVER", cfg.Progress.Driver)
	cfg.Progress.DSN = envutil.String("PROGRESS_DSN", cfg.Progress.DSN)

	cfg.Realtime.RedisAddr = envutil.String("REDIS_ADDR", cfg.Realtime.RedisAddr)
	cfg.Realtime.Channel = envutil.String("REDIS_CHANNEL", cfg.Realtime.Channel)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
}

func normalize(cfg *Config) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	cfg.Gateway.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Gateway.BaseURL), "/")
	cfg.Session.Ordering = strings.ToLower(strings.TrimSpace(cfg.Session.Ordering))
	cfg.Challenge.AwardPolicy = strings.ToLower(strings.TrimSpace(cfg.Challenge.AwardPolicy))
	cfg.Progress.Driver = strings.ToLower(strings.TrimSpace(cfg.Progress.Driver))
	if cfg.Session.HistoryLimit <= 0 {
		cfg.Session.HistoryLimit = 50
	}
	if cfg.Gateway.Timeout.Duration <= 0 {
		cfg.Gateway.Timeout = Duration{Duration: 30 * time.Second}
	}
	if strings.TrimSpace(cfg.Progress.ProfileID) == "" {
		cfg.Progress.ProfileID = "local"
	}
	if strings.TrimSpace(cfg.Realtime.Channel) == "" {
		cfg.Realtime.Channel = "learndb-studio"
	}
}

// Validate rejects configurations the app cannot start with.
func (c *Config) Validate() error {
	if c.Gateway.BaseURL == "" {
		return errors.New("gateway.base_url is required")
	}
	if c.Gateway.MaxRetries < 0 {
		return errors.New("gateway.max_retries must be >= 0")
	}
	switch c.Session.Ordering {
	case OrderingLatestDispatch, OrderingLatestCompletion:
	default:
		return fmt.Errorf("invalid session.ordering=%q", c.Session.Ordering)
	}
	switch c.Challenge.AwardPolicy {
	case AwardEveryPass, AwardFirstPass:
	default:
		return fmt.Errorf("invalid challenge.award_policy=%q", c.Challenge.AwardPolicy)
	}
	switch c.Progress.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if strings.TrimSpace(c.Progress.DSN) == "" {
			return fmt.Errorf("progress.dsn is required for driver %q", c.Progress.Driver)
		}
	default:
		return fmt.Errorf("invalid progress.driver=%q", c.Progress.Driver)
	}
	return nil
}
