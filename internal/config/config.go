package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds the HTTP server settings.
type AppConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	URL string
}

// KafkaConfig holds the optional status-change event feed settings.
// Publishing is disabled when no brokers are configured.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether event publishing should be wired up.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0 && c.Topic != ""
}

// SMTPConfig holds the email transport settings. The email channel is
// skipped for the whole run when Host or From is missing.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether the email channel is configured.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// PushConfig holds the web push (VAPID) settings. The push channel is
// skipped for the whole run when either key is missing.
type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	RatePerSecond   float64
}

// Enabled reports whether the push channel is configured.
func (c PushConfig) Enabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// DispatchConfig bounds the notification fan-out.
type DispatchConfig struct {
	WorkerLimit int
	SendTimeout time.Duration
}

// DigestConfig controls the digest aggregator. The cron schedules are
// optional; the HTTP trigger works regardless.
type DigestConfig struct {
	DailySchedule  string
	WeeklySchedule string
}

// TracingConfig enables OTLP trace export when an endpoint is set.
type TracingConfig struct {
	CollectorEndpoint string
}

// Config is the full application configuration, loaded from environment
// variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
	Push     PushConfig
	Dispatch DispatchConfig
	Digest   DigestConfig
	Tracing  TracingConfig
}

// LoadConfig loads configuration from the environment, applying defaults for
// tunables. Only the database URL is required; everything else degrades to a
// disabled feature or a default.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Port:            envDefault("ROSENBAN_PORT", "8080"),
			ShutdownTimeout: envDuration("ROSENBAN_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		DB: DBConfig{
			URL: os.Getenv("ROSENBAN_DB_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("ROSENBAN_KAFKA_BROKERS")),
			Topic:   envDefault("ROSENBAN_KAFKA_TOPIC", "line-status-changes"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("ROSENBAN_SMTP_HOST"),
			Port:     envInt("ROSENBAN_SMTP_PORT", 587),
			Username: os.Getenv("ROSENBAN_SMTP_USERNAME"),
			Password: os.Getenv("ROSENBAN_SMTP_PASSWORD"),
			From:     os.Getenv("ROSENBAN_SMTP_FROM"),
		},
		Push: PushConfig{
			VAPIDPublicKey:  os.Getenv("ROSENBAN_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("ROSENBAN_VAPID_PRIVATE_KEY"),
			Subscriber:      envDefault("ROSENBAN_VAPID_SUBSCRIBER", "mailto:admin@rosenban.example"),
			RatePerSecond:   envFloat("ROSENBAN_PUSH_RATE", 20),
		},
		Dispatch: DispatchConfig{
			WorkerLimit: envInt("ROSENBAN_DISPATCH_WORKERS", 16),
			SendTimeout: envDuration("ROSENBAN_SEND_TIMEOUT", 10*time.Second),
		},
		Digest: DigestConfig{
			DailySchedule:  os.Getenv("ROSENBAN_DIGEST_DAILY_CRON"),
			WeeklySchedule: os.Getenv("ROSENBAN_DIGEST_WEEKLY_CRON"),
		},
		Tracing: TracingConfig{
			CollectorEndpoint: os.Getenv("ROSENBAN_OTLP_ENDPOINT"),
		},
	}
	return cfg, nil
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
