package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
	Text      TextConfig
	Gemini    GeminiConfig
	Groq      GroqConfig
	Suno      SunoConfig
	Callback  CallbackConfig
	Poll      PollConfig
	R2        R2Config
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string // json | console
	PublicURL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// WaitPoolSize bounds connections held by blocking notification waits
	WaitPoolSize int
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type StoreConfig struct {
	Backend         string
	NotificationTTL time.Duration
	SweepInterval   time.Duration
}

type RateLimitConfig struct {
	VersePerMin  int
	MusicPerHour int
}

const (
	TextProviderGemini = "gemini"
	TextProviderGroq   = "groq"
)

type TextConfig struct {
	Provider string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type SunoConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
}

type CallbackConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type PollConfig struct {
	Interval time.Duration
	Ceiling  time.Duration
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// Configured reports whether every credential for the archive bucket is set.
func (c R2Config) Configured() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != ""
}

func Load() (*Config, error) {
	// .env is optional; real env vars win
	_ = godotenv.Load()

	readSecret("REDIS_PASSWORD")
	readSecret("GOOGLE_GENERATIVE_AI_API_KEY")
	readSecret("GROQ_API_KEY")
	readSecret("SUNO_API_KEY")
	readSecret("CALLBACK_SECRET")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.log_format", "LOG_FORMAT")
	_ = v.BindEnv("server.public_url", "PUBLIC_BASE_URL")
	_ = v.BindEnv("server.vercel_url", "VERCEL_URL")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("redis.wait_pool_size", "REDIS_WAIT_POOL_SIZE")
	_ = v.BindEnv("store.backend", "STORE_BACKEND")
	_ = v.BindEnv("store.notification_ttl", "NOTIFICATION_TTL")
	_ = v.BindEnv("store.sweep_interval", "NOTIFICATION_SWEEP_INTERVAL")
	_ = v.BindEnv("ratelimit.verse_per_min", "RATELIMIT_VERSE_PER_MIN")
	_ = v.BindEnv("ratelimit.music_per_hour", "RATELIMIT_MUSIC_PER_HOUR")
	_ = v.BindEnv("text.provider", "TEXT_PROVIDER")
	_ = v.BindEnv("gemini.api_key", "GOOGLE_GENERATIVE_AI_API_KEY")
	_ = v.BindEnv("gemini.model", "GEMINI_MODEL")
	_ = v.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = v.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = v.BindEnv("groq.model", "GROQ_MODEL")
	_ = v.BindEnv("suno.api_key", "SUNO_API_KEY")
	_ = v.BindEnv("suno.base_url", "SUNO_BASE_URL")
	_ = v.BindEnv("suno.default_model", "SUNO_DEFAULT_MODEL")
	_ = v.BindEnv("suno.timeout", "SUNO_TIMEOUT")
	_ = v.BindEnv("callback.secret", "CALLBACK_SECRET")
	_ = v.BindEnv("callback.token_ttl", "CALLBACK_TOKEN_TTL")
	_ = v.BindEnv("poll.interval", "POLL_INTERVAL")
	_ = v.BindEnv("poll.ceiling", "POLL_CEILING")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.public_url", "R2_PUBLIC_URL")

	// Defaults
	v.SetDefault("server.port", "3000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.wait_pool_size", 100)
	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.notification_ttl", "300s")
	v.SetDefault("store.sweep_interval", "30s")
	v.SetDefault("ratelimit.verse_per_min", 5)
	v.SetDefault("ratelimit.music_per_hour", 20)
	v.SetDefault("text.provider", TextProviderGemini)
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("suno.base_url", "https://apibox.erweima.ai")
	v.SetDefault("suno.default_model", "V4")
	v.SetDefault("suno.timeout", "30s")
	v.SetDefault("callback.token_ttl", "1h")
	v.SetDefault("poll.interval", "2s")
	v.SetDefault("poll.ceiling", "300s")

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      v.GetString("server.port"),
			Env:       v.GetString("server.env"),
			LogLevel:  v.GetString("server.log_level"),
			LogFormat: v.GetString("server.log_format"),
		},
		Redis: RedisConfig{
			Addr:         v.GetString("redis.addr"),
			Password:     v.GetString("redis.password"),
			DB:           v.GetInt("redis.db"),
			WaitPoolSize: v.GetInt("redis.wait_pool_size"),
		},
		Store: StoreConfig{
			Backend:         strings.ToLower(v.GetString("store.backend")),
			NotificationTTL: v.GetDuration("store.notification_ttl"),
			SweepInterval:   v.GetDuration("store.sweep_interval"),
		},
		RateLimit: RateLimitConfig{
			VersePerMin:  v.GetInt("ratelimit.verse_per_min"),
			MusicPerHour: v.GetInt("ratelimit.music_per_hour"),
		},
		Text: TextConfig{
			Provider: strings.ToLower(v.GetString("text.provider")),
		},
		Gemini: GeminiConfig{
			APIKey: v.GetString("gemini.api_key"),
			Model:  v.GetString("gemini.model"),
		},
		Groq: GroqConfig{
			APIKey:  v.GetString("groq.api_key"),
			BaseURL: v.GetString("groq.base_url"),
			Model:   v.GetString("groq.model"),
		},
		Suno: SunoConfig{
			APIKey:       v.GetString("suno.api_key"),
			BaseURL:      strings.TrimRight(v.GetString("suno.base_url"), "/"),
			DefaultModel: v.GetString("suno.default_model"),
			Timeout:      v.GetDuration("suno.timeout"),
		},
		Callback: CallbackConfig{
			Secret:   v.GetString("callback.secret"),
			TokenTTL: v.GetDuration("callback.token_ttl"),
		},
		Poll: PollConfig{
			Interval: v.GetDuration("poll.interval"),
			Ceiling:  v.GetDuration("poll.ceiling"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
		},
	}
	cfg.Server.PublicURL = resolvePublicURL(
		v.GetString("server.public_url"),
		v.GetString("server.vercel_url"),
		cfg.Server.Port,
	)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolvePublicURL picks the base URL the provider will call back on.
func resolvePublicURL(explicit, vercelHost, port string) string {
	if explicit != "" {
		return strings.TrimRight(explicit, "/")
	}
	if vercelHost != "" {
		return "https://" + strings.TrimRight(vercelHost, "/")
	}
	return "http://localhost:" + port
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Text.Provider {
	case TextProviderGemini, TextProviderGroq:
	default:
		return fmt.Errorf("unknown text provider %q", c.Text.Provider)
	}
	if c.Poll.Interval <= 0 || c.Poll.Ceiling <= 0 {
		return fmt.Errorf("poll interval and ceiling must be positive")
	}
	return nil
}
