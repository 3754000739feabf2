package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const configPathEnv = "CONFIG_PATH"

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	ExchangeAPI ExchangeAPIConfig `yaml:"exchange_api"`
	Cache       CacheConfig       `yaml:"cache"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Log         LogConfig         `yaml:"log"`
	Currencies  CurrenciesConfig  `yaml:"currencies"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT" env-default:"3001"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	AllowedHeaders  []string      `yaml:"allowed_headers" env:"CORS_ALLOWED_HEADERS" env-default:"Content-Type,X-Request-ID"`
	AllowedMethods  []string      `yaml:"allowed_methods" env:"CORS_ALLOWED_METHODS" env-default:"GET,POST,DELETE,OPTIONS"`
}

type ExchangeAPIConfig struct {
	BaseURL      string        `yaml:"url" env:"API_URL" env-default:"https://v6.exchangerate-api.com/v6/latest"`
	APIKey       string        `yaml:"api_key" env:"API_KEY"`
	BaseCurrency string        `yaml:"base_currency" env:"API_BASE_CURRENCY" env-default:"USD"`
	Timeout      time.Duration `yaml:"timeout" env:"API_TIMEOUT" env-default:"10s"`
}

type CacheConfig struct {
	Backend         string        `yaml:"backend" env:"CACHE_BACKEND" env-default:"memory"`
	TTL             time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"1h"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CACHE_CLEANUP_INTERVAL" env-default:"10m"`
	RedisURL        string        `yaml:"redis_url" env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	MemcachedHosts  []string      `yaml:"memcached_hosts" env:"MEMCACHED_HOSTS" env-default:"localhost:11211"`
	ConnectAttempts uint64        `yaml:"connect_attempts" env:"CACHE_CONNECT_ATTEMPTS" env-default:"5"`
}

type RateLimitConfig struct {
	Enabled    bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Requests   int           `yaml:"requests" env:"RATE_LIMIT_REQUESTS" env-default:"100"`
	Window     time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"15m"`
	TrustProxy bool          `yaml:"trust_proxy" env:"RATE_LIMIT_TRUST_PROXY" env-default:"false"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"KAFKA_OVERRIDES_TOPIC" env-default:"exchange-rate-overrides"`
}

type TracingConfig struct {
	Enabled       bool   `yaml:"enabled" env:"JAEGER_ENABLED" env-default:"false"`
	ServiceName   string `yaml:"service_name" env:"JAEGER_SERVICE_NAME" env-default:"exchange-rate-facade"`
	AgentHostPort string `yaml:"agent_host_port" env:"JAEGER_AGENT_HOST_PORT" env-default:"localhost:6831"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

type CurrenciesConfig struct {
	File string `yaml:"file" env:"CURRENCIES_FILE"`
}

const (
	CacheBackendMemory    = "memory"
	CacheBackendRedis     = "redis"
	CacheBackendMemcached = "memcached"
)

// LoadDotEnv loads variables from an env file without overriding ones that
// are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return errors.Wrap(godotenv.Load(path), "loading env file")
}

// LoadConfig reads the YAML file at path (or $CONFIG_PATH) when given, then
// applies environment variables and defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, errors.Wrap(err, "reading environment")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis, CacheBackendMemcached:
	default:
		return errors.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.ExchangeAPI.BaseURL == "" {
		return errors.New("exchange api url is required")
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache ttl must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("rate limit requests and window must be positive")
	}

	return nil
}
