package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config корневая структура конфигурации сервиса.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Source   SourceConfig   `mapstructure:"source"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	GitHub   GitHubConfig   `mapstructure:"github"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP и gRPC серверов.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"` // 0: gRPC health выключен
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// Addr адрес HTTP listener'а.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SourceConfig откуда берутся метрики: fixtures или postgres.
type SourceConfig struct {
	Kind string `mapstructure:"kind"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
// Пустой URL: база не используется вовсе.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (кэш статистики репозиториев).
// Пустой Addr: кэш выключен.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig источник внешних событий активности. Пустой Brokers: ingester не запускается.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// OpenAIConfig LLM-интеграция. Без ключа функции чата отключены, но сервис стартует.
type OpenAIConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// GitHubConfig интеграция со статистикой репозиториев. Без токена отключена.
type GitHubConfig struct {
	Token   string        `mapstructure:"token"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// UpstreamConfig лимиты и предохранитель для внешних вызовов.
type UpstreamConfig struct {
	RateLimit     float64       `mapstructure:"rate_limit"` // запросов в секунду
	RateBurst     int           `mapstructure:"rate_burst"`
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBMaxFailures uint32        `mapstructure:"cb_max_failures"`
}

// RealtimeConfig период синтетических обновлений.
type RealtimeConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CacheConfig время жизни закэшированной статистики репозиториев.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// AuditConfig буфер журнала вызовов интеграций.
type AuditConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console

	// Ротация файла (lumberjack). Пустой File: пишем только в stderr.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
// configFile пустой: ищем config.yaml в . и ./configs.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// 2. Переменные окружения: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Привычные имена переменных для секретов интеграций
	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("github.token", "GITHUB_TOKEN")
	_ = v.BindEnv("database.url", "DATABASE_URL", "DB_URL")

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет: работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность секций.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "fixtures":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("config: source.kind=postgres requires database.url")
		}
	default:
		return fmt.Errorf("config: unknown source.kind %q", c.Source.Kind)
	}
	if c.Realtime.Interval <= 0 {
		return errors.New("config: realtime.interval must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("config: kafka.topic is required when brokers are set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.grpc_port", 0)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("source.kind", "fixtures")
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 1)

	v.SetDefault("kafka.topic", "devpulse.activities")
	v.SetDefault("kafka.group_id", "devpulse")

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.timeout", 60*time.Second)

	v.SetDefault("github.base_url", "https://api.github.com")
	v.SetDefault("github.timeout", 15*time.Second)

	v.SetDefault("upstream.rate_limit", 5)
	v.SetDefault("upstream.rate_burst", 5)
	v.SetDefault("upstream.cb_max_requests", 3)
	v.SetDefault("upstream.cb_interval", 5*time.Second)
	v.SetDefault("upstream.cb_timeout", 30*time.Second)
	v.SetDefault("upstream.cb_max_failures", 5)

	v.SetDefault("realtime.interval", 30*time.Second)
	v.SetDefault("realtime.write_timeout", 10*time.Second)

	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("audit.buffer_size", 1000)
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.flush_interval", 1*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 30)
}
