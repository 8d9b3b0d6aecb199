package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/LandoDApp/varbe-web-sub001/internal/database"
	"github.com/LandoDApp/varbe-web-sub001/pkg/log"
)

type Config struct {
	Server   ServerConfig
	Database database.Config
	Redis    RedisConfig
	Bus      BusConfig
	Presence PresenceConfig
	Chat     ChatConfig
	Cache    CacheConfig
	Profile  ProfileConfig
	Auth     AuthConfig
	Log      log.Config
}

type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	InstanceID string `mapstructure:"instance_id"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BusConfig selects the event-bus backend for cross-instance fan-out
// and notification dispatch.
type BusConfig struct {
	Backend      string `mapstructure:"backend"` // "redis" or "kafka"
	KafkaBrokers string `mapstructure:"kafka_brokers"`
	KafkaTopic   string `mapstructure:"kafka_topic"`
}

type PresenceConfig struct {
	Store         string        `mapstructure:"store"` // "memory" or "redis"
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type ChatConfig struct {
	MinSendInterval   time.Duration `mapstructure:"min_send_interval"`
	MaxBodyLength     int           `mapstructure:"max_body_length"`
	HistoryPageSize   int           `mapstructure:"history_page_size"`
	RequireMembership bool          `mapstructure:"require_membership"`
}

type CacheConfig struct {
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type ProfileConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenDuration time.Duration `mapstructure:"token_duration"`
}

// Load reads ./config/config.yaml, applies defaults and env overrides,
// and unmarshals the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.instance_id", "")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "chatrooms")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/chatrooms.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("bus.backend", "redis")
	v.SetDefault("bus.kafka_brokers", "localhost:9092")
	v.SetDefault("bus.kafka_topic", "chat-room-events")
	v.SetDefault("presence.store", "memory")
	v.SetDefault("presence.ttl", 45*time.Second)
	v.SetDefault("presence.sweep_interval", 10*time.Second)
	v.SetDefault("chat.min_send_interval", time.Second)
	v.SetDefault("chat.max_body_length", 2000)
	v.SetDefault("chat.history_page_size", 50)
	v.SetDefault("chat.require_membership", false)
	v.SetDefault("cache.prefix", "rooms:cache")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("profile.base_url", "http://localhost:8081")
	v.SetDefault("profile.cache_ttl", time.Minute)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_duration", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Bind environment variables
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.instance_id", "INSTANCE_ID")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("bus.backend", "BUS_BACKEND")
	v.BindEnv("bus.kafka_brokers", "KAFKA_BROKERS")
	v.BindEnv("bus.kafka_topic", "KAFKA_TOPIC")
	v.BindEnv("presence.store", "PRESENCE_STORE")
	v.BindEnv("presence.ttl", "PRESENCE_TTL")
	v.BindEnv("presence.sweep_interval", "PRESENCE_SWEEP_INTERVAL")
	v.BindEnv("chat.min_send_interval", "CHAT_MIN_SEND_INTERVAL")
	v.BindEnv("chat.require_membership", "CHAT_REQUIRE_MEMBERSHIP")
	v.BindEnv("profile.base_url", "PROFILE_SERVICE_URL")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("log.level", "LOG_LEVEL")

	// Config file is optional; env and defaults are enough to boot.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
