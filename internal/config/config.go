package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/JuruSysadmin/JuruConnect-sub003/pkg/config"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/storage"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Chat      ChatConfig
	Presence  PresenceConfig
	Typing    TypingConfig
	Cassandra CassandraConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type ChatConfig struct {
	MaxTextLength   int           `mapstructure:"max_text_length"`
	HistoryPageSize int           `mapstructure:"history_page_size"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"`
	LoadTimeout     time.Duration `mapstructure:"load_timeout"`
}

type PresenceConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	EntryTTL          time.Duration `mapstructure:"entry_ttl"`
}

type TypingConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type CassandraConfig struct {
	Enabled        bool
	Hosts          []string
	Keyspace       string
	Consistency    string
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration
}

type RedisConfig struct {
	Enabled     bool
	Address     string
	Password    string
	DB          int
	CachePrefix string        `mapstructure:"cache_prefix"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    string
	Topic      string
	Partitions int
}

type DatabaseConfig struct {
	Enabled         bool
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string
}

type StorageConfig struct {
	Driver string // local, s3
	Local  storage.LocalConfig
	S3     storage.S3Config
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 65536)
	v.SetDefault("chat.max_text_length", 2000)
	v.SetDefault("chat.history_page_size", 50)
	v.SetDefault("chat.send_timeout", "10s")
	v.SetDefault("chat.load_timeout", "10s")
	v.SetDefault("presence.heartbeat_interval", "5s")
	v.SetDefault("presence.entry_ttl", "10s")
	v.SetDefault("typing.debounce", "300ms")
	v.SetDefault("typing.ttl", "6s")
	v.SetDefault("cassandra.enabled", false)
	v.SetDefault("cassandra.hosts", []string{"localhost:9042"})
	v.SetDefault("cassandra.keyspace", "juruconnect")
	v.SetDefault("cassandra.consistency", "LOCAL_QUORUM")
	v.SetDefault("cassandra.connect_timeout", "10s")
	v.SetDefault("cassandra.timeout", "5s")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_prefix", "chat:history")
	v.SetDefault("redis.cache_ttl", "60s")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "chat-notifications")
	v.SetDefault("kafka.partitions", 8)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "juruconnect")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "juruconnect")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.base_path", "./data/attachments")
	v.SetDefault("storage.local.public_url", "/files")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "chat-core")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("cassandra.enabled", "CASSANDRA_ENABLED")
	v.BindEnv("cassandra.hosts", "CASSANDRA_HOSTS")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.enabled", "KAFKA_ENABLED")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("database.enabled", "DATABASE_ENABLED")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Chat.SendTimeout = parseDuration(v, "chat.send_timeout", 10*time.Second)
	cfg.Chat.LoadTimeout = parseDuration(v, "chat.load_timeout", 10*time.Second)
	cfg.Presence.HeartbeatInterval = parseDuration(v, "presence.heartbeat_interval", 5*time.Second)
	cfg.Presence.EntryTTL = parseDuration(v, "presence.entry_ttl", 10*time.Second)
	cfg.Typing.Debounce = parseDuration(v, "typing.debounce", 300*time.Millisecond)
	cfg.Typing.TTL = parseDuration(v, "typing.ttl", 6*time.Second)
	cfg.Cassandra.ConnectTimeout = parseDuration(v, "cassandra.connect_timeout", 10*time.Second)
	cfg.Cassandra.Timeout = parseDuration(v, "cassandra.timeout", 5*time.Second)
	cfg.Redis.CacheTTL = parseDuration(v, "redis.cache_ttl", time.Minute)

	// The presence TTL is the disconnect-cleanup bound: never below two
	// heartbeat intervals.
	if cfg.Presence.EntryTTL < 2*cfg.Presence.HeartbeatInterval {
		cfg.Presence.EntryTTL = 2 * cfg.Presence.HeartbeatInterval
	}

	// Pongs arrive at the ping cadence, so the pong deadline must exceed it
	// or every connection would be declared dead between pings.
	if cfg.WebSocket.PongWait <= cfg.WebSocket.PingInterval {
		cfg.WebSocket.PongWait = 2 * cfg.WebSocket.PingInterval
	}

	// A maximum-length text is up to 4 bytes per rune on the wire; the frame
	// limit must fit it plus the JSON envelope and attachment descriptor.
	if minFrame := int64(4*cfg.Chat.MaxTextLength) + 2048; cfg.WebSocket.MaxMessageSize < minFrame {
		cfg.WebSocket.MaxMessageSize = minFrame
	}

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
