package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"

	StorageBackendMinio = "minio"
	StorageBackendGCS   = "gcs"
	StorageBackendS3    = "s3"

	MQBackendNone     = "none"
	MQBackendRabbitMQ = "rabbitmq"
	MQBackendPubSub   = "pubsub"
)

type Config struct {
	ServerPort int
	Env        string
	Database   DatabaseConfig
	Session    SessionConfig
	Redis      RedisConfig
	Storage    StorageConfig
	MQ         MQConfig
	Log        LogConfig
	CORS       CORSConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// SessionConfig controls the session cookie and its server-side record.
type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	// Backend selects where session records live: "redis" or "postgres".
	Backend string
	// SweepSchedule is the cron expression used to purge expired postgres sessions.
	SweepSchedule string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
	S3      S3Config
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type S3Config struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UsePathStyle bool
}

type MQConfig struct {
	Backend           string
	RabbitMQ          RabbitMQConfig
	PubSub            PubSubConfig
	RoleEventsChannel string
	// ConsumerGroup names a shared subscription. Consumers in one group split
	// the stream; an empty group gives each consumer its own copy.
	ConsumerGroup string
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type LogConfig struct {
	Level string
	Dev   bool
	// File, when set, sends logs to a daily rotated file instead of stdout.
	File string
}

type CORSConfig struct {
	Origins []string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "musicclub"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "musicclub_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	sessionConfig := SessionConfig{
		Secret:        strings.TrimSpace(getEnv("SESSION_SECRET", "")),
		TTL:           getEnvDuration("SESSION_TTL", 24*time.Hour),
		CookieName:    getEnv("SESSION_COOKIE_NAME", "mc.sid"),
		Backend:       strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendRedis)),
		SweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", "*/15 * * * *"),
	}

	redisConfig := RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	storageConfig := StorageConfig{
		Backend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendMinio)),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "musicclub"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
		S3: S3Config{
			Region:       getEnv("S3_REGION", "us-east-1"),
			Endpoint:     getEnv("S3_ENDPOINT", ""),
			AccessKey:    getEnv("S3_ACCESS_KEY", ""),
			SecretKey:    getEnv("S3_SECRET_KEY", ""),
			Bucket:       getEnv("S3_BUCKET", ""),
			UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),
		},
	}

	mqConfig := MQConfig{
		Backend: strings.ToLower(getEnv("MQ_BACKEND", MQBackendNone)),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 0),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
		RoleEventsChannel: getEnv("MQ_ROLE_EVENTS_CHANNEL", "role.changed"),
		ConsumerGroup:     getEnv("MQ_CONSUMER_GROUP", ""),
	}

	dev := getEnvBool("LOG_DEV", false)
	level := getEnv("LOG_LEVEL", "")
	if level == "" {
		if dev {
			level = "debug"
		} else {
			level = "info"
		}
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		Env:        getEnv("ENV", "production"),
		Database:   dbConfig,
		Session:    sessionConfig,
		Redis:      redisConfig,
		Storage:    storageConfig,
		MQ:         mqConfig,
		Log: LogConfig{
			Level: level,
			Dev:   dev,
			File:  getEnv("LOG_FILE", ""),
		},
		CORS: CORSConfig{
			Origins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		},
	}
}

// IsProduction reports whether cookies must be cross-site capable.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if c.Session.Secret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	switch c.Session.Backend {
	case SessionBackendRedis, SessionBackendPostgres:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	switch c.Storage.Backend {
	case StorageBackendMinio, StorageBackendGCS, StorageBackendS3:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.MQ.Backend {
	case MQBackendNone, MQBackendRabbitMQ, MQBackendPubSub:
	default:
		return fmt.Errorf("unknown mq backend %q", c.MQ.Backend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(valueStr)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(strings.TrimSpace(valueStr)); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}
