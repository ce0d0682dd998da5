package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tartarus-sandbox/acheron/pkg/redisq"
	"github.com/tartarus-sandbox/acheron/pkg/sqsq"
)

type Config struct {
	Backend  string
	LogLevel string

	RedisDSN        string
	MaxConnections  int
	QueueKey        string
	DelayedQueueKey string
	DelayedLockKey  string
	PayloadKey      string
	AckDeadlineMs   int
	ReinsertOnNack  bool

	// UseRedisStreams selects the streams-based engine where available.
	// Only the list-based fallback ships in this module, so the flag must
	// stay false; it is read so deployments can carry a shared env file.
	UseRedisStreams bool

	DLQKey      string
	MaxReceives int

	SQSQueueURL  string
	SQSRegion    string
	SQSEndpoint  string
	SQSAccessKey string
	SQSSecretKey string
}

func Load() *Config {
	return &Config{
		Backend:  getEnv("QUEUE_BACKEND", "redis"),
		LogLevel: getEnv("LOG_LEVEL", "INFO"),

		RedisDSN:        getEnv("REDIS_DSN", "localhost:6379"),
		MaxConnections:  GetEnvInt("REDIS_MAX_CONNECTIONS", 8),
		QueueKey:        getEnv("QUEUE_KEY", "acheron"),
		DelayedQueueKey: getEnv("DELAYED_QUEUE_KEY", ""),
		DelayedLockKey:  getEnv("DELAYED_LOCK_KEY", ""),
		PayloadKey:      getEnv("PAYLOAD_KEY", "payload"),
		AckDeadlineMs:   GetEnvInt("ACK_DEADLINE_MS", 30_000),
		ReinsertOnNack:  GetEnvBool("REINSERT_ON_NACK", false),
		UseRedisStreams: GetEnvBool("USE_REDIS_STREAMS", false),

		DLQKey:      getEnv("DLQ_KEY", ""),
		MaxReceives: GetEnvInt("DLQ_MAX_RECEIVES", 5),

		SQSQueueURL:  getEnv("SQS_QUEUE_URL", ""),
		SQSRegion:    getEnv("SQS_REGION", "us-east-1"),
		SQSEndpoint:  getEnv("SQS_ENDPOINT", ""),
		SQSAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		SQSSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}
}

// RedisConfig maps the flat environment view onto the engine's config.
func (c *Config) RedisConfig() redisq.Config {
	cfg := redisq.Config{
		DSN:             c.RedisDSN,
		MaxConnections:  c.MaxConnections,
		QueueKey:        c.QueueKey,
		DelayedQueueKey: c.DelayedQueueKey,
		DelayedLockKey:  c.DelayedLockKey,
		PayloadKey:      c.PayloadKey,
		AckDeadline:     time.Duration(c.AckDeadlineMs) * time.Millisecond,
		ReinsertOnNack:  c.ReinsertOnNack,
	}
	if c.DLQKey != "" {
		cfg.DLQ = &redisq.DLQConfig{
			QueueKey:    c.DLQKey,
			MaxReceives: c.MaxReceives,
		}
	}
	return cfg
}

func (c *Config) SQSConfig() sqsq.Config {
	return sqsq.Config{
		QueueURL:  c.SQSQueueURL,
		Region:    c.SQSRegion,
		Endpoint:  c.SQSEndpoint,
		AccessKey: c.SQSAccessKey,
		SecretKey: c.SQSSecretKey,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func GetEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		lowerValue := strings.ToLower(value)
		return lowerValue == "true" || lowerValue == "1" || lowerValue == "yes"
	}
	return fallback
}

// GetEnv returns an environment variable or a fallback value (exported for
// external use).
func GetEnv(key, fallback string) string {
	return getEnv(key, fallback)
}
