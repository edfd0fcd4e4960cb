package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RedisConfig holds the cache connection settings
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// GetRedisConfig returns redis configuration from environment variables
func GetRedisConfig() *RedisConfig {
	return &RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

// Addr returns host:port
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// KafkaConfig holds broker and topic settings shared by producers and consumers
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// GetKafkaConfig returns kafka configuration from environment variables
func GetKafkaConfig(groupID string) *KafkaConfig {
	return &KafkaConfig{
		Brokers: strings.Split(getEnv("KAFKA_BROKER", "localhost:9092"), ","),
		Topic:   getEnv("KAFKA_TOPIC", "property-events"),
		GroupID: groupID,
	}
}

// AuthConfig holds identity provider settings
type AuthConfig struct {
	Region          string
	UserPoolID      string
	VerifySignature bool
}

// GetAuthConfig returns auth configuration from environment variables
func GetAuthConfig() *AuthConfig {
	return &AuthConfig{
		Region:          getEnv("AWS_REGION", "us-east-1"),
		UserPoolID:      getEnv("COGNITO_USER_POOL_ID", ""),
		VerifySignature: getEnvBool("AUTH_VERIFY_SIGNATURE", true),
	}
}

// LLMConfig holds settings for the hosted language model
type LLMConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	MaxTokens   int
	Timeout     time.Duration
	MaxFailures int
	ResetAfter  time.Duration
}

// GetLLMConfig returns model configuration from environment variables
func GetLLMConfig() *LLMConfig {
	return &LLMConfig{
		Endpoint:    getEnv("LLM_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		APIKey:      getEnv("LLM_API_KEY", ""),
		Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1200),
		Timeout:     getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		MaxFailures: getEnvInt("LLM_MAX_FAILURES", 5),
		ResetAfter:  getEnvDuration("LLM_RESET_AFTER", 30*time.Second),
	}
}

// StorageConfig holds the report archive settings. An empty Bucket disables uploads.
type StorageConfig struct {
	Region string
	Bucket string
	Prefix string
}

// GetStorageConfig returns object storage configuration from environment variables
func GetStorageConfig() *StorageConfig {
	return &StorageConfig{
		Region: getEnv("AWS_REGION", "us-east-1"),
		Bucket: getEnv("REPORTS_BUCKET", ""),
		Prefix: getEnv("REPORTS_PREFIX", "reports/"),
	}
}

// Port returns the listen port for a service, e.g. Port("TENANCY_SERVICE_PORT", "8003")
func Port(key, defaultValue string) string {
	return getEnv(key, defaultValue)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
