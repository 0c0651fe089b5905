package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPPort int
	GRPCPort int

	MySQLDSN  string
	RedisAddr string

	SessionTTL     time.Duration
	StockDecrement bool

	KafkaBrokers []string
	KafkaTopic   string

	PageSize      int
	FeaturedLimit int
}

func Load() Config {
	return Config{
		AppEnv:         getEnv("APP_ENV", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		HTTPPort:       getEnvInt("HTTP_PORT", 8080),
		GRPCPort:       getEnvInt("GRPC_PORT", 50051),
		MySQLDSN:       getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/storefront?parseTime=true"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		SessionTTL:     getEnvDuration("SESSION_TTL", 14*24*time.Hour),
		StockDecrement: getEnvBool("STOCK_DECREMENT", false),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "store.notifications"),
		PageSize:       getEnvInt("PAGE_SIZE", 12),
		FeaturedLimit:  getEnvInt("FEATURED_LIMIT", 8),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
