package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Features FeatureConfig
	Business BusinessConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type PostgresConfig struct {
	URL    string
	UseSSL bool
}

type MongoConfig struct {
	URI    string
	DBName string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicOrder    string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type FeatureConfig struct {
	AllowSQL             bool
	SourceCacheTTL       time.Duration
	StatsRefreshInterval time.Duration
}

type BusinessConfig struct {
	DefaultCustomerID  string
	DefaultSellerID    string
	DefaultPaymentType string
	AdminCustomerID    string
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Postgres: PostgresConfig{
			URL:    firstEnv("POSTGRES_URL", "DATABASE_URL"),
			UseSSL: getEnvBool("POSTGRES_USE_SSL", false),
		},
		Mongo: MongoConfig{
			URI:    firstEnv("MONGODB_URI", "MONGO_URL"),
			DBName: getEnv("MONGO_DB_NAME", "storefront"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "")),
			TopicOrder:    getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "storefront-stats"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		},
		Features: FeatureConfig{
			AllowSQL:             getEnvBool("ALLOW_SQL", false),
			SourceCacheTTL:       getEnvDuration("SOURCE_CACHE_TTL", 30*time.Second),
			StatsRefreshInterval: getEnvDuration("STATS_REFRESH_INTERVAL", time.Minute),
		},
		Business: BusinessConfig{
			DefaultCustomerID:  getEnv("DEFAULT_CUSTOMER_ID", "guest_customer"),
			DefaultSellerID:    getEnv("DEFAULT_SELLER_ID", "default_seller"),
			DefaultPaymentType: getEnv("DEFAULT_PAYMENT_TYPE", "credit_card"),
			AdminCustomerID:    getEnv("ADMIN_CUSTOMER_ID", "admin"),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, allow_sql=%t", cfg.Server.Env, cfg.Server.Port, cfg.Features.AllowSQL)
	return cfg
}

// DSN returns the connection string with an sslmode matching POSTGRES_USE_SSL
// unless the URL already pins one.
func (p PostgresConfig) DSN() string {
	if p.URL == "" {
		return ""
	}
	u, err := url.Parse(p.URL)
	if err != nil || u.Scheme == "" {
		return p.URL
	}
	q := u.Query()
	if q.Get("sslmode") != "" {
		return p.URL
	}
	if p.UseSSL {
		q.Set("sslmode", "require")
	} else {
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (p PostgresConfig) Enabled() bool { return p.URL != "" }

func (m MongoConfig) Enabled() bool { return m.URI != "" }

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration for %s, using default %s", key, defaultVal)
	}
	return defaultVal
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
