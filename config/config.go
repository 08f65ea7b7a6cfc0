package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Env       string `env:"ENV" envDefault:"local"`
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8083"`
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	SentryDSN string `env:"SENTRY_DSN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// postgres or sqlite
	DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUsername string `env:"DB_USERNAME"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"stylist"`
	DBPath     string `env:"DB_PATH" envDefault:"stylist.db"`

	BrokerAddress     string `env:"ASYNC_BROKER_ADDRESS" envDefault:"localhost:6379"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"10"`

	// memory keeps daily usage per process, redis shares it between api replicas
	UsageStore string `env:"USAGE_STORE" envDefault:"redis"`
	RedisAddr  string `env:"REDIS_ADDR"`

	GoogleAPIKey      string        `env:"GOOGLE_API_KEY"`
	SuggestionModel   string        `env:"SUGGESTION_MODEL" envDefault:"gemini-2.5-flash"`
	SuggestionTimeout time.Duration `env:"SUGGESTION_TIMEOUT" envDefault:"60s"`

	ReplicateAPIToken    string        `env:"REPLICATE_API_TOKEN"`
	ReplicateModel       string        `env:"REPLICATE_MODEL" envDefault:"black-forest-labs/flux-schnell"`
	ImageCostPerImage    string        `env:"IMAGE_COST_PER_IMAGE" envDefault:"0.003"`
	ImagePollInterval    time.Duration `env:"IMAGE_POLL_INTERVAL" envDefault:"5s"`
	ImagePollMaxAttempts int           `env:"IMAGE_POLL_MAX_ATTEMPTS" envDefault:"60"`

	AmazonAccessKey   string `env:"AMAZON_ACCESS_KEY"`
	AmazonSecretKey   string `env:"AMAZON_SECRET_KEY"`
	AmazonPartnerTag  string `env:"AMAZON_PARTNER_TAG"`
	AmazonHost        string `env:"AMAZON_HOST" envDefault:"webservices.amazon.com"`
	AmazonRegion      string `env:"AMAZON_REGION" envDefault:"us-east-1"`
	AmazonMarketplace string `env:"AMAZON_MARKETPLACE" envDefault:"www.amazon.com"`

	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	R2BucketName      string `env:"R2_BUCKET_NAME"`

	PushNotifications bool `env:"PUSH_NOTIFICATIONS" envDefault:"false"`
}

func ParseConfig() (Config, error) {
	var conf Config
	if err := env.Parse(&conf); err != nil {
		logrus.WithError(err).Error("env.Parse error")
		return Config{}, err
	}
	if conf.RedisAddr == "" {
		conf.RedisAddr = conf.BrokerAddress
	}
	return conf, nil
}

// StorageConfigured reports whether generated images can be mirrored to the bucket.
func (c Config) StorageConfigured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2BucketName != ""
}

func SetupLogging(c Config) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if c.Env != "local" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
