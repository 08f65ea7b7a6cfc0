package main

import (
	"context"
	"time"

	"stylistapi/config"
	"stylistapi/controllers"
	"stylistapi/dbhelper"
	"stylistapi/services"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func setupUsageStore(conf config.Config) services.UsageStore {
	if conf.UsageStore == "memory" {
		store, err := services.NewCacheUsageStore()
		if err != nil {
			logrus.WithError(err).Fatal("failed to create in-memory usage store")
		}
		return store
	}
	return services.NewRedisUsageStore(conf.RedisAddr)
}

func main() {
	conf, err := config.ParseConfig()
	if err != nil {
		logrus.Fatal("invalid configuration")
	}
	config.SetupLogging(conf)

	err = sentry.Init(sentry.ClientOptions{
		Dsn:              conf.SentryDSN,
		Environment:      conf.Env,
		Release:          "stylistapi@1.0.0",
		TracesSampleRate: 0.2,
	})
	if err != nil {
		logrus.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	db := dbhelper.SetupDB(conf)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: conf.BrokerAddress})
	defer asynqClient.Close()

	var urlCache services.URLCacheServiceProvider
	if conf.StorageConfigured() {
		storage, err := services.NewR2Storage(context.Background(), conf.R2AccountID, conf.R2AccessKeyID, conf.R2AccessKeySecret, conf.R2BucketName)
		if err != nil {
			logrus.WithError(err).Fatal("failed to initialize object storage")
		}
		cache, err := services.NewURLCacheService(storage)
		if err != nil {
			logrus.WithError(err).Fatal("failed to initialize URL cache service")
		}
		urlCache = cache
	}

	reasoner := services.GoogleReasoner{
		APIKey: conf.GoogleAPIKey,
		Model:  services.ParseLLMModelName(conf.SuggestionModel),
	}
	limiter := services.NewRateLimiter(setupUsageStore(conf))

	e := controllers.SetupServer(db, conf, reasoner, limiter, asynqClient, urlCache)
	e.Debug = conf.Env == "local"
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	e.Logger.Fatal(e.Start(conf.HTTPAddr))
}
