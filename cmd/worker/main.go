package main

import (
	"context"
	"time"

	"stylistapi/config"
	"stylistapi/dbhelper"
	"stylistapi/services"
	"stylistapi/tasks"

	firebase "firebase.google.com/go/v4"
	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

func runScheduler(conf config.Config) {
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: conf.BrokerAddress}, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	entries := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: tasks.RecoveryCron,
			task: tasks.NewRecoverRecommendationsTask(),
			desc: "Stale recommendation recovery",
		},
	}
	for _, entry := range entries {
		entryID, err := scheduler.Register(entry.cron, entry.task)
		if err != nil {
			logrus.Fatalf("Failed to register task '%s': %v", entry.desc, err)
		}
		logrus.Infof("Registered task '%s' with ID: %s, cron: %s", entry.desc, entryID, entry.cron)
	}

	logrus.Info("Starting scheduler...")
	if err := scheduler.Run(); err != nil {
		logrus.Fatalf("Scheduler failed: %v", err)
	}
}

func reportTaskError(ctx context.Context, task *asynq.Task, err error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("task", task.Type())
		scope.SetExtra("retried", retried)
		scope.SetExtra("max_retry", maxRetry)
	})
	if retried >= maxRetry {
		hub.CaptureException(err)
	}
	logrus.WithFields(logrus.Fields{"task": task.Type(), "retried": retried, "max_retry": maxRetry}).WithError(err).Warn("task failed")
}

func main() {
	conf, err := config.ParseConfig()
	if err != nil {
		logrus.Fatal("invalid configuration")
	}
	config.SetupLogging(conf)
	if err := sentry.Init(sentry.ClientOptions{Dsn: conf.SentryDSN, Environment: conf.Env, Release: "stylistapi@1.0.0"}); err != nil {
		logrus.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	db := dbhelper.SetupDB(conf)
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: conf.BrokerAddress})
	defer asynqClient.Close()

	imageWorker := &tasks.ImageWorker{
		DB:           db,
		Generator:    services.NewReplicateClient(conf.ReplicateAPIToken, conf.ReplicateModel),
		Poll:         services.PollConfig{Interval: conf.ImagePollInterval, MaxAttempts: conf.ImagePollMaxAttempts},
		CostPerImage: services.ParseImageCost(conf.ImageCostPerImage),
	}
	if conf.StorageConfigured() {
		storage, err := services.NewR2Storage(context.Background(), conf.R2AccountID, conf.R2AccessKeyID, conf.R2AccessKeySecret, conf.R2BucketName)
		if err != nil {
			logrus.WithError(err).Fatal("[Queue] Failed to initialize object storage")
		}
		imageWorker.Storage = storage
	}
	if conf.PushNotifications {
		app, err := firebase.NewApp(context.Background(), nil)
		if err != nil {
			logrus.WithError(err).Fatal("error initializing firebase app")
		}
		imageWorker.Notifier = services.FirebaseNotifier{App: app, DB: db}
	}

	productWorker := &tasks.ProductWorker{
		DB: db,
		Matcher: &services.ProductMatcher{
			Searcher: services.NewAmazonMarketplaceClient(
				conf.AmazonAccessKey, conf.AmazonSecretKey, conf.AmazonPartnerTag,
				conf.AmazonHost, conf.AmazonRegion, conf.AmazonMarketplace,
			),
			PartnerTag: conf.AmazonPartnerTag,
			Domain:     conf.AmazonMarketplace,
		},
	}
	recovery := &tasks.Recovery{DB: db, Enqueuer: asynqClient}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: conf.BrokerAddress},
		asynq.Config{
			Concurrency: conf.WorkerConcurrency,
			Queues: map[string]int{
				tasks.QueueRecommendations: 7,
				"default":                  3,
			},
			RetryDelayFunc: tasks.RetryDelay,
			ErrorHandler:   asynq.ErrorHandlerFunc(reportTaskError),
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeRecommendationImage, imageWorker.ProcessTask)
	mux.HandleFunc(tasks.TypeRecommendationProducts, productWorker.ProcessTask)
	mux.HandleFunc(tasks.TypeRecoverRecommendations, recovery.ProcessTask)

	go runScheduler(conf)
	if err := srv.Run(mux); err != nil {
		logrus.Fatal(err)
	}
}
