package dbhelper

import (
	"fmt"
	"time"

	"stylistapi/config"
	"stylistapi/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func SetupDB(conf config.Config) *gorm.DB {
	var dialector gorm.Dialector
	switch conf.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(conf.DBPath)
	default:
		dialector = postgres.Open(fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			conf.DBUsername,
			conf.DBPassword,
			conf.DBHost,
			conf.DBPort,
			conf.DBName,
		))
	}
	logLevel := logger.Warn
	if conf.Env == "local" {
		logLevel = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Fatal("failed to get database handle")
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(300)
	sqlDB.SetConnMaxLifetime(time.Minute * 5)

	MigrateAll(db)
	return db
}

func MigrateAll(db *gorm.DB) {
	Migrate(db, &models.UserAccount{})
	Migrate(db, &models.UserPushToken{})
	Migrate(db, &models.InventoryItem{})
	Migrate(db, &models.SuggestionRequest{})
	Migrate(db, &models.ProductRecommendation{})
}

// SetupTestDB opens a private in-memory sqlite database.
// One connection keeps every goroutine on the same memory database.
func SetupTestDB() *gorm.DB {
	dsn := fmt.Sprintf("file:stylist_%d?mode=memory&cache=shared&_foreign_keys=1", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)
	MigrateAll(db)
	return db
}
