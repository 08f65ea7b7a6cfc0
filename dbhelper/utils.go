package dbhelper

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB, model interface{}) {
	err := db.AutoMigrate(model)
	if err != nil {
		logrus.WithError(err).Fatalf("Error while migrating %T", model)
	}
}
