package tasks

import (
	"context"
	"errors"
	"time"

	"stylistapi/models"
	"stylistapi/services"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ProductWorker struct {
	DB      *gorm.DB
	Matcher *services.ProductMatcher
}

func (w *ProductWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := parseRecommendationPayload(t)
	if err != nil {
		return Terminal(err).AsTaskError()
	}
	return w.Process(ctx, payload.RecommendationID).AsTaskError()
}

// Process stores matched offers. An empty match keeps whatever offers were stored before.
func (w *ProductWorker) Process(ctx context.Context, recommendationID uint) Result {
	log := logrus.WithFields(logrus.Fields{"recommendation_id": recommendationID, "task": TypeRecommendationProducts})
	rec, err := loadLive(w.DB, recommendationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Info("recommendation or its suggestion is gone, skipping")
		return Done()
	}
	if err != nil {
		return Retryable(err)
	}

	offers, err := w.Matcher.Match(ctx, *rec)
	if err != nil {
		log.WithError(err).Warn("product match failed")
		return Retryable(err)
	}
	if len(offers) == 0 {
		log.Info("no offers in budget, keeping previous offers")
		return Done()
	}

	now := time.Now()
	tx := w.DB.Model(rec).
		Select("affiliate_products", "products_fetched_at").
		Updates(models.ProductRecommendation{AffiliateProducts: offers, ProductsFetchedAt: &now})
	if tx.Error != nil {
		return Retryable(tx.Error)
	}
	log.WithField("offers", len(offers)).Info("affiliate products stored")
	return Done()
}
