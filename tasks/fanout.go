package tasks

import (
	"errors"
	"fmt"

	"stylistapi/models"
	"stylistapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FanOutRecommendations stores one pending recommendation per gap and enqueues its image and product jobs.
// The two enqueues are independent; a failed one is logged and reported but never undoes the other
// or the stored rows.
func FanOutRecommendations(db *gorm.DB, enqueuer Enqueuer, suggestion models.SuggestionRequest, gaps []services.GapItem) ([]models.ProductRecommendation, error) {
	log := logrus.WithFields(logrus.Fields{"suggestion_id": suggestion.ID, "user_id": suggestion.UserAccountID})
	recommendations := make([]models.ProductRecommendation, 0, len(gaps))
	var errs []error
	for _, gap := range gaps {
		recommendation := models.ProductRecommendation{
			SuggestionRequestID: suggestion.ID,
			UserAccountID:       suggestion.UserAccountID,
			Category:            gap.Category,
			Description:         gap.Description,
			ColorPreference:     gap.ColorPreference,
			StyleNotes:          gap.StyleNotes,
			Reasoning:           gap.Reasoning,
			Priority:            services.MapPriority(gap.Priority),
			BudgetRange:         services.MapBudgetRange(gap.BudgetRange),
			AIImageStatus:       models.ImagePending,
			AffiliateProducts:   []models.AffiliateProduct{},
		}
		if err := db.Create(&recommendation).Error; err != nil {
			log.WithError(err).WithField("category", gap.Category).Error("failed to store recommendation")
			errs = append(errs, err)
			continue
		}
		recommendations = append(recommendations, recommendation)
		if err := EnqueueImageJob(enqueuer, recommendation.ID, asynq.TaskID(ImageTaskID(recommendation.ID))); err != nil {
			errs = append(errs, err)
		}
		if err := EnqueueProductJob(enqueuer, recommendation.ID); err != nil {
			errs = append(errs, err)
		}
	}
	log.WithField("recommendations", len(recommendations)).Info("recommendations fanned out")
	return recommendations, errors.Join(errs...)
}

func EnqueueImageJob(enqueuer Enqueuer, recommendationID uint, opts ...asynq.Option) error {
	task, err := NewRecommendationImageTask(recommendationID)
	if err != nil {
		return err
	}
	return enqueue(enqueuer, task, recommendationID, opts...)
}

func EnqueueProductJob(enqueuer Enqueuer, recommendationID uint) error {
	task, err := NewRecommendationProductsTask(recommendationID)
	if err != nil {
		return err
	}
	return enqueue(enqueuer, task, recommendationID, asynq.TaskID(ProductTaskID(recommendationID)))
}

func enqueue(enqueuer Enqueuer, task *asynq.Task, recommendationID uint, opts ...asynq.Option) error {
	log := logrus.WithFields(logrus.Fields{"recommendation_id": recommendationID, "task": task.Type()})
	info, err := enqueuer.Enqueue(task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		log.Info("task already queued")
		return nil
	}
	if err != nil {
		log.WithError(err).Error("failed to enqueue task")
		sentry.CaptureException(fmt.Errorf("enqueue %s for recommendation %d: %w", task.Type(), recommendationID, err))
		return err
	}
	log.WithField("task_id", info.ID).Debug("task enqueued")
	return nil
}
