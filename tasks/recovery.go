package tasks

import (
	"context"
	"time"

	"stylistapi/models"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	RecoveryCron       = "*/15 * * * *"
	DefaultStaleAfter  = 20 * time.Minute
	recoveryBatchLimit = 200
)

// Recovery re-enqueues image jobs for recommendations that a crashed or lost job left behind.
type Recovery struct {
	DB         *gorm.DB
	Enqueuer   Enqueuer
	StaleAfter time.Duration
	Now        func() time.Time
}

func (r *Recovery) ProcessTask(ctx context.Context, t *asynq.Task) error {
	_, err := r.Run(ctx)
	return err
}

// Run returns how many recommendations were re-enqueued. Tasks still queued or retrying keep
// their deterministic id, so the queue rejects the duplicate.
func (r *Recovery) Run(ctx context.Context) (int, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	staleAfter := r.StaleAfter
	if staleAfter == 0 {
		staleAfter = DefaultStaleAfter
	}
	cutoff := now().Add(-staleAfter)

	var stale []models.ProductRecommendation
	err := r.DB.WithContext(ctx).
		Joins("JOIN suggestion_requests ON suggestion_requests.id = product_recommendations.suggestion_request_id").
		Where(
			r.DB.Where("product_recommendations.ai_image_status = ? AND product_recommendations.ai_image_started_at < ?", models.ImageGenerating, cutoff).
				Or("product_recommendations.ai_image_status = ? AND product_recommendations.created_at < ?", models.ImagePending, cutoff),
		).
		Limit(recoveryBatchLimit).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, rec := range stale {
		if err := EnqueueImageJob(r.Enqueuer, rec.ID, asynq.TaskID(ImageTaskID(rec.ID))); err != nil {
			continue
		}
		recovered++
	}
	logrus.WithFields(logrus.Fields{"stale": len(stale), "recovered": recovered}).Info("recommendation recovery sweep finished")
	return recovered, nil
}
