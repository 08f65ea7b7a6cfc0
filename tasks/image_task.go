package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stylistapi/models"
	"stylistapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const negativeImagePrompt = "person, model, mannequin, hands, text, watermark, logo, blurry, low quality, cropped"

// ImageWorker moves a recommendation through pending → generating → completed | failed.
type ImageWorker struct {
	DB           *gorm.DB
	Generator    services.ImageGenerator
	Poll         services.PollConfig
	CostPerImage decimal.Decimal
	// optional
	Storage  services.ObjectStorage
	Notifier services.Notifier
}

// GenderPrefix maps the user's presentation style to a product prefix. Neutral or unset is empty.
func GenderPrefix(presentationStyle *string) string {
	if presentationStyle == nil {
		return ""
	}
	switch strings.ToLower(strings.TrimSpace(*presentationStyle)) {
	case "masculine", "male", "men", "man", "menswear":
		return "men's "
	case "feminine", "female", "women", "woman", "womenswear":
		return "women's "
	default:
		return ""
	}
}

func ImagePrompt(rec models.ProductRecommendation, presentationStyle *string) string {
	notes := strings.TrimSpace(rec.StyleNotes)
	if notes == "" {
		notes = strings.TrimSpace(rec.Description)
	}
	return fmt.Sprintf(
		"professional product photography of %s%s in %s, %s, clean white background, studio lighting, commercial quality, high resolution, 4k",
		GenderPrefix(presentationStyle),
		services.NormalizeCategory(rec.Category),
		strings.TrimSpace(rec.ColorPreference),
		notes,
	)
}

// loadLive returns the recommendation only while it and its parent suggestion still exist.
func loadLive(db *gorm.DB, recommendationID uint) (*models.ProductRecommendation, error) {
	var rec models.ProductRecommendation
	if err := db.First(&rec, recommendationID).Error; err != nil {
		return nil, err
	}
	var parents int64
	if err := db.Model(&models.SuggestionRequest{}).Where("id = ?", rec.SuggestionRequestID).Count(&parents).Error; err != nil {
		return nil, err
	}
	if parents == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rec, nil
}

func (w *ImageWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := parseRecommendationPayload(t)
	if err != nil {
		return Terminal(err).AsTaskError()
	}
	result := w.Process(ctx, payload.RecommendationID)
	if result.Outcome != OutcomeDone {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		logrus.WithFields(logrus.Fields{
			"recommendation_id": payload.RecommendationID,
			"outcome":           result.Outcome,
			"retried":           retried,
			"max_retry":         maxRetry,
		}).WithError(result.Err).Warn("image task attempt failed")
	}
	return result.AsTaskError()
}

func (w *ImageWorker) Process(ctx context.Context, recommendationID uint) Result {
	log := logrus.WithFields(logrus.Fields{"recommendation_id": recommendationID, "task": TypeRecommendationImage})
	rec, err := loadLive(w.DB, recommendationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Info("recommendation or its suggestion is gone, skipping")
		return Done()
	}
	if err != nil {
		return Retryable(err)
	}

	var user models.UserAccount
	if err := w.DB.Select("id", "presentation_style").First(&user, rec.UserAccountID).Error; err != nil {
		log.WithError(err).Warn("owner not found, using neutral prompt")
	}

	now := time.Now()
	if err := w.DB.Model(rec).Updates(map[string]any{
		"ai_image_status":     models.ImageGenerating,
		"ai_image_error":      nil,
		"ai_image_started_at": now,
	}).Error; err != nil {
		return Retryable(err)
	}

	imageURL, err := w.generate(ctx, ImagePrompt(*rec, user.PresentationStyle))
	if err != nil {
		w.fail(rec, err)
		return Retryable(err)
	}

	updates := map[string]any{
		"ai_image_status": models.ImageCompleted,
		"ai_image_url":    imageURL,
		"ai_image_key":    nil,
		"ai_image_cost":   decimal.NewNullDecimal(w.CostPerImage),
		"ai_image_error":  nil,
	}
	if w.Storage != nil {
		key, err := services.MirrorImage(ctx, w.Storage, imageURL, fmt.Sprintf("recommendations/%d/%s", rec.ID, uuid.NewString()))
		if err != nil {
			log.WithError(err).Warn("image mirroring failed, keeping provider url")
		} else {
			updates["ai_image_key"] = key
		}
	}
	if err := w.DB.Model(rec).Updates(updates).Error; err != nil {
		err = fmt.Errorf("saving generated image: %w", err)
		w.fail(rec, err)
		return Retryable(err)
	}
	log.WithField("url", imageURL).Info("recommendation image completed")

	if w.Notifier != nil {
		err := w.Notifier.Notify(ctx, rec.UserAccountID, fmt.Sprintf("%s pick is ready", services.DisplayCategory(rec.Category)),
			fmt.Sprintf("See the %s we picked for you", services.NormalizeCategory(rec.Category)),
			map[string]string{
				"type":                  "recommendation_image",
				"recommendation_id":     fmt.Sprintf("%d", rec.ID),
				"suggestion_request_id": fmt.Sprintf("%d", rec.SuggestionRequestID),
			})
		if err != nil {
			log.WithError(err).Warn("completion push failed")
		}
	}
	return Done()
}

func (w *ImageWorker) generate(ctx context.Context, prompt string) (string, error) {
	jobID, err := w.Generator.Submit(ctx, services.ImageRequest{
		Prompt:         prompt,
		NegativePrompt: negativeImagePrompt,
		Width:          1024,
		Height:         1024,
		Steps:          4,
	})
	if err != nil {
		return "", err
	}
	return services.WaitForImage(ctx, w.Generator, jobID, w.Poll)
}

func (w *ImageWorker) fail(rec *models.ProductRecommendation, cause error) {
	tx := w.DB.Model(rec).Updates(map[string]any{
		"ai_image_status":      models.ImageFailed,
		"ai_image_error":       cause.Error(),
		"ai_image_retry_times": gorm.Expr("ai_image_retry_times + ?", 1),
	})
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Recommendation %v] Error on saving failed image status: %w", rec.ID, tx.Error))
	}
	var generationErr *services.GenerationError
	if !errors.As(cause, &generationErr) {
		sentry.CaptureException(fmt.Errorf("[Recommendation %v] image generation: %w", rec.ID, cause))
	}
}
