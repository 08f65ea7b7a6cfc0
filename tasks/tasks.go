package tasks

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeRecommendationImage    = "recommendation:image"
	TypeRecommendationProducts = "recommendation:products"
	TypeRecoverRecommendations = "recommendation:recover"

	QueueRecommendations = "recommendations"

	ImageMaxRetry   = 3
	ProductMaxRetry = 2

	// must outlast the image poll ceiling
	imageTaskTimeout   = 10 * time.Minute
	productTaskTimeout = 2 * time.Minute
)

type RecommendationPayload struct {
	RecommendationID uint `json:"recommendation_id"`
}

// Enqueuer is the part of *asynq.Client the fan-out needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ImageTaskID is stable per recommendation so the queue rejects duplicates.
func ImageTaskID(recommendationID uint) string {
	return fmt.Sprintf("recommendation-image-%d", recommendationID)
}

func ProductTaskID(recommendationID uint) string {
	return fmt.Sprintf("recommendation-products-%d", recommendationID)
}

func newRecommendationTask(taskType string, recommendationID uint, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(RecommendationPayload{RecommendationID: recommendationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, payload, opts...), nil
}

func NewRecommendationImageTask(recommendationID uint) (*asynq.Task, error) {
	return newRecommendationTask(TypeRecommendationImage, recommendationID,
		asynq.Queue(QueueRecommendations),
		asynq.MaxRetry(ImageMaxRetry),
		asynq.Timeout(imageTaskTimeout),
	)
}

func NewRecommendationProductsTask(recommendationID uint) (*asynq.Task, error) {
	return newRecommendationTask(TypeRecommendationProducts, recommendationID,
		asynq.Queue(QueueRecommendations),
		asynq.MaxRetry(ProductMaxRetry),
		asynq.Timeout(productTaskTimeout),
	)
}

func NewRecoverRecommendationsTask() *asynq.Task {
	return asynq.NewTask(TypeRecoverRecommendations, nil, asynq.MaxRetry(0), asynq.Queue(QueueRecommendations))
}

func parseRecommendationPayload(t *asynq.Task) (RecommendationPayload, error) {
	var payload RecommendationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("json.Unmarshal failed: %v", err)
	}
	if payload.RecommendationID == 0 {
		return payload, fmt.Errorf("payload has no recommendation id")
	}
	return payload, nil
}

// ImageRetryDelay is 3, 9, 27 minutes for retries 0, 1, 2.
func ImageRetryDelay(retried int) time.Duration {
	return time.Duration(math.Pow(3, float64(retried+1))) * time.Minute
}

// ProductRetryDelay is 2, 8 minutes for retries 0, 1.
func ProductRetryDelay(retried int) time.Duration {
	n := retried + 1
	return time.Duration(n*n*2) * time.Minute
}

// RetryDelay is the asynq RetryDelayFunc for the worker server.
func RetryDelay(retried int, err error, t *asynq.Task) time.Duration {
	switch t.Type() {
	case TypeRecommendationImage:
		return ImageRetryDelay(retried)
	case TypeRecommendationProducts:
		return ProductRetryDelay(retried)
	default:
		return asynq.DefaultRetryDelayFunc(retried, err, t)
	}
}
