package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type ImageJobStatus string

const (
	ImageJobStarting   ImageJobStatus = "starting"
	ImageJobProcessing ImageJobStatus = "processing"
	ImageJobSucceeded  ImageJobStatus = "succeeded"
	ImageJobFailed     ImageJobStatus = "failed"
	ImageJobCanceled   ImageJobStatus = "canceled"
)

// MapImageStatus maps provider status text; unknown values are treated as still running.
func MapImageStatus(status string) ImageJobStatus {
	switch ImageJobStatus(lowerCaser.String(strings.TrimSpace(status))) {
	case ImageJobSucceeded:
		return ImageJobSucceeded
	case ImageJobFailed:
		return ImageJobFailed
	case ImageJobCanceled, "cancelled":
		return ImageJobCanceled
	case ImageJobStarting:
		return ImageJobStarting
	default:
		return ImageJobProcessing
	}
}

func (s ImageJobStatus) Terminal() bool {
	return s == ImageJobSucceeded || s == ImageJobFailed || s == ImageJobCanceled
}

type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
}

type ImageJob struct {
	ID      string
	Status  ImageJobStatus
	Outputs []string
	Error   string
}

// ImageGenerator submits an image job and reports its progress.
type ImageGenerator interface {
	Submit(ctx context.Context, req ImageRequest) (string, error)
	Poll(ctx context.Context, jobID string) (*ImageJob, error)
}

type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

var ErrImageTimeout = errors.New("image generation timed out")

// WaitForImage polls until the job reaches a terminal state or the attempt ceiling.
// A failed or canceled job is returned as *GenerationError with the provider's text.
func WaitForImage(ctx context.Context, gen ImageGenerator, jobID string, conf PollConfig) (string, error) {
	if conf.MaxAttempts <= 0 {
		conf.MaxAttempts = 60
	}
	if conf.Interval <= 0 {
		conf.Interval = 5 * time.Second
	}
	log := logrus.WithField("job_id", jobID)
	ticker := time.NewTicker(conf.Interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= conf.MaxAttempts; attempt++ {
		job, err := gen.Poll(ctx, jobID)
		if err != nil {
			return "", err
		}
		switch job.Status {
		case ImageJobSucceeded:
			if len(job.Outputs) == 0 || job.Outputs[0] == "" {
				return "", &GenerationError{JobID: jobID, Message: "provider returned no image"}
			}
			return job.Outputs[0], nil
		case ImageJobFailed, ImageJobCanceled:
			message := job.Error
			if message == "" {
				message = "image generation " + string(job.Status)
			}
			return "", &GenerationError{JobID: jobID, Message: message}
		}
		log.WithFields(logrus.Fields{"attempt": attempt, "status": job.Status}).Debug("image job still running")
		if attempt == conf.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
	return "", fmt.Errorf("%w after %d polls", ErrImageTimeout, conf.MaxAttempts)
}

// ParseImageCost reads the configured per-image cost; invalid values count as zero.
func ParseImageCost(value string) decimal.Decimal {
	cost, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return cost
}

const replicateAPI = "https://api.replicate.com/v1"

// ReplicateClient talks to the Replicate predictions API.
// Model is either "owner/name" or "owner/name:version".
type ReplicateClient struct {
	Token      string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

func NewReplicateClient(token, model string) *ReplicateClient {
	return &ReplicateClient{
		Token:      token,
		Model:      model,
		BaseURL:    replicateAPI,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

func (p replicatePrediction) job() *ImageJob {
	job := &ImageJob{ID: p.ID, Status: MapImageStatus(p.Status)}
	// output is a single URL or a list of them depending on the model
	var single string
	var many []string
	if err := json.Unmarshal(p.Output, &many); err == nil {
		job.Outputs = many
	} else if err := json.Unmarshal(p.Output, &single); err == nil && single != "" {
		job.Outputs = []string{single}
	}
	if p.Error != nil {
		job.Error = strings.TrimSpace(fmt.Sprint(p.Error))
	}
	return job
}

func (c *ReplicateClient) do(ctx context.Context, method, url string, body any) (*replicatePrediction, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &GenerationError{Message: fmt.Sprintf("image provider returned %d: %s", resp.StatusCode, logSnippet(string(respBody)))}
	}
	var prediction replicatePrediction
	if err := json.Unmarshal(respBody, &prediction); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &prediction, nil
}

func (c *ReplicateClient) Submit(ctx context.Context, req ImageRequest) (string, error) {
	if c.Token == "" {
		return "", &GenerationError{Message: "REPLICATE_API_TOKEN is not set"}
	}
	input := map[string]any{
		"prompt":              req.Prompt,
		"negative_prompt":     req.NegativePrompt,
		"width":               req.Width,
		"height":              req.Height,
		"num_inference_steps": req.Steps,
	}
	url := fmt.Sprintf("%s/models/%s/predictions", c.BaseURL, c.Model)
	body := map[string]any{"input": input}
	if model, version, ok := strings.Cut(c.Model, ":"); ok && model != "" {
		url = c.BaseURL + "/predictions"
		body["version"] = version
	}
	prediction, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}
	if prediction.ID == "" {
		return "", &GenerationError{Message: "image provider returned no job id"}
	}
	return prediction.ID, nil
}

func (c *ReplicateClient) Poll(ctx context.Context, jobID string) (*ImageJob, error) {
	prediction, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/predictions/%s", c.BaseURL, jobID), nil)
	if err != nil {
		return nil, err
	}
	return prediction.job(), nil
}
