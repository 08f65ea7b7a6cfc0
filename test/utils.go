package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"stylistapi/config"
	"stylistapi/models"
	"stylistapi/services"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const JWTSecret = "test-secret"

func Config() config.Config {
	return config.Config{
		Env:                  "test",
		JWTSecret:            JWTSecret,
		UsageStore:           "memory",
		SuggestionTimeout:    5 * time.Second,
		ImageCostPerImage:    "0.003",
		ImagePollInterval:    time.Millisecond,
		ImagePollMaxAttempts: 5,
		AmazonPartnerTag:     "stylist-20",
		AmazonMarketplace:    "www.amazon.com",
	}
}

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(JWTSecret))
	if err != nil {
		logrus.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userID uint, param interface{}) *http.Request {
	req := NewJSONRequest(method, target, param)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", GenerateUserToken(strconv.FormatUint(uint64(userID), 10))))
	return req
}

func NewJSONAuthRequestRaw(method string, target string, userID uint, json string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(json))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", GenerateUserToken(strconv.FormatUint(uint64(userID), 10))))
	return req
}

var userCounter int
var userCounterMu sync.Mutex

func FakeUser(db *gorm.DB, subscription models.Subscription) *models.UserAccount {
	userCounterMu.Lock()
	userCounter++
	n := userCounter
	userCounterMu.Unlock()
	if subscription == "" {
		subscription = models.Free
	}
	user := &models.UserAccount{
		Name:                 "OurName",
		Email:                fmt.Sprintf("user%d@example.com", n),
		Subscription:         subscription,
		ReceiveNotifications: true,
	}
	db.Create(user)
	db.Create(&models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      models.PlatformAndroid,
		Token:         fmt.Sprintf("push-token-%d", n),
		Active:        true,
	})
	return user
}

var inventoryColors = []string{"navy", "white", "black", "grey", "beige", "olive"}

// FakeInventory stores one item per category, each a day older than the previous one.
func FakeInventory(db *gorm.DB, ownerID uint, categories ...string) []models.InventoryItem {
	items := make([]models.InventoryItem, 0, len(categories))
	now := time.Now()
	for i, category := range categories {
		item := models.InventoryItem{
			OwnerID:     ownerID,
			Category:    category,
			Color:       inventoryColors[i%len(inventoryColors)],
			Tags:        datatypes.JSONSlice[string]{"classic"},
			Description: fmt.Sprintf("%s number %d", category, i+1),
		}
		item.CreatedAt = now.Add(-time.Duration(i) * 24 * time.Hour)
		db.Create(&item)
		items = append(items, item)
	}
	return items
}

// BusinessWardrobe is 4 tops, 4 bottoms and 4 shoes.
func BusinessWardrobe() []string {
	return []string{
		"shirt", "blouse", "sweater", "polo",
		"trousers", "chinos", "skirt", "slacks",
		"loafers", "oxfords", "heels", "boots",
	}
}

type ReasonerReply struct {
	Text      string
	Truncated bool
	Err       error
}

// FakeReasoner answers with Replies in order and repeats the last one.
type FakeReasoner struct {
	mu      sync.Mutex
	Replies []ReasonerReply
	Calls   []services.ReasoningRequest
}

func NewFakeReasoner(replies ...ReasonerReply) *FakeReasoner {
	return &FakeReasoner{Replies: replies}
}

func (f *FakeReasoner) Generate(ctx context.Context, req services.ReasoningRequest) (*services.LLMResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	index := len(f.Calls)
	f.Calls = append(f.Calls, req)
	if len(f.Replies) == 0 {
		return nil, &services.ReasoningError{Kind: services.ReasoningUpstream, Message: "no reply configured"}
	}
	if index >= len(f.Replies) {
		index = len(f.Replies) - 1
	}
	reply := f.Replies[index]
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &services.LLMResponse{
		Response:         reply.Text,
		Model:            services.Flash25.String(),
		Truncated:        reply.Truncated,
		InputTokenCount:  1200,
		OutputTokenCount: 300,
		TotalTokenCount:  1500,
	}, nil
}

func (f *FakeReasoner) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// OutfitsJSON builds a model reply with one outfit per id list.
func OutfitsJSON(confidence int, outfits ...[]uint) string {
	entries := make([]map[string]any, 0, len(outfits))
	for i, ids := range outfits {
		entries = append(entries, map[string]any{
			"item_ids":   ids,
			"confidence": confidence - i,
			"reasoning":  "balanced colors",
			"style_tags": []string{"smart"},
		})
	}
	return JsonString(map[string]any{"outfits": entries})
}

// FakeImageGenerator returns Statuses one poll at a time and repeats the last one.
type FakeImageGenerator struct {
	mu        sync.Mutex
	JobID     string
	SubmitErr error
	Statuses  []services.ImageJob
	Submitted []services.ImageRequest
	Polls     int
}

func (f *FakeImageGenerator) Submit(ctx context.Context, req services.ImageRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Submitted = append(f.Submitted, req)
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	if f.JobID == "" {
		return "job-1", nil
	}
	return f.JobID, nil
}

func (f *FakeImageGenerator) Poll(ctx context.Context, jobID string) (*services.ImageJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	index := f.Polls
	f.Polls++
	if len(f.Statuses) == 0 {
		return &services.ImageJob{ID: jobID, Status: services.ImageJobProcessing}, nil
	}
	if index >= len(f.Statuses) {
		index = len(f.Statuses) - 1
	}
	job := f.Statuses[index]
	job.ID = jobID
	return &job, nil
}

type FakeMarketplace struct {
	Enabled  bool
	Listings []services.RawListing
	Err      error
	Queries  []string
	Hints    []services.CategoryHint
}

func (f *FakeMarketplace) Configured() bool {
	return f.Enabled
}

func (f *FakeMarketplace) Search(ctx context.Context, query string, hint services.CategoryHint, maxResults int) ([]services.RawListing, error) {
	f.Queries = append(f.Queries, query)
	f.Hints = append(f.Hints, hint)
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.Listings) > maxResults {
		return f.Listings[:maxResults], nil
	}
	return f.Listings, nil
}

type EnqueuedTask struct {
	Type    string
	TaskID  string
	Payload []byte
}

// RecordingEnqueuer keeps every enqueued task and rejects repeated task ids like asynq does.
type RecordingEnqueuer struct {
	mu    sync.Mutex
	Tasks []EnqueuedTask
	Err   error
	ids   map[string]bool
}

func (r *RecordingEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var taskID string
	for _, opt := range opts {
		if opt.Type() == asynq.TaskIDOpt {
			taskID, _ = opt.Value().(string)
		}
	}
	if taskID == "" {
		taskID = fmt.Sprintf("task-%d", len(r.Tasks)+1)
	}
	if r.ids == nil {
		r.ids = map[string]bool{}
	}
	if r.ids[taskID] {
		return nil, asynq.ErrTaskIDConflict
	}
	r.ids[taskID] = true
	r.Tasks = append(r.Tasks, EnqueuedTask{Type: task.Type(), TaskID: taskID, Payload: task.Payload()})
	return &asynq.TaskInfo{ID: taskID, Type: task.Type(), Payload: task.Payload()}, nil
}

func (r *RecordingEnqueuer) OfType(taskType string) []EnqueuedTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EnqueuedTask
	for _, task := range r.Tasks {
		if task.Type == taskType {
			out = append(out, task)
		}
	}
	return out
}

// Forget drops recorded ids, like asynq after a task completes.
type Notification struct {
	UserID uint
	Title  string
	Body   string
	Data   map[string]string
}

type FakeNotifier struct {
	mu   sync.Mutex
	Sent []Notification
}

func (f *FakeNotifier) Notify(ctx context.Context, userID uint, title string, body string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, Notification{UserID: userID, Title: title, Body: body, Data: data})
	return nil
}

type FakeStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte
}

func (f *FakeStorage) PutObject(ctx context.Context, key string, content []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Objects == nil {
		f.Objects = map[string][]byte{}
	}
	f.Objects[key] = content
	return nil
}

func (f *FakeStorage) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://cdn.example.com/" + key + "?signed=1", nil
}
