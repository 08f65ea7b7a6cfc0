package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const enrichmentTimeout = 2 * time.Minute

type WeatherIn struct {
	TemperatureC *float64 `json:"temperature_c" validate:"required"`
	Condition    string   `json:"condition" validate:"omitempty,max=50"`
}

type CreateSuggestionIn struct {
	Context string     `json:"context" validate:"required,max=500"`
	Weather *WeatherIn `json:"weather"`
}

type SuggestionOut struct {
	models.SuggestionRequest
	Items []models.InventoryItem `json:"items"`
}

type QuotaOut struct {
	Used      int64  `json:"used"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
	Day       string `json:"day"`
}

type SuggestionController struct {
	Generator *services.SuggestionGenerator
	Gaps      *services.GapDetector
	Limiter   *services.RateLimiter
	Enqueuer  tasks.Enqueuer
	URLCache  services.URLCacheServiceProvider
	Timeout   time.Duration
}

func (controller *SuggestionController) SuggestionRoutes(g *echo.Group) {
	g.POST("", controller.CreateSuggestion)
	g.GET("/quota", controller.Quota)
	g.GET("/:id", controller.GetSuggestion)
}

// suggestionFailure maps generation errors to a status and a message safe to show the user.
func suggestionFailure(err error) (int, echo.Map) {
	var inventoryErr *services.InsufficientInventoryError
	var reasoningErr *services.ReasoningError
	switch {
	case errors.As(err, &inventoryErr):
		message := fmt.Sprintf("Add more items to your wardrobe to get suggestions (at least %d).", inventoryErr.MinItems)
		if len(inventoryErr.Missing) > 0 {
			message = "Add at least one of each to your wardrobe: " + strings.Join(inventoryErr.Missing, ", ")
		}
		return http.StatusUnprocessableEntity, echo.Map{"code": "insufficient_inventory", "message": message, "missing": inventoryErr.Missing}
	case errors.Is(err, services.ErrTruncatedResponse):
		return http.StatusBadGateway, echo.Map{"code": "truncated_response", "message": "The stylist ran out of room. Please try again."}
	case errors.Is(err, services.ErrMalformedResponse):
		return http.StatusBadGateway, echo.Map{"code": "malformed_response", "message": "The stylist answer could not be read. Please try again."}
	case errors.Is(err, services.ErrNoValidOutfits):
		return http.StatusBadGateway, echo.Map{"code": "no_valid_outfits", "message": "No complete outfits could be built this time. Please try again."}
	case errors.As(err, &reasoningErr), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, echo.Map{"code": "stylist_unavailable", "message": "The stylist is unavailable right now. Please try again."}
	default:
		return http.StatusInternalServerError, echo.Map{"code": "internal", "message": "Something happened"}
	}
}

func (controller *SuggestionController) CreateSuggestion(c echo.Context) error {
	var req CreateSuggestionIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	log := logrus.WithField("user_id", user.ID)
	ctx := c.Request().Context()

	release, err := controller.Limiter.Reserve(ctx, user)
	if errors.Is(err, services.ErrQuotaExceeded) {
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"code":    "quota_exceeded",
			"message": "You have used all of today's suggestions. Come back tomorrow.",
			"limit":   services.Limit(user),
		})
	}
	if err != nil {
		log.WithError(err).Error("usage store unavailable")
		sentry.CaptureException(err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"message": "Please try again later"})
	}

	var inventory []models.InventoryItem
	if err := db.Where("owner_id = ?", user.ID).Find(&inventory).Error; err != nil {
		release()
		log.WithError(err).Error("failed to load inventory")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
	}

	suggestion := models.SuggestionRequest{
		PublicKey:     uuid.NewString(),
		UserAccountID: user.ID,
		Context:       strings.TrimSpace(req.Context),
		Status:        models.SuggestionPending,
	}
	var weather *services.Weather
	if req.Weather != nil {
		weather = &services.Weather{TemperatureC: *req.Weather.TemperatureC, Condition: req.Weather.Condition}
		suggestion.WeatherTempC = req.Weather.TemperatureC
		suggestion.WeatherCond = services.StrPointer(req.Weather.Condition)
	}
	if err := db.Create(&suggestion).Error; err != nil {
		release()
		log.WithError(err).Error("failed to store suggestion request")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
	}
	log = log.WithField("suggestion_id", suggestion.ID)

	input := services.SuggestionInput{
		Inventory: inventory,
		Context:   suggestion.Context,
		Weather:   weather,
	}
	if user.StyleProfile != nil {
		input.StyleProfile = *user.StyleProfile
	}
	if user.PresentationStyle != nil {
		input.PresentationStyle = *user.PresentationStyle
	}

	timeout := controller.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	generateCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	result, err := controller.Generator.Generate(generateCtx, input)
	latency := time.Since(start).Milliseconds()
	suggestion.LatencyMs = &latency

	if err != nil {
		release()
		status, body := suggestionFailure(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).Error("suggestion generation failed")
		} else {
			log.WithError(err).Info("suggestion generation rejected")
		}
		if status == http.StatusInternalServerError {
			sentry.CaptureException(err)
		}
		suggestion.Status = models.SuggestionFailed
		suggestion.ErrorMessage = services.StrPointer(body["message"].(string))
		if saveErr := db.Save(&suggestion).Error; saveErr != nil {
			log.WithError(saveErr).Error("failed to store failed suggestion")
		}
		body["suggestion_id"] = suggestion.PublicKey
		return c.JSON(status, body)
	}

	suggestion.Status = models.SuggestionCompleted
	suggestion.Outfits = result.Outfits
	suggestion.EstimatedCost = decimal.NewNullDecimal(services.EstimateCost(result.LLM))
	suggestion.LLMModel = services.StrPointer(result.LLM.Model)
	suggestion.LLMInputTokenCount = services.Int32Pointer(result.LLM.InputTokenCount)
	suggestion.LLMOutputTokenCount = services.Int32Pointer(result.LLM.OutputTokenCount)
	suggestion.LLMTotalTokenCount = services.Int32Pointer(result.LLM.TotalTokenCount)
	if err := db.Save(&suggestion).Error; err != nil {
		release()
		log.WithError(err).Error("failed to store completed suggestion")
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
	}
	log.WithFields(logrus.Fields{"outfits": len(result.Outfits), "latency_ms": latency}).Info("suggestion completed")

	completed := suggestion
	runDetached(func() {
		controller.enrich(db, completed, result.Outfits, inventory)
	})

	return c.JSON(http.StatusCreated, SuggestionOut{
		SuggestionRequest: suggestion,
		Items:             outfitItems(result.Outfits, inventory),
	})
}

// enrich runs gap detection and fan-out. Nothing here may touch the completed suggestion.
func (controller *SuggestionController) enrich(db *gorm.DB, suggestion models.SuggestionRequest, outfits []models.Outfit, inventory []models.InventoryItem) {
	log := logrus.WithFields(logrus.Fields{"suggestion_id": suggestion.ID, "user_id": suggestion.UserAccountID})
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("suggestion enrichment panicked")
			sentry.CurrentHub().Recover(r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), enrichmentTimeout)
	defer cancel()

	gaps := controller.Gaps.Detect(ctx, suggestion.Context, outfits, inventory)
	if len(gaps) == 0 {
		log.Info("no wardrobe gaps detected")
		return
	}
	if controller.Enqueuer == nil {
		log.Warn("no job queue configured, skipping recommendations")
		return
	}
	if _, err := tasks.FanOutRecommendations(db, controller.Enqueuer, suggestion, gaps); err != nil {
		log.WithError(err).Error("recommendation fan-out incomplete")
	}
}

func outfitItems(outfits []models.Outfit, inventory []models.InventoryItem) []models.InventoryItem {
	wanted := map[uint]bool{}
	for _, outfit := range outfits {
		for _, id := range outfit.ItemIDs {
			wanted[id] = true
		}
	}
	items := make([]models.InventoryItem, 0, len(wanted))
	for _, item := range inventory {
		if wanted[item.ID] {
			items = append(items, item)
		}
	}
	return items
}

func (controller *SuggestionController) GetSuggestion(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	ctx := c.Request().Context()

	var suggestion models.SuggestionRequest
	result := db.Preload("Recommendations", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id asc")
	}).Where("public_key = ? AND user_account_id = ?", c.Param("id"), user.ID).Take(&suggestion)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Suggestion not found"})
	}
	if result.Error != nil {
		logrus.WithError(result.Error).Error("failed to fetch suggestion")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
	}

	for i := range suggestion.Recommendations {
		rec := &suggestion.Recommendations[i]
		if rec.AIImageKey == nil || controller.URLCache == nil {
			continue
		}
		url, err := controller.URLCache.GetReadURL(ctx, *rec.AIImageKey)
		if err != nil {
			logrus.WithError(err).WithField("recommendation_id", rec.ID).Warn("failed to presign image")
			continue
		}
		rec.AIImageURL = &url
	}

	var ids []uint
	for _, outfit := range suggestion.Outfits {
		ids = append(ids, outfit.ItemIDs...)
	}
	items := []models.InventoryItem{}
	if len(ids) > 0 {
		if err := db.Where("owner_id = ? AND id IN ?", user.ID, ids).Find(&items).Error; err != nil {
			logrus.WithError(err).WithField("suggestion_id", suggestion.ID).Error("failed to fetch outfit items")
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
		}
	}
	return c.JSON(http.StatusOK, SuggestionOut{SuggestionRequest: suggestion, Items: items})
}

func (controller *SuggestionController) Quota(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	usage, err := controller.Limiter.Check(c.Request().Context(), user)
	if err != nil && !errors.Is(err, services.ErrQuotaExceeded) {
		logrus.WithError(err).WithField("user_id", user.ID).Error("usage store unavailable")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"message": "Please try again later"})
	}
	remaining := usage.Limit - usage.Used
	if remaining < 0 {
		remaining = 0
	}
	return c.JSON(http.StatusOK, QuotaOut{Used: usage.Used, Limit: usage.Limit, Remaining: remaining, Day: usage.Day})
}
