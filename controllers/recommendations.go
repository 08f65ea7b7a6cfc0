package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/tasks"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConversionIn struct {
	Revenue decimal.Decimal `json:"revenue"`
}

type RecommendationController struct {
	Enqueuer tasks.Enqueuer
}

func (controller *RecommendationController) RecommendationRoutes(g *echo.Group) {
	g.POST("/:id/view", controller.RecordView)
	g.POST("/:id/click", controller.RecordClick)
	g.POST("/:id/conversion", controller.RecordConversion)
	g.DELETE("/:id/products", controller.ClearProducts)
	g.POST("/:id/regenerate-image", controller.RegenerateImage)
}

// ownedRecommendation loads a recommendation of the current user or writes the error response.
func ownedRecommendation(c echo.Context) (*models.ProductRecommendation, error) {
	var id uint
	if err := echo.PathParamsBinder(c).Uint("id", &id).BindError(); err != nil {
		return nil, c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid recommendation id"})
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var rec models.ProductRecommendation
	result := db.Where("id = ? AND user_account_id = ?", id, user.ID).Take(&rec)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, c.JSON(http.StatusNotFound, echo.Map{"message": "Recommendation not found"})
	}
	if result.Error != nil {
		logrus.WithError(result.Error).Error("failed to fetch recommendation")
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
	}
	return &rec, nil
}

func (controller *RecommendationController) counted(c echo.Context, record func(services.EngagementCounters, uint) error) error {
	rec, err := ownedRecommendation(c)
	if rec == nil {
		return err
	}
	counters := services.EngagementCounters{DB: c.Get("__db").(*gorm.DB)}
	if err := record(counters, rec.ID); err != nil {
		if errors.Is(err, services.ErrNegativeRevenue) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
		}
		logrus.WithError(err).WithField("recommendation_id", rec.ID).Error("failed to record engagement")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (controller *RecommendationController) RecordView(c echo.Context) error {
	return controller.counted(c, services.EngagementCounters.RecordView)
}

func (controller *RecommendationController) RecordClick(c echo.Context) error {
	return controller.counted(c, services.EngagementCounters.RecordClick)
}

func (controller *RecommendationController) RecordConversion(c echo.Context) error {
	var req ConversionIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	return controller.counted(c, func(counters services.EngagementCounters, id uint) error {
		return counters.RecordConversion(id, req.Revenue)
	})
}

func (controller *RecommendationController) ClearProducts(c echo.Context) error {
	rec, err := ownedRecommendation(c)
	if rec == nil {
		return err
	}
	db := c.Get("__db").(*gorm.DB)
	tx := db.Model(rec).
		Select("affiliate_products", "products_fetched_at").
		Updates(models.ProductRecommendation{AffiliateProducts: datatypes.JSONSlice[models.AffiliateProduct]{}})
	if tx.Error != nil {
		logrus.WithError(tx.Error).WithField("recommendation_id", rec.ID).Error("failed to clear products")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
	}
	return c.NoContent(http.StatusNoContent)
}

// RegenerateImage queues a fresh image job. A completed image is overwritten when it finishes.
func (controller *RecommendationController) RegenerateImage(c echo.Context) error {
	rec, err := ownedRecommendation(c)
	if rec == nil {
		return err
	}
	if rec.AIImageStatus == models.ImageGenerating {
		return c.JSON(http.StatusConflict, echo.Map{"message": "Image is already being generated"})
	}
	if controller.Enqueuer == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"message": "Please try again later"})
	}
	taskID := fmt.Sprintf("%s-%s", tasks.ImageTaskID(rec.ID), uuid.NewString())
	if err := tasks.EnqueueImageJob(controller.Enqueuer, rec.ID, asynq.TaskID(taskID)); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"message": "Please try again later"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"recommendation_id": rec.ID, "status": rec.AIImageStatus})
}
