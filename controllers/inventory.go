package controllers

import (
	"net/http"
	"strings"

	"stylistapi/models"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CreateInventoryItemIn struct {
	Category    string   `json:"category" validate:"required,max=100"`
	Color       string   `json:"color" validate:"omitempty,max=50"`
	Tags        []string `json:"tags" validate:"max=10,dive,max=40"`
	Description string   `json:"description" validate:"omitempty,max=500"`
	Favorite    bool     `json:"favorite"`
	ImageURL    *string  `json:"image_url" validate:"omitempty,url,max=500"`
}

type InventoryController struct{}

func (controller *InventoryController) InventoryRoutes(g *echo.Group) {
	g.POST("", controller.CreateItem)
	g.GET("", controller.ListItems)
}

func (controller *InventoryController) CreateItem(c echo.Context) error {
	var req CreateInventoryItemIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	tags := make(datatypes.JSONSlice[string], 0, len(req.Tags))
	for _, tag := range req.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	item := models.InventoryItem{
		OwnerID:     user.ID,
		Category:    strings.TrimSpace(req.Category),
		Color:       strings.TrimSpace(req.Color),
		Tags:        tags,
		Description: strings.TrimSpace(req.Description),
		Favorite:    req.Favorite,
		ImageURL:    req.ImageURL,
	}
	if err := db.Create(&item).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to store inventory item")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
	}
	return c.JSON(http.StatusCreated, item)
}

func (controller *InventoryController) ListItems(c echo.Context) error {
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	var items []models.InventoryItem
	if err := db.Where("owner_id = ?", user.ID).Order("created_at desc, id desc").Find(&items).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to list inventory")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
	}
	return c.JSON(http.StatusOK, items)
}
