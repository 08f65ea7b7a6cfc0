package controllers

import (
	"net/http"

	"stylistapi/models"
	"stylistapi/services"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type UpdateProfileIn struct {
	PresentationStyle    *string `json:"presentation_style" validate:"omitempty,oneof=masculine feminine neutral"`
	StyleProfile         *string `json:"style_profile" validate:"omitempty,max=1000"`
	ReceiveNotifications *bool   `json:"receive_notifications"`
}

type PushTokenIn struct {
	Token    string `json:"token" validate:"required,max=500"`
	Platform string `json:"platform" validate:"required,platform"`
}

type ProfileOut struct {
	models.UserAccount
	DailyLimit int64 `json:"daily_limit"`
}

type ProfileController struct{}

func (controller *ProfileController) ProfileRoutes(g *echo.Group) {
	g.GET("/me", func(c echo.Context) error {
		user := c.Get("currentUser").(models.UserAccount)
		return c.JSON(http.StatusOK, ProfileOut{UserAccount: user, DailyLimit: services.Limit(user)})
	})
	g.PATCH("/me", controller.UpdateProfile)
	g.POST("/push-tokens", controller.RegisterPushToken)
}

func (controller *ProfileController) UpdateProfile(c echo.Context) error {
	var req UpdateProfileIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)
	updates := map[string]any{}
	if req.PresentationStyle != nil {
		updates["presentation_style"] = *req.PresentationStyle
	}
	if req.StyleProfile != nil {
		updates["style_profile"] = *req.StyleProfile
	}
	if req.ReceiveNotifications != nil {
		updates["receive_notifications"] = *req.ReceiveNotifications
	}
	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Error("failed to update profile")
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
		}
	}
	db.First(&user, user.ID)
	return c.JSON(http.StatusOK, ProfileOut{UserAccount: user, DailyLimit: services.Limit(user)})
}

// RegisterPushToken activates a device token for the user. Re-registering an existing token is a no-op.
func (controller *ProfileController) RegisterPushToken(c echo.Context) error {
	var req PushTokenIn
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	user := c.Get("currentUser").(models.UserAccount)
	db := c.Get("__db").(*gorm.DB)

	var token models.UserPushToken
	db.Where(models.UserPushToken{UserAccountID: user.ID, Token: req.Token}).FirstOrInit(&token)
	token.Platform = models.Platform(req.Platform)
	token.Active = true
	if err := db.Save(&token).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to store push token")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something happened"})
	}
	return c.NoContent(http.StatusNoContent)
}
