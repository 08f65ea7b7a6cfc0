package controllers

import (
	"net/http"

	"stylistapi/config"
	"stylistapi/models"
	"stylistapi/services"
	"stylistapi/tasks"

	"github.com/go-playground/validator"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// runDetached starts work that must outlive the request and never report back to it.
var runDetached = func(f func()) {
	go f()
}

func SetupServer(
	db *gorm.DB,
	conf config.Config,
	reasoner services.Reasoner,
	limiter *services.RateLimiter,
	enqueuer tasks.Enqueuer,
	urlCache services.URLCacheServiceProvider,
) *echo.Echo {
	e := echo.New()
	v := validator.New()
	v.RegisterValidation("platform", models.ValidatePlatform)
	e.Validator = &CustomValidator{validator: v}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__db", db)
			return next(c)
		}
	})
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	jwtMiddleware := echojwt.JWT([]byte(conf.JWTSecret))

	inventoryController := InventoryController{}
	inventoryGroup := e.Group("/inventory", jwtMiddleware, UserMiddleware)
	inventoryController.InventoryRoutes(inventoryGroup)

	suggestionController := SuggestionController{
		Generator: &services.SuggestionGenerator{Reasoner: reasoner},
		Gaps:      &services.GapDetector{Reasoner: reasoner},
		Limiter:   limiter,
		Enqueuer:  enqueuer,
		URLCache:  urlCache,
		Timeout:   conf.SuggestionTimeout,
	}
	suggestionGroup := e.Group("/suggestions", jwtMiddleware, UserMiddleware)
	suggestionController.SuggestionRoutes(suggestionGroup)

	recommendationController := RecommendationController{Enqueuer: enqueuer}
	recommendationGroup := e.Group("/recommendations", jwtMiddleware, UserMiddleware)
	recommendationController.RecommendationRoutes(recommendationGroup)

	profileController := ProfileController{}
	profileGroup := e.Group("/profile", jwtMiddleware, UserMiddleware)
	profileController.ProfileRoutes(profileGroup)

	return e
}
