package services

import (
	"errors"

	"stylistapi/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrNegativeRevenue = errors.New("revenue must not be negative")

// Engagement counters are updated in SQL so concurrent events never lose an increment.
type EngagementCounters struct {
	DB *gorm.DB
}

func (e EngagementCounters) increment(recommendationID uint, updates map[string]any) error {
	result := e.DB.Model(&models.ProductRecommendation{}).
		Where("id = ?", recommendationID).
		UpdateColumns(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (e EngagementCounters) RecordView(recommendationID uint) error {
	return e.increment(recommendationID, map[string]any{"views": gorm.Expr("views + ?", 1)})
}

func (e EngagementCounters) RecordClick(recommendationID uint) error {
	return e.increment(recommendationID, map[string]any{"clicks": gorm.Expr("clicks + ?", 1)})
}

func (e EngagementCounters) RecordConversion(recommendationID uint, revenue decimal.Decimal) error {
	if revenue.IsNegative() {
		return ErrNegativeRevenue
	}
	return e.increment(recommendationID, map[string]any{
		"conversions": gorm.Expr("conversions + ?", 1),
		"revenue":     gorm.Expr("revenue + ?", revenue.StringFixed(2)),
	})
}
