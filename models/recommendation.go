package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type BudgetRange string

const (
	BudgetRangeBudget   BudgetRange = "budget"
	BudgetRangeMidRange BudgetRange = "mid_range"
	BudgetRangePremium  BudgetRange = "premium"
	BudgetRangeLuxury   BudgetRange = "luxury"
)

type ImageStatus string

const (
	ImagePending    ImageStatus = "pending"
	ImageGenerating ImageStatus = "generating"
	ImageCompleted  ImageStatus = "completed"
	ImageFailed     ImageStatus = "failed"
)

type AffiliateProduct struct {
	Title        string          `json:"title"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency"`
	ImageURL     string          `json:"image_url"`
	AffiliateURL string          `json:"affiliate_url"`
	SourceID     string          `json:"source_id"`
}

// ProductRecommendation is a wardrobe gap. The image fields belong to the image worker,
// AffiliateProducts to the product worker, counters to engagement events.
type ProductRecommendation struct {
	JsonModel
	SuggestionRequestID uint `gorm:"index" json:"suggestion_request_id"`
	UserAccountID       uint `gorm:"index" json:"-"`

	Category        string      `json:"category"`
	Description     string      `gorm:"type:text" json:"description"`
	ColorPreference string      `json:"color_preference"`
	StyleNotes      string      `gorm:"type:text" json:"style_notes"`
	Reasoning       string      `gorm:"type:text" json:"reasoning"`
	Priority        Priority    `json:"priority"`
	BudgetRange     BudgetRange `json:"budget_range"`

	AIImageStatus     ImageStatus         `gorm:"default:pending;index" json:"ai_image_status"`
	AIImageURL        *string             `json:"ai_image_url"`
	AIImageKey        *string             `json:"-"` // bucket key when mirrored
	AIImageCost       decimal.NullDecimal `gorm:"type:decimal(10,4)" json:"ai_image_cost"`
	AIImageError      *string             `json:"ai_image_error"`
	AIImageRetryTimes int                 `json:"-"`
	AIImageStartedAt  *time.Time          `json:"-"`

	AffiliateProducts datatypes.JSONSlice[AffiliateProduct] `json:"affiliate_products"`
	ProductsFetchedAt *time.Time                            `json:"products_fetched_at"`

	Views       int64           `gorm:"default:0" json:"views"`
	Clicks      int64           `gorm:"default:0" json:"clicks"`
	Conversions int64           `gorm:"default:0" json:"conversions"`
	Revenue     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"revenue"`
}
