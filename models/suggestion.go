package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	SuggestionPending   = "pending"
	SuggestionCompleted = "completed"
	SuggestionFailed    = "failed"
)

type Outfit struct {
	ItemIDs    []uint   `json:"item_ids"`
	Confidence int      `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	StyleTags  []string `json:"style_tags"`
}

// SuggestionRequest is written once as pending and moves to completed or failed exactly once.
type SuggestionRequest struct {
	JsonModel
	PublicKey     string                      `gorm:"uniqueIndex;size:36" json:"public_key"`
	UserAccountID uint                        `gorm:"index" json:"-"`
	UserAccount   UserAccount                 `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Context       string                      `gorm:"type:text" json:"context"`
	WeatherTempC  *float64                    `json:"weather_temp_c"`
	WeatherCond   *string                     `json:"weather_condition"`
	Status        string                      `gorm:"default:pending" json:"status"`
	Outfits       datatypes.JSONSlice[Outfit] `json:"outfits"`
	LatencyMs     *int64                      `json:"latency_ms"`
	EstimatedCost decimal.NullDecimal         `gorm:"type:decimal(12,6)" json:"estimated_cost"`
	ErrorMessage  *string                     `json:"error_message"`

	LLMModel            *string `json:"llm_model"`
	LLMInputTokenCount  *int32  `json:"llm_input_token_count"`
	LLMOutputTokenCount *int32  `json:"llm_output_token_count"`
	LLMTotalTokenCount  *int32  `json:"llm_total_token_count"`

	Recommendations []ProductRecommendation `gorm:"foreignKey:SuggestionRequestID;constraint:OnDelete:CASCADE;" json:"recommendations"`
}
