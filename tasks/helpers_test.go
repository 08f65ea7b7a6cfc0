package tasks

import (
	"testing"

	"stylistapi/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedSuggestion(t *testing.T, db *gorm.DB, userID uint) models.SuggestionRequest {
	suggestion := models.SuggestionRequest{
		PublicKey:     uuid.NewString(),
		UserAccountID: userID,
		Context:       "business meeting",
		Status:        models.SuggestionCompleted,
	}
	require.NoError(t, db.Create(&suggestion).Error)
	return suggestion
}

func seedRecommendation(t *testing.T, db *gorm.DB, suggestion models.SuggestionRequest, mutate ...func(*models.ProductRecommendation)) models.ProductRecommendation {
	rec := models.ProductRecommendation{
		SuggestionRequestID: suggestion.ID,
		UserAccountID:       suggestion.UserAccountID,
		Category:            "blazer",
		Description:         "navy unstructured blazer",
		ColorPreference:     "navy",
		StyleNotes:          "unstructured italian cut",
		Priority:            models.PriorityHigh,
		BudgetRange:         models.BudgetRangePremium,
		AIImageStatus:       models.ImagePending,
	}
	for _, m := range mutate {
		m(&rec)
	}
	require.NoError(t, db.Create(&rec).Error)
	return rec
}

func reload(t *testing.T, db *gorm.DB, id uint) models.ProductRecommendation {
	var rec models.ProductRecommendation
	require.NoError(t, db.First(&rec, id).Error)
	return rec
}
