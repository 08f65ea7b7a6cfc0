package services

import (
	"sync"
	"testing"

	"stylistapi/dbhelper"
	"stylistapi/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedRecommendation(t *testing.T, db *gorm.DB) models.ProductRecommendation {
	user := models.UserAccount{Name: "Ada", Email: "ada@example.com", Subscription: models.Free}
	require.NoError(t, db.Create(&user).Error)
	suggestion := models.SuggestionRequest{PublicKey: "c0ffee00-0000-4000-8000-000000000001", UserAccountID: user.ID, Context: "dinner", Status: models.SuggestionCompleted}
	require.NoError(t, db.Create(&suggestion).Error)
	rec := models.ProductRecommendation{
		SuggestionRequestID: suggestion.ID,
		UserAccountID:       user.ID,
		Category:            "blazer",
		Description:         "navy blazer",
		Priority:            models.PriorityHigh,
		BudgetRange:         models.BudgetRangePremium,
		AIImageStatus:       models.ImagePending,
	}
	require.NoError(t, db.Create(&rec).Error)
	return rec
}

func TestConcurrentViewsAreNotLost(t *testing.T) {
	db := dbhelper.SetupTestDB()
	rec := seedRecommendation(t, db)
	counters := EngagementCounters{DB: db}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, counters.RecordView(rec.ID))
		}()
	}
	wg.Wait()
	require.NoError(t, counters.RecordClick(rec.ID))

	var stored models.ProductRecommendation
	require.NoError(t, db.First(&stored, rec.ID).Error)
	assert.Equal(t, int64(20), stored.Views)
	assert.Equal(t, int64(1), stored.Clicks)
	assert.Equal(t, int64(0), stored.Conversions)
}

func TestRecordConversionAddsRevenue(t *testing.T) {
	db := dbhelper.SetupTestDB()
	rec := seedRecommendation(t, db)
	counters := EngagementCounters{DB: db}

	require.NoError(t, counters.RecordConversion(rec.ID, decimal.RequireFromString("20.50")))
	require.NoError(t, counters.RecordConversion(rec.ID, decimal.RequireFromString("4.50")))
	assert.ErrorIs(t, counters.RecordConversion(rec.ID, decimal.RequireFromString("-1")), ErrNegativeRevenue)

	var stored models.ProductRecommendation
	require.NoError(t, db.First(&stored, rec.ID).Error)
	assert.Equal(t, int64(2), stored.Conversions)
	assert.True(t, decimal.NewFromInt(25).Equal(stored.Revenue), stored.Revenue.String())
}

func TestEngagementOnMissingRecommendation(t *testing.T) {
	db := dbhelper.SetupTestDB()
	counters := EngagementCounters{DB: db}
	assert.ErrorIs(t, counters.RecordView(4242), gorm.ErrRecordNotFound)
}
