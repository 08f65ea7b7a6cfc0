package services

import (
	"context"
	"testing"

	"stylistapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGapItemsFillsDefaults(t *testing.T) {
	items, err := ParseGapItems(`{"items":[{"category":"Blazer","description":"navy unstructured blazer"}]}`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Blazer", items[0].Category)
	assert.Equal(t, "medium", items[0].Priority)
	assert.Equal(t, "$50-100", items[0].BudgetRange)
	assert.Equal(t, "neutral", items[0].ColorPreference)
	assert.NotEmpty(t, items[0].Reasoning)
}

func TestParseGapItemsSortsByPriority(t *testing.T) {
	items, err := ParseGapItems(`[
		{"category":"belt","description":"brown leather belt","priority":"low"},
		{"category":"blazer","description":"navy blazer","priority":"high"},
		{"category":"scarf","description":"silk scarf","priority":"URGENT"}
	]`)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "high", items[0].Priority)
	assert.Equal(t, "low", items[1].Priority)
	assert.Equal(t, "urgent", items[2].Priority)
}

func TestParseGapItemsKeepsOrderForEqualPriority(t *testing.T) {
	items, err := ParseGapItems(`{"items":[
		{"category":"loafers","description":"a","priority":"medium"},
		{"category":"belt","description":"b","priority":"high"},
		{"category":"scarf","description":"c","priority":"medium"}
	]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"belt", "loafers", "scarf"}, []string{items[0].Category, items[1].Category, items[2].Category})
}

func TestParseGapItemsDropsIncompleteAndCaps(t *testing.T) {
	items, err := ParseGapItems(`{"items":[
		{"category":"","description":"nameless"},
		{"category":"hat"},
		{"category":"a","description":"1"},
		{"category":"b","description":"2"},
		{"category":"c","description":"3"},
		{"category":"d","description":"4"}
	]}`)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Category)
}

func TestParseGapItemsMalformed(t *testing.T) {
	_, err := ParseGapItems(`not json`)
	assert.Error(t, err)
}

func TestMapPriority(t *testing.T) {
	assert.Equal(t, models.PriorityHigh, MapPriority("High"))
	assert.Equal(t, models.PriorityLow, MapPriority(" low "))
	assert.Equal(t, models.PriorityMedium, MapPriority("urgent"))
	assert.Equal(t, models.PriorityMedium, MapPriority(""))
}

func TestMapBudgetRange(t *testing.T) {
	cases := map[string]models.BudgetRange{
		"$20-50":        models.BudgetRangeBudget,
		"under $50":     models.BudgetRangeBudget,
		"$50-100":       models.BudgetRangeMidRange,
		"$100-150":      models.BudgetRangeMidRange,
		"$100-200":      models.BudgetRangePremium,
		"$250 - $300":   models.BudgetRangePremium,
		"$300-$1,200":   models.BudgetRangeLuxury,
		"around 400":    models.BudgetRangeLuxury,
		"affordable":    models.BudgetRangeMidRange,
		"":              models.BudgetRangeMidRange,
		"$50.01-$60.00": models.BudgetRangeMidRange,
		"$1k-2k":        models.BudgetRangeLuxury,
		"up to 1.5K":    models.BudgetRangeLuxury,
		"$0.1k":         models.BudgetRangeMidRange,
	}
	for text, expected := range cases {
		assert.Equal(t, expected, MapBudgetRange(text), text)
	}
}

func TestDetectSwallowsFailures(t *testing.T) {
	detector := GapDetector{Reasoner: &stubReasoner{err: &ReasoningError{Kind: ReasoningUpstream, Message: "overloaded"}}}
	items := detector.Detect(context.Background(), "dinner", nil, wardrobe())
	assert.NotNil(t, items)
	assert.Empty(t, items)

	detector = GapDetector{Reasoner: &stubReasoner{reply: "sorry, I cannot help"}}
	assert.Empty(t, detector.Detect(context.Background(), "dinner", nil, wardrobe()))
}

func TestDetectPromptDescribesWardrobe(t *testing.T) {
	reasoner := &stubReasoner{reply: `{"items":[{"category":"blazer","description":"navy blazer","priority":"high","budget_range":"$100-200"}]}`}
	detector := GapDetector{Reasoner: reasoner}
	outfits := []models.Outfit{{ItemIDs: []uint{1, 5, 9}, Confidence: 80}}

	items := detector.Detect(context.Background(), "business meeting", outfits, wardrobe())
	require.Len(t, items, 1)
	assert.Equal(t, "$100-200", items[0].BudgetRange)

	require.Len(t, reasoner.requests, 1)
	prompt := reasoner.requests[0].Prompt
	assert.Contains(t, prompt, "Occasion: business meeting")
	assert.Contains(t, prompt, "1. black shirt, black trousers, black loafers")
	assert.Contains(t, prompt, "Under-stocked essentials: outerwear, dresses, accessories")
}

func TestSummarizeInventory(t *testing.T) {
	summary := SummarizeInventory(wardrobe())
	assert.Equal(t, 4, summary.Categories["tops"])
	assert.Equal(t, 4, summary.Categories["bottoms"])
	assert.Equal(t, 4, summary.Categories["shoes"])
	assert.Equal(t, []string{"black"}, summary.TopColors)
}
