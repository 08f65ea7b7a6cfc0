package services

import (
	"context"
	"errors"
	"testing"

	"stylistapi/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReasoner struct {
	reply    string
	truncate bool
	err      error
	requests []ReasoningRequest
}

func (s *stubReasoner) Generate(ctx context.Context, req ReasoningRequest) (*LLMResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &LLMResponse{Response: s.reply, Truncated: s.truncate, Model: Flash25.String()}, nil
}

func wardrobe() []models.InventoryItem {
	categories := []string{
		"shirt", "blouse", "sweater", "polo",
		"trousers", "chinos", "skirt", "slacks",
		"loafers", "oxfords", "heels", "boots",
	}
	items := make([]models.InventoryItem, 0, len(categories))
	for i, category := range categories {
		items = append(items, item(uint(i+1), category, 0))
	}
	return items
}

func TestParseOutfitsAcceptsValidOutfits(t *testing.T) {
	resp := &LLMResponse{Response: "```json\n" + `{"outfits":[
		{"item_ids":[1,5,9],"confidence":72.4,"reasoning":" crisp ","style_tags":["smart"]},
		{"item_ids":[2,6,10,10],"confidence":91,"reasoning":"polished"}
	]}` + "\n```"}
	outfits, err := ParseOutfits(resp, wardrobe())
	require.NoError(t, err)
	require.Len(t, outfits, 2)

	assert.Equal(t, 91, outfits[0].Confidence)
	assert.Equal(t, []uint{2, 6, 10}, outfits[0].ItemIDs)
	assert.Equal(t, 72, outfits[1].Confidence)
	assert.Equal(t, "crisp", outfits[1].Reasoning)
	assert.Equal(t, []string{"smart"}, outfits[1].StyleTags)
}

func TestParseOutfitsAcceptsBareArray(t *testing.T) {
	resp := &LLMResponse{Response: `[{"item_ids":[1,5,9],"confidence":80}]`}
	outfits, err := ParseOutfits(resp, wardrobe())
	require.NoError(t, err)
	assert.Len(t, outfits, 1)
}

func TestParseOutfitsDropsInvalidOutfits(t *testing.T) {
	resp := &LLMResponse{Response: `{"outfits":[
		{"item_ids":[1,5,999],"confidence":90},
		{"item_ids":[1,2,5],"confidence":90},
		{"item_ids":[1,5],"confidence":90},
		{"item_ids":[1,2,3,4,5,9],"confidence":90},
		{"item_ids":[3,7,11],"confidence":140}
	]}`}
	outfits, err := ParseOutfits(resp, wardrobe())
	require.NoError(t, err)
	require.Len(t, outfits, 1)
	assert.Equal(t, []uint{3, 7, 11}, outfits[0].ItemIDs)
	assert.Equal(t, 100, outfits[0].Confidence)
}

func TestParseOutfitsRejectsShoeWordsOnOtherGarments(t *testing.T) {
	ranked := append(wardrobe(),
		item(20, "boot cut jeans", 0),
		item(21, "blazer", 0),
		item(22, "flat-front trousers", 0),
	)
	resp := &LLMResponse{Response: `{"outfits":[
		{"item_ids":[1,20,21],"confidence":80},
		{"item_ids":[2,22,21],"confidence":80},
		{"item_ids":[3,20,9],"confidence":70}
	]}`}
	outfits, err := ParseOutfits(resp, ranked)
	require.NoError(t, err)
	require.Len(t, outfits, 1)
	assert.Equal(t, []uint{3, 20, 9}, outfits[0].ItemIDs)
}

func TestParseOutfitsRejectsItemsOutsideRankedSet(t *testing.T) {
	ranked := wardrobe()[:11] // boots (12) not sent to the model
	resp := &LLMResponse{Response: `{"outfits":[{"item_ids":[1,5,12],"confidence":90}]}`}
	_, err := ParseOutfits(resp, ranked)
	assert.ErrorIs(t, err, ErrNoValidOutfits)
}

func TestParseOutfitsDistinguishesTruncation(t *testing.T) {
	_, err := ParseOutfits(&LLMResponse{Response: `{"outfits":[{"item_ids":[1,5`, Truncated: true}, wardrobe())
	assert.ErrorIs(t, err, ErrTruncatedResponse)

	_, err = ParseOutfits(&LLMResponse{Response: `I would suggest the navy blazer`}, wardrobe())
	assert.ErrorIs(t, err, ErrMalformedResponse)

	_, err = ParseOutfits(&LLMResponse{Response: `{"outfits":[]}`}, wardrobe())
	assert.ErrorIs(t, err, ErrNoValidOutfits)
}

func TestGenerateRejectsIncompleteWardrobe(t *testing.T) {
	var items []models.InventoryItem
	for i, category := range []string{"shirt", "blouse", "sweater", "polo", "tee", "trousers", "chinos", "skirt", "slacks", "jeans", "belt"} {
		items = append(items, item(uint(i+1), category, 0))
	}
	reasoner := &stubReasoner{}
	generator := SuggestionGenerator{Reasoner: reasoner}

	_, err := generator.Generate(context.Background(), SuggestionInput{Inventory: items, Context: "business meeting"})
	var inventoryErr *InsufficientInventoryError
	require.True(t, errors.As(err, &inventoryErr))
	assert.Equal(t, []string{"shoes"}, inventoryErr.Missing)
	assert.Empty(t, reasoner.requests)
}

func TestGenerateRejectsSmallWardrobe(t *testing.T) {
	generator := SuggestionGenerator{Reasoner: &stubReasoner{}}
	_, err := generator.Generate(context.Background(), SuggestionInput{Inventory: wardrobe()[:9], Context: "casual"})
	var inventoryErr *InsufficientInventoryError
	require.True(t, errors.As(err, &inventoryErr))
	assert.Equal(t, 9, inventoryErr.ItemCount)
	assert.Contains(t, inventoryErr.Error(), "need at least 10 items")
}

func TestGenerateBusinessMeeting(t *testing.T) {
	reasoner := &stubReasoner{reply: `{"outfits":[{"item_ids":[1,5,9],"confidence":88,"reasoning":"sharp"}]}`}
	generator := SuggestionGenerator{Reasoner: reasoner}

	result, err := generator.Generate(context.Background(), SuggestionInput{
		Inventory: wardrobe(),
		Context:   "business meeting",
		Weather:   &Weather{TemperatureC: 18, Condition: "cloudy"},
	})
	require.NoError(t, err)
	require.Len(t, result.Outfits, 1)
	assert.Equal(t, float32(0.4), result.Temperature)

	require.Len(t, reasoner.requests, 1)
	req := reasoner.requests[0]
	assert.True(t, req.JSON)
	assert.Equal(t, float32(0.4), req.Temperature)
	assert.Contains(t, req.Prompt, "Occasion: business meeting")
	assert.Contains(t, req.Prompt, "Weather: 18°C, cloudy")
	assert.Contains(t, req.Prompt, "9 | loafers | black")
}

func TestGeneratePropagatesReasoningFailure(t *testing.T) {
	failure := &ReasoningError{Kind: ReasoningTransport, Message: "connection reset"}
	generator := SuggestionGenerator{Reasoner: &stubReasoner{err: failure}}
	_, err := generator.Generate(context.Background(), SuggestionInput{Inventory: wardrobe(), Context: "casual"})
	var reasoningErr *ReasoningError
	require.True(t, errors.As(err, &reasoningErr))
	assert.Equal(t, ReasoningTransport, reasoningErr.Kind)
}

func TestTemperature(t *testing.T) {
	assert.Equal(t, float32(0.4), Temperature("Job Interview"))
	assert.Equal(t, float32(0.9), Temperature("birthday party"))
	assert.Equal(t, float32(0.7), Temperature("grocery run"))
}

func TestEstimateCost(t *testing.T) {
	cost := EstimateCost(&LLMResponse{Model: Flash25.String(), InputTokenCount: 1_000_000, OutputTokenCount: 200_000})
	assert.True(t, decimal.RequireFromString("0.8").Equal(cost), cost.String())
	assert.True(t, EstimateCost(nil).IsZero())
}
