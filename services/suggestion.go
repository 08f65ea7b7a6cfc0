package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"stylistapi/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	MinInventoryItems = 10

	defaultSuggestionTokens = 4096
	descriptionLimit        = 80
	promptTagLimit          = 3
	minOutfitItems          = 3
	maxOutfitItems          = 5
)

var (
	formalContext   = regexp.MustCompile(`\b(interview|meeting|business|office|wedding|formal|funeral|gala|ceremony|conference|black tie)\b`)
	creativeContext = regexp.MustCompile(`\b(party|festival|concert|date|creative|fun|vacation|holiday|art|club|brunch)\b`)
)

const stylistPersona = `You are an experienced personal stylist. You build outfits only from the client's own wardrobe.
Rules:
- Use only item ids from the inventory list. Never invent items.
- Every outfit has 3 to 5 items.
- Every outfit has a top, a bottom and shoes. A dress replaces both top and bottom.
- Keep colors coherent and the formality level consistent with the occasion.
- Respect the weather when it is given.
- Reply with JSON only.`

type SuggestionInput struct {
	Inventory         []models.InventoryItem
	Context           string
	Weather           *Weather
	StyleProfile      string
	PresentationStyle string
}

type SuggestionResult struct {
	Outfits     []models.Outfit
	Ranked      []models.InventoryItem
	Temperature float32
	LLM         *LLMResponse
}

type SuggestionGenerator struct {
	Reasoner        Reasoner
	MaxOutputTokens int32
}

// Temperature is lower for formal occasions and higher for creative ones.
func Temperature(occasion string) float32 {
	text := NormalizeCategory(occasion)
	switch {
	case formalContext.MatchString(text):
		return 0.4
	case creativeContext.MatchString(text):
		return 0.9
	default:
		return 0.7
	}
}

// CheckInventory validates the generation preconditions against the full inventory and its ranked subset.
func CheckInventory(inventory []models.InventoryItem, ranked []models.InventoryItem) error {
	categories := make([]string, 0, len(ranked))
	for _, item := range ranked {
		categories = append(categories, item.Category)
	}
	missing := outfitCompleteness(categories).missing()
	if len(inventory) < MinInventoryItems || len(missing) > 0 {
		return &InsufficientInventoryError{
			ItemCount: len(inventory),
			MinItems:  MinInventoryItems,
			Missing:   missing,
		}
	}
	return nil
}

func truncateText(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

func inventoryLine(item models.InventoryItem) string {
	tags := item.Tags
	if len(tags) > promptTagLimit {
		tags = tags[:promptTagLimit]
	}
	color := item.Color
	if color == "" {
		color = "-"
	}
	return fmt.Sprintf("%d | %s | %s | %s | %s",
		item.ID,
		NormalizeCategory(item.Category),
		NormalizeCategory(color),
		strings.Join(tags, ", "),
		truncateText(item.Description, descriptionLimit),
	)
}

func buildSuggestionPrompt(in SuggestionInput, ranked []models.InventoryItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Occasion: %s\n", strings.TrimSpace(in.Context))
	if in.Weather != nil {
		fmt.Fprintf(&b, "Weather: %.0f°C, %s\n", in.Weather.TemperatureC, in.Weather.Condition)
	}
	if strings.TrimSpace(in.PresentationStyle) != "" {
		fmt.Fprintf(&b, "Presentation style: %s\n", strings.TrimSpace(in.PresentationStyle))
	}
	if strings.TrimSpace(in.StyleProfile) != "" {
		fmt.Fprintf(&b, "Client style profile: %s\n", strings.TrimSpace(in.StyleProfile))
	}
	b.WriteString("\nInventory (id | category | color | tags | description):\n")
	for _, item := range ranked {
		b.WriteString(inventoryLine(item))
		b.WriteString("\n")
	}
	b.WriteString(`
Propose up to 3 outfits. Reply as:
{"outfits":[{"item_ids":[1,2,3],"confidence":85,"reasoning":"why it works","style_tags":["smart casual"]}]}`)
	return b.String()
}

func (g *SuggestionGenerator) Generate(ctx context.Context, in SuggestionInput) (*SuggestionResult, error) {
	ranked := RankInventory(in.Inventory, in.Context, in.Weather)
	if err := CheckInventory(in.Inventory, ranked); err != nil {
		return nil, err
	}
	maxTokens := g.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = defaultSuggestionTokens
	}
	temperature := Temperature(in.Context)
	resp, err := g.Reasoner.Generate(ctx, ReasoningRequest{
		SystemPrompt:    stylistPersona,
		Prompt:          buildSuggestionPrompt(in, ranked),
		Temperature:     temperature,
		MaxOutputTokens: maxTokens,
		JSON:            true,
	})
	if err != nil {
		return nil, err
	}
	outfits, err := ParseOutfits(resp, ranked)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"truncated": resp.Truncated,
			"response":  logSnippet(resp.Response),
		}).Warn("suggestion response rejected")
		return nil, err
	}
	return &SuggestionResult{
		Outfits:     outfits,
		Ranked:      ranked,
		Temperature: temperature,
		LLM:         resp,
	}, nil
}

// ParseOutfits treats the model output as untrusted: malformed outfits are dropped one by one and
// only item ids from the ranked subset are accepted.
func ParseOutfits(resp *LLMResponse, ranked []models.InventoryItem) ([]models.Outfit, error) {
	raw, err := decodeObjectList(cleanAIResponseText(resp.Response), "outfits")
	if err != nil {
		if resp.Truncated {
			return nil, fmt.Errorf("%w: %v", ErrTruncatedResponse, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	byID := make(map[uint]models.InventoryItem, len(ranked))
	for _, item := range ranked {
		byID[item.ID] = item
	}

	outfits := make([]models.Outfit, 0, len(raw))
	for i, entry := range raw {
		outfit, err := validateOutfit(entry, byID)
		if err != nil {
			logrus.WithField("outfit", i).WithError(err).Debug("outfit dropped")
			continue
		}
		outfits = append(outfits, outfit)
	}
	if len(outfits) == 0 {
		return nil, ErrNoValidOutfits
	}
	sort.SliceStable(outfits, func(i, j int) bool {
		return outfits[i].Confidence > outfits[j].Confidence
	})
	return outfits, nil
}

var (
	errUnknownItem      = errors.New("item is not part of the ranked inventory")
	errOutfitSize       = errors.New("outfit must have 3 to 5 items")
	errIncompleteOutfit = errors.New("outfit is incomplete")
)

func validateOutfit(entry map[string]any, byID map[uint]models.InventoryItem) (models.Outfit, error) {
	rawIDs, _ := entry["item_ids"].([]any)
	seen := make(map[uint]bool, len(rawIDs))
	ids := make([]uint, 0, len(rawIDs))
	categories := make([]string, 0, len(rawIDs))
	for _, rawID := range rawIDs {
		id, ok := asUint(rawID)
		if !ok {
			return models.Outfit{}, fmt.Errorf("%w: %v", errUnknownItem, rawID)
		}
		item, ok := byID[id]
		if !ok {
			return models.Outfit{}, fmt.Errorf("%w: %d", errUnknownItem, id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		categories = append(categories, item.Category)
	}
	if len(ids) < minOutfitItems || len(ids) > maxOutfitItems {
		return models.Outfit{}, errOutfitSize
	}
	if c := outfitCompleteness(categories); !c.complete() {
		return models.Outfit{}, fmt.Errorf("%w: missing %s", errIncompleteOutfit, strings.Join(c.missing(), ", "))
	}

	confidence, _ := asFloat(entry["confidence"])
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	reasoning, _ := entry["reasoning"].(string)
	return models.Outfit{
		ItemIDs:    ids,
		Confidence: int(confidence + 0.5),
		Reasoning:  strings.TrimSpace(reasoning),
		StyleTags:  asStringList(entry["style_tags"]),
	}, nil
}

// Prices in USD per million tokens.
var tokenPrices = map[string][2]float64{
	Pro25.String():       {1.25, 10},
	Flash25.String():     {0.30, 2.50},
	FlashLite25.String(): {0.10, 0.40},
	Flash20.String():     {0.10, 0.40},
}

// EstimateCost prices a reasoning call from its token usage. Unknown models are priced as Flash.
func EstimateCost(resp *LLMResponse) decimal.Decimal {
	if resp == nil {
		return decimal.Zero
	}
	prices, ok := tokenPrices[resp.Model]
	if !ok {
		prices = tokenPrices[Flash25.String()]
	}
	million := decimal.NewFromInt(1_000_000)
	input := decimal.NewFromInt32(resp.InputTokenCount).Mul(decimal.NewFromFloat(prices[0]))
	output := decimal.NewFromInt32(resp.OutputTokenCount + resp.ThoughtsTokenCount).Mul(decimal.NewFromFloat(prices[1]))
	return input.Add(output).Div(million).Round(6)
}
