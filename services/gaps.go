package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"stylistapi/models"

	"github.com/sirupsen/logrus"
)

const (
	maxGapItems       = 3
	essentialMinCount = 2
	topColorCount     = 5

	defaultGapPriority  = "medium"
	defaultGapBudget    = "$50-100"
	defaultGapColor     = "neutral"
	defaultGapReasoning = "This piece would add versatility to your wardrobe."
)

var essentialBuckets = []string{"tops", "bottoms", "shoes", "outerwear", "dresses", "accessories"}

// GapItem is a missing wardrobe piece proposed by the model. Priority and BudgetRange are the
// normalized free text; MapPriority and MapBudgetRange turn them into model enums.
type GapItem struct {
	Category        string `json:"category"`
	Description     string `json:"description"`
	ColorPreference string `json:"color_preference"`
	StyleNotes      string `json:"style_notes"`
	Reasoning       string `json:"reasoning"`
	Priority        string `json:"priority"`
	BudgetRange     string `json:"budget_range"`
}

type InventorySummary struct {
	Categories map[string]int
	TopColors  []string
	// essentials held fewer than twice
	LowCategories []string
}

func SummarizeInventory(items []models.InventoryItem) InventorySummary {
	summary := InventorySummary{Categories: map[string]int{}}
	colors := map[string]int{}
	for _, item := range items {
		summary.Categories[CategoryBucket(item.Category)]++
		if color := NormalizeCategory(item.Color); color != "" {
			colors[color]++
		}
	}
	for _, bucket := range essentialBuckets {
		if summary.Categories[bucket] < essentialMinCount {
			summary.LowCategories = append(summary.LowCategories, bucket)
		}
	}
	for color := range colors {
		summary.TopColors = append(summary.TopColors, color)
	}
	sort.Slice(summary.TopColors, func(i, j int) bool {
		a, b := summary.TopColors[i], summary.TopColors[j]
		if colors[a] != colors[b] {
			return colors[a] > colors[b]
		}
		return a < b
	})
	if len(summary.TopColors) > topColorCount {
		summary.TopColors = summary.TopColors[:topColorCount]
	}
	return summary
}

func (s InventorySummary) String() string {
	buckets := make([]string, 0, len(s.Categories))
	for bucket := range s.Categories {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)
	counts := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		counts = append(counts, fmt.Sprintf("%s: %d", bucket, s.Categories[bucket]))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Categories: %s\n", strings.Join(counts, ", "))
	fmt.Fprintf(&b, "Dominant colors: %s\n", strings.Join(s.TopColors, ", "))
	if len(s.LowCategories) > 0 {
		fmt.Fprintf(&b, "Under-stocked essentials: %s\n", strings.Join(s.LowCategories, ", "))
	}
	return b.String()
}

const gapPersona = `You are an experienced personal stylist reviewing a client's wardrobe.
Rules:
- Suggest 1 to 3 items the client does not own that would complete more outfits.
- Each item needs a category and a short description.
- priority is one of high, medium, low.
- budget_range is a dollar range such as "$50-100".
- Reply with JSON only.`

type GapDetector struct {
	Reasoner Reasoner
}

func buildGapPrompt(occasion string, outfits []models.Outfit, byID map[uint]models.InventoryItem, summary InventorySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Occasion: %s\n\n", strings.TrimSpace(occasion))
	b.WriteString(summary.String())
	b.WriteString("\nOutfits already suggested:\n")
	for i, outfit := range outfits {
		names := make([]string, 0, len(outfit.ItemIDs))
		for _, id := range outfit.ItemIDs {
			if item, ok := byID[id]; ok {
				names = append(names, strings.TrimSpace(item.Color+" "+NormalizeCategory(item.Category)))
			}
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.Join(names, ", "))
	}
	b.WriteString(`
Reply as:
{"items":[{"category":"blazer","description":"...","color_preference":"navy","style_notes":"...","reasoning":"...","priority":"high","budget_range":"$100-200"}]}`)
	return b.String()
}

// Detect is best effort: every failure is logged and an empty list returned.
func (d *GapDetector) Detect(ctx context.Context, occasion string, outfits []models.Outfit, inventory []models.InventoryItem) []GapItem {
	log := logrus.WithField("component", "gap_detector")
	if d == nil || d.Reasoner == nil {
		return []GapItem{}
	}
	byID := make(map[uint]models.InventoryItem, len(inventory))
	for _, item := range inventory {
		byID[item.ID] = item
	}
	resp, err := d.Reasoner.Generate(ctx, ReasoningRequest{
		SystemPrompt:    gapPersona,
		Prompt:          buildGapPrompt(occasion, outfits, byID, SummarizeInventory(inventory)),
		Temperature:     0.7,
		MaxOutputTokens: 2048,
		JSON:            true,
	})
	if err != nil {
		log.WithError(err).Warn("gap detection call failed")
		return []GapItem{}
	}
	items, err := ParseGapItems(resp.Response)
	if err != nil {
		log.WithError(err).WithField("response", logSnippet(resp.Response)).Warn("gap detection response rejected")
		return []GapItem{}
	}
	return items
}

// ParseGapItems validates and priority-sorts the model's gap proposals.
func ParseGapItems(text string) ([]GapItem, error) {
	raw, err := decodeObjectList(cleanAIResponseText(text), "items")
	if err != nil {
		return nil, err
	}
	items := make([]GapItem, 0, maxGapItems)
	for _, entry := range raw {
		item := GapItem{
			Category:        asString(entry["category"]),
			Description:     asString(entry["description"]),
			ColorPreference: asString(entry["color_preference"]),
			StyleNotes:      asString(entry["style_notes"]),
			Reasoning:       asString(entry["reasoning"]),
			Priority:        lowerCaser.String(asString(entry["priority"])),
			BudgetRange:     asString(entry["budget_range"]),
		}
		if item.Category == "" || item.Description == "" {
			continue
		}
		if item.Priority == "" {
			item.Priority = defaultGapPriority
		}
		if item.BudgetRange == "" {
			item.BudgetRange = defaultGapBudget
		}
		if item.ColorPreference == "" {
			item.ColorPreference = defaultGapColor
		}
		if item.Reasoning == "" {
			item.Reasoning = defaultGapReasoning
		}
		items = append(items, item)
		if len(items) == maxGapItems {
			break
		}
	}
	SortGapItems(items)
	return items, nil
}

func priorityRank(priority string) int {
	switch priority {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

// SortGapItems orders high, medium, low, then anything unrecognized. Equal priorities keep their order.
func SortGapItems(items []GapItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return priorityRank(items[i].Priority) < priorityRank(items[j].Priority)
	})
}

// MapPriority falls back to medium for values outside the enum.
func MapPriority(priority string) models.Priority {
	switch models.Priority(lowerCaser.String(strings.TrimSpace(priority))) {
	case models.PriorityHigh:
		return models.PriorityHigh
	case models.PriorityLow:
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

var dollarAmount = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)(?:\s?([kK])\b)?`)

// MapBudgetRange classifies budget text by the largest dollar figure it contains.
// Shorthand thousands ("$1k-2k", "1.5K") are expanded.
func MapBudgetRange(text string) models.BudgetRange {
	var highest float64
	found := false
	for _, match := range dollarAmount.FindAllStringSubmatch(text, -1) {
		value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if match[2] != "" {
			value *= 1000
		}
		if !found || value > highest {
			highest = value
			found = true
		}
	}
	switch {
	case !found:
		return models.BudgetRangeMidRange
	case highest <= 50:
		return models.BudgetRangeBudget
	case highest <= 150:
		return models.BudgetRangeMidRange
	case highest <= 300:
		return models.BudgetRangePremium
	default:
		return models.BudgetRangeLuxury
	}
}
