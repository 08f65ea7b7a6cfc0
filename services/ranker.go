package services

import (
	"regexp"
	"sort"
	"strings"

	"stylistapi/models"
)

const (
	// MaxRankedItems bounds the inventory subset sent to the model.
	MaxRankedItems = 40
	favoriteCount  = 6
	// above the best possible score of a non-favorite item
	favoriteBonus = 50
	// minimum items per outfit-building class the model always sees
	requiredPerClass = 2

	coldBelowC = 10.0
	hotAboveC  = 25.0
)

type Weather struct {
	TemperatureC float64 `json:"temperature_c"`
	Condition    string  `json:"condition"`
}

type categoryCap struct {
	pattern *regexp.Regexp
	max     int
}

type occasionProfile struct {
	name    string
	pattern *regexp.Regexp
	caps    []categoryCap
}

var occasionProfiles = []occasionProfile{
	{
		name:    "business",
		pattern: regexp.MustCompile(`\b(interview|meeting|business|office|work|conference|presentation|client)\b`),
		caps: []categoryCap{
			{regexp.MustCompile(`\b(shirts?|blouses?|tops?|sweaters?|knits?|turtlenecks?|polos?)\b`), 8},
			{regexp.MustCompile(`\b(trousers|pants|slacks|chinos|skirts?)\b`), 6},
			{regexp.MustCompile(`\b(dress(es)?|jumpsuits?)\b`), 3},
			{regexp.MustCompile(`\b(blazers?|jackets?|coats?|vests?)\b`), 4},
			{regexp.MustCompile(`\b(loafers?|oxfords?|heels?|pumps?|brogues?|boots?|flats?|shoes?)\b`), 5},
			{regexp.MustCompile(`\b(belts?|ties?|watch(es)?|bags?)\b`), 3},
		},
	},
	{
		name:    "evening",
		pattern: regexp.MustCompile(`\b(date|dinner|evening|night|cocktail|party|bar)\b`),
		caps: []categoryCap{
			{regexp.MustCompile(`\b(dress(es)?|jumpsuits?)\b`), 5},
			{regexp.MustCompile(`\b(tops?|shirts?|blouses?|camisoles?|bodysuits?|knits?)\b`), 7},
			{regexp.MustCompile(`\b(jeans|trousers|pants|skirts?)\b`), 6},
			{regexp.MustCompile(`\b(heels?|boots?|loafers?|mules?|sandals?|shoes?|sneakers?)\b`), 5},
			{regexp.MustCompile(`\b(jackets?|blazers?|coats?)\b`), 3},
			{regexp.MustCompile(`\b(jewel(le)?ry|necklaces?|earrings?|clutch(es)?|bags?|belts?)\b`), 4},
		},
	},
	{
		name:    "casual",
		pattern: regexp.MustCompile(`\b(casual|weekend|brunch|errands?|coffee|park|travel|relaxed)\b`),
		caps: []categoryCap{
			{regexp.MustCompile(`\b(t-shirts?|tees?|tops?|shirts?|hoodies?|sweatshirts?|sweaters?|polos?|tanks?)\b`), 8},
			{regexp.MustCompile(`\b(jeans|shorts|chinos|skirts?|joggers|pants)\b`), 7},
			{regexp.MustCompile(`\b(sneakers?|trainers?|sandals?|boots?|loafers?|shoes?)\b`), 5},
			{regexp.MustCompile(`\b(dress(es)?)\b`), 3},
			{regexp.MustCompile(`\b(jackets?|cardigans?|coats?)\b`), 3},
			{regexp.MustCompile(`\b(caps?|hats?|bags?|backpacks?|sunglasses)\b`), 3},
		},
	},
	{
		name:    "workout",
		pattern: regexp.MustCompile(`\b(gym|workout|run|running|yoga|training|sport|hike|hiking)\b`),
		caps: []categoryCap{
			{regexp.MustCompile(`\b(tanks?|tees?|t-shirts?|tops?|sports bras?|hoodies?|sweatshirts?)\b`), 6},
			{regexp.MustCompile(`\b(leggings|shorts|joggers|pants)\b`), 5},
			{regexp.MustCompile(`\b(sneakers?|trainers?|running shoes?|shoes?)\b`), 4},
			{regexp.MustCompile(`\b(jackets?|windbreakers?)\b`), 2},
		},
	},
	{
		name:    "formal",
		pattern: regexp.MustCompile(`\b(wedding|formal|gala|black tie|ceremony|funeral|opera)\b`),
		caps: []categoryCap{
			{regexp.MustCompile(`\b(dress(es)?|gowns?|jumpsuits?)\b`), 5},
			{regexp.MustCompile(`\b(suits?|blazers?|jackets?)\b`), 4},
			{regexp.MustCompile(`\b(shirts?|blouses?|tops?)\b`), 6},
			{regexp.MustCompile(`\b(trousers|pants|skirts?)\b`), 5},
			{regexp.MustCompile(`\b(heels?|oxfords?|loafers?|pumps?|shoes?)\b`), 5},
			{regexp.MustCompile(`\b(ties?|jewel(le)?ry|clutch(es)?|watch(es)?|cufflinks?)\b`), 4},
		},
	},
}

var defaultProfile = occasionProfile{
	name: "default",
	caps: []categoryCap{
		{topPattern, 10},
		{bottomPattern, 8},
		{dressPattern, 4},
		{shoePattern, 6},
		{outerwearPattern, 4},
		{accessoryPattern, 4},
		{bagPattern, 2},
	},
}

var (
	coldUnfriendly = regexp.MustCompile(`\b(shorts|sandals?|sleeveless|tank tops?|tanks?|flip[- ]?flops?|linen|camisoles?)\b`)
	hotUnfriendly  = regexp.MustCompile(`\b(wool(en)?|parkas?|puffers?|snow boots?|down jackets?|thermals?|fleece|shearling|turtlenecks?)\b`)
)

func classifyOccasion(occasion string) occasionProfile {
	text := NormalizeCategory(occasion)
	for _, profile := range occasionProfiles {
		if profile.pattern.MatchString(text) {
			return profile
		}
	}
	return defaultProfile
}

func itemText(item models.InventoryItem) string {
	return NormalizeCategory(item.Category + " " + item.Description + " " + strings.Join(item.Tags, " "))
}

func climateConsistent(item models.InventoryItem, weather *Weather) bool {
	if weather == nil {
		return true
	}
	text := itemText(item)
	condition := NormalizeCategory(weather.Condition)
	cold := weather.TemperatureC < coldBelowC || strings.Contains(condition, "snow")
	hot := weather.TemperatureC > hotAboveC
	if cold && coldUnfriendly.MatchString(text) {
		return false
	}
	if hot && hotUnfriendly.MatchString(text) {
		return false
	}
	return true
}

// itemScore favors recently added items and items with richer metadata.
// Recency is measured against the newest item so the score depends only on the inventory.
func itemScore(item models.InventoryItem, newestUnix int64) int {
	ageDays := int((newestUnix - item.CreatedAt.Unix()) / 86400)
	score := 0
	if ageDays < 30 {
		score += 30 - ageDays
	}
	tags := len(item.Tags)
	if tags > 3 {
		tags = 3
	}
	score += tags * 2
	if strings.TrimSpace(item.Description) != "" {
		score += 3
		if len(item.Description) >= 40 {
			score += 2
		}
	}
	if strings.TrimSpace(item.Color) != "" {
		score += 2
	}
	if item.Favorite {
		score += favoriteBonus
	}
	return score
}

// RankInventory selects a bounded subset of items relevant to the occasion and weather, best first.
// It has no side effects and the same inputs always produce the same output.
func RankInventory(items []models.InventoryItem, occasion string, weather *Weather) []models.InventoryItem {
	if len(items) == 0 {
		return []models.InventoryItem{}
	}
	var newest int64
	for _, item := range items {
		if item.CreatedAt.Unix() > newest {
			newest = item.CreatedAt.Unix()
		}
	}

	eligible := make([]models.InventoryItem, 0, len(items))
	for _, item := range items {
		if climateConsistent(item, weather) {
			eligible = append(eligible, item)
		}
	}
	scores := make(map[uint]int, len(eligible))
	for _, item := range eligible {
		scores[item.ID] = itemScore(item, newest)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if scores[a.ID] != scores[b.ID] {
			return scores[a.ID] > scores[b.ID]
		}
		return a.ID > b.ID
	})

	selected := make([]models.InventoryItem, 0, MaxRankedItems)
	seen := make(map[uint]bool, MaxRankedItems)
	add := func(item models.InventoryItem) {
		if seen[item.ID] || len(selected) >= MaxRankedItems {
			return
		}
		seen[item.ID] = true
		selected = append(selected, item)
	}

	// favorites go first so truncation never drops them
	for i := 0; i < len(eligible) && i < favoriteCount; i++ {
		add(eligible[i])
	}

	// an occasion profile must not starve a class every outfit needs
	counts := make(map[garmentClass]int, 3)
	for _, item := range selected {
		counts[classOf(item.Category)]++
	}
	for _, class := range []garmentClass{classTop, classBottom, classShoes} {
		for _, item := range eligible {
			if counts[class] >= requiredPerClass {
				break
			}
			if !seen[item.ID] && classOf(item.Category) == class {
				add(item)
				counts[class]++
			}
		}
	}

	profile := classifyOccasion(occasion)
	for _, limit := range profile.caps {
		taken := 0
		for _, item := range eligible {
			if taken >= limit.max {
				break
			}
			if limit.pattern.MatchString(capText(item.Category)) {
				add(item)
				taken++
			}
		}
	}
	return selected
}

// capText is the garment word caps are matched against, so "boot cut jeans" never fills a shoe cap.
func capText(category string) string {
	if _, word := headGarment(category); word != "" {
		return word
	}
	return NormalizeCategory(category)
}
