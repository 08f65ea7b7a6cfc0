package services

import (
	"fmt"
	"testing"
	"time"

	"stylistapi/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id uint, category string, age time.Duration) models.InventoryItem {
	it := models.InventoryItem{Category: category, Color: "black"}
	it.ID = id
	it.CreatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(-age)
	return it
}

func ids(items []models.InventoryItem) []uint {
	out := make([]uint, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestRankInventoryIsDeterministic(t *testing.T) {
	var items []models.InventoryItem
	for i := 1; i <= 30; i++ {
		categories := []string{"shirt", "jeans", "sneakers", "jacket", "belt"}
		items = append(items, item(uint(i), categories[i%len(categories)], time.Duration(i)*time.Hour))
	}
	first := RankInventory(items, "weekend brunch", nil)
	second := RankInventory(items, "weekend brunch", nil)
	assert.Equal(t, ids(first), ids(second))
}

func TestRankInventoryBoundsAndDeduplicates(t *testing.T) {
	var items []models.InventoryItem
	for i := 1; i <= 120; i++ {
		items = append(items, item(uint(i), "shirt", time.Duration(i)*time.Hour))
	}
	for i := 121; i <= 200; i++ {
		items = append(items, item(uint(i), "trousers", time.Duration(i)*time.Hour))
	}
	ranked := RankInventory(items, "", nil)
	require.LessOrEqual(t, len(ranked), MaxRankedItems)

	seen := map[uint]bool{}
	for _, it := range ranked {
		assert.False(t, seen[it.ID], "duplicate item %d", it.ID)
		seen[it.ID] = true
	}
}

func TestRankInventoryAlwaysKeepsFavorites(t *testing.T) {
	var items []models.InventoryItem
	for i := 1; i <= 60; i++ {
		items = append(items, item(uint(i), "shirt", time.Duration(i)*time.Hour))
	}
	favorite := item(999, "scarf", 90*24*time.Hour)
	favorite.Favorite = true
	favorite.Tags = []string{"silk", "vintage", "gift"}
	favorite.Description = "hand painted silk scarf from a trip to Lyon, worn every autumn"
	items = append(items, favorite)

	ranked := RankInventory(items, "business meeting", nil)
	assert.Contains(t, ids(ranked), uint(999))
}

func TestRankInventoryFiltersClimate(t *testing.T) {
	items := []models.InventoryItem{
		item(1, "shorts", time.Hour),
		item(2, "sandals", time.Hour),
		item(3, "wool coat", time.Hour),
		item(4, "jeans", time.Hour),
		item(5, "boots", time.Hour),
	}
	cold := RankInventory(items, "casual", &Weather{TemperatureC: 2, Condition: "Snow"})
	assert.NotContains(t, ids(cold), uint(1))
	assert.NotContains(t, ids(cold), uint(2))
	assert.Contains(t, ids(cold), uint(3))

	hot := RankInventory(items, "casual", &Weather{TemperatureC: 31, Condition: "sunny"})
	assert.NotContains(t, ids(hot), uint(3))
	assert.Contains(t, ids(hot), uint(1))
}

func TestRankInventoryPrefersOccasionCategories(t *testing.T) {
	var items []models.InventoryItem
	// many recent gym items would otherwise crowd out the trousers
	for i := 1; i <= 50; i++ {
		items = append(items, item(uint(i), fmt.Sprintf("leggings %d", i), time.Duration(i)*time.Minute))
	}
	items = append(items, item(100, "trousers", 200*24*time.Hour))
	ranked := RankInventory(items, "client meeting", nil)
	assert.Contains(t, ids(ranked), uint(100))
}

func TestRankInventoryKeepsEveryOutfitClass(t *testing.T) {
	var items []models.InventoryItem
	for i, category := range []string{
		"sneakers", "sneakers", "sneakers", "sneakers",
		"shirt", "shirt", "shirt", "shirt",
		"jeans", "jeans", "jeans", "jeans",
	} {
		items = append(items, item(uint(i+1), category, time.Hour))
	}
	ranked := RankInventory(items, "business meeting", nil)
	require.NoError(t, CheckInventory(items, ranked))

	shoes := 0
	for _, it := range ranked {
		if it.Category == "sneakers" {
			shoes++
		}
	}
	assert.Equal(t, requiredPerClass, shoes)
}

func TestRankInventoryShoeCapIgnoresBootCut(t *testing.T) {
	var items []models.InventoryItem
	for i := 1; i <= 20; i++ {
		items = append(items, item(uint(i), "boot cut jeans", time.Duration(i)*time.Minute))
	}
	items = append(items,
		item(100, "oxfords", 300*24*time.Hour),
		item(101, "oxfords", 301*24*time.Hour),
		item(102, "oxfords", 302*24*time.Hour),
	)
	for i := 200; i < 210; i++ {
		items = append(items, item(uint(i), "shirt", time.Duration(i)*time.Minute))
	}
	ranked := RankInventory(items, "client meeting", nil)
	assert.Contains(t, ids(ranked), uint(100))
	assert.Contains(t, ids(ranked), uint(101))
	assert.Contains(t, ids(ranked), uint(102))
	require.NoError(t, CheckInventory(items, ranked))
}

func TestRankInventoryEmpty(t *testing.T) {
	assert.Empty(t, RankInventory(nil, "anything", nil))
}

func TestCategoryBucket(t *testing.T) {
	assert.Equal(t, "tops", CategoryBucket("Blouse"))
	assert.Equal(t, "tops", CategoryBucket("  T-Shirt "))
	assert.Equal(t, "dresses", CategoryBucket("shirt dress"))
	assert.Equal(t, "shoes", CategoryBucket("Chelsea Boots"))
	assert.Equal(t, "bottoms", CategoryBucket("chinos"))
	assert.Equal(t, "outerwear", CategoryBucket("trench coat"))
	assert.Equal(t, "kimono", CategoryBucket("Kimono"))
	assert.Equal(t, "bottoms", CategoryBucket("Boot Cut Jeans"))
	assert.Equal(t, "bottoms", CategoryBucket("flat-front trousers"))
	assert.Equal(t, "shoes", CategoryBucket("dress shoes"))
	assert.Equal(t, "tops", CategoryBucket("dress shirt"))
}

func TestOutfitCompleteness(t *testing.T) {
	assert.True(t, outfitCompleteness([]string{"shirt", "jeans", "sneakers"}).complete())
	assert.True(t, outfitCompleteness([]string{"wrap dress", "heels"}).complete())
	c := outfitCompleteness([]string{"shirt", "jeans", "belt"})
	assert.False(t, c.complete())
	assert.Equal(t, []string{"shoes"}, c.missing())

	c = outfitCompleteness([]string{"shirt", "boot cut jeans", "blazer"})
	assert.Equal(t, []string{"shoes"}, c.missing())
	c = outfitCompleteness([]string{"shirt dress", "flat front chinos"})
	assert.Equal(t, []string{"shoes"}, c.missing())
	assert.True(t, outfitCompleteness([]string{"dress shirt", "flat-front trousers", "ballet flats"}).complete())
}
