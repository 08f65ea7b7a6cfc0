package services

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.Und)
var titleCaser = cases.Title(language.Und)

var (
	topPattern       = regexp.MustCompile(`\b(tops?|shirts?|t-shirts?|tees?|blouses?|sweaters?|cardigans?|hoodies?|polos?|tanks?|camisoles?|knits?|jumpers?|turtlenecks?|sweatshirts?|henleys?|bodysuits?|crop tops?)\b`)
	bottomPattern    = regexp.MustCompile(`\b(bottoms?|pants|trousers|jeans|skirts?|shorts|chinos|leggings|joggers|slacks|culottes)\b`)
	shoePattern      = regexp.MustCompile(`\b(shoes?|sneakers?|boots?|heels?|loafers?|sandals?|flats?|pumps?|oxfords?|trainers?|mules?|slippers?|footwear|espadrilles?|brogues?)\b`)
	dressPattern     = regexp.MustCompile(`\b(dress(es)?|jumpsuits?|rompers?|gowns?)\b`)
	outerwearPattern = regexp.MustCompile(`\b(blazers?|coats?|jackets?|parkas?|trench(es)?|vests?|gilets?|puffers?|overcoats?)\b`)
	accessoryPattern = regexp.MustCompile(`\b(accessor(y|ies)|belts?|scarf|scarves|hats?|caps?|ties?|watch(es)?|jewel(le)?ry|necklaces?|earrings?|bracelets?|sunglasses|gloves)\b`)
	bagPattern       = regexp.MustCompile(`\b(bags?|handbags?|backpacks?|totes?|clutch(es)?|purses?|satchels?)\b`)
)

// NormalizeCategory lowercases and collapses whitespace so free-text categories can be matched.
func NormalizeCategory(category string) string {
	return strings.Join(strings.Fields(lowerCaser.String(category)), " ")
}

func DisplayCategory(category string) string {
	return titleCaser.String(NormalizeCategory(category))
}

type garmentClass string

const (
	classNone      garmentClass = ""
	classTop       garmentClass = "tops"
	classBottom    garmentClass = "bottoms"
	classShoes     garmentClass = "shoes"
	classDress     garmentClass = "dresses"
	classOuterwear garmentClass = "outerwear"
	classBag       garmentClass = "bags"
	classAccessory garmentClass = "accessories"
)

// ties on position resolve in this order
var classPatterns = []struct {
	class   garmentClass
	pattern *regexp.Regexp
}{
	{classDress, dressPattern},
	{classBottom, bottomPattern},
	{classTop, topPattern},
	{classShoes, shoePattern},
	{classOuterwear, outerwearPattern},
	{classBag, bagPattern},
	{classAccessory, accessoryPattern},
}

// headGarment resolves a category to exactly one garment class using its last garment word,
// so "boot cut jeans" is a bottom, "dress shoes" are shoes and "shirt dress" is a dress.
func headGarment(category string) (garmentClass, string) {
	normalized := NormalizeCategory(category)
	class, word, end := classNone, "", -1
	for _, candidate := range classPatterns {
		for _, loc := range candidate.pattern.FindAllStringIndex(normalized, -1) {
			if loc[1] > end {
				class, word, end = candidate.class, normalized[loc[0]:loc[1]], loc[1]
			}
		}
	}
	return class, word
}

func classOf(category string) garmentClass {
	class, _ := headGarment(category)
	return class
}

// CategoryBucket collapses synonyms into the buckets used for inventory summaries.
func CategoryBucket(category string) string {
	normalized := NormalizeCategory(category)
	if normalized == "" {
		return "other"
	}
	if class := classOf(normalized); class != classNone {
		return string(class)
	}
	return normalized
}

type completeness struct {
	top, bottom, shoes bool
}

func (c completeness) complete() bool {
	return c.top && c.bottom && c.shoes
}

func (c completeness) missing() []string {
	var missing []string
	if !c.top {
		missing = append(missing, "top")
	}
	if !c.bottom {
		missing = append(missing, "bottom")
	}
	if !c.shoes {
		missing = append(missing, "shoes")
	}
	return missing
}

// outfitCompleteness checks the top + bottom + shoes rule. A dress counts as both top and bottom.
func outfitCompleteness(categories []string) completeness {
	var c completeness
	for _, category := range categories {
		switch classOf(category) {
		case classDress:
			c.top = true
			c.bottom = true
		case classTop:
			c.top = true
		case classBottom:
			c.bottom = true
		case classShoes:
			c.shoes = true
		}
	}
	return c
}
