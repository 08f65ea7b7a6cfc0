package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"stylistapi/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	maxListings      = 10
	maxStyleKeywords = 2
	minKeywordLength = 4
)

var stopWords = map[string]bool{
	"with": true, "that": true, "this": true, "from": true, "have": true, "will": true,
	"your": true, "into": true, "very": true, "more": true, "some": true, "look": true,
	"style": true, "piece": true, "would": true, "should": true, "could": true, "also": true,
	"which": true, "about": true, "their": true, "there": true, "them": true, "than": true,
	"well": true, "good": true, "great": true, "nice": true, "item": true, "wear": true,
}

var jewelryPattern = regexp.MustCompile(`\b(jewel(le)?ry|necklaces?|earrings?|bracelets?|rings?|pendants?|watch(es)?|brooch(es)?)\b`)

// StyleKeywords extracts up to two distinctive words from free-text style notes.
func StyleKeywords(notes string) []string {
	words := strings.FieldsFunc(lowerCaser.String(notes), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	keywords := make([]string, 0, maxStyleKeywords)
	seen := map[string]bool{}
	for _, word := range words {
		word = strings.Trim(word, "-")
		if len([]rune(word)) < minKeywordLength || stopWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
		if len(keywords) == maxStyleKeywords {
			break
		}
	}
	return keywords
}

func BuildSearchQuery(rec models.ProductRecommendation) string {
	parts := []string{}
	if color := NormalizeCategory(rec.ColorPreference); color != "" && color != defaultGapColor {
		parts = append(parts, color)
	}
	parts = append(parts, StyleKeywords(rec.StyleNotes)...)
	parts = append(parts, NormalizeCategory(rec.Category))
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func CategoryHintFor(category string) CategoryHint {
	normalized := NormalizeCategory(category)
	switch {
	case shoePattern.MatchString(normalized):
		return HintShoes
	case jewelryPattern.MatchString(normalized):
		return HintJewelry
	case bagPattern.MatchString(normalized):
		return HintBags
	case topPattern.MatchString(normalized), bottomPattern.MatchString(normalized),
		dressPattern.MatchString(normalized), outerwearPattern.MatchString(normalized),
		accessoryPattern.MatchString(normalized):
		return HintFashion
	default:
		return HintAll
	}
}

type priceBand struct {
	min, max *decimal.Decimal
}

func dollars(value int64) *decimal.Decimal {
	d := decimal.NewFromInt(value)
	return &d
}

var priceBands = map[models.BudgetRange]priceBand{
	models.BudgetRangeBudget:   {max: dollars(50)},
	models.BudgetRangeMidRange: {min: dollars(30), max: dollars(150)},
	models.BudgetRangePremium:  {min: dollars(100), max: dollars(300)},
	models.BudgetRangeLuxury:   {min: dollars(250)},
}

// InBudget reports whether price falls inside the inclusive band of the budget range.
// Unknown ranges use the mid_range band.
func InBudget(price decimal.Decimal, budget models.BudgetRange) bool {
	band, ok := priceBands[budget]
	if !ok {
		band = priceBands[models.BudgetRangeMidRange]
	}
	if band.min != nil && price.LessThan(*band.min) {
		return false
	}
	if band.max != nil && price.GreaterThan(*band.max) {
		return false
	}
	return true
}

func firstString(listing RawListing, paths ...[]string) string {
	for _, path := range paths {
		if value := asString(lookup(listing, path...)); value != "" {
			return value
		}
	}
	return ""
}

func firstPrice(listing RawListing, paths ...[]string) (decimal.Decimal, bool) {
	for _, path := range paths {
		if value, ok := asFloat(lookup(listing, path...)); ok {
			return decimal.NewFromFloat(value).Round(2), true
		}
	}
	return decimal.Zero, false
}

// AffiliateURL adds the partner tag to the canonical product URL, or builds one from the domain.
func AffiliateURL(canonical, domain, sourceID, partnerTag string) string {
	if canonical != "" {
		if parsed, err := url.Parse(canonical); err == nil && parsed.Host != "" {
			query := parsed.Query()
			query.Set("tag", partnerTag)
			parsed.RawQuery = query.Encode()
			return parsed.String()
		}
	}
	return fmt.Sprintf("https://%s/dp/%s?tag=%s", domain, url.PathEscape(sourceID), url.QueryEscape(partnerTag))
}

// ParseListing reads both flat listings and PA-API items. Listings without id, title or price are rejected.
func ParseListing(listing RawListing, domain, partnerTag string) (models.AffiliateProduct, bool) {
	id := firstString(listing, []string{"ASIN"}, []string{"asin"}, []string{"id"}, []string{"source_id"})
	title := firstString(listing,
		[]string{"ItemInfo", "Title", "DisplayValue"},
		[]string{"title"},
		[]string{"Title"},
	)
	price, hasPrice := firstPrice(listing,
		[]string{"Offers", "Listings", "Price", "Amount"},
		[]string{"price", "amount"},
		[]string{"price"},
	)
	if id == "" || title == "" || !hasPrice || !price.IsPositive() {
		return models.AffiliateProduct{}, false
	}
	currency := firstString(listing,
		[]string{"Offers", "Listings", "Price", "Currency"},
		[]string{"price", "currency"},
		[]string{"currency"},
	)
	if currency == "" {
		currency = "USD"
	}
	canonical := firstString(listing, []string{"DetailPageURL"}, []string{"canonical_url"}, []string{"canonicalUrl"}, []string{"url"})
	return models.AffiliateProduct{
		Title:    title,
		Price:    price,
		Currency: currency,
		ImageURL: firstString(listing,
			[]string{"Images", "Primary", "Large", "URL"},
			[]string{"image_url"},
			[]string{"imageUrl"},
		),
		AffiliateURL: AffiliateURL(canonical, domain, id, partnerTag),
		SourceID:     id,
	}, true
}

type ProductMatcher struct {
	Searcher   MarketplaceSearcher
	PartnerTag string
	Domain     string
}

// Match returns offers inside the recommendation's budget band. Only *MatchingError is returned;
// every other failure is logged and yields no offers.
func (m *ProductMatcher) Match(ctx context.Context, rec models.ProductRecommendation) ([]models.AffiliateProduct, error) {
	log := logrus.WithField("recommendation_id", rec.ID)
	if m == nil || m.Searcher == nil || !m.Searcher.Configured() {
		log.Info("marketplace credentials not configured, skipping product match")
		return nil, nil
	}
	query := BuildSearchQuery(rec)
	hint := CategoryHintFor(rec.Category)
	listings, err := m.Searcher.Search(ctx, query, hint, maxListings)
	if err != nil {
		var matchErr *MatchingError
		if errors.As(err, &matchErr) {
			return nil, err
		}
		log.WithError(err).WithField("query", query).Warn("marketplace search failed")
		return nil, nil
	}

	offers := make([]models.AffiliateProduct, 0, len(listings))
	for _, listing := range listings {
		offer, ok := ParseListing(listing, m.Domain, m.PartnerTag)
		if !ok {
			continue
		}
		if InBudget(offer.Price, rec.BudgetRange) {
			offers = append(offers, offer)
		}
	}
	log.WithFields(logrus.Fields{
		"query":    query,
		"hint":     hint,
		"listings": len(listings),
		"offers":   len(offers),
	}).Info("product match finished")
	return offers, nil
}
