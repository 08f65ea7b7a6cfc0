package models

import "regexp"

type Subscription string

const (
	Free    Subscription = "free" // basic
	Trial   Subscription = "trial"
	Premium Subscription = "premium"
	Pro     Subscription = "pro"
)

var subscriptionRegex = regexp.MustCompile(`^(free|trial|premium|pro)$`)

// DailySuggestionLimit is the number of outfit suggestions a tier may generate per calendar day.
// Unknown tiers get the free allowance.
func (s Subscription) DailySuggestionLimit() int64 {
	switch s {
	case Premium, Trial:
		return 30
	case Pro:
		return 100
	default:
		return 3
	}
}

// Normalized maps unknown values onto Free so usage keys stay bounded.
func (s Subscription) Normalized() Subscription {
	if !ValidateSubscriptionRaw(string(s)) {
		return Free
	}
	return s
}

func ValidateSubscriptionRaw(value string) bool {
	return subscriptionRegex.MatchString(value)
}
