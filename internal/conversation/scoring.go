package conversation

import (
	"math"

	"github.com/rayfield/solar-ai-platform/internal/leads"
)

// CalculateInterestScore produces the canonical 1-10 interest score from the
// qualification facts. Weights: homeowner 40%, bill 30%, timeline 20%,
// engagement 10%. A confirmed non-homeowner is a hard floor of 1.
func CalculateInterestScore(homeowner *bool, monthlyBill *int, timeline *leads.Timeline, engagement int) int {
	score := 0.0

	if homeowner != nil {
		if !*homeowner {
			return 1
		}
		score += 4
	}

	if monthlyBill != nil {
		switch bill := *monthlyBill; {
		case bill >= 250:
			score += 3
		case bill >= 150:
			score += 2.5
		case bill >= 100:
			score += 2
		case bill >= 75:
			score += 1
		}
	}

	if timeline != nil {
		switch *timeline {
		case leads.TimelineImmediate:
			score += 2
		case leads.TimelineThreeToSix:
			score += 1.5
		case leads.TimelineSixToTwelve:
			score += 0.5
		}
	}

	score += float64(engagement) * 0.1

	result := int(math.Round(score))
	if result > 10 {
		result = 10
	}
	if result < 1 {
		result = 1
	}
	return result
}

// IsQualified applies the minimum bar: confirmed homeowner, bill at least
// $75 when known, score at least 4 when known.
func IsQualified(homeowner *bool, monthlyBill *int, interestScore *int) bool {
	if homeowner == nil || !*homeowner {
		return false
	}
	if monthlyBill != nil && *monthlyBill < 75 {
		return false
	}
	if interestScore != nil && *interestScore < 4 {
		return false
	}
	return true
}

// HotLeadThreshold is the score at which a lead warrants an immediate voice
// call and a direct booking offer. The 8-10 band is "hot" everywhere in the
// funnel; the same boundary gates the booking state and the call trigger.
const HotLeadThreshold = 8

// CalculateEstimatedSavings estimates annual savings for a monthly bill,
// assuming a 20-25% reduction.
func CalculateEstimatedSavings(monthlyBill int) int {
	annual := float64(monthlyBill) * 12
	rate := 0.2
	if monthlyBill >= 200 {
		rate = 0.25
	}
	return int(math.Round(annual * rate))
}
