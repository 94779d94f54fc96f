package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rayfield/solar-ai-platform/internal/leads"
)

// Extraction heuristics: pure text-to-fact mappers run over each inbound
// message before the model is consulted. They never fail; ambiguous text
// yields nil so the model can keep asking.

var homeownerYesPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(yes|yeah|yep|yup|sure|correct|own|owner)\b`),
	regexp.MustCompile(`(?i)\b(i do|we do|i own|we own)\b`),
}

var homeownerNoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(no|nope|nah|rent|renting|tenant|lease|leasing)\b`),
	regexp.MustCompile(`(?i)\b(don't own|do not own|don't|do not)\b`),
}

// DetectHomeownerStatus returns true/false when the message signals ownership
// or renting, nil when it signals neither. Affirmative patterns are checked
// first so text containing both resolves predictably.
func DetectHomeownerStatus(message string) *bool {
	lower := strings.ToLower(strings.TrimSpace(message))

	for _, pattern := range homeownerYesPatterns {
		if pattern.MatchString(lower) {
			yes := true
			return &yes
		}
	}
	for _, pattern := range homeownerNoPatterns {
		if pattern.MatchString(lower) {
			no := false
			return &no
		}
	}
	return nil
}

var billPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\$?\s*(\d{1,4})\s*(?:/mo|/month|per month|dollars|bucks)?`),
	regexp.MustCompile(`(?i)(?:about|around|roughly)\s*\$?\s*(\d{1,4})`),
}

// ExtractBillAmount pulls a monthly electric bill from free text. Only whole
// dollar amounts between 10 and 2000 are accepted; anything else is nil.
func ExtractBillAmount(message string) *int {
	for _, pattern := range billPatterns {
		match := pattern.FindStringSubmatch(message)
		if len(match) < 2 {
			continue
		}
		amount, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if amount >= 10 && amount <= 2000 {
			return &amount
		}
	}
	return nil
}

var (
	timelineImmediateRe = regexp.MustCompile(`(?i)\b(now|asap|immediately|right away|this month|next month|soon|urgent)\b`)
	timelineNearRe      = regexp.MustCompile(`(?i)\b(3-6 months?|three to six months?|spring|summer|few months?)\b`)
	timelineNearNumRe   = regexp.MustCompile(`(?i)\b(3|4|5|6)\s*months?\b`)
	timelineFarRe       = regexp.MustCompile(`(?i)\b(6-12 months?|six to twelve months?|fall|winter|next year|this year|end of year)\b`)
	timelineFarNumRe    = regexp.MustCompile(`(?i)\b(7|8|9|10|11|12)\s*months?\b`)
	timelineExploringRe = regexp.MustCompile(`(?i)\b(exploring|researching|learning|looking into|thinking about|considering|maybe|eventually|someday)\b`)
)

// DetectTimeline buckets the lead's stated urgency. Buckets are evaluated
// nearest first; the first match wins.
func DetectTimeline(message string) *leads.Timeline {
	lower := strings.ToLower(message)

	var result leads.Timeline
	switch {
	case timelineImmediateRe.MatchString(lower):
		result = leads.TimelineImmediate
	case timelineNearRe.MatchString(lower) || timelineNearNumRe.MatchString(lower):
		result = leads.TimelineThreeToSix
	case timelineFarRe.MatchString(lower) || timelineFarNumRe.MatchString(lower):
		result = leads.TimelineSixToTwelve
	case timelineExploringRe.MatchString(lower):
		result = leads.TimelineExploring
	default:
		return nil
	}
	return &result
}

var (
	enthusiasmRe    = regexp.MustCompile(`(?i)\b(interested|excited|great|perfect|awesome|amazing|love|want)\b`)
	punctuationRe   = regexp.MustCompile(`[!?]{2,}`)
	questionRe      = regexp.MustCompile(`(?i)\b(when|how|what|where|tell me|show me)\b`)
	disinterestRe   = regexp.MustCompile(`(?i)\b(not interested|no thanks|not sure|maybe later|don't think so)\b`)
	putOffRe        = regexp.MustCompile(`(?i)\b(busy|later|not now)\b`)
	longMessageLen  = 50
	shortMessageLen = 10
)

// AssessEngagement scores how engaged a message reads on a 1-10 scale,
// starting from a neutral 5.
func AssessEngagement(message string) int {
	score := 5
	lower := strings.ToLower(message)
	length := len(message)

	if enthusiasmRe.MatchString(message) {
		score += 2
	}
	if punctuationRe.MatchString(message) {
		score++
	}
	if length > longMessageLen {
		score++
	}
	if questionRe.MatchString(message) {
		score++
	}

	if disinterestRe.MatchString(lower) {
		score -= 3
	}
	if length < shortMessageLen {
		score--
	}
	if putOffRe.MatchString(lower) {
		score -= 2
	}

	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
