package messaging

import "strings"

// Carrier-mandated opt-out keywords. The message must be exactly one of
// these (after trimming) to count; "please stop calling" is conversation,
// not an opt-out.
var optOutKeywords = map[string]struct{}{
	"stop":        {},
	"stop all":    {},
	"stopall":     {},
	"unsubscribe": {},
	"cancel":      {},
	"end":         {},
	"quit":        {},
}

// IsOptOut reports whether an inbound SMS body is an opt-out request.
func IsOptOut(body string) bool {
	normalized := strings.ToLower(strings.TrimSpace(body))
	_, ok := optOutKeywords[normalized]
	return ok
}
