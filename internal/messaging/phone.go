package messaging

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "US"

// NormalizeE164 formats a phone number to E.164 so dedup lookups compare
// like with like. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	// Format whatever parses. Gating on validity would return the raw
	// input for some reachable numbers and intake and webhook lookups
	// would stop comparing like with like.
	return phonenumbers.Format(number, phonenumbers.E164)
}
