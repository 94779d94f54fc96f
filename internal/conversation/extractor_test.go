package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayfield/solar-ai-platform/internal/leads"
)

func TestDetectHomeownerStatus(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    *bool
	}{
		{"plain yes", "Yes", boolPtr(true)},
		{"yeah", "yeah I do", boolPtr(true)},
		{"i own", "I own my house", boolPtr(true)},
		{"we own", "we own the place", boolPtr(true)},
		{"plain no", "No", boolPtr(false)},
		{"renting", "I'm renting right now", boolPtr(false)},
		{"tenant", "just a tenant here", boolPtr(false)},
		{"dont", "I don't, sorry", boolPtr(false)},
		{"affirmative wins over negative", "Yes, but I don't want calls", boolPtr(true)},
		{"no signal", "what are the next steps", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectHomeownerStatus(tt.message)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestExtractBillAmount(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    *int
	}{
		{"dollar sign with month", "my bill is $150/month", intPtr(150)},
		{"about phrasing", "about $150/month I think", intPtr(150)},
		{"around phrasing", "around 200 usually", intPtr(200)},
		{"bare dollars", "we pay 175 dollars", intPtr(175)},
		{"bucks", "like 90 bucks", intPtr(90)},
		{"below floor rejected", "my bill is 5 dollars", nil},
		{"above ceiling rejected", "2500 total last year", nil},
		{"boundary low", "$10/mo", intPtr(10)},
		{"boundary high", "$2000 per month", intPtr(2000)},
		{"no number", "not sure what we pay", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractBillAmount(tt.message)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestDetectTimeline(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    *leads.Timeline
	}{
		{"asap", "ASAP please", timelinePtr(leads.TimelineImmediate)},
		{"this month", "hoping to do it this month", timelinePtr(leads.TimelineImmediate)},
		{"spring", "maybe in the spring", timelinePtr(leads.TimelineThreeToSix)},
		{"numeric months mid", "probably 4 months out", timelinePtr(leads.TimelineThreeToSix)},
		{"fall", "thinking fall", timelinePtr(leads.TimelineSixToTwelve)},
		{"next year", "sometime next year", timelinePtr(leads.TimelineSixToTwelve)},
		{"numeric months late", "in 9 months maybe", timelinePtr(leads.TimelineSixToTwelve)},
		{"exploring", "just researching options", timelinePtr(leads.TimelineExploring)},
		{"someday", "someday for sure", timelinePtr(leads.TimelineExploring)},
		{"urgent beats exploring", "urgent, but still exploring options", timelinePtr(leads.TimelineImmediate)},
		{"no signal", "ok", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectTimeline(tt.message)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestAssessEngagement(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    int
	}{
		{"neutral mid length", "we have been thinking", 5},
		{"enthusiastic question", "This is awesome!! When can we start?", 9},
		{"dismissive", "no thanks", 1},
		{"short reply", "ok", 4},
		{"busy", "busy, later", 3},
		{"long curious message", "Could you tell me how the install works and what the panels cost over time?", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessEngagement(tt.message))
		})
	}
}

func TestAssessEngagementBounds(t *testing.T) {
	// Stacked negative signals must not drop below 1.
	assert.Equal(t, 1, AssessEngagement("not sure, too busy"))
	// Stacked positive signals must not exceed 10.
	assert.Equal(t, 10, AssessEngagement("I love it!! Perfect, amazing, when can you show me what the great options are? This is exciting and I want all of it."))
}

func boolPtr(b bool) *bool                          { return &b }
func intPtr(n int) *int                             { return &n }
func timelinePtr(tl leads.Timeline) *leads.Timeline { return &tl }
