package migrations

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayfield/solar-ai-platform/internal/appointments"
	"github.com/rayfield/solar-ai-platform/internal/leads"
)

var statusDefault = regexp.MustCompile(`status\s+TEXT NOT NULL DEFAULT '([a-z_]+)'`)

// Schema defaults must be values the Go code recognizes, or rows written by
// raw SQL would fail every status check in the application.
func TestStatusDefaultsMatchCode(t *testing.T) {
	cases := []struct {
		file  string
		valid func(string) bool
	}{
		{"0001_create_leads.up.sql", func(s string) bool { return leads.Status(s).Valid() }},
		{"0003_create_appointments.up.sql", func(s string) bool { return appointments.Status(s).Valid() }},
	}

	for _, tc := range cases {
		t.Run(tc.file, func(t *testing.T) {
			sql, err := FS.ReadFile(tc.file)
			require.NoError(t, err)

			m := statusDefault.FindSubmatch(sql)
			require.NotNil(t, m, "no status default found")
			assert.True(t, tc.valid(string(m[1])), "default %q is not a valid status", m[1])
		})
	}
}
