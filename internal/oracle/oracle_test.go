package oracle

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-notam-briefing/internal/notam"
	pdferrors "github.com/a3tai/mcp-notam-briefing/internal/pdf/errors"
)

func TestParseTagMap(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    notam.TagMap
		wantErr bool
	}{
		{
			name: "plain object",
			raw:  `{"1A293/26": "[ RWY | 003 ]", "A0001/26": "[ IRR | 120 ]"}`,
			want: notam.TagMap{"1A293/26": "[ RWY | 003 ]", "A0001/26": "[ IRR | 120 ]"},
		},
		{
			name: "json code fence",
			raw:  "```json\n{\"B0002/26\": \"[ TWY | 007 ]\"}\n```",
			want: notam.TagMap{"B0002/26": "[ TWY | 007 ]"},
		},
		{
			name: "bare code fence",
			raw:  "```\n{\"B0002/26\": \"[ TWY | 007 ]\"}\n```",
			want: notam.TagMap{"B0002/26": "[ TWY | 007 ]"},
		},
		{
			name: "prose around object",
			raw:  "Here are the tags:\n{\"C0003/26\": \"[ OBS | 001 ]\"}\nLet me know.",
			want: notam.TagMap{"C0003/26": "[ OBS | 001 ]"},
		},
		{
			name: "whitespace trimmed",
			raw:  `{" D0004/26 ": " [ NAV | 010 ] ", "  ": "[ IRR | 000 ]"}`,
			want: notam.TagMap{"D0004/26": "[ NAV | 010 ]"},
		},
		{
			name: "ill-formed tags are kept",
			raw:  `{"E0005/26": "RWY 3 days"}`,
			want: notam.TagMap{"E0005/26": "RWY 3 days"},
		},
		{name: "empty object", raw: `{}`, want: notam.TagMap{}},
		{name: "array", raw: `["1A293/26"]`, wantErr: true},
		{name: "nested values", raw: `{"1A293/26": {"type": "RWY"}}`, wantErr: true},
		{name: "numeric value", raw: `{"1A293/26": 3}`, wantErr: true},
		{name: "not json", raw: `I could not find any NOTAMs.`, wantErr: true},
		{name: "truncated", raw: `{"1A293/26": "[ RWY`, wantErr: true},
		{name: "empty", raw: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTagMap(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				var respErr *OracleResponseError
				assert.ErrorAs(t, err, &respErr)
				assert.Equal(t, pdferrors.KindOracleResponse, pdferrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	got, cut := Truncate("short", 10)
	assert.Equal(t, "short", got)
	assert.False(t, cut)

	got, cut = Truncate("abcdef", 4)
	assert.Equal(t, "abcd", got)
	assert.True(t, cut)

	// "é" is two bytes; cutting inside it backs off to the rune start
	got, cut = Truncate("aé", 2)
	assert.Equal(t, "a", got)
	assert.True(t, cut)
}

func TestBuildClassificationPrompt(t *testing.T) {
	today := time.Date(2026, 1, 20, 15, 0, 0, 0, time.UTC)
	prompt := BuildClassificationPrompt("A0001/26 NOTAMN\nE) RWY 09 CLSD", today)

	for _, c := range notam.Categories() {
		assert.Contains(t, prompt, string(c)+": ")
	}
	assert.Contains(t, prompt, "2026-01-20")
	assert.Contains(t, prompt, "capped at 999")
	assert.Contains(t, prompt, "[ RWY | 012 ]")
	assert.Contains(t, prompt, "A0001/26 NOTAMN")
	assert.NotContains(t, prompt, "truncated")
}

func TestBuildPrompts_Truncate(t *testing.T) {
	long := strings.Repeat("X", MaxPromptText+500) + "TAIL"

	prompt := BuildBriefingPrompt(long)
	assert.NotContains(t, prompt, "TAIL")
	assert.Contains(t, prompt, "(truncated for token limits)")
	assert.Contains(t, prompt, "PROHIBITED")

	prompt = BuildClassificationPrompt(long, time.Now())
	assert.NotContains(t, prompt, "TAIL")
	assert.Contains(t, prompt, "(truncated for token limits)")
}
