package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type toneOut struct {
	Tone string `json:"tone"`
}

func TestParseOrDefault(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
		tone string
	}{
		{"clean object", `{"tone":"angry"}`, true, "angry"},
		{"prose wrapped", "Sure! Here you go:\n{\"tone\":\"formal\"}\nHope that helps.", true, "formal"},
		{"code fenced", "```json\n{\"tone\":\"casual\"}\n```", true, "casual"},
		{"trailing comma repaired", `{"tone":"curt",}`, true, "curt"},
		{"single quotes repaired", `{'tone': 'warm'}`, true, "warm"},
		{"no object at all", "I cannot answer that.", false, ""},
		{"empty input", "", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out toneOut
			got := ParseOrDefault(tt.raw, &out)
			assert.Equal(t, tt.ok, got)
			assert.Equal(t, tt.tone, out.Tone)
		})
	}
}

func TestParseOrDefaultLeavesDstUntouched(t *testing.T) {
	out := toneOut{Tone: "neutral"}
	assert.False(t, ParseOrDefault("no json here", &out))
	assert.Equal(t, "neutral", out.Tone)
}
