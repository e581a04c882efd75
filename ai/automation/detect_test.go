package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"Create task called Fix Login in CDW project", true},
		{"can you ASSIGN TO John the deploy work", true},
		{"start sprint for the mobile team", true},
		{"show members of CDW", true},
		{"what are my tasks this week", true},
		{"how do I get better at estimating work?", false},
		{"summarize yesterday's standup", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.message))
		})
	}
}
