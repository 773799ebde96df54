package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		sources []string
		want    float64
	}{
		{"no sources", nil, 0},
		{"single source", []string{"s1"}, 0.25},
		{"two sources", []string{"s1", "s2"}, 0.5},
		{"three sources", []string{"s1", "s2", "s3"}, 0.75},
		{"four sources capped", []string{"s1", "s2", "s3", "s4"}, 1.0},
		{"five sources capped", []string{"s1", "s2", "s3", "s4", "s5"}, 1.0},
		{"duplicates counted once", []string{"s1", "s1", "s1"}, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(Record{DataSources: tt.sources}))
		})
	}
}

func TestScore_IgnoresStoredScore(t *testing.T) {
	r := Record{DataSources: []string{"s1"}, ConfidenceScore: 1.0}
	assert.Equal(t, 0.25, Score(r))
}
