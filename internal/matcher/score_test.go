package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "monza", "monza", 1.0},
		{"both empty", "", "", 0},
		{"left empty", "", "monza", 0},
		{"right empty", "monza", "", 0},
		{"disjoint", "abc", "xyz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Ratio(tt.a, tt.b), 0.0001)
		})
	}
}

func TestRatioSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"baku", "baku city circuit"},
		{"silverstone", "silverstone circuit"},
		{"spa", "spa francorchamps"},
	}
	for _, p := range pairs {
		assert.InDelta(t, Ratio(p[0], p[1]), Ratio(p[1], p[0]), 0.0001)
	}
}

func TestScoreBounds(t *testing.T) {
	inputs := [][4]string{
		{"monza", "monza", "monza", "monza"},
		{"baku", "baku", "baku city circuit", "baku"},
		{"a", "b", "c", "d"},
		{"", "", "", ""},
	}
	for _, in := range inputs {
		s := Score(in[0], in[1], in[2], in[3])
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestScorePerfect(t *testing.T) {
	// All four components align when the circuit is named after its locality.
	assert.InDelta(t, 1.0, Score("monza", "monza", "monza", "monza"), 0.0001)
}

func TestScoreWeights(t *testing.T) {
	// Only the name-name component matches.
	got := Score("silverstone circuit", "", "silverstone circuit", "")
	assert.InDelta(t, 0.55, got, 0.0001)

	// Only the location-locality component matches.
	got = Score("", "sakhir", "", "sakhir")
	assert.InDelta(t, 0.25, got, 0.0001)
}

func TestScoreDeterministic(t *testing.T) {
	a := Score("yas marina", "abu dhabi", "yas marina circuit", "abu dhabi")
	for i := 0; i < 10; i++ {
		assert.Equal(t, a, Score("yas marina", "abu dhabi", "yas marina circuit", "abu dhabi"))
	}
}

func TestRoundScore(t *testing.T) {
	assert.InDelta(t, 0.5679, roundScore(0.56789), 1e-9)
	assert.InDelta(t, 0.5, roundScore(0.5), 1e-9)
	assert.InDelta(t, 1.0, roundScore(0.99996), 1e-9)
}
