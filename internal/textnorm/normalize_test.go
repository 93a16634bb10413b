package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"lowercases", "MONZA", "monza"},
		{"strips accents", "Autódromo Hermanos Rodríguez", "autodromo hermanos rodriguez"},
		{"collapses punctuation", "Yas Marina -- Circuit!", "yas marina circuit"},
		{"trims edges", "  Spa-Francorchamps  ", "spa francorchamps"},
		{"keeps digits", "Circuit 2", "circuit 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Autódromo José Carlos Pace", "Baku City Circuit", "Österreichring"}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"simple", "Monza", 40, "monza"},
		{"accents and spaces", "Autódromo José Carlos Pace", 40, "autodromo-jose-carlos-pace"},
		{"empty yields unknown", "", 40, "unknown"},
		{"symbols only yields unknown", "!!!", 40, "unknown"},
		{"caps length", "circuit-de-spa-francorchamps", 10, "circuit-de"},
		{"no leading or trailing dash", "  -Imola-  ", 40, "imola"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in, tt.maxLen))
		})
	}
}
