package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "nominatim", cfg.Geocoder)
	assert.Equal(t, "rules", cfg.FilterMode)
	assert.False(t, cfg.FailOpen)
	assert.InDelta(t, 0.5, cfg.ConfidenceThreshold, 1e-9)

	assert.Contains(t, cfg.SearchKeywords, "carro de som")
	assert.Contains(t, cfg.SearchKeywords, "som volante")
	assert.Contains(t, cfg.NegativeTypes, "car_repair")
	assert.Equal(t, []int{10000, 40000}, cfg.RadiiMeters)
	assert.False(t, cfg.DirectorySource)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("GEOCODER", "google")
	t.Setenv("FILTER_MODE", "gemini")
	t.Setenv("FILTER_FAIL_OPEN", "true")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.7")
	t.Setenv("SEARCH_KEYWORDS", "carro de som, moto som")
	t.Setenv("SEARCH_RADII_METERS", "5000,20000,50000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "google", cfg.Geocoder)
	assert.Equal(t, "gemini", cfg.FilterMode)
	assert.True(t, cfg.FailOpen)
	assert.InDelta(t, 0.7, cfg.ConfidenceThreshold, 1e-9)
	assert.Equal(t, []string{"carro de som", "moto som"}, cfg.SearchKeywords)
	assert.Equal(t, []int{5000, 20000, 50000}, cfg.RadiiMeters)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CONFIDENCE_THRESHOLD", "abc")
	t.Setenv("FILTER_FAIL_OPEN", "talvez")
	t.Setenv("SEARCH_RADII_METERS", "zero,-1")

	cfg := FromEnv()

	assert.InDelta(t, 0.5, cfg.ConfidenceThreshold, 1e-9)
	assert.False(t, cfg.FailOpen)
	assert.Equal(t, []int{10000, 40000}, cfg.RadiiMeters)
}

func TestGetListDropsEmpties(t *testing.T) {
	t.Setenv("SEARCH_KEYWORDS", " , carro de som ,, moto som , ")
	cfg := FromEnv()
	assert.Equal(t, []string{"carro de som", "moto som"}, cfg.SearchKeywords)
}
