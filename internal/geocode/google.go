package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/agentesom/som-api/internal/domain"
)

// Google geocodifica via Google Geocoding API com hints de idioma/região
// para o Brasil.
type Google struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewGoogle cria o geocoder Google.
func NewGoogle(apiKey string) *Google {
	return &Google{
		APIKey:  apiKey,
		BaseURL: "https://maps.googleapis.com",
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *Google) Name() string { return "Google Geocoding" }

type googleGeocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location domain.Location `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (g *Google) Geocode(ctx context.Context, address string) (domain.Location, string, error) {
	if g.APIKey == "" {
		return domain.Location{}, "", fmt.Errorf("GOOGLE_MAPS_API_KEY: %w", domain.ErrConfig)
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("language", "pt-BR")
	q.Set("region", "br")
	q.Set("key", g.APIKey)

	reqURL := g.BaseURL + "/maps/api/geocode/json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.Location{}, "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Location{}, "", fmt.Errorf("google geocode: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Location{}, "", fmt.Errorf("google geocode status %d: %w", resp.StatusCode, domain.ErrUpstream)
	}

	var out googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Location{}, "", fmt.Errorf("google geocode decode: %v: %w", err, domain.ErrUpstream)
	}

	switch out.Status {
	case "OK":
		// segue
	case "ZERO_RESULTS":
		return domain.Location{}, "", fmt.Errorf("google geocode sem resultados para %q: %w", address, domain.ErrNotFound)
	case "REQUEST_DENIED":
		return domain.Location{}, "", fmt.Errorf("google geocode recusado: %w", domain.ErrConfig)
	default:
		return domain.Location{}, "", fmt.Errorf("google geocode status %q: %w", out.Status, domain.ErrUpstream)
	}
	if len(out.Results) == 0 {
		return domain.Location{}, "", fmt.Errorf("google geocode OK sem resultados: %w", domain.ErrNotFound)
	}

	first := out.Results[0]
	loc := first.Geometry.Location
	if err := checkBounds(loc); err != nil {
		return domain.Location{}, "", err
	}
	return loc, first.FormattedAddress, nil
}
