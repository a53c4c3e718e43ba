package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/agentesom/som-api/internal/domain"
	"github.com/agentesom/som-api/internal/httputil"
)

// GoogleSource busca via Google Places Nearby Search.
type GoogleSource struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewGoogleSource cria a fonte Google Places.
func NewGoogleSource(apiKey string) *GoogleSource {
	return &GoogleSource{
		APIKey:  apiKey,
		BaseURL: "https://maps.googleapis.com",
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (g *GoogleSource) Name() string { return "Google Places" }

// nearbyResponse é a forma da resposta do Nearby Search. Só os campos
// consumidos são declarados; o resto é descartado na fronteira.
type nearbyResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID  string   `json:"place_id"`
		Name     string   `json:"name"`
		Types    []string `json:"types"`
		Vicinity string   `json:"vicinity"`
	} `json:"results"`
}

func (g *GoogleSource) Nearby(ctx context.Context, loc domain.Location, radiusMeters int, keyword string) ([]domain.Candidate, error) {
	if g.APIKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY: %w", domain.ErrConfig)
	}

	q := url.Values{}
	q.Set("location", fmt.Sprintf("%f,%f", loc.Lat, loc.Lng))
	q.Set("radius", fmt.Sprintf("%d", radiusMeters))
	q.Set("keyword", keyword)
	q.Set("language", "pt-BR")
	q.Set("key", g.APIKey)

	reqURL := g.BaseURL + "/maps/api/place/nearbysearch/json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httputil.DoWithRetry(ctx, g.client, req, 2)
	if err != nil {
		return nil, fmt.Errorf("places nearby: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places nearby status %d: %w", resp.StatusCode, domain.ErrUpstream)
	}

	var out nearbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("places nearby decode: %v: %w", err, domain.ErrUpstream)
	}

	switch out.Status {
	case "OK", "ZERO_RESULTS":
		// segue
	case "REQUEST_DENIED", "INVALID_REQUEST":
		return nil, fmt.Errorf("places nearby status %q: %w", out.Status, domain.ErrConfig)
	default:
		return nil, fmt.Errorf("places nearby status %q: %w", out.Status, domain.ErrUpstream)
	}

	cands := make([]domain.Candidate, 0, len(out.Results))
	for _, r := range out.Results {
		if r.PlaceID == "" || r.Name == "" {
			continue
		}
		cands = append(cands, domain.Candidate{
			PlaceID: r.PlaceID,
			Name:    r.Name,
			Types:   r.Types,
			Address: r.Vicinity,
			Source:  g.Name(),
		})
	}
	return cands, nil
}
