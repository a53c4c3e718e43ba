package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/agentesom/som-api/internal/domain"
	"github.com/agentesom/som-api/internal/httputil"
)

// Nominatim geocodifica via OpenStreetMap. Gratuito, exige User-Agent
// identificável com contato (política de uso do serviço).
type Nominatim struct {
	Email   string
	BaseURL string
	client  *http.Client
}

// NewNominatim cria o geocoder Nominatim. email vai no User-Agent.
func NewNominatim(email string) *Nominatim {
	return &Nominatim{
		Email:   email,
		BaseURL: "https://nominatim.openstreetmap.org",
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (n *Nominatim) Name() string { return "Nominatim" }

// nominatimResult é o item da resposta /search?format=json. lat/lon vêm
// como strings.
type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (n *Nominatim) Geocode(ctx context.Context, address string) (domain.Location, string, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("accept-language", "pt-BR")

	reqURL := n.BaseURL + "/search?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.Location{}, "", err
	}
	req.Header.Set("User-Agent", "som-agent/1.0 (+"+n.Email+")")

	resp, err := httputil.DoWithRetry(ctx, n.client, req, 2)
	if err != nil {
		return domain.Location{}, "", fmt.Errorf("nominatim: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Location{}, "", fmt.Errorf("nominatim status %d: %w", resp.StatusCode, domain.ErrUpstream)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Location{}, "", fmt.Errorf("nominatim decode: %v: %w", err, domain.ErrUpstream)
	}
	if len(results) == 0 {
		return domain.Location{}, "", fmt.Errorf("nominatim sem resultados para %q: %w", address, domain.ErrNotFound)
	}

	first := results[0]
	lat, errLat := strconv.ParseFloat(first.Lat, 64)
	lng, errLng := strconv.ParseFloat(first.Lon, 64)
	if errLat != nil || errLng != nil {
		return domain.Location{}, "", fmt.Errorf("nominatim coordenadas inválidas (%q, %q): %w", first.Lat, first.Lon, domain.ErrUpstream)
	}

	loc := domain.Location{Lat: lat, Lng: lng}
	if err := checkBounds(loc); err != nil {
		return domain.Location{}, "", err
	}
	return loc, first.DisplayName, nil
}
