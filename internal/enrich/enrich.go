// Package enrich anota os candidatos aceitos com detalhes de contato e
// distância rodoviária a partir da origem da busca.
//
// A matriz de distâncias é uma única chamada origem → N destinos. A ordem
// posicional dos destinos é capturada na montagem da requisição e os
// elementos da resposta são realinhados por esse mesmo índice — nunca por id
// do provedor; um reordenamento aqui casaria distância com o negócio errado.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/agentesom/som-api/internal/cache"
	"github.com/agentesom/som-api/internal/domain"
	"github.com/agentesom/som-api/internal/httputil"
)

// detailsWorkers limita as consultas de detalhes simultâneas.
const detailsWorkers = 4

// Annotation é o que o enriquecimento agrega a um candidato. Campos de
// distância nulos significam elemento ausente/falho na matriz — o candidato
// permanece, só sem distância.
type Annotation struct {
	Address        string
	Phone          string
	MapLink        string
	DistanceMeters *int
	DistanceText   string
	DurationText   string
}

// Annotator consulta Place Details e Distance Matrix do Google. Redis é
// opcional (cache de detalhes por place_id).
type Annotator struct {
	APIKey  string
	BaseURL string
	Redis   *cache.Client
	client  *http.Client
}

// NewAnnotator cria o anotador. redis pode ser nil.
func NewAnnotator(apiKey string, redis *cache.Client) *Annotator {
	return &Annotator{
		APIKey:  apiKey,
		BaseURL: "https://maps.googleapis.com",
		Redis:   redis,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

// Annotate enriquece os candidatos e devolve as anotações indexadas por
// PlaceID. Falhas parciais (um detalhe, um elemento da matriz) degradam o
// candidato afetado sem derrubar o lote; credencial ausente
// (domain.ErrConfig) aborta.
func (a *Annotator) Annotate(ctx context.Context, origin domain.Location, cands []domain.Candidate) (map[string]Annotation, error) {
	annotations := make(map[string]Annotation, len(cands))

	// Fase 1: detalhes de contato, concorrente por candidato.
	var mu sync.Mutex
	sem := make(chan struct{}, detailsWorkers)
	var wg sync.WaitGroup

	for _, c := range cands {
		wg.Add(1)
		go func(c domain.Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ann := a.details(ctx, c)
			mu.Lock()
			annotations[c.PlaceID] = ann
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	// Fase 2: matriz de distâncias, uma chamada para todos os destinos.
	// A ordem dos destinos é a ordem de iteração de cands, capturada aqui.
	elements, err := a.distanceMatrix(ctx, origin, cands, annotations)
	if err != nil {
		if errors.Is(err, domain.ErrConfig) {
			return nil, err
		}
		log.Printf("WARN: distance matrix: %v", err)
		return annotations, nil
	}
	for i, c := range cands {
		if i >= len(elements) {
			break
		}
		el := elements[i]
		if el.Status != "OK" {
			continue
		}
		ann := annotations[c.PlaceID]
		meters := el.Distance.Value
		ann.DistanceMeters = &meters
		ann.DistanceText = el.Distance.Text
		ann.DurationText = el.Duration.Text
		annotations[c.PlaceID] = ann
	}

	return annotations, nil
}

// ─── Place Details ────────────────────────────────────────────────────────────

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name                 string `json:"name"`
		FormattedAddress     string `json:"formatted_address"`
		FormattedPhoneNumber string `json:"formatted_phone_number"`
		URL                  string `json:"url"`
	} `json:"result"`
}

// details resolve endereço/telefone/link de mapa de um candidato, com cache
// Redis por place_id. Candidatos de diretório (sem place_id real) já trazem
// os campos da descoberta.
func (a *Annotator) details(ctx context.Context, c domain.Candidate) Annotation {
	ann := Annotation{Address: c.Address, Phone: c.Phone}

	if strings.HasPrefix(c.PlaceID, "dir:") {
		return ann
	}

	if a.Redis != nil {
		if p, err := a.Redis.GetPlace(ctx, c.PlaceID); err == nil && p != nil {
			return Annotation{Address: p.Address, Phone: p.Phone, MapLink: p.MapLink}
		}
	}

	q := url.Values{}
	q.Set("place_id", c.PlaceID)
	q.Set("fields", "name,formatted_address,formatted_phone_number,url")
	q.Set("language", "pt-BR")
	q.Set("key", a.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/maps/api/place/details/json?"+q.Encode(), nil)
	if err != nil {
		return ann
	}

	resp, err := httputil.DoWithRetry(ctx, a.client, req, 2)
	if err != nil {
		log.Printf("WARN: place details %s: %v", c.PlaceID, err)
		return ann
	}
	defer resp.Body.Close()

	var out detailsResponse
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&out) != nil || out.Status != "OK" {
		log.Printf("WARN: place details %s: status http %d", c.PlaceID, resp.StatusCode)
		return ann
	}

	if out.Result.FormattedAddress != "" {
		ann.Address = out.Result.FormattedAddress
	}
	if out.Result.FormattedPhoneNumber != "" {
		ann.Phone = out.Result.FormattedPhoneNumber
	}
	ann.MapLink = out.Result.URL

	if a.Redis != nil {
		_ = a.Redis.SetPlace(ctx, c.PlaceID, &cache.CachedPlace{
			Address: ann.Address,
			Phone:   ann.Phone,
			MapLink: ann.MapLink,
		})
	}
	return ann
}

// ─── Distance Matrix ──────────────────────────────────────────────────────────

type matrixElement struct {
	Status   string `json:"status"`
	Distance struct {
		Text  string `json:"text"`
		Value int    `json:"value"`
	} `json:"distance"`
	Duration struct {
		Text string `json:"text"`
	} `json:"duration"`
}

type matrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []matrixElement `json:"elements"`
	} `json:"rows"`
}

// distanceMatrix devolve os elementos na mesma ordem dos destinos enviados,
// que é a ordem de cands. Destinos: place_id quando real, senão o endereço
// descoberto (fallback: nome do estabelecimento).
func (a *Annotator) distanceMatrix(ctx context.Context, origin domain.Location, cands []domain.Candidate, annotations map[string]Annotation) ([]matrixElement, error) {
	if len(cands) == 0 {
		return nil, nil
	}
	if a.APIKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY: %w", domain.ErrConfig)
	}

	dests := make([]string, 0, len(cands))
	for _, c := range cands {
		switch {
		case !strings.HasPrefix(c.PlaceID, "dir:"):
			dests = append(dests, "place_id:"+c.PlaceID)
		case annotations[c.PlaceID].Address != "":
			dests = append(dests, annotations[c.PlaceID].Address)
		default:
			dests = append(dests, c.Name)
		}
	}

	q := url.Values{}
	q.Set("origins", fmt.Sprintf("%f,%f", origin.Lat, origin.Lng))
	q.Set("destinations", strings.Join(dests, "|"))
	q.Set("language", "pt-BR")
	q.Set("key", a.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/maps/api/distancematrix/json?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := httputil.DoWithRetry(ctx, a.client, req, 2)
	if err != nil {
		return nil, fmt.Errorf("distance matrix: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("distance matrix status %d: %w", resp.StatusCode, domain.ErrUpstream)
	}

	var out matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("distance matrix decode: %v: %w", err, domain.ErrUpstream)
	}
	if out.Status != "OK" || len(out.Rows) == 0 {
		return nil, fmt.Errorf("distance matrix status %q: %w", out.Status, domain.ErrUpstream)
	}

	return out.Rows[0].Elements, nil
}
