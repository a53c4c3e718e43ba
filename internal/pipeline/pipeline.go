// Package pipeline orchestrates the complete discovery + filtering flow.
//
// Phases:
//  1. Cache check – Redis L1 then MongoDB L2; return immediately on hit
//  2. Geocode     – free-text address → coordinates
//  3. Discovery   – keyword fan-out over the sources, widening the radius
//     (10 km → 40 km) while nothing is found
//  4. Relevance   – rule-based or delegated-classifier verdict per candidate
//  5. Annotation  – place details + one distance-matrix call
//  6. Assembly    – WhatsApp links, address cleanup, distance sort
//  7. Persist     – save to MongoDB and warm Redis
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/agentesom/som-api/internal/assemble"
	"github.com/agentesom/som-api/internal/cache"
	"github.com/agentesom/som-api/internal/config"
	"github.com/agentesom/som-api/internal/domain"
	"github.com/agentesom/som-api/internal/enrich"
	"github.com/agentesom/som-api/internal/geocode"
	"github.com/agentesom/som-api/internal/places"
	"github.com/agentesom/som-api/internal/relevance"
	"github.com/agentesom/som-api/internal/store"
)

// Deps holds the injectable collaborators. Redis and Mongo are optional
// (nil disables caching/persistence, the pipeline still works).
type Deps struct {
	Cfg       config.Config
	Geocoder  geocode.Geocoder
	Sources   []places.Source
	Filter    relevance.Filter
	Annotator *enrich.Annotator
	Redis     *cache.Client
	Mongo     *store.Client
}

// Run executes the full pipeline for a search request.
func Run(ctx context.Context, req domain.SearchRequest, d Deps) (*domain.SearchResponse, error) {
	start := time.Now()

	address := req.ResolvedAddress()
	if address == "" {
		return nil, fmt.Errorf("informe 'address' (ou 'city') no corpo da requisição: %w", domain.ErrValidation)
	}

	// ── Fase 1a: cache Redis (L1) ───────────────────────────────────────────
	var cacheKey string
	if d.Redis != nil {
		cacheKey = cache.SearchKey(address)
		if raw, err := d.Redis.GetSearch(ctx, cacheKey); err == nil && len(raw) > 0 {
			var resp domain.SearchResponse
			if err := json.Unmarshal(raw, &resp); err == nil {
				resp.Cached = true
				return &resp, nil
			}
		}
	}

	// ── Fase 1b: MongoDB (L2) ───────────────────────────────────────────────
	if d.Mongo != nil {
		stored, err := d.Mongo.FindSearch(ctx, address)
		if err == nil && stored != nil && time.Since(stored.CreatedAt) <= cache.SearchTTL {
			results, rerr := d.Mongo.FindResultsBySearchID(ctx, stored.ID)
			if rerr == nil {
				resp := &domain.SearchResponse{
					Status:          stored.Status,
					AddressSearched: stored.AddressSearched,
					SearchRadiusKm:  stored.SearchRadiusKm,
					Cached:          true,
					SearchID:        stored.ID,
					DurationMs:      stored.DurationMs,
					Results:         results,
				}
				if d.Redis != nil && cacheKey != "" {
					_ = d.Redis.SetSearch(ctx, cacheKey, resp)
				}
				return resp, nil
			}
		}
	}

	// ── Fase 2: geocoding ───────────────────────────────────────────────────
	loc, formatted, err := d.Geocoder.Geocode(ctx, withCountry(address))
	if err != nil {
		return nil, err
	}
	if formatted == "" {
		formatted = address
	}

	// ── Fase 3: descoberta com alargamento de raio ──────────────────────────
	sources := discoverySources(d, req, address)

	var cands []domain.Candidate
	radius := 0
	for _, r := range d.Cfg.RadiiMeters {
		radius = r
		cands, err = places.FindAll(ctx, sources, loc, r, d.Cfg.SearchKeywords)
		if err != nil {
			return nil, err
		}
		if len(cands) > 0 {
			break
		}
		log.Printf("raio %d m sem candidatos para %q, alargando", r, address)
	}
	radiusKm := radius / 1000

	if len(cands) == 0 {
		resp := &domain.SearchResponse{
			Status:          domain.StatusNone,
			Message:         "Nenhum serviço de carro de som encontrado na região.",
			AddressSearched: formatted,
			SearchRadiusKm:  radiusKm,
			DurationMs:      time.Since(start).Milliseconds(),
			Results:         []domain.Result{},
		}
		persist(ctx, d, cacheKey, address, resp, 0)
		return resp, nil
	}

	// ── Fase 4: relevância ──────────────────────────────────────────────────
	verdicts, err := relevance.JudgeAll(ctx, d.Filter, cands, d.Cfg.ConfidenceThreshold, d.Cfg.FailOpen)
	if err != nil {
		return nil, err
	}

	accepted := make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		if relevance.Accepted(verdicts[c.PlaceID], d.Cfg.ConfidenceThreshold) {
			accepted = append(accepted, c)
		}
	}
	discarded := len(cands) - len(accepted)

	if len(accepted) == 0 {
		resp := &domain.SearchResponse{
			Status:          domain.StatusNone,
			Message:         "Candidatos encontrados, mas nenhum é serviço de carro de som.",
			AddressSearched: formatted,
			SearchRadiusKm:  radiusKm,
			DurationMs:      time.Since(start).Milliseconds(),
			Results:         []domain.Result{},
		}
		persist(ctx, d, cacheKey, address, resp, discarded)
		return resp, nil
	}

	// ── Fase 5: anotação (detalhes + distâncias) ────────────────────────────
	annotations, err := d.Annotator.Annotate(ctx, loc, accepted)
	if err != nil {
		return nil, err
	}

	// ── Fase 6: montagem ────────────────────────────────────────────────────
	results := assemble.Build(accepted, verdicts, annotations, req.CityState())

	resp := &domain.SearchResponse{
		Status:          domain.StatusFound,
		AddressSearched: formatted,
		SearchRadiusKm:  radiusKm,
		DurationMs:      time.Since(start).Milliseconds(),
		Results:         results,
	}

	// ── Fase 7: persistência + cache ────────────────────────────────────────
	persist(ctx, d, cacheKey, address, resp, discarded)

	return resp, nil
}

// persist saves the search to MongoDB and warms the Redis cache. Both are
// best-effort: failures are logged and the response goes out anyway.
func persist(ctx context.Context, d Deps, cacheKey, address string, resp *domain.SearchResponse, discarded int) {
	if d.Mongo != nil {
		doc := &domain.StoredSearch{
			AddressSearched: address,
			Status:          resp.Status,
			SearchRadiusKm:  resp.SearchRadiusKm,
			Total:           len(resp.Results),
			Discarded:       discarded,
			DurationMs:      resp.DurationMs,
		}
		id, err := d.Mongo.SaveSearch(ctx, doc)
		if err != nil {
			log.Printf("WARN: persistência da busca: %v", err)
		} else {
			resp.SearchID = id
			if err := d.Mongo.SaveResults(ctx, id, resp.Results); err != nil {
				log.Printf("WARN: persistência dos resultados: %v", err)
			}
		}
	}
	if d.Redis != nil && cacheKey != "" {
		if err := d.Redis.SetSearch(ctx, cacheKey, resp); err != nil {
			log.Printf("WARN: cache da busca: %v", err)
		}
	}
}

// discoverySources monta a lista de fontes da requisição. Sempre copia:
// um append sobre d.Sources com capacidade sobrando escreveria no array
// compartilhado entre requisições concorrentes.
func discoverySources(d Deps, req domain.SearchRequest, address string) []places.Source {
	if !d.Cfg.DirectorySource {
		return d.Sources
	}
	city, state := parseCityState(req, address)
	if city == "" {
		return d.Sources
	}
	sources := append([]places.Source(nil), d.Sources...)
	return append(sources, places.NewDirectorySource(city, state))
}

// withCountry anexa ", Brasil" ao endereço quando ausente, como hint de
// região para o geocoder.
func withCountry(address string) string {
	if strings.Contains(strings.ToLower(address), "brasil") {
		return address
	}
	return address + ", Brasil"
}

var cityStateSepRe = regexp.MustCompile(`[\s,\-]+`)

// parseCityState extrai cidade e UF da requisição para a fonte de diretório:
// usa os campos explícitos quando presentes, senão tenta "Cidade - UF" /
// "Cidade, UF" no endereço livre.
func parseCityState(req domain.SearchRequest, address string) (city, state string) {
	if c := strings.TrimSpace(req.City); c != "" {
		return c, strings.TrimSpace(req.State)
	}

	source := req.CityState()
	if source == "" {
		source = address
	}
	tokens := cityStateSepRe.Split(strings.TrimSpace(source), -1)
	if len(tokens) >= 2 {
		last := strings.ToUpper(tokens[len(tokens)-1])
		if len(last) == 2 && last >= "AA" && last <= "ZZ" {
			return strings.Join(tokens[:len(tokens)-1], " "), last
		}
	}
	return strings.TrimSpace(source), ""
}
