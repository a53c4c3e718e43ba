package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentesom/som-api/internal/config"
	"github.com/agentesom/som-api/internal/domain"
	"github.com/agentesom/som-api/internal/pipeline"
	"github.com/agentesom/som-api/internal/places"
)

// ─── Stubs ────────────────────────────────────────────────────────────────────

type stubGeocoder struct {
	loc domain.Location
	err error
}

func (g stubGeocoder) Name() string { return "stub" }

func (g stubGeocoder) Geocode(_ context.Context, address string) (domain.Location, string, error) {
	return g.loc, address, g.err
}

type emptySource struct{}

func (emptySource) Name() string { return "stub" }

func (emptySource) Nearby(_ context.Context, _ domain.Location, _ int, _ string) ([]domain.Candidate, error) {
	return nil, nil
}

type configErrSource struct{}

func (configErrSource) Name() string { return "stub" }

func (configErrSource) Nearby(_ context.Context, _ domain.Location, _ int, _ string) ([]domain.Candidate, error) {
	return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY: %w", domain.ErrConfig)
}

func newTestHandler(geoErr error) *Handler {
	return NewHandler(pipeline.Deps{
		Cfg: config.Config{
			SearchKeywords:      []string{"carro de som"},
			RadiiMeters:         []int{10000},
			ConfidenceThreshold: 0.5,
		},
		Geocoder: stubGeocoder{err: geoErr},
		Sources:  []places.Source{emptySource{}},
	})
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestSearchMethodNotAllowed(t *testing.T) {
	h := newTestHandler(nil)
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSearchInvalidJSON(t *testing.T) {
	h := newTestHandler(nil)
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("{nope")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "corpo JSON inválido")
}

func TestSearchMissingAddress(t *testing.T) {
	h := newTestHandler(nil)
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchCityNotGeocoded(t *testing.T) {
	h := newTestHandler(fmt.Errorf("endereço não geocodificado: %w", domain.ErrNotFound))
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search",
		strings.NewReader(`{"address": "Lugar Nenhum - XX"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.StatusNotGeocoded, body["status"])
	assert.Equal(t, "Lugar Nenhum - XX", body["address_searched"])
	assert.NotEmpty(t, body["error"])
}

func TestSearchMissingCredentialIs500(t *testing.T) {
	// Credencial ausente é erro de configuração (500), nunca um 200 com
	// "nenhum serviço encontrado".
	h := NewHandler(pipeline.Deps{
		Cfg: config.Config{
			SearchKeywords:      []string{"carro de som"},
			RadiiMeters:         []int{10000},
			ConfidenceThreshold: 0.5,
		},
		Geocoder: stubGeocoder{},
		Sources:  []places.Source{configErrSource{}},
	})

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search",
		strings.NewReader(`{"address": "Goiânia - GO"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "serviço mal configurado")
}

func TestSearchUpstreamError(t *testing.T) {
	h := newTestHandler(fmt.Errorf("geocoder fora do ar: %w", domain.ErrUpstream))
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search",
		strings.NewReader(`{"address": "Goiânia - GO"}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSearchNoResults(t *testing.T) {
	h := newTestHandler(nil)
	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodPost, "/api/v1/search",
		strings.NewReader(`{"address": "Goiânia - GO"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.StatusNone, resp.Status)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(nil)
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["time"])
}

func TestRoot(t *testing.T) {
	h := newTestHandler(nil)

	rec := httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Agente Carro de Som")

	rec = httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/qualquer-coisa", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidateCacheWithoutRedis(t *testing.T) {
	h := newTestHandler(nil)
	rec := httptest.NewRecorder()
	h.InvalidateCache(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/search/cache?address=x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInvalidateCacheMethod(t *testing.T) {
	h := newTestHandler(nil)
	rec := httptest.NewRecorder()
	h.InvalidateCache(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search/cache", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := corsMiddleware([]string{"https://front.example"}, next)

	// Origem permitida recebe os cabeçalhos.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://front.example")
	mw.ServeHTTP(rec, req)
	assert.Equal(t, "https://front.example", rec.Header().Get("Access-Control-Allow-Origin"))

	// Origem desconhecida não recebe.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://evil.example")
	mw.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// Preflight encerra em 204 sem chegar ao handler.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://front.example")
	mw.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Curinga libera qualquer origem.
	mwAny := corsMiddleware([]string{"*"}, next)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://qualquer.example")
	mwAny.ServeHTTP(rec, req)
	assert.Equal(t, "https://qualquer.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
