package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/agentesom/som-api/internal/cache"
	"github.com/agentesom/som-api/internal/domain"
	"github.com/agentesom/som-api/internal/pipeline"
)

// Handler holds the HTTP dependencies.
type Handler struct {
	deps pipeline.Deps
}

// NewHandler creates a new Handler.
func NewHandler(deps pipeline.Deps) *Handler {
	return &Handler{deps: deps}
}

// errResponse writes a JSON error body. extra, quando presente, agrega
// campos adicionais (ex.: status legado city_not_geocoded).
func errResponse(w http.ResponseWriter, status int, msg string, extra map[string]string) {
	body := map[string]string{"error": msg}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Root godoc
//
//	GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"service": "Agente Carro de Som", "status": "ativo"})
}

// Health godoc
//
//	GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

// Search godoc
//
//	POST /api/v1/search
//
//	Request body: { "address": "...", "city_state_original": "..." }
//	              (ou o formato legado { "city": "...", "state": "..." })
//	Response:     domain.SearchResponse JSON
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResponse(w, http.StatusBadRequest, "corpo JSON inválido: "+err.Error(), nil)
		return
	}
	if req.ResolvedAddress() == "" {
		errResponse(w, http.StatusBadRequest, "informe 'address' (ou 'city') no corpo da requisição", nil)
		return
	}

	resp, err := pipeline.Run(r.Context(), req, h.deps)
	if err != nil {
		writePipelineError(w, req, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// writePipelineError mapeia a taxonomia de erros para status HTTP.
// Nenhum stack trace ou identificador interno vaza para o corpo.
func writePipelineError(w http.ResponseWriter, req domain.SearchRequest, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		errResponse(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		errResponse(w, http.StatusNotFound, err.Error(), map[string]string{
			"status":           domain.StatusNotGeocoded,
			"address_searched": req.ResolvedAddress(),
		})
	case errors.Is(err, domain.ErrConfig):
		errResponse(w, http.StatusInternalServerError, "serviço mal configurado: "+err.Error(), nil)
	case errors.Is(err, domain.ErrUpstream):
		errResponse(w, http.StatusBadGateway, err.Error(), nil)
	default:
		errResponse(w, http.StatusInternalServerError, "erro interno na busca", nil)
	}
}

// InvalidateCache godoc
//
//	DELETE /api/v1/search/cache?address=...
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.deps.Redis == nil {
		errResponse(w, http.StatusServiceUnavailable, "redis não configurado", nil)
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		errResponse(w, http.StatusBadRequest, "parâmetro 'address' é obrigatório", nil)
		return
	}

	key := cache.SearchKey(address)
	if err := h.deps.Redis.DeleteSearch(r.Context(), key); err != nil {
		errResponse(w, http.StatusInternalServerError, "falha ao invalidar cache: "+err.Error(), nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "deleted", "key": key})
}
