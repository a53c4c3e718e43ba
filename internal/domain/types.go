// Package domain holds the request-scoped entities shared across the pipeline.
// Nothing here survives beyond a single HTTP request except the Stored* types,
// which are the MongoDB documents.
package domain

import (
	"strings"
	"time"
)

// Status values retornados no corpo da resposta de busca.
const (
	StatusFound       = "servicos_encontrados"
	StatusNone        = "nenhum_servico_encontrado"
	StatusNotGeocoded = "city_not_geocoded"
)

// SearchRequest é o corpo da requisição POST /api/v1/search.
// "address" é a forma preferida; "city"/"state" continuam aceitos como alias
// para compatibilidade com o front antigo.
type SearchRequest struct {
	Address           string `json:"address"`
	CityStateOriginal string `json:"city_state_original,omitempty"`
	City              string `json:"city,omitempty"`
	State             string `json:"state,omitempty"`
}

// ResolvedAddress returns the free-text address to geocode, falling back to
// "city, state" when the address field is empty. Empty string means the
// request is invalid.
func (r SearchRequest) ResolvedAddress() string {
	if addr := strings.TrimSpace(r.Address); addr != "" {
		return addr
	}
	city := strings.TrimSpace(r.City)
	if city == "" {
		return ""
	}
	if state := strings.TrimSpace(r.State); state != "" {
		return city + ", " + state
	}
	return city
}

// CityState returns the "Cidade - UF" string used to strip redundant suffixes
// from formatted addresses. Prefers the explicit city_state_original field.
func (r SearchRequest) CityState() string {
	if cs := strings.TrimSpace(r.CityStateOriginal); cs != "" {
		return cs
	}
	city := strings.TrimSpace(r.City)
	state := strings.TrimSpace(r.State)
	if city != "" && state != "" {
		return city + " - " + state
	}
	return ""
}

// Location é um par de coordenadas obtido do geocoding. Imutável.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Candidate é um estabelecimento retornado por uma fonte de busca,
// ainda não julgado relevante.
type Candidate struct {
	// PlaceID é a chave única dentro de uma requisição. Fontes sem
	// identificador próprio (diretórios) recebem um id sintético.
	PlaceID string
	Name    string
	Types   []string

	// Dados que algumas fontes já entregam na descoberta; quando presentes
	// dispensam a consulta de detalhes.
	Address string
	Phone   string

	Source string
}

// Verdict é a decisão de relevância produzida para um Candidate.
type Verdict struct {
	Match      bool    `json:"match"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
	Category   string  `json:"category,omitempty"`
}

// Result é o estabelecimento enriquecido retornado pela API, ordenado por
// distância. Campos de distância ausentes significam que a matriz não
// retornou elemento válido para esse destino.
type Result struct {
	Name           string `json:"name" bson:"name"`
	Address        string `json:"address,omitempty" bson:"address,omitempty"`
	Phone          string `json:"phone,omitempty" bson:"phone,omitempty"`
	WhatsAppLink   string `json:"whatsapp_link,omitempty" bson:"whatsapp_link,omitempty"`
	MapLink        string `json:"map_link,omitempty" bson:"map_link,omitempty"`
	DistanceMeters *int   `json:"distance_meters,omitempty" bson:"distance_meters,omitempty"`
	DistanceText   string `json:"distance_text,omitempty" bson:"distance_text,omitempty"`
	DurationText   string `json:"duration_text,omitempty" bson:"duration_text,omitempty"`
	Category       string `json:"category,omitempty" bson:"category,omitempty"`
}

// SearchResponse é a resposta da API.
type SearchResponse struct {
	Status          string   `json:"status"`
	Message         string   `json:"message,omitempty"`
	AddressSearched string   `json:"address_searched,omitempty"`
	SearchRadiusKm  int      `json:"search_radius_km,omitempty"`
	Cached          bool     `json:"cached"`
	SearchID        string   `json:"search_id,omitempty"`
	DurationMs      int64    `json:"duration_ms"`
	Results         []Result `json:"results"`
}

// StoredSearch é o documento de metadados salvo no MongoDB (collection:
// searches). Os resultados ficam na collection "results", referenciados
// pelo SearchID.
type StoredSearch struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	AddressSearched string    `bson:"address_searched" json:"address_searched"`
	Status          string    `bson:"status" json:"status"`
	SearchRadiusKm  int       `bson:"search_radius_km" json:"search_radius_km"`
	Total           int       `bson:"total" json:"total"`
	Discarded       int       `bson:"discarded" json:"discarded"`
	DurationMs      int64     `bson:"duration_ms" json:"duration_ms"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt       time.Time `bson:"expires_at" json:"expires_at"`
}

// StoredResult é um resultado individual vinculado a uma busca
// (collection: results).
type StoredResult struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	SearchID  string    `bson:"search_id" json:"search_id"`
	Result    Result    `bson:"result" json:"result"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}
