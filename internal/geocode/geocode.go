// Package geocode resolve endereços livres em coordenadas + endereço
// canônico. Dois provedores intercambiáveis: Nominatim (OpenStreetMap,
// default) e Google Geocoding.
package geocode

import (
	"context"
	"fmt"

	"github.com/agentesom/som-api/internal/domain"
)

// Geocoder resolve um endereço livre em uma Location e o endereço formatado
// do provedor. Implementações devem retornar domain.ErrNotFound (embrulhado)
// quando o provedor não encontra nada e domain.ErrUpstream em falhas de
// rede/HTTP.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, address string) (domain.Location, string, error)
}

// checkBounds rejeita coordenadas fora do intervalo válido. Um provedor que
// devolve lixo aqui é tratado como falha upstream, não como resultado.
func checkBounds(loc domain.Location) error {
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
		return fmt.Errorf("coordenadas fora do intervalo (%f, %f): %w", loc.Lat, loc.Lng, domain.ErrUpstream)
	}
	return nil
}
