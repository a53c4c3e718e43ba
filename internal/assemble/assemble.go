// Package assemble monta a lista final de resultados: deriva o deep link de
// WhatsApp do telefone, limpa o endereço de sufixos redundantes de
// cidade/estado e ordena por distância crescente.
package assemble

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agentesom/som-api/internal/domain"
	"github.com/agentesom/som-api/internal/enrich"
)

// countryCode é o DDI prefixado nos links de WhatsApp.
const countryCode = "55"

var (
	nonDigitRe  = regexp.MustCompile(`\D`)
	doubleSepRe = regexp.MustCompile(`,\s*,`)
)

// WhatsAppLink deriva o deep link a partir de um telefone bruto. Só números
// locais com DDD (10 ou 11 dígitos após limpar) geram link; qualquer outra
// contagem devolve vazio — não é erro.
func WhatsAppLink(phone string) string {
	digits := nonDigitRe.ReplaceAllString(phone, "")
	if len(digits) != 10 && len(digits) != 11 {
		return ""
	}
	return "https://wa.me/" + countryCode + digits
}

// CleanAddress remove do endereço completo a substring "Cidade - UF" da
// busca e o sufixo ", Brasil", colapsando separadores duplicados e aparando
// vírgulas/hífens/espaços das pontas.
func CleanAddress(full, cityState string) string {
	s := full
	if cityState != "" {
		s = strings.ReplaceAll(s, cityState, "")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "Brasil")

	// colapsa ", ," e afins deixados pela remoção
	for {
		t := doubleSepRe.ReplaceAllString(s, ",")
		if t == s {
			break
		}
		s = t
	}
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " ,-–")
}

// Build combina candidato + veredito + anotação em um Result por candidato
// aceito e devolve a lista ordenada por distância (ausente = infinito,
// ordenação estável para empates).
func Build(cands []domain.Candidate, verdicts map[string]domain.Verdict, annotations map[string]enrich.Annotation, cityState string) []domain.Result {
	results := make([]domain.Result, 0, len(cands))
	for _, c := range cands {
		ann := annotations[c.PlaceID]
		r := domain.Result{
			Name:           c.Name,
			Address:        CleanAddress(ann.Address, cityState),
			Phone:          ann.Phone,
			WhatsAppLink:   WhatsAppLink(ann.Phone),
			MapLink:        ann.MapLink,
			DistanceMeters: ann.DistanceMeters,
			DistanceText:   ann.DistanceText,
			DurationText:   ann.DurationText,
			Category:       verdicts[c.PlaceID].Category,
		}
		results = append(results, r)
	}

	SortByDistance(results)
	return results
}

// SortByDistance ordena crescente por distance_meters; resultados sem
// distância vão para o fim.
func SortByDistance(results []domain.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		di, dj := results[i].DistanceMeters, results[j].DistanceMeters
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
}
