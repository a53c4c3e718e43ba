package places

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/agentesom/som-api/internal/domain"
	"github.com/agentesom/som-api/internal/httputil"
)

// DirectorySource é a fonte suplementar que raspa um diretório de empresas
// brasileiro. Não conhece coordenadas: busca por cidade, então o raio é
// ignorado. Candidatos recebem id sintético derivado do nome.
type DirectorySource struct {
	// City é a cidade da requisição, na forma "cidade-uf" já no slug da URL.
	City    string
	BaseURL string
	client  *http.Client
}

// NewDirectorySource cria a fonte de diretório para uma cidade
// ("Goiânia", "GO" → slug goiania-go).
func NewDirectorySource(city, state string) *DirectorySource {
	slug := citySlug(city)
	if state != "" {
		slug += "-" + strings.ToLower(strings.TrimSpace(state))
	}
	return &DirectorySource{
		City:    slug,
		BaseURL: "https://www.guiamais.com.br",
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (d *DirectorySource) Name() string { return "Diretório" }

var dirPhoneRe = regexp.MustCompile(`\(?\d{2}\)?\s*\d{4,5}[-\s]?\d{4}`)

func (d *DirectorySource) Nearby(ctx context.Context, _ domain.Location, _ int, keyword string) ([]domain.Candidate, error) {
	reqURL := fmt.Sprintf("%s/%s/%s", d.BaseURL, d.City, querySlug(keyword))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")

	resp, err := httputil.DoWithRetry(ctx, d.client, req, 2)
	if err != nil {
		return nil, fmt.Errorf("diretório: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("diretório status %d: %w", resp.StatusCode, domain.ErrUpstream)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("diretório parse: %v: %w", err, domain.ErrUpstream)
	}

	var cands []domain.Candidate
	doc.Find(".listing, .result-item, .company-item, .empresa, li.item").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Find("h2, h3, h4, .title, .nome, strong").First().Text())
		if name == "" {
			name = strings.TrimSpace(sel.Find("a").First().Text())
		}
		if len(name) <= 2 {
			return
		}

		c := domain.Candidate{
			PlaceID: syntheticID(name),
			Name:    name,
			Address: strings.TrimSpace(sel.Find(".address, .endereco, address").Text()),
			Source:  d.Name(),
		}
		if cat := strings.TrimSpace(sel.Find(".category, .atividade, .ramo").Text()); cat != "" {
			c.Types = []string{cat}
		}
		if phones := dirPhoneRe.FindAllString(sel.Text(), 1); len(phones) > 0 {
			c.Phone = phones[0]
		}
		cands = append(cands, c)
	})

	return cands, nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func citySlug(city string) string {
	return strings.Trim(slugRe.ReplaceAllString(normalizeName(city), "-"), "-")
}

func querySlug(q string) string {
	return strings.Trim(slugRe.ReplaceAllString(normalizeName(q), "-"), "-")
}
