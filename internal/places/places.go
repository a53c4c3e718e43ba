// Package places descobre candidatos a carro de som perto de uma coordenada.
// Cada fonte implementa Source; FindAll dispara todas as combinações
// fonte × palavra-chave concorrentemente e une os resultados por PlaceID.
package places

import (
	"context"
	"errors"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agentesom/som-api/internal/domain"
)

// Source busca estabelecimentos próximos de loc para uma palavra-chave.
// Um erro de uma fonte/palavra-chave não aborta as demais.
type Source interface {
	Name() string
	Nearby(ctx context.Context, loc domain.Location, radiusMeters int, keyword string) ([]domain.Candidate, error)
}

// maxConcurrent limita as consultas simultâneas às fontes.
const maxConcurrent = 5

// FindAll executa todas as fontes para todas as palavras-chave e retorna o
// conjunto deduplicado de candidatos. Falhas individuais são logadas e
// toleradas (resultado parcial); a ordem de inserção é irrelevante nesta
// fase, não há ranking. Exceção: domain.ErrConfig aborta a busca inteira,
// credencial ausente não é falha transiente de uma keyword.
func FindAll(ctx context.Context, sources []Source, loc domain.Location, radiusMeters int, keywords []string) ([]domain.Candidate, error) {
	type job struct {
		source  Source
		keyword string
	}
	var jobs []job
	for _, s := range sources {
		for _, kw := range keywords {
			jobs = append(jobs, job{s, kw})
		}
	}

	found := make([][]domain.Candidate, len(jobs))
	errs := make([]error, len(jobs))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, j := range jobs {
		wg.Add(1)
		go func(idx int, j job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			start := time.Now()
			cands, err := j.source.Nearby(ctx, loc, radiusMeters, j.keyword)
			if err != nil {
				log.Printf("WARN: fonte %s keyword %q: %v", j.source.Name(), j.keyword, err)
				errs[idx] = err
				return
			}
			log.Printf("fonte %s keyword %q: %d candidatos (%v)",
				j.source.Name(), j.keyword, len(cands), time.Since(start).Round(time.Millisecond))
			found[idx] = cands
		}(i, j)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil && errors.Is(err, domain.ErrConfig) {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	var out []domain.Candidate
	for _, cands := range found {
		for _, c := range cands {
			if c.PlaceID == "" || c.Name == "" {
				continue
			}
			if seen[c.PlaceID] {
				continue
			}
			seen[c.PlaceID] = true
			out = append(out, c)
		}
	}
	return out, nil
}

// ─── helpers de normalização (ids sintéticos de diretórios) ───────────────────

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)

// normalizeName baixa caixa, remove acentos comuns do português e colapsa
// espaços. Usado para gerar ids sintéticos estáveis de fontes sem place_id.
func normalizeName(s string) string {
	replacer := strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"í", "i", "ì", "i", "î", "i", "ï", "i",
		"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ö", "o",
		"ú", "u", "ù", "u", "û", "u", "ü", "u",
		"ç", "c", "ñ", "n",
	)
	s = replacer.Replace(strings.ToLower(s))
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// syntheticID gera a chave de deduplicação para candidatos de diretório:
// palavras do nome normalizadas e ordenadas, capturando variações de ordem
// ("Som Carro XYZ" == "XYZ Carro Som").
func syntheticID(name string) string {
	words := strings.Fields(normalizeName(name))
	sort.Strings(words)
	return "dir:" + strings.Join(words, "-")
}
