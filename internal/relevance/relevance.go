// Package relevance decide, candidato a candidato, se um estabelecimento é
// de fato um serviço de carro de som. Duas estratégias intercambiáveis:
// regras estáticas de palavras-chave (RuleFilter) e um classificador LLM
// delegado (GeminiFilter).
//
// A política padrão é fail-closed: evidência ambígua, resposta malformada do
// classificador ou erro de provedor rejeitam o candidato. FailOpen inverte o
// default para os casos ambíguos/de erro (não para rejeições explícitas).
package relevance

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/agentesom/som-api/internal/domain"
)

// Filter julga um único candidato. Erros de classificação não abortam o
// lote: JudgeAll converte em veredito conforme a política.
type Filter interface {
	Name() string
	Judge(ctx context.Context, c domain.Candidate) (domain.Verdict, error)
}

// Accepted aplica o corte final: veredito afirmativo E confiança no mínimo
// igual ao threshold.
func Accepted(v domain.Verdict, threshold float64) bool {
	return v.Match && v.Confidence >= threshold
}

// classifyWorkers limita as chamadas de classificação simultâneas.
const classifyWorkers = 4

// JudgeAll julga todos os candidatos concorrentemente e devolve os vereditos
// indexados por PlaceID — a recombinação é por identidade, nunca por ordem
// de chegada. Erros individuais viram rejeição (ou aceitação com confiança
// mínima, quando failOpen) e são apenas logados. domain.ErrConfig é a
// exceção: credencial ausente rejeitaria o lote inteiro em silêncio, então
// aborta o julgamento.
func JudgeAll(ctx context.Context, f Filter, cands []domain.Candidate, threshold float64, failOpen bool) (map[string]domain.Verdict, error) {
	verdicts := make(map[string]domain.Verdict, len(cands))
	sem := make(chan struct{}, classifyWorkers)
	var mu sync.Mutex
	var wg sync.WaitGroup
	var configErr error

	for _, c := range cands {
		wg.Add(1)
		go func(c domain.Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			v, err := f.Judge(ctx, c)
			if err != nil {
				if errors.Is(err, domain.ErrConfig) {
					mu.Lock()
					configErr = err
					mu.Unlock()
					return
				}
				log.Printf("WARN: filtro %s para %q: %v", f.Name(), c.Name, err)
				v = domain.Verdict{
					Match:      failOpen,
					Confidence: threshold,
					Reason:     "erro de classificação: " + err.Error(),
				}
			}

			mu.Lock()
			verdicts[c.PlaceID] = v
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	if configErr != nil {
		return nil, configErr
	}
	return verdicts, nil
}
