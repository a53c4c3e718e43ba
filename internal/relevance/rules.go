package relevance

import (
	"context"
	"strings"

	"github.com/agentesom/som-api/internal/domain"
)

// RuleFilter aceita/rejeita por listas de palavras-chave configuradas.
// Palavra negativa no nome, ou categoria negativa nos types, rejeita — a
// evidência negativa sempre prevalece sobre a positiva. Sem palavra positiva
// no nome o candidato é ambíguo: rejeitado (default) ou aceito (FailOpen).
type RuleFilter struct {
	Positive      []string
	Negative      []string
	NegativeTypes []string
	FailOpen      bool

	// Threshold é o corte de confiança da pipeline. Vereditos ambíguos saem
	// com exatamente essa confiança, então sob FailOpen eles passam no corte
	// qualquer que seja o valor configurado.
	Threshold float64
}

func (f *RuleFilter) Name() string { return "regras" }

func (f *RuleFilter) Judge(_ context.Context, c domain.Candidate) (domain.Verdict, error) {
	name := strings.ToLower(c.Name)

	for _, kw := range f.Negative {
		if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
			return domain.Verdict{
				Confidence: 1,
				Reason:     "nome contém palavra negativa: " + kw,
			}, nil
		}
	}

	typeSet := make(map[string]bool, len(c.Types))
	for _, t := range c.Types {
		typeSet[strings.ToLower(t)] = true
	}
	for _, t := range f.NegativeTypes {
		if t != "" && typeSet[strings.ToLower(t)] {
			return domain.Verdict{
				Confidence: 1,
				Reason:     "categoria negativa: " + t,
			}, nil
		}
	}

	for _, kw := range f.Positive {
		if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
			return domain.Verdict{
				Match:      true,
				Confidence: 1,
				Reason:     "nome contém palavra positiva: " + kw,
				Category:   "carro de som",
			}, nil
		}
	}

	// Sem evidência em nenhuma direção.
	if f.FailOpen {
		return domain.Verdict{Match: true, Confidence: f.Threshold, Reason: "sem evidência; política fail-open"}, nil
	}
	return domain.Verdict{Confidence: f.Threshold, Reason: "sem evidência positiva no nome"}, nil
}
