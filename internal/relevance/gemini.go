package relevance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agentesom/som-api/internal/domain"
)

// GeminiFilter delega a classificação a um LLM hospedado (Gemini). O modelo
// recebe nome e categorias do candidato e deve responder JSON estrito com
// answer/confidence/reason/category. Qualquer resposta fora desse contrato é
// um erro de classificação — o JudgeAll aplica a política fail-closed.
type GeminiFilter struct {
	APIKey  string
	BaseURL string
	client  *http.Client
}

// NewGeminiFilter cria o filtro delegado.
func NewGeminiFilter(apiKey string) *GeminiFilter {
	return &GeminiFilter{
		APIKey:  apiKey,
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *GeminiFilter) Name() string { return "gemini" }

// buildPrompt monta o prompt a partir de campos nomeados. O texto vindo do
// provedor entra como JSON serializado, nunca interpolado em format string
// crua.
func buildPrompt(name string, types []string) string {
	candidate, _ := json.Marshal(struct {
		Nome       string   `json:"nome"`
		Categorias []string `json:"categorias"`
	}{Nome: name, Categorias: types})

	var b strings.Builder
	b.WriteString("Você classifica estabelecimentos brasileiros. Diga se o estabelecimento abaixo ")
	b.WriteString("presta serviço de CARRO DE SOM / PROPAGANDA VOLANTE (anúncio sonoro em vias públicas). ")
	b.WriteString("Lojas de som automotivo, acessórios e oficinas NÃO contam.\n\n")
	b.WriteString("Estabelecimento: ")
	b.Write(candidate)
	b.WriteString("\n\nResponda SOMENTE um objeto JSON, sem texto adicional, no formato:\n")
	b.WriteString(`{"answer": "sim" ou "nao", "confidence": número entre 0 e 1, "reason": "...", "category": "..."}`)
	return b.String()
}

// geminiResponse espelha o contrato do generateContent.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiFilter) Judge(ctx context.Context, c domain.Candidate) (domain.Verdict, error) {
	if g.APIKey == "" {
		return domain.Verdict{}, fmt.Errorf("GEMINI_API_KEY: %w", domain.ErrConfig)
	}

	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": buildPrompt(c.Name, c.Types)}}},
		},
		"generationConfig": map[string]any{
			"temperature":     0.1,
			"maxOutputTokens": 512,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return domain.Verdict{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"?key="+g.APIKey, bytes.NewReader(payload))
	if err != nil {
		return domain.Verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("gemini: %v: %w", err, domain.ErrUpstream)
	}
	defer resp.Body.Close()

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Verdict{}, fmt.Errorf("gemini decode (status %d): %v", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Verdict{}, fmt.Errorf("gemini status %d: %w", resp.StatusCode, domain.ErrUpstream)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return domain.Verdict{}, fmt.Errorf("gemini resposta vazia")
	}

	return parseVerdict(out.Candidates[0].Content.Parts[0].Text)
}

// verdictJSON é o contrato exigido do modelo.
type verdictJSON struct {
	Answer     *string  `json:"answer"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
	Category   string   `json:"category"`
}

// parseVerdict interpreta o texto do modelo como JSON estrito, tolerando
// apenas cercas de código markdown em volta do objeto. Campo answer ausente,
// texto não-JSON ou valores sem sentido são erros de classificação.
func parseVerdict(text string) (domain.Verdict, error) {
	cleaned := stripCodeFence(text)

	var v verdictJSON
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return domain.Verdict{}, fmt.Errorf("veredito não é JSON: %v", err)
	}
	if v.Answer == nil {
		return domain.Verdict{}, fmt.Errorf("veredito sem campo answer")
	}

	confidence := 0.0
	if v.Confidence != nil {
		confidence = *v.Confidence
	}
	if confidence < 0 || confidence > 1 {
		return domain.Verdict{}, fmt.Errorf("confidence fora de [0,1]: %f", confidence)
	}

	return domain.Verdict{
		Match:      affirmative(*v.Answer),
		Confidence: confidence,
		Reason:     v.Reason,
		Category:   v.Category,
	}, nil
}

func affirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "sim", "s", "yes", "y", "true":
		return true
	}
	return false
}

// stripCodeFence remove marcadores ```json ... ``` que modelos costumam
// colocar em volta do objeto pedido.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
