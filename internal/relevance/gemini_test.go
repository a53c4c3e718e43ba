package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentesom/som-api/internal/domain"
)

// --- parseVerdict ---

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
		want    domain.Verdict
	}{
		{
			name: "afirmativo com confiança",
			text: `{"answer": "sim", "confidence": 0.9, "reason": "nome explícito", "category": "carro de som"}`,
			want: domain.Verdict{Match: true, Confidence: 0.9, Reason: "nome explícito", Category: "carro de som"},
		},
		{
			name: "negativo",
			text: `{"answer": "nao", "confidence": 0.8, "reason": "loja de acessórios"}`,
			want: domain.Verdict{Match: false, Confidence: 0.8, Reason: "loja de acessórios"},
		},
		{
			name: "cerca de código em volta",
			text: "```json\n{\"answer\": \"sim\", \"confidence\": 0.7}\n```",
			want: domain.Verdict{Match: true, Confidence: 0.7},
		},
		{
			name: "answer em inglês",
			text: `{"answer": "yes", "confidence": 1}`,
			want: domain.Verdict{Match: true, Confidence: 1},
		},
		{
			name:    "sem campo answer",
			text:    `{"confidence": 0.9, "reason": "?"}`,
			wantErr: true,
		},
		{
			name:    "texto não-JSON",
			text:    "não tenho certeza sobre esse estabelecimento",
			wantErr: true,
		},
		{
			name:    "confidence fora do intervalo",
			text:    `{"answer": "sim", "confidence": 3.5}`,
			wantErr: true,
		},
		{
			name: "confidence ausente vira zero",
			text: `{"answer": "sim"}`,
			want: domain.Verdict{Match: true, Confidence: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVerdict(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestAffirmative(t *testing.T) {
	for _, yes := range []string{"sim", "Sim", "SIM", " s ", "yes", "y", "true"} {
		assert.True(t, affirmative(yes), yes)
	}
	for _, no := range []string{"nao", "não", "no", "", "talvez"} {
		assert.False(t, affirmative(no), no)
	}
}

// --- GeminiFilter.Judge against a stub server ---

func newGeminiStub(t *testing.T, modelText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Contains(t, body, "contents")

		fmt.Fprintf(w, `{"candidates": [{"content": {"parts": [{"text": %q}]}}]}`, modelText)
	}))
}

func TestGeminiFilterJudge(t *testing.T) {
	ts := newGeminiStub(t, `{"answer": "sim", "confidence": 0.85, "reason": "serviço de som", "category": "carro de som"}`)
	defer ts.Close()

	f := NewGeminiFilter("test-key")
	f.BaseURL = ts.URL

	v, err := f.Judge(context.Background(), domain.Candidate{Name: "Som e Cia", Types: []string{"point_of_interest"}})
	require.NoError(t, err)
	assert.True(t, v.Match)
	assert.InDelta(t, 0.85, v.Confidence, 1e-9)
	assert.Equal(t, "carro de som", v.Category)
}

func TestGeminiFilterJudgeMalformed(t *testing.T) {
	ts := newGeminiStub(t, "desculpe, não consigo responder em JSON")
	defer ts.Close()

	f := NewGeminiFilter("test-key")
	f.BaseURL = ts.URL

	_, err := f.Judge(context.Background(), domain.Candidate{Name: "Som e Cia"})
	require.Error(t, err)
}

func TestGeminiFilterJudgeEmptyCandidates(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"candidates": []}`)
	}))
	defer ts.Close()

	f := NewGeminiFilter("test-key")
	f.BaseURL = ts.URL

	_, err := f.Judge(context.Background(), domain.Candidate{Name: "Som e Cia"})
	require.Error(t, err)
}

func TestGeminiFilterJudgeMissingKey(t *testing.T) {
	f := NewGeminiFilter("")
	_, err := f.Judge(context.Background(), domain.Candidate{Name: "Som e Cia"})
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestGeminiFilterJudgeUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": {"message": "quota"}}`)
	}))
	defer ts.Close()

	f := NewGeminiFilter("test-key")
	f.BaseURL = ts.URL

	_, err := f.Judge(context.Background(), domain.Candidate{Name: "Som e Cia"})
	require.Error(t, err)
}
