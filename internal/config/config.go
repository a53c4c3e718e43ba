// Package config centraliza a configuração do serviço. Tudo é lido uma única
// vez do ambiente no main e injetado explicitamente em cada componente — não
// existe estado global de configuração.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Defaults do domínio "carro de som". Todos sobrescrevíveis via ambiente.
var (
	defaultSearchKeywords = []string{
		"carro de som",
		"som volante",
		"propaganda volante",
		"moto som",
		"bike som",
	}
	defaultPositiveKeywords = []string{
		"carro de som",
		"som volante",
		"propaganda volante",
		"moto som",
		"bike som",
		"publicidade sonora",
	}
	defaultNegativeKeywords = []string{
		"auto som",
		"som automotivo",
		"acessórios",
		"acessorios",
		"eletrônica",
		"eletronica",
		"conserto",
		"instalação",
		"instalacao",
		"insulfilm",
	}
	defaultNegativeTypes = []string{
		"car_repair",
		"car_dealer",
		"electronics_store",
		"hardware_store",
	}
	defaultRadii = []int{10000, 40000}
)

// Config agrupa toda a configuração do serviço.
type Config struct {
	Addr           string
	AllowedOrigins []string

	GoogleKey      string
	GeminiKey      string
	NominatimEmail string

	// Geocoder: "nominatim" (default) ou "google".
	Geocoder string
	// FilterMode: "rules" (default) ou "gemini".
	FilterMode string
	// FailOpen inverte a política padrão fail-closed do filtro de
	// relevância: em caso de evidência ambígua ou erro do classificador,
	// o candidato é aceito em vez de rejeitado.
	FailOpen            bool
	ConfidenceThreshold float64

	SearchKeywords   []string
	PositiveKeywords []string
	NegativeKeywords []string
	NegativeTypes    []string

	// RadiiMeters são os raios tentados em sequência até a descoberta
	// retornar candidatos (alargamento em duas fases: 10 km, depois 40 km).
	RadiiMeters []int

	// DirectorySource habilita a fonte suplementar de diretório (scraping).
	DirectorySource bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MongoURI      string
}

// FromEnv monta a configuração a partir das variáveis de ambiente,
// aplicando os defaults do domínio.
func FromEnv() Config {
	return Config{
		Addr:           getEnv("ADDR", ":8080"),
		AllowedOrigins: getList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		GoogleKey:      os.Getenv("GOOGLE_MAPS_API_KEY"),
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		NominatimEmail: getEnv("NOMINATIM_EMAIL", "contato@agentesom.com.br"),

		Geocoder:            getEnv("GEOCODER", "nominatim"),
		FilterMode:          getEnv("FILTER_MODE", "rules"),
		FailOpen:            getBool("FILTER_FAIL_OPEN", false),
		ConfidenceThreshold: getFloat("CONFIDENCE_THRESHOLD", 0.5),

		SearchKeywords:   getList("SEARCH_KEYWORDS", defaultSearchKeywords),
		PositiveKeywords: getList("POSITIVE_KEYWORDS", defaultPositiveKeywords),
		NegativeKeywords: getList("NEGATIVE_KEYWORDS", defaultNegativeKeywords),
		NegativeTypes:    getList("NEGATIVE_TYPES", defaultNegativeTypes),

		RadiiMeters: getInts("SEARCH_RADII_METERS", defaultRadii),

		DirectorySource: getBool("DIRECTORY_SOURCE", false),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// getList lê uma lista separada por vírgulas, descartando itens vazios.
func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getInts(key string, fallback []int) []int {
	var out []int
	for _, s := range getList(key, nil) {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
