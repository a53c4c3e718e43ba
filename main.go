package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/agentesom/som-api/internal/api"
	"github.com/agentesom/som-api/internal/cache"
	"github.com/agentesom/som-api/internal/config"
	"github.com/agentesom/som-api/internal/enrich"
	"github.com/agentesom/som-api/internal/geocode"
	"github.com/agentesom/som-api/internal/pipeline"
	"github.com/agentesom/som-api/internal/places"
	"github.com/agentesom/som-api/internal/relevance"
	"github.com/agentesom/som-api/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err == nil {
		log.Println(".env carregado")
	}
	cfg := config.FromEnv()

	// ─── Redis ────────────────────────────────────────────────────────────────
	var redisClient *cache.Client
	rc := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	ctx5s, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rc.Ping(ctx5s); err != nil {
		log.Printf("WARN: Redis não disponível (%v) — buscas não serão cacheadas", err)
	} else {
		redisClient = rc
		log.Printf("Redis conectado: %s", cfg.RedisAddr)
	}
	cancel()

	// ─── MongoDB ──────────────────────────────────────────────────────────────
	var mongoClient *store.Client
	ctx10s, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	mc, err := store.New(ctx10s, cfg.MongoURI)
	cancel2()
	if err != nil {
		log.Printf("WARN: MongoDB não disponível (%v) — buscas não serão persistidas", err)
	} else {
		mongoClient = mc
		log.Printf("MongoDB conectado: %s", cfg.MongoURI)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = mc.Disconnect(ctx)
			cancel()
		}()
	}

	// ─── Componentes da pipeline ──────────────────────────────────────────────
	var geocoder geocode.Geocoder
	if cfg.Geocoder == "google" {
		geocoder = geocode.NewGoogle(cfg.GoogleKey)
	} else {
		geocoder = geocode.NewNominatim(cfg.NominatimEmail)
	}

	var filter relevance.Filter
	if cfg.FilterMode == "gemini" {
		filter = relevance.NewGeminiFilter(cfg.GeminiKey)
	} else {
		filter = &relevance.RuleFilter{
			Positive:      cfg.PositiveKeywords,
			Negative:      cfg.NegativeKeywords,
			NegativeTypes: cfg.NegativeTypes,
			FailOpen:      cfg.FailOpen,
			Threshold:     cfg.ConfidenceThreshold,
		}
	}

	deps := pipeline.Deps{
		Cfg:       cfg,
		Geocoder:  geocoder,
		Sources:   []places.Source{places.NewGoogleSource(cfg.GoogleKey)},
		Filter:    filter,
		Annotator: enrich.NewAnnotator(cfg.GoogleKey, redisClient),
		Redis:     redisClient,
		Mongo:     mongoClient,
	}
	log.Printf("geocoder=%s filtro=%s raios=%v keywords=%d",
		geocoder.Name(), filter.Name(), cfg.RadiiMeters, len(cfg.SearchKeywords))

	// ─── HTTP server ──────────────────────────────────────────────────────────
	handler := api.NewHandler(deps)
	srv := api.NewServer(cfg.Addr, handler, cfg.AllowedOrigins)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down...")
	ctx, cancel3 := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel3()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("bye")
}
