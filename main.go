package main

import (
	"context"
	"log"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"gramload.app/cloud/handlers"
	"gramload.app/cloud/internal/config"
	"gramload.app/cloud/internal/metrics"
	"gramload.app/cloud/internal/payment"
	"gramload.app/cloud/internal/quality"
	"gramload.app/cloud/internal/ratelimit"
	"gramload.app/cloud/internal/version"
	"gramload.app/cloud/models"
	"gramload.app/cloud/storage"
)

func main() {
	godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %s", err)
	}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
	}

	metrics.InitMetrics()

	db, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("storage: %s", err)
	}
	defer db.Close()

	var limiter ratelimit.Limiter
	var nonces payment.NonceStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		limiter = ratelimit.NewRedis(rdb, cfg.FreeDownloadLimit, cfg.FreeWindow)
		nonces = payment.NewRedisNonceStore(rdb)
	} else {
		limiter = ratelimit.NewMemory(cfg.FreeDownloadLimit, cfg.FreeWindow)
		nonces = payment.NewMemoryNonceStore()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ratelimit.StartSweeper(ctx, limiter, cfg.SweepInterval)

	filter := quality.New(quality.LabelMap{
		models.QualityHD: cfg.HDLabel,
		models.QualitySD: cfg.SDLabel,
	})

	settler := payment.NewProcessor(db, nonces, models.DefaultCatalog(), cfg.GatewaySecret, cfg.CallbackFreshness)

	server := handlers.NewHTTPServer(db, limiter, filter, settler)

	log.Printf("Gramload Cloud API %s starting on port %s", version.Resolve(), cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, server.Router))
}
