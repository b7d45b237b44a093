package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"infrastat/internal/events"
	"infrastat/internal/infrastat/handler"
	"infrastat/internal/infrastat/metrics"
	"infrastat/internal/infrastat/service"
	batchstore "infrastat/internal/infrastat/store/batch"
	"infrastat/internal/infrastat/store/idempotency"
	submissionstore "infrastat/internal/infrastat/store/submission"
	jwttoken "infrastat/internal/jwt_token"
	"infrastat/internal/platform/config"
	"infrastat/internal/platform/httpserver"
	"infrastat/internal/platform/kafka"
	"infrastat/internal/platform/logger"
	"infrastat/internal/platform/postgres"
	platformredis "infrastat/internal/platform/redis"
	"infrastat/internal/portal"
	"infrastat/internal/refdata"
	httptransport "infrastat/internal/transport/http"
	"infrastat/pkg/platform/tx"
)

// main wires the dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db          *sql.DB
		batches     service.BatchStore
		submissions service.SubmissionStore
		runner      tx.Runner
	)
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.Open(cfg.Database.URL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		batches = batchstore.NewPostgresStore(db)
		submissions = submissionstore.NewPostgresStore(db)
		runner = tx.NewSQLRunner(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		batches = batchstore.NewMemoryStore()
		submissions = submissionstore.NewMemoryStore()
		runner = tx.NewPassthroughRunner()
	}

	var idemStore idempotency.Store = idempotency.NewMemoryStore()
	redisClient, err := platformredis.New(cfg.Redis.URL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		idemStore = idempotency.NewRedisStore(redisClient.Client)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	if err != nil {
		log.Error("kafka connection failed", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := producer.Close(flushCtx); err != nil {
				log.Warn("kafka producer close failed", "error", err)
			}
		}()
		publisher = events.NewKafkaPublisher(producer, log)
	}

	refProvider, err := refdata.NewProvider(refdata.Config{
		CommodityCodesPath: cfg.Refdata.CommodityCodesPath,
		CountryCodesPath:   cfg.Refdata.CountryCodesPath,
		RefreshInterval:    cfg.Refdata.RefreshInterval,
		FailureBackoff:     cfg.Refdata.FailureBackoff,
	}, log)
	if err != nil {
		log.Error("reference data load failed", "error", err)
		os.Exit(1)
	}

	portalClient := portal.NewHTTPClient(portal.Config{
		BaseURL:  cfg.Portal.BaseURL,
		Username: cfg.Portal.Username,
		Password: cfg.Portal.Password,
		Timeout:  cfg.Portal.Timeout,
	})

	svc := service.New(
		batches, submissions, refProvider, portalClient, runner,
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
		service.WithPublisher(publisher),
		service.WithIdempotencyStore(idemStore),
		service.WithSubmitConfig(service.SubmitConfig{
			MaxAttempts:    cfg.Submit.MaxAttempts,
			RetryDelay:     cfg.Submit.RetryDelay,
			IdempotencyTTL: cfg.Submit.IdempotencyTTL,
			Disabled:       cfg.Submit.Disabled,
		}),
	)

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "infrastat", "infrastat-api")
	router := httptransport.NewRouter(httptransport.Deps{
		Handler:   handler.New(svc, log),
		Validator: jwtService,
		Logger:    log,
		DB:        db,
		Redis:     redisClient,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting infrastat", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := refProvider.Run(ctx, cfg.Refdata.RefreshInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return httpserver.Shutdown(srv, 10*time.Second)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
