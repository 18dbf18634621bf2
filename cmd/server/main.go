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

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"ardhi/internal/identity"
	identitystore "ardhi/internal/identity/store"
	parcelhandler "ardhi/internal/parcel/handler"
	parcelmetrics "ardhi/internal/parcel/metrics"
	parcelservice "ardhi/internal/parcel/service"
	parcelstore "ardhi/internal/parcel/store"
	jwttoken "ardhi/internal/jwt_token"
	"ardhi/internal/platform/config"
	"ardhi/internal/platform/httpserver"
	"ardhi/internal/platform/logger"
	"ardhi/internal/platform/metrics"
	platformredis "ardhi/internal/platform/redis"
	"ardhi/internal/region"
	regioncache "ardhi/internal/region/cache"
	regionstore "ardhi/internal/region/store"
	transferhandler "ardhi/internal/transfer/handler"
	transfermetrics "ardhi/internal/transfer/metrics"
	transferservice "ardhi/internal/transfer/service"
	transferstore "ardhi/internal/transfer/store"
	httptransport "ardhi/internal/transport/http"
	"ardhi/pkg/platform/audit"
	auditpublisher "ardhi/pkg/platform/audit/publisher"
	kafkasink "ardhi/pkg/platform/audit/sink/kafka"
	auditmemory "ardhi/pkg/platform/audit/store/memory"
	auditpostgres "ardhi/pkg/platform/audit/store/postgres"
)

const (
	jwtIssuer   = "ardhi"
	jwtAudience = "ardhi-api"
)

// main wires storage, services, and transport. Business logic lives in the
// internal service packages; this file only chooses implementations.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			log.Error("postgres unreachable", "error", err.Error())
			os.Exit(1)
		}
		log.Info("using postgres storage")
	} else {
		log.Warn("POSTGRES_DSN not set, using in-memory storage")
	}

	// Stores. Memory implementations back local development and tests.
	var (
		userStore     identity.Store
		parcelStore   parcelservice.Store
		transferStore transferservice.Store
		regionSource  region.Store
		auditStore    audit.Store
		workflowTx    transferservice.StoreTx
	)
	if db != nil {
		userStore = identitystore.NewPostgres(db)
		parcelStore = parcelstore.NewPostgres(db)
		transferStore = transferstore.NewPostgres(db)
		regionSource = regionstore.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		workflowTx = newPostgresTx(db)
	} else {
		userStore = identitystore.NewInMemory()
		parcelStore = parcelstore.NewInMemory()
		transferStore = transferstore.NewInMemory()
		regionSource = regionstore.NewInMemory(regionstore.DevCounties()...)
		auditStore = auditmemory.NewInMemoryStore()
		workflowTx = transferservice.NewShardedTx()
	}

	// Region lookups are hot on every parcel registration; cache them when
	// Redis is configured.
	if cfg.Redis.URL != "" {
		redisClient, err := platformredis.New(cfg.Redis)
		if err != nil {
			log.Error("failed to connect to redis", "error", err.Error())
			os.Exit(1)
		}
		defer redisClient.Close()
		regionSource = regioncache.New(regionSource, redisClient, config.RegionCacheTTL, log)
		log.Info("region cache enabled")
	}

	publisherOpts := []auditpublisher.Option{
		auditpublisher.WithAsyncBuffer(256),
		auditpublisher.WithLogger(log),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafkasink.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Error("failed to create kafka sink", "error", err.Error())
			os.Exit(1)
		}
		defer sink.Close()
		publisherOpts = append(publisherOpts, auditpublisher.WithSink(sink))
		log.Info("kafka audit sink enabled", "topic", cfg.Kafka.Topic)
	}
	publisher := auditpublisher.NewPublisher(auditStore, publisherOpts...)
	defer publisher.Close()

	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		log.Error("failed to create snowflake node", "error", err.Error())
		os.Exit(1)
	}

	identitySvc := identity.NewService(userStore)
	regionSvc := region.NewService(regionSource)
	parcelSvc := parcelservice.NewService(parcelStore, regionSvc, identitySvc,
		parcelservice.WithEmitter(publisher),
		parcelservice.WithMetrics(parcelmetrics.New()),
		parcelservice.WithLogger(log),
	)
	transferSvc := transferservice.NewService(transferStore, parcelSvc, identitySvc, workflowTx, node,
		transferservice.WithEmitter(publisher),
		transferservice.WithMetrics(transfermetrics.New()),
		transferservice.WithLogger(log),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, jwtIssuer, jwtAudience)
	jwtValidator := jwttoken.NewJWTServiceAdapter(jwtService)

	router := httptransport.NewRouter(
		parcelhandler.New(parcelSvc, identitySvc, log, m, jwtValidator),
		transferhandler.New(transferSvc, identitySvc, log, m, jwtValidator),
	)

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting ardhi registry", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
