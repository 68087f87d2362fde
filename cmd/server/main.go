package main

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"sealproof/internal/audit"
	"sealproof/internal/checkitem"
	"sealproof/internal/connector"
	connectorhandler "sealproof/internal/connector/handler"
	"sealproof/internal/connector/pathallow"
	"sealproof/internal/evidence"
	"sealproof/internal/imagetoken"
	imagetokenhandler "sealproof/internal/imagetoken/handler"
	"sealproof/internal/platform/config"
	"sealproof/internal/platform/httpserver"
	"sealproof/internal/platform/kafka"
	"sealproof/internal/platform/logger"
	"sealproof/internal/platform/metrics"
	platformredis "sealproof/internal/platform/redis"
	"sealproof/internal/policy"
	"sealproof/internal/review"
	reviewhandler "sealproof/internal/review/handler"
	reviewmetrics "sealproof/internal/review/metrics"
	httptransport "sealproof/internal/transport/http"
	"sealproof/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		fatal(log, "invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := map[string]httptransport.HealthChecker{}

	// Storage: postgres when configured, in-memory otherwise.
	var (
		reviewStore review.Store
		txRunner    review.TxRunner
		items       checkitem.Store
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			fatal(log, "postgres open failed", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			fatal(log, "postgres ping failed", err)
		}
		if err := review.EnsureSchema(ctx, db); err != nil {
			fatal(log, "review schema migration failed", err)
		}
		if err := checkitem.EnsureSchema(ctx, db); err != nil {
			fatal(log, "checkitem schema migration failed", err)
		}

		pg := review.NewPostgres(db)
		reviewStore = pg
		txRunner = newReviewPostgresTx(db, pg)
		items = checkitem.NewPostgres(db)
		health["postgres"] = pingChecker{db}
	} else {
		log.Warn("no postgres configured, using in-memory stores")
		mem := review.NewInMemoryStore()
		reviewStore = mem
		txRunner = review.NewInMemoryTxRunner(mem)
		items = checkitem.NewInMemoryStore()
	}

	// Redis backs the single-use token store, mint rate limiting, and the
	// jti replay cache.
	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		fatal(log, "redis connect failed", err)
	}
	var (
		tokenStore imagetoken.Store
		limiter    imagetoken.RateLimiter
		replay     connector.ReplayCache
	)
	if rdb != nil {
		defer rdb.Close()
		tokenStore = imagetoken.NewRedisStore(rdb.Client)
		limiter = imagetoken.NewRedisRateLimiter(rdb.Client, cfg.ImageTokenPerMin, time.Minute)
		replay = connector.NewRedisReplayCache(rdb.Client)
		health["redis"] = rdb
	} else {
		log.Warn("no redis configured, using in-memory token and replay stores")
		tokenStore = imagetoken.NewInMemoryStore()
		limiter = imagetoken.NewInMemoryRateLimiter(cfg.ImageTokenPerMin, time.Minute)
		replay = connector.NewInMemoryReplayCache()
	}

	// Audit sink: kafka when configured, in-process otherwise. Emission is
	// decoupled through the worker so request paths never block on it.
	kafkaClient, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		fatal(log, "kafka connect failed", err)
	}
	var auditStore audit.Store
	if kafkaClient != nil {
		defer kafkaClient.Close()
		// A broker outage diverts events to the in-process fallback rather
		// than dropping them.
		auditStore = audit.NewFailoverStore(
			audit.NewKafkaStore(kafkaClient, cfg.Kafka.AuditTopic),
			audit.NewInMemoryStore(),
			circuit.New("audit-kafka", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(3)),
			log,
		)
	} else {
		auditStore = audit.NewInMemoryStore()
	}
	auditWorker := audit.NewWorker(auditStore, 256, log)

	// Review core.
	engine := policy.NewEngine(items, cfg.DualControlThreshold)
	capturer := evidence.NewCapturer(engine, items, evidence.NewPromMetrics(), log)
	reviewMetrics := reviewmetrics.New()
	reviewService := review.NewService(
		review.Config{DualControlThreshold: cfg.DualControlThreshold},
		items, capturer, txRunner, reviewStore, reviewMetrics, auditWorker, log,
	)
	verifier := review.NewVerifier(reviewStore, reviewMetrics, auditWorker)

	// Image tokens.
	tokenService := imagetoken.NewService(
		tokenStore, limiter, cfg.ImageTokenTTL, imagetoken.NewPromMetrics(), auditWorker, log,
	)

	// Connector credentials.
	signingKey := cfg.Signing.ActiveKey()
	connMetrics := connector.NewPromMetrics()
	issuer := connector.NewIssuer(signingKey, cfg.Signing.IssuerID)
	validator := connector.NewValidator(
		connector.Keyring{
			Active:        signingKey.Public().(ed25519.PublicKey),
			Previous:      cfg.Signing.PreviousPublicKey,
			RotationUntil: cfg.Signing.RotationUntil,
		},
		cfg.Signing.IssuerID, cfg.ConnectorRole, replay, connMetrics, auditWorker, log,
	)
	allowlist, err := pathallow.New(cfg.AllowedImageRoots)
	if err != nil {
		fatal(log, "invalid image root allowlist", err)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:  log,
		Metrics: metrics.New(),
		Handlers: []httptransport.Registrar{
			reviewhandler.New(reviewService, verifier, log),
			imagetokenhandler.New(tokenService, log),
			connectorhandler.New(issuer, validator, allowlist, connMetrics, auditWorker, log),
		},
		Health: health,
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting sealproof", "addr", cfg.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := auditWorker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		fatal(log, "server exited", err)
	}
	log.Info("shutdown complete")
}

type pingChecker struct {
	db *sql.DB
}

func (p pingChecker) Health(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err.Error())
	os.Exit(1)
}
