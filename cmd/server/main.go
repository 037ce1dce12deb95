package main

import (
	"context"
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

	audithandler "healthgate/internal/audit/handler"
	auditmetrics "healthgate/internal/audit/metrics"
	auditservice "healthgate/internal/audit/service"
	auditstore "healthgate/internal/audit/store/audit"
	consenthandler "healthgate/internal/consent/handler"
	consentmetrics "healthgate/internal/consent/metrics"
	consentservice "healthgate/internal/consent/service"
	"healthgate/internal/consent/store/cache"
	consentstore "healthgate/internal/consent/store/consent"
	"healthgate/internal/decision"
	decisionhandler "healthgate/internal/decision/handler"
	decisionmetrics "healthgate/internal/decision/metrics"
	"healthgate/internal/directory"
	jwttoken "healthgate/internal/jwt_token"
	"healthgate/internal/platform/config"
	"healthgate/internal/platform/httpserver"
	"healthgate/internal/platform/logger"
	platformredis "healthgate/internal/platform/redis"
	httptransport "healthgate/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		consentStore consentservice.Store
		auditStore   auditservice.Store
		dir          directory.Directory
		db           *sql.DB
		health       []httptransport.HealthChecker
	)

	if cfg.Postgres.URL != "" {
		var err error
		db, err = openPostgres(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		if os.Getenv("HEALTHGATE_AUTO_MIGRATE") == "true" {
			for _, ddl := range []string{directory.Schema(), consentstore.Schema(), auditstore.Schema()} {
				if _, err := db.ExecContext(ctx, ddl); err != nil {
					return err
				}
			}
			log.Info("schema applied")
		}
		consentStore = consentstore.NewPostgres(db)
		auditStore = auditstore.NewPostgres(db)
		dir = directory.NewPostgres(db)
		health = append(health, dbHealth{db})
		log.Info("using postgres stores")
	} else {
		memDir := directory.NewInMemory()
		admin, doctor, patients := directory.SeedDevelopment(memDir)
		consentStore = consentstore.NewInMemory()
		auditStore = auditstore.NewInMemory()
		dir = memDir
		log.Info("using in-memory stores with development seed",
			"admin_user_id", admin.ID.String(),
			"doctor_id", doctor.ID.String(),
			"patient_count", len(patients),
		)
	}

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "healthgate", "healthgate")

	auditSvc := auditservice.New(auditStore, dir,
		auditservice.WithLogger(log),
		auditservice.WithMetrics(auditmetrics.New()),
	)

	consentOpts := []consentservice.Option{
		consentservice.WithLogger(log),
		consentservice.WithMetrics(consentmetrics.New()),
		consentservice.WithAuditRecorder(auditSvc),
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		consentOpts = append(consentOpts,
			consentservice.WithActiveCache(cache.New(redisClient.Client, cfg.Redis.CacheTTL, log)))
		health = append(health, redisClient)
		log.Info("consent check cache enabled")
	}
	consentSvc := consentservice.New(consentStore, dir, consentOpts...)

	// On Postgres, a grant and its audit entry commit in one transaction.
	var consentAPI consenthandler.Service = consentSvc
	if db != nil {
		consentAPI = newConsentTx(db, consentSvc)
	}

	decisionSvc := decision.NewService(dir, consentSvc,
		decision.WithLogger(log),
		decision.WithMetrics(decisionmetrics.New()),
	)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:       log,
		JWTValidator: jwttoken.NewMiddlewareAdapter(jwtSvc),
		Handlers: []httptransport.Registrar{
			consenthandler.New(consentAPI, log),
			decisionhandler.New(decisionSvc, auditSvc, log),
			audithandler.New(auditSvc, log),
		},
		Health: health,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting healthgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
