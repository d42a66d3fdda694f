package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/config"
	"github.com/Skotchmaster/auth_service/internal/db"
	"github.com/Skotchmaster/auth_service/internal/es"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/httpserver"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/metrics"
	"github.com/Skotchmaster/auth_service/internal/mykafka"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/service"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatalf("db init error: %v", err)
	}

	issuer, err := tokens.NewIssuer(tokens.Config{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		cancel()
		log.Fatalf("token issuer: %v", err)
	}

	publisher, closePublisher := newPublisher(initCtx, cfg, logger)
	cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := &service.AuthService{
		Repo:    &repo.GormRepo{DB: gdb},
		Tokens:  issuer,
		Events:  publisher,
		Topic:   cfg.KafkaTopic,
		Metrics: metrics.NewRecorder(reg),
	}

	e := httpserver.New(&httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:    svc,
			Cookie: httpserver.CookieConfig{Secure: cfg.CookieSecure, TTL: issuer.RefreshTTL()},
		},
		Issuer:   issuer,
		Logger:   logger,
		Gatherer: reg,
		Ready:    pingDB(gdb),
	})

	go func() {
		logger.Info("auth service listening", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}
	closePublisher()
	if err := db.Close(gdb); err != nil {
		logger.Error("db close", "error", err)
	}
}

// newPublisher wires the optional event sinks. A sink that cannot start is logged and skipped.
func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (events.Publisher, func()) {
	var (
		sinks   events.Multi
		closers []func()
	)

	if len(cfg.KafkaBrokers) > 0 {
		p, err := mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.Warn("kafka disabled", "error", err)
		} else {
			sinks = append(sinks, p)
			closers = append(closers, func() {
				if err := p.Close(); err != nil {
					logger.Error("kafka close", "error", err)
				}
			})
		}
	}

	if cfg.ESURL != "" {
		client, err := es.NewClient(ctx, es.Config{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			logger.Warn("elasticsearch audit disabled", "error", err)
		} else {
			sinks = append(sinks, &es.AuditIndexer{Client: client, Index: cfg.ESIndex})
		}
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(sinks) == 0 {
		return events.Nop, closeAll
	}
	return sinks, closeAll
}

func pingDB(gdb *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
