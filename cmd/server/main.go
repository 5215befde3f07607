package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/respondr-dispatch/internal/assignment"
	"github.com/example/respondr-dispatch/internal/config"
	"github.com/example/respondr-dispatch/internal/directory"
	"github.com/example/respondr-dispatch/internal/eta"
	"github.com/example/respondr-dispatch/internal/geo"
	httpapi "github.com/example/respondr-dispatch/internal/http"
	"github.com/example/respondr-dispatch/internal/ingest"
	"github.com/example/respondr-dispatch/internal/logging"
	"github.com/example/respondr-dispatch/internal/matcher"
	"github.com/example/respondr-dispatch/internal/notify"
	"github.com/example/respondr-dispatch/internal/payments"
	"github.com/example/respondr-dispatch/internal/storage"
	"github.com/example/respondr-dispatch/internal/tracker"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	if cfg.PGDSN != "" && cfg.RunMigrations {
		if err := runMigrations(cfg.PGDSN); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	var store storage.Store
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres connect failed", "error", err)
			os.Exit(1)
		}
		defer ps.Close()
		store = ps
	} else {
		logger.Warn("PG_DSN not set, using in-memory store")
		store = storage.NewMemoryStore()
	}

	var telemetry *geo.Telemetry
	if cfg.RedisAddr != "" {
		telemetry = geo.NewTelemetry(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
		defer telemetry.Close()
	}

	var producer *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		producer = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
	}

	wsreg := notify.NewWSRegistry()
	transports := []notify.Notifier{wsreg}
	if cfg.FCMEndpoint != "" {
		transports = append(transports, notify.NewFCMNotifier(cfg.FCMEndpoint, cfg.FCMKey))
	}
	notifier := &notify.Fanout{Transports: transports, Logger: logging.Component(logger, "notify")}

	var pay *payments.StripeClient
	if cfg.StripeAPIKey != "" {
		pay = payments.NewStripeClient(cfg.StripeAPIKey)
	}

	estimator := &eta.Estimator{
		Cache:           eta.NewCache(cfg.ETACacheTTL),
		DefaultSpeedMps: cfg.DefaultSpeedMps,
	}
	if cfg.OSRMEndpoint != "" {
		estimator.Client = eta.NewOSRMClient(cfg.OSRMEndpoint)
	}

	dir := directory.New(store, logging.Component(logger, "directory"))
	engine := &matcher.Engine{Directory: dir}

	mgr := &assignment.Manager{
		Store:            store,
		Match:            engine,
		Notify:           notifier,
		ETA:              estimator,
		Logger:           logging.Component(logger, "lifecycle"),
		BookingFareCents: cfg.BookingFareCents,
		FareCurrency:     cfg.FareCurrency,
	}
	if pay != nil {
		mgr.Payments = pay
	}
	mgr.Reassigner = &assignment.Reassigner{
		Store:  store,
		Match:  engine,
		Mgr:    mgr,
		Bound:  cfg.ReassignBound,
		Logger: logging.Component(logger, "reassign"),
	}

	trk := &tracker.Tracker{Store: store, Logger: logging.Component(logger, "tracker")}
	if pay != nil {
		trk.Payments = pay
	}

	srv := httpapi.NewServer(httpapi.Options{
		Store:         store,
		Directory:     dir,
		Lifecycle:     mgr,
		Tracker:       trk,
		Telemetry:     telemetry,
		Kafka:         producer,
		WSReg:         wsreg,
		NearbyRadiusM: cfg.NearbyRadiusM,
		Logger:        logging.Component(logger, "http"),
	})

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("dispatch api listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("dispatch api stopped")
}

func runMigrations(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_create_dispatch.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}
