package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	svcache "github.com/radieske/auction-marketplace-poc/internal/auction-service/cache"
	svhttp "github.com/radieske/auction-marketplace-poc/internal/auction-service/http"
	"github.com/radieske/auction-marketplace-poc/internal/auction/repo"
	"github.com/radieske/auction-marketplace-poc/internal/mailer"
	"github.com/radieske/auction-marketplace-poc/internal/notify"
	"github.com/radieske/auction-marketplace-poc/internal/payments"
	"github.com/radieske/auction-marketplace-poc/internal/settlement"
	"github.com/radieske/auction-marketplace-poc/internal/shared/cache"
	"github.com/radieske/auction-marketplace-poc/internal/shared/config"
	"github.com/radieske/auction-marketplace-poc/internal/shared/db"
	"github.com/radieske/auction-marketplace-poc/internal/shared/logger"
	"github.com/radieske/auction-marketplace-poc/internal/shared/metrics"
)

func main() {
	// carrega config
	cfg := config.Load()

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	// conecta com db Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	log.Info("postgres connected")

	// conecta com cache Redis (listagem pública de leilões)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	store := repo.NewPostgres(pg)
	dispatcher := &notify.Dispatcher{
		Log:      log,
		Store:    store,
		Payments: payments.New(cfg.CheckoutBaseURL),
		Mail:     mailer.New(cfg.MailerBaseURL),
	}

	// A superfície HTTP dispara a mesma lógica dos workers sob demanda
	engine := &settlement.Engine{Log: log, Store: store, Notifier: dispatcher}
	reaper := &settlement.Reaper{Log: log, Store: store, Notifier: dispatcher}

	listingCache := svcache.NewListingCache(redisClient, cfg.ListingCacheTTL)

	server := svhttp.NewServer(log, store, listingCache, engine, reaper, dispatcher)

	// sobe servidor de métricas e health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	go func() {
		log.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	// Shutdown gracioso
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("auction-service stopped")
}
