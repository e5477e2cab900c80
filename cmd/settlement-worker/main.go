package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/auction-marketplace-poc/internal/auction/repo"
	"github.com/radieske/auction-marketplace-poc/internal/mailer"
	"github.com/radieske/auction-marketplace-poc/internal/notify"
	"github.com/radieske/auction-marketplace-poc/internal/payments"
	"github.com/radieske/auction-marketplace-poc/internal/settlement"
	"github.com/radieske/auction-marketplace-poc/internal/settlement/producer"
	"github.com/radieske/auction-marketplace-poc/internal/shared/config"
	"github.com/radieske/auction-marketplace-poc/internal/shared/db"
	"github.com/radieske/auction-marketplace-poc/internal/shared/kafka"
	"github.com/radieske/auction-marketplace-poc/internal/shared/logger"
	"github.com/radieske/auction-marketplace-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Conexão com banco Postgres (leilões, lances, vencedores, notificações)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Writers Kafka para os eventos de liquidação e a DLQ de notificações
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicAuctionSettled)
	defer settledWriter.Close()
	winnersWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWinnerSelected)
	defer winnersWriter.Close()
	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWinnerNotifyDLQ)
	defer dlqWriter.Close()

	// Métricas Prometheus para monitoramento da liquidação
	claimed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settle_auctions_claimed_total", Help: "leilões claimados por esta instância"})
	winners := prometheus.NewCounter(prometheus.CounterOpts{Name: "settle_winners_created_total", Help: "vencedores criados"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settle_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(claimed, winners, errorsBy)

	store := repo.NewPostgres(pg)
	dispatcher := &notify.Dispatcher{
		Log:      log,
		Store:    store,
		Payments: payments.New(cfg.CheckoutBaseURL),
		Mail:     mailer.New(cfg.MailerBaseURL),
	}

	engine := &settlement.Engine{
		Log:       log,
		Store:     store,
		Notifier:  dispatcher,
		OnClaimed: func() { claimed.Inc() },
		OnWinner:  func() { winners.Inc() },
		OnError:   func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	publisher := &producer.KafkaPublisher{
		Log:     log,
		Settled: settledWriter,
		Winners: winnersWriter,
		DLQ:     dlqWriter,
	}

	// Servidor de métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("settlement-worker started", zap.Duration("interval", cfg.SettleInterval))

	// Loop principal: batch job agendado; invocações podem se sobrepor a outras
	// instâncias, o claim condicional no banco resolve a concorrência
	ticker := time.NewTicker(cfg.SettleInterval)
	defer ticker.Stop()

	runOnce(ctx, log, engine, publisher)
	for {
		select {
		case <-ctx.Done():
			log.Info("settlement-worker stopped")
			return
		case <-ticker.C:
			runOnce(ctx, log, engine, publisher)
		}
	}
}

func runOnce(ctx context.Context, log *zap.Logger, engine *settlement.Engine, publisher *producer.KafkaPublisher) {
	res, err := engine.SettleExpiredAuctions(ctx, time.Now())
	if err != nil {
		log.Error("settlement run failed", zap.Error(err))
		return
	}
	publisher.PublishSettleResult(ctx, res)
	log.Info("settlement run finished", zap.String("message", res.Message), zap.Int("auctions", len(res.Details)))
}
