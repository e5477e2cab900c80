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

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Writers Kafka: payment_missed, winner_selected (promoções) e DLQ
	missedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPaymentMissed)
	defer missedWriter.Close()
	winnersWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWinnerSelected)
	defer winnersWriter.Close()
	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWinnerNotifyDLQ)
	defer dlqWriter.Close()

	// Métricas Prometheus
	reaped := prometheus.NewCounter(prometheus.CounterOpts{Name: "reap_payments_missed_total", Help: "vencedores rebaixados por prazo vencido"})
	promoted := prometheus.NewCounter(prometheus.CounterOpts{Name: "reap_winners_promoted_total", Help: "lances promovidos a vencedor"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "reap_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(reaped, promoted, errorsBy)

	store := repo.NewPostgres(pg)
	dispatcher := &notify.Dispatcher{
		Log:      log,
		Store:    store,
		Payments: payments.New(cfg.CheckoutBaseURL),
		Mail:     mailer.New(cfg.MailerBaseURL),
	}

	reaper := &settlement.Reaper{
		Log:        log,
		Store:      store,
		Notifier:   dispatcher,
		OnMissed:   func() { reaped.Inc() },
		OnPromoted: func() { promoted.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	publisher := &producer.KafkaPublisher{
		Log:     log,
		Missed:  missedWriter,
		Winners: winnersWriter,
		DLQ:     dlqWriter,
	}

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("payment-reaper-worker started", zap.Duration("interval", cfg.ReapInterval))

	ticker := time.NewTicker(cfg.ReapInterval)
	defer ticker.Stop()

	runOnce(ctx, log, reaper, publisher)
	for {
		select {
		case <-ctx.Done():
			log.Info("payment-reaper-worker stopped")
			return
		case <-ticker.C:
			runOnce(ctx, log, reaper, publisher)
		}
	}
}

func runOnce(ctx context.Context, log *zap.Logger, reaper *settlement.Reaper, publisher *producer.KafkaPublisher) {
	res, err := reaper.ReapExpiredPayments(ctx, time.Now())
	if err != nil {
		log.Error("reap run failed", zap.Error(err))
		return
	}
	publisher.PublishReapResult(ctx, res)
	log.Info("reap run finished", zap.String("message", res.Message), zap.Int("winners", len(res.Details)))
}
