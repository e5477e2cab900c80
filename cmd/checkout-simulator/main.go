package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/auction-marketplace-poc/internal/shared/config"
	"github.com/radieske/auction-marketplace-poc/internal/shared/logger"
	"github.com/radieske/auction-marketplace-poc/internal/shared/metrics"
)

// Simulador dos dois colaboradores externos do core: o provider de sessão de
// checkout e o transporte de e-mail. Útil pra rodar o fluxo completo local
// sem Stripe nem SMTP de verdade.

var (
	sessionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_created_total",
		Help: "Sessões de checkout criadas",
	})
	mailsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_mails_sent_total",
		Help: "E-mails aceitos pelo relay simulado",
	})
	failuresInjected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_injected_total",
		Help: "Falhas injetadas por endpoint",
	}, []string{"endpoint"})
)

type server struct {
	log      *zap.Logger
	failRate float64 // fração de requisições que falham de propósito
}

type sessionReq struct {
	BidID string `json:"bidId"`
}

type mailReq struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// createSession responde com uma URL de pagamento fake pro lance informado
func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BidID == "" {
		http.Error(w, "bidId required", http.StatusBadRequest)
		return
	}

	if rand.Float64() < s.failRate {
		failuresInjected.WithLabelValues("session").Inc()
		http.Error(w, "simulated checkout outage", http.StatusServiceUnavailable)
		return
	}

	sessionsCreated.Inc()
	url := "https://checkout.local/session/" + uuid.NewString()
	s.log.Info("checkout session created", zap.String("bidId", req.BidID), zap.String("url", url))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"sessionUrl": url})
}

// sendMail aceita (ou rejeita, conforme failRate) um e-mail do relay
func (s *server) sendMail(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req mailReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.To == "" {
		http.Error(w, "recipient required", http.StatusBadRequest)
		return
	}

	if rand.Float64() < s.failRate {
		failuresInjected.WithLabelValues("mail").Inc()
		http.Error(w, "simulated smtp failure", http.StatusBadGateway)
		return
	}

	mailsSent.Inc()
	s.log.Info("mail accepted", zap.String("to", req.To), zap.String("subject", req.Subject))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(sessionsCreated, mailsSent, failuresInjected)

	failRate := 0.0
	if v := os.Getenv("FAIL_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			failRate = f
		}
	}

	s := &server{log: log, failRate: failRate}

	metrics.StartMetricsServer(cfg.MetricsPort, func(context.Context) error { return nil })

	mux := http.NewServeMux()
	mux.HandleFunc("/checkout/session", s.createSession) // POST
	mux.HandleFunc("/mail/send", s.sendMail)             // POST

	addr := ":" + cfg.HTTPPort
	log.Info("checkout-simulator started", zap.String("addr", addr), zap.Float64("failRate", failRate))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("http server", zap.Error(err))
	}
}
