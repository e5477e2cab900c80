package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/auction-marketplace-poc/internal/auction-service/dto"
	"github.com/radieske/auction-marketplace-poc/internal/auction/repo"
	"github.com/radieske/auction-marketplace-poc/internal/settlement"
)

// Repo define as operações de persistência usadas pelos handlers HTTP
type Repo interface {
	ListAuctions(ctx context.Context, limit int) ([]repo.Auction, error)
	HasStaleAuction(ctx context.Context, now time.Time) (bool, error)
	CreateBid(ctx context.Context, auctionID, userID string, amount decimal.Decimal, now time.Time) (string, error)
	ListWinners(ctx context.Context, auctionID string) ([]repo.Winner, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]repo.Notification, error)
	MarkWinnerPaid(ctx context.Context, winnerID string) (bool, error)
}

// Settler e PaymentReaper expõem a superfície de disparo sob demanda dos
// batch jobs (a mesma lógica que roda agendada nos workers)
type Settler interface {
	SettleExpiredAuctions(ctx context.Context, now time.Time) (settlement.BatchResult, error)
}

type PaymentReaper interface {
	ReapExpiredPayments(ctx context.Context, now time.Time) (settlement.ReapResult, error)
}

// Resender reenvia manualmente a notificação de um vencedor (ex.: após falha
// registrada na DLQ)
type Resender interface {
	Notify(ctx context.Context, winnerID string) error
}

// ListingCache é o cache opcional da listagem pública de leilões
type ListingCache interface {
	Get(ctx context.Context) ([]byte, bool)
	Set(ctx context.Context, payload []byte) error
}

// Server expõe a API pública de leilões e a superfície administrativa de
// liquidação/cobrança
type Server struct {
	log      *zap.Logger
	repo     Repo
	cache    ListingCache // pode ser nil
	settler  Settler
	reaper   PaymentReaper
	resender Resender
}

func NewServer(log *zap.Logger, r Repo, c ListingCache, s Settler, pr PaymentReaper, rs Resender) *Server {
	return &Server{log: log, repo: r, cache: c, settler: s, reaper: pr, resender: rs}
}

// Router retorna o mux HTTP com as rotas do serviço
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auctions", s.listAuctions)             // GET
	mux.HandleFunc("/auctions/", s.listAuctionWinners)      // GET /auctions/{id}/winners
	mux.HandleFunc("/bids", s.placeBid)                     // POST
	mux.HandleFunc("/notifications", s.listNotifications)   // GET ?userId=...
	mux.HandleFunc("/payments/confirm", s.confirmPayment)   // POST
	mux.HandleFunc("/admin/settle", s.settle)               // POST
	mux.HandleFunc("/admin/reap", s.reap)                   // POST
	mux.HandleFunc("/admin/winners/resend", s.resendWinner) // POST
	return mux
}

func (s *Server) listAuctions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// caminho de leitura dispara liquidação oportunista quando enxerga leilão
	// vencido não processado; o job agendado continua sendo a fonte de verdade
	s.kickStaleSettlement(r.Context())

	if s.cache != nil {
		if payload, ok := s.cache.Get(r.Context()); ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(payload)
			return
		}
	}

	auctions, err := s.repo.ListAuctions(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]dto.AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, dto.AuctionResponse{
			AuctionID:        a.ID,
			Title:            a.Title,
			MaxSpots:         a.MaxSpots,
			EndsAt:           a.EndsAt,
			Status:           a.Status,
			WinnersProcessed: a.WinnersProcessed,
		})
	}

	payload, err := json.Marshal(out)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if s.cache != nil {
		if err := s.cache.Set(r.Context(), payload); err != nil {
			s.log.Warn("listing cache set failed", zap.Error(err))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// kickStaleSettlement roda a liquidação em background quando há leilão vencido
// sem processamento; a falha é só logada
func (s *Server) kickStaleSettlement(ctx context.Context) {
	stale, err := s.repo.HasStaleAuction(ctx, time.Now())
	if err != nil || !stale {
		return
	}
	go func() {
		bctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.settler.SettleExpiredAuctions(bctx, time.Now()); err != nil {
			s.log.Warn("opportunistic settlement failed", zap.Error(err))
		}
	}()
}

func (s *Server) placeBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if req.AuctionID == "" || req.UserID == "" || err != nil || !amount.IsPositive() {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	bidID, err := s.repo.CreateBid(r.Context(), req.AuctionID, req.UserID, amount, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			http.Error(w, "auction not found", http.StatusNotFound)
		case errors.Is(err, repo.ErrAuctionClosed):
			http.Error(w, "auction closed for bidding", http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.PlaceBidResponse{BidID: bidID, Status: repo.BidStatusActive})
}

func (s *Server) listAuctionWinners(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// path: /auctions/{id}/winners
	rest := strings.TrimPrefix(r.URL.Path, "/auctions/")
	auctionID, sub, ok := strings.Cut(rest, "/")
	if !ok || auctionID == "" || sub != "winners" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	winners, err := s.repo.ListWinners(r.Context(), auctionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]dto.WinnerResponse, 0, len(winners))
	for _, win := range winners {
		out = append(out, dto.WinnerResponse{
			WinnerID:        win.ID,
			UserID:          win.UserID,
			WinningBidID:    win.WinningBidID,
			PaymentDeadline: win.PaymentDeadline,
			Status:          win.Status,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}

	items, err := s.repo.ListNotifications(r.Context(), userID, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]dto.NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, dto.NotificationResponse{ID: n.ID, Type: n.Type, Message: n.Message, CreatedAt: n.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// confirmPayment registra a confirmação de pagamento de um vencedor.
// A captura em si é externa; aqui só existe a transição pending_payment -> paid.
func (s *Server) confirmPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WinnerID == "" {
		http.Error(w, "winnerId required", http.StatusBadRequest)
		return
	}

	ok, err := s.repo.MarkWinnerPaid(r.Context(), req.WinnerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		writeJSON(w, http.StatusConflict, dto.StatusResponse{Success: false, Message: "winner is not pending payment"})
		return
	}
	writeJSON(w, http.StatusOK, dto.StatusResponse{Success: true, Message: "payment confirmed"})
}

func (s *Server) settle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res, err := s.settler.SettleExpiredAuctions(r.Context(), time.Now())
	if err != nil {
		s.log.Error("settlement run failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) reap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res, err := s.reaper.ReapExpiredPayments(r.Context(), time.Now())
	if err != nil {
		s.log.Error("reap run failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) resendWinner(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.ResendWinnerEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WinnerID == "" {
		http.Error(w, "winnerId required", http.StatusBadRequest)
		return
	}

	if err := s.resender.Notify(r.Context(), req.WinnerID); err != nil {
		s.log.Warn("manual resend failed", zap.String("winnerId", req.WinnerID), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, dto.StatusResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, dto.StatusResponse{Success: true, Message: "winner notification email sent successfully"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
