package settlement

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/auction-marketplace-poc/internal/auction/repo"
)

// Reaper rebaixa vencedores que perderam o prazo de pagamento e promove o
// próximo colocado elegível pro spot liberado.
type Reaper struct {
	Log      *zap.Logger
	Store    Store
	Notifier Notifier
	Grace    time.Duration // prazo do vencedor promovido; PaymentGracePeriod quando zero

	OnMissed   func()       // métricas (counter++)
	OnPromoted func()       // métricas
	OnError    func(string) // métricas por fase
}

func (r *Reaper) grace() time.Duration {
	if r.Grace > 0 {
		return r.Grace
	}
	return PaymentGracePeriod
}

func (r *Reaper) errStage(stage string) {
	if r.OnError != nil {
		r.OnError(stage)
	}
}

// ReapExpiredPayments processa todos os vencedores pending_payment com prazo
// vencido em relação a now. Cada item é isolado; o resultado agregado carrega
// o desfecho de cada um.
func (r *Reaper) ReapExpiredPayments(ctx context.Context, now time.Time) (ReapResult, error) {
	winners, err := r.Store.ExpiredPendingWinners(ctx, now)
	if err != nil {
		r.errStage("list")
		return ReapResult{Success: false, Message: "failed to fetch missed payments"},
			fmt.Errorf("fetch missed payments: %w", err)
	}

	if len(winners) == 0 {
		return ReapResult{Success: true, Message: "no missed payments to process"}, nil
	}

	r.Log.Info("reaping missed payments", zap.Int("count", len(winners)))

	details := make([]ReapOutcome, 0, len(winners))
	for _, w := range winners {
		details = append(details, r.reapOne(ctx, now, w))
	}

	return ReapResult{
		Success: true,
		Message: fmt.Sprintf("processed %d missed payments", len(winners)),
		Details: details,
	}, nil
}

// reapOne executa a cadeia de um vencedor inadimplente:
// 1. Transição condicional pending_payment -> payment_missed (zero linhas
//    afetadas = outra execução já rebaixou; não re-notifica nem re-promove)
// 2. Notificação payment_missed pro usuário rebaixado
// 3. Promoção do próximo lance elegível com prazo novo
// Os passos 2 e 3 são tentados mesmo se um anterior da cadeia falhar.
func (r *Reaper) reapOne(ctx context.Context, now time.Time, w repo.Winner) ReapOutcome {
	out := ReapOutcome{WinnerID: w.ID, AuctionID: w.AuctionID, UserID: w.UserID, Deadline: w.PaymentDeadline}

	missed, err := r.Store.MarkPaymentMissed(ctx, w.ID)
	if err != nil {
		r.errStage("transition")
		r.Log.Error("payment_missed transition failed", zap.String("winnerId", w.ID), zap.Error(err))
		out.Success = false
		out.Message = fmt.Sprintf("failed to mark payment missed: %v", err)
		return out
	}
	if !missed {
		// outra passada do reaper já rebaixou esse vencedor
		out.Success = true
		out.Message = "already transitioned, skipped"
		return out
	}
	out.Missed = true
	if r.OnMissed != nil {
		r.OnMissed()
	}

	title, err := r.Store.AuctionTitle(ctx, w.AuctionID)
	if err != nil {
		r.errStage("title")
		r.Log.Warn("auction title fetch failed", zap.String("auctionId", w.AuctionID), zap.Error(err))
	}

	msg := fmt.Sprintf("You've missed the payment deadline for auction: %s. Your spot has been released.", title)
	if err := r.Store.CreateNotification(ctx, w.UserID, repo.NotificationTypePaymentMissed, msg); err != nil {
		r.errStage("notification_row")
		r.Log.Warn("notification insert failed", zap.String("userId", w.UserID), zap.Error(err))
	}

	out.Promoted = r.promoteNext(ctx, now, w.AuctionID, title)
	out.Success = true
	out.Message = "payment missed, spot released"
	return out
}

// promoteNext promove o maior lance ativo ainda sem registro de vencedor.
// Retorna nil quando não resta lance elegível (não é erro).
func (r *Reaper) promoteNext(ctx context.Context, now time.Time, auctionID, title string) *WinnerOutcome {
	bid, err := r.Store.NextEligibleBid(ctx, auctionID)
	if err != nil {
		r.errStage("promote")
		r.Log.Error("next eligible bid fetch failed", zap.String("auctionId", auctionID), zap.Error(err))
		return &WinnerOutcome{Success: false, Message: fmt.Sprintf("failed to find next bidder: %v", err)}
	}
	if bid == nil {
		return nil
	}

	out := createWinnerForBid(ctx, r.Log, r.Store, r.Notifier, *bid, now.Add(r.grace()), title, r.OnPromoted, r.errStage)
	return &out
}
