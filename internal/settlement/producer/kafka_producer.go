package producer

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/auction-marketplace-poc/internal/settlement"
	"github.com/radieske/auction-marketplace-poc/internal/shared/kafka"
	"github.com/radieske/auction-marketplace-poc/pkg/contracts/events"
)

// KafkaPublisher transforma resultados de liquidação/cobrança nos eventos do
// barramento. Publicação é best-effort: falha é logada e não afeta o batch,
// que já está persistido no banco.
type KafkaPublisher struct {
	Log     *zap.Logger
	Settled *kafka.Writer
	Winners *kafka.Writer
	Missed  *kafka.Writer
	DLQ     *kafka.Writer
}

// PublishSettleResult publica auction_settled pra cada leilão liquidado nesta
// execução e winner_selected pra cada vencedor novo; falhas de notificação vão
// pra DLQ de reenvio manual
func (p *KafkaPublisher) PublishSettleResult(ctx context.Context, res settlement.BatchResult) {
	now := time.Now()
	for _, ar := range res.Details {
		if !ar.Claimed || !ar.Success {
			continue
		}
		p.write(ctx, p.Settled, ar.AuctionID, events.AuctionSettled{
			AuctionID:   ar.AuctionID,
			Title:       ar.Title,
			WinnerCount: len(ar.Winners),
			SettledAt:   now,
		})
		for _, wo := range ar.Winners {
			p.publishWinner(ctx, ar.AuctionID, wo, false, now)
		}
	}
}

// PublishReapResult publica payment_missed pra cada vencedor rebaixado nesta
// execução e winner_selected (promoted) pra cada promoção
func (p *KafkaPublisher) PublishReapResult(ctx context.Context, res settlement.ReapResult) {
	now := time.Now()
	for _, ro := range res.Details {
		if !ro.Missed {
			continue
		}
		p.write(ctx, p.Missed, ro.WinnerID, events.PaymentMissed{
			WinnerID:  ro.WinnerID,
			AuctionID: ro.AuctionID,
			UserID:    ro.UserID,
			Deadline:  ro.Deadline,
			Ts:        now,
		})
		if ro.Promoted != nil {
			p.publishWinner(ctx, ro.AuctionID, *ro.Promoted, true, now)
		}
	}
}

func (p *KafkaPublisher) publishWinner(ctx context.Context, auctionID string, wo settlement.WinnerOutcome, promoted bool, now time.Time) {
	if !wo.Created {
		return
	}
	p.write(ctx, p.Winners, wo.WinnerID, events.WinnerSelected{
		WinnerID:        wo.WinnerID,
		AuctionID:       auctionID,
		UserID:          wo.UserID,
		WinningBidID:    wo.BidID,
		Amount:          wo.Amount,
		PaymentDeadline: wo.PaymentDeadline,
		Promoted:        promoted,
		Ts:              now,
	})
	if wo.NotifyError != "" && p.DLQ != nil {
		p.write(ctx, p.DLQ, wo.WinnerID, events.WinnerNotifyFailed{
			WinnerID: wo.WinnerID,
			UserID:   wo.UserID,
			Reason:   wo.NotifyError,
			Ts:       now,
		})
	}
}

func (p *KafkaPublisher) write(ctx context.Context, w *kafka.Writer, key string, payload any) {
	if w == nil {
		return
	}
	b, _ := json.Marshal(payload)
	if err := kafka.WriteJSON(ctx, w, key, b); err != nil {
		p.Log.Warn("event publish failed", zap.String("topic", w.Topic), zap.Error(err))
	}
}
