package settlement

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/auction-marketplace-poc/internal/auction/repo"
)

// Engine detecta leilões encerrados, faz o claim exactly-once de cada um,
// seleciona os vencedores e dispara as notificações.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa.
type Engine struct {
	Log      *zap.Logger
	Store    Store
	Notifier Notifier
	Grace    time.Duration // prazo de pagamento; PaymentGracePeriod quando zero

	OnClaimed func()       // métricas (counter++)
	OnWinner  func()       // métricas
	OnError   func(string) // métricas por fase
}

func (e *Engine) grace() time.Duration {
	if e.Grace > 0 {
		return e.Grace
	}
	return PaymentGracePeriod
}

func (e *Engine) errStage(stage string) {
	if e.OnError != nil {
		e.OnError(stage)
	}
}

// SettleExpiredAuctions liquida todos os leilões com ends_at anterior a now
// que ainda não foram processados. Cada leilão é isolado: falha em um não
// aborta os demais, e o resultado agregado carrega o desfecho de cada item.
func (e *Engine) SettleExpiredAuctions(ctx context.Context, now time.Time) (BatchResult, error) {
	auctions, err := e.Store.ExpiredUnprocessedAuctions(ctx, now)
	if err != nil {
		e.errStage("list")
		return BatchResult{Success: false, Message: "failed to fetch ended auctions"},
			fmt.Errorf("fetch ended auctions: %w", err)
	}

	if len(auctions) == 0 {
		return BatchResult{Success: true, Message: "no ended auctions to process"}, nil
	}

	e.Log.Info("settling ended auctions", zap.Int("count", len(auctions)))

	results := make([]AuctionResult, 0, len(auctions))
	for _, a := range auctions {
		results = append(results, e.settleOne(ctx, now, a))
	}

	return BatchResult{
		Success: true,
		Message: fmt.Sprintf("processed %d auctions", len(auctions)),
		Details: results,
	}, nil
}

// settleOne executa o fluxo de liquidação de um leilão:
// 1. Claim condicional do leilão (zero linhas afetadas = outra execução chegou antes)
// 2. Ranking dos lances ativos por valor, desempate pelo mais antigo
// 3. Upsert idempotente de vencedor pra cada lance selecionado
// 4. Dispatch best-effort da notificação de cada vencedor novo
func (e *Engine) settleOne(ctx context.Context, now time.Time, a repo.Auction) AuctionResult {
	claimed, err := e.Store.ClaimAuction(ctx, a.ID)
	if err != nil {
		e.errStage("claim")
		e.Log.Error("auction claim failed", zap.String("auctionId", a.ID), zap.Error(err))
		return AuctionResult{AuctionID: a.ID, Success: false, Message: fmt.Sprintf("failed to claim auction: %v", err)}
	}
	if !claimed {
		// outra invocação concorrente já processou esse leilão
		return AuctionResult{AuctionID: a.ID, Success: true, Message: "already claimed, skipped"}
	}
	if e.OnClaimed != nil {
		e.OnClaimed()
	}

	bids, err := e.Store.TopActiveBids(ctx, a.ID, a.MaxSpots)
	if err != nil {
		e.errStage("rank")
		e.Log.Error("top bids fetch failed", zap.String("auctionId", a.ID), zap.Error(err))
		return AuctionResult{AuctionID: a.ID, Title: a.Title, Claimed: true, Success: false, Message: fmt.Sprintf("failed to fetch top bids: %v", err)}
	}

	if len(bids) == 0 {
		// leilão sem lance qualificado ainda conta como processado
		return AuctionResult{AuctionID: a.ID, Title: a.Title, Claimed: true, Success: true, Message: "no qualifying bids found"}
	}

	deadline := now.Add(e.grace())
	winners := make([]WinnerOutcome, 0, len(bids))
	for _, bid := range bids {
		winners = append(winners, createWinnerForBid(ctx, e.Log, e.Store, e.Notifier, bid, deadline, a.Title, e.OnWinner, e.errStage))
	}

	return AuctionResult{
		AuctionID: a.ID,
		Title:     a.Title,
		Claimed:   true,
		Success:   true,
		Message:   fmt.Sprintf("processed %d winners", len(winners)),
		Winners:   winners,
	}
}

// createWinnerForBid cria o registro de vencedor pra um lance e dispara a
// notificação. Compartilhado entre o engine (seleção inicial) e o reaper
// (promoção do próximo colocado).
// Conflito na chave (auction_id, user_id) é sucesso: retry idempotente.
// Falha de notificação nunca derruba o registro do vencedor.
func createWinnerForBid(
	ctx context.Context,
	log *zap.Logger,
	st Store,
	nt Notifier,
	bid repo.Bid,
	deadline time.Time,
	auctionTitle string,
	onWinner func(),
	errStage func(string),
) WinnerOutcome {
	w := repo.Winner{
		AuctionID:       bid.AuctionID,
		UserID:          bid.UserID,
		WinningBidID:    bid.ID,
		PaymentDeadline: deadline,
	}

	created, err := st.CreateWinner(ctx, &w)
	if err != nil {
		errStage("winner_insert")
		log.Error("winner insert failed",
			zap.String("auctionId", bid.AuctionID),
			zap.String("userId", bid.UserID),
			zap.Error(err),
		)
		return WinnerOutcome{
			UserID:  bid.UserID,
			BidID:   bid.ID,
			Success: false,
			Message: fmt.Sprintf("failed to create winner entry: %v", err),
		}
	}

	if !created {
		return WinnerOutcome{
			UserID:  bid.UserID,
			BidID:   bid.ID,
			Success: true,
			Message: "winner already recorded",
		}
	}

	if onWinner != nil {
		onWinner()
	}

	out := WinnerOutcome{
		WinnerID:        w.ID,
		UserID:          bid.UserID,
		BidID:           bid.ID,
		Amount:          bid.Amount.StringFixed(2),
		PaymentDeadline: deadline,
		Created:         true,
		Success:         true,
		Message:         "winner created successfully",
	}

	if nt != nil {
		if nerr := nt.Notify(ctx, w.ID); nerr != nil {
			errStage("notify")
			log.Warn("winner notification failed",
				zap.String("winnerId", w.ID),
				zap.String("userId", bid.UserID),
				zap.Error(nerr),
			)
			out.NotifyError = nerr.Error()
		} else {
			out.Notified = true
		}
	}

	msg := fmt.Sprintf("You've won a spot in the auction: %s. Please complete your payment by %s.",
		auctionTitle, deadline.Format("Monday, January 2, 2006 at 15:04"))
	if err := st.CreateNotification(ctx, bid.UserID, repo.NotificationTypeWinner, msg); err != nil {
		errStage("notification_row")
		log.Warn("notification insert failed", zap.String("userId", bid.UserID), zap.Error(err))
	}

	return out
}
