package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/auction-marketplace-poc/internal/auction/repo"
)

func newTestReaper(store *memStore, notifier Notifier) *Reaper {
	return &Reaper{Log: zap.NewNop(), Store: store, Notifier: notifier}
}

func TestReapExpiredPayments_MarksMissedAndPromotesNext(t *testing.T) {
	now := time.Now().UTC()
	store := newMemStore()
	store.addAuction("a1", "Premium Spots", 2, now.Add(-48*time.Hour))
	b1 := store.addBid("a1", "u1", "100.00", now.Add(-50*time.Hour))
	b2 := store.addBid("a1", "u2", "100.00", now.Add(-49*time.Hour))
	store.addBid("a1", "u3", "90.00", now.Add(-48*time.Hour))

	// u1 estourou o prazo; u2 ainda dentro do dele
	w1 := store.addWinner("a1", "u1", b1, now.Add(-time.Hour))
	store.addWinner("a1", "u2", b2, now.Add(time.Hour))

	notifier := newStubNotifier(store)
	reaper := newTestReaper(store, notifier)

	res, err := reaper.ReapExpiredPayments(context.Background(), now)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Details, 1)

	out := res.Details[0]
	assert.Equal(t, w1, out.WinnerID)
	assert.True(t, out.Missed)
	assert.True(t, out.Success)

	// u1 rebaixado (linha preservada pra auditoria), u2 intocado
	assert.Equal(t, repo.WinnerStatusPaymentMissed, store.winnerByID(w1).Status)
	winners := store.winnersOf("a1")
	require.Len(t, winners, 3, "promoção cria registro novo em vez de mutar o rebaixado")

	// u3 promovido com prazo novo a partir do reap
	require.NotNil(t, out.Promoted)
	assert.Equal(t, "u3", out.Promoted.UserID)
	assert.True(t, out.Promoted.Created)
	assert.Equal(t, now.Add(PaymentGracePeriod), out.Promoted.PaymentDeadline)

	promoted := store.winnerByID(out.Promoted.WinnerID)
	require.NotNil(t, promoted)
	assert.Equal(t, repo.WinnerStatusPendingPayment, promoted.Status)

	// notificações: payment_missed pro u1, winner pro u3
	missedOf := store.notificationsOf("u1")
	require.Len(t, missedOf, 1)
	assert.Equal(t, repo.NotificationTypePaymentMissed, missedOf[0].Type)
	assert.Contains(t, missedOf[0].Message, "Premium Spots")

	assert.ElementsMatch(t, []string{"u3"}, notifier.notified)
}

func TestReapExpiredPayments_NoEligibleBidMeansNoPromotion(t *testing.T) {
	now := time.Now().UTC()
	store := newMemStore()
	store.addAuction("a1", "Single Bidder", 1, now.Add(-48*time.Hour))
	b1 := store.addBid("a1", "u1", "100.00", now.Add(-50*time.Hour))
	store.addWinner("a1", "u1", b1, now.Add(-time.Hour))

	reaper := newTestReaper(store, newStubNotifier(store))
	res, err := reaper.ReapExpiredPayments(context.Background(), now)
	require.NoError(t, err)

	out := res.Details[0]
	assert.True(t, out.Success, "sem lance elegível não é erro")
	assert.Nil(t, out.Promoted)
	assert.Len(t, store.winnersOf("a1"), 1)
}

func TestReapExpiredPayments_TransitionIsExactlyOnce(t *testing.T) {
	now := time.Now().UTC()
	store := newMemStore()
	store.addAuction("a1", "Raced Reap", 1, now.Add(-48*time.Hour))
	b1 := store.addBid("a1", "u1", "100.00", now.Add(-50*time.Hour))
	store.addBid("a1", "u2", "80.00", now.Add(-49*time.Hour))
	w1 := store.addWinner("a1", "u1", b1, now.Add(-time.Hour))

	// outra passada do reaper rebaixa o vencedor entre a listagem e o update
	store.afterReapList = func() {
		store.winnerByID(w1).Status = repo.WinnerStatusPaymentMissed
	}

	notifier := newStubNotifier(store)
	reaper := newTestReaper(store, notifier)

	res, err := reaper.ReapExpiredPayments(context.Background(), now)
	require.NoError(t, err)

	out := res.Details[0]
	assert.True(t, out.Success)
	assert.False(t, out.Missed)
	assert.Equal(t, "already transitioned, skipped", out.Message)
	assert.Nil(t, out.Promoted, "quem perde a transição não promove")
	assert.Empty(t, store.notificationsOf("u1"), "quem perde a transição não re-notifica")
	assert.Empty(t, notifier.notified)
}

func TestReapExpiredPayments_SecondRunFindsNothing(t *testing.T) {
	now := time.Now().UTC()
	store := newMemStore()
	store.addAuction("a1", "Reap Twice", 1, now.Add(-48*time.Hour))
	b1 := store.addBid("a1", "u1", "100.00", now.Add(-50*time.Hour))
	store.addBid("a1", "u2", "80.00", now.Add(-49*time.Hour))
	store.addWinner("a1", "u1", b1, now.Add(-time.Hour))

	reaper := newTestReaper(store, newStubNotifier(store))

	res, err := reaper.ReapExpiredPayments(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, res.Details, 1)
	require.True(t, res.Details[0].Missed)

	// o promovido tem prazo futuro; nada mais vencido
	res, err = reaper.ReapExpiredPayments(context.Background(), now)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "no missed payments to process", res.Message)
	assert.Len(t, store.notificationsOf("u1"), 1, "segunda passada não duplica notificação")
}

func TestReapExpiredPayments_PromotedUserNeverDuplicated(t *testing.T) {
	now := time.Now().UTC()
	store := newMemStore()
	store.addAuction("a1", "No Dup Promotion", 2, now.Add(-48*time.Hour))
	b1 := store.addBid("a1", "u1", "100.00", now.Add(-50*time.Hour))
	b2 := store.addBid("a1", "u2", "95.00", now.Add(-49*time.Hour))
	w1 := store.addWinner("a1", "u1", b1, now.Add(-time.Hour))
	store.addWinner("a1", "u2", b2, now.Add(time.Hour))

	reaper := newTestReaper(store, newStubNotifier(store))
	res, err := reaper.ReapExpiredPayments(context.Background(), now)
	require.NoError(t, err)

	// u2 já é vencedor; u1 rebaixado não volta; não há terceiro lance
	out := res.Details[0]
	assert.Equal(t, w1, out.WinnerID)
	assert.Nil(t, out.Promoted)
	assert.Len(t, store.winnersOf("a1"), 2)
}

func TestReapExpiredPayments_FailureIsIsolated(t *testing.T) {
	now := time.Now().UTC()
	store := newMemStore()
	store.addAuction("a1", "Half Broken", 2, now.Add(-48*time.Hour))
	b1 := store.addBid("a1", "u1", "100.00", now.Add(-50*time.Hour))
	b2 := store.addBid("a1", "u2", "95.00", now.Add(-49*time.Hour))
	w1 := store.addWinner("a1", "u1", b1, now.Add(-time.Hour))
	w2 := store.addWinner("a1", "u2", b2, now.Add(-time.Hour))
	store.failMissed[w1] = errors.New("deadlock detected")

	reaper := newTestReaper(store, newStubNotifier(store))
	res, err := reaper.ReapExpiredPayments(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, res.Details, 2)

	byID := map[string]ReapOutcome{}
	for _, o := range res.Details {
		byID[o.WinnerID] = o
	}
	assert.False(t, byID[w1].Success)
	assert.Contains(t, byID[w1].Message, "deadlock detected")
	assert.True(t, byID[w2].Success)
	assert.Equal(t, repo.WinnerStatusPaymentMissed, store.winnerByID(w2).Status)
}
