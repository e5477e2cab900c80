package settlement

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/radieske/auction-marketplace-poc/internal/auction/repo"
)

// memStore implementa Store em memória pros testes do engine e do reaper,
// com a mesma semântica condicional do repositório Postgres.
type memStore struct {
	mu            sync.Mutex
	auctions      map[string]*repo.Auction
	bids          []repo.Bid
	winners       []*repo.Winner
	notifications []repo.Notification

	// injeção de falhas por estágio
	failTopBids   map[string]error
	failClaim     map[string]error
	failMissed    map[string]error
	failPromote   error
	afterList     func() // simula execução concorrente entre a listagem e o claim
	afterReapList func()
}

func newMemStore() *memStore {
	return &memStore{
		auctions:    make(map[string]*repo.Auction),
		failTopBids: make(map[string]error),
		failClaim:   make(map[string]error),
		failMissed:  make(map[string]error),
	}
}

func (m *memStore) addAuction(id, title string, maxSpots int, endsAt time.Time) {
	m.auctions[id] = &repo.Auction{
		ID: id, Title: title, MaxSpots: maxSpots, EndsAt: endsAt,
		Status: repo.AuctionStatusActive,
	}
}

func (m *memStore) addBid(auctionID, userID, amount string, at time.Time) string {
	id := uuid.NewString()
	m.bids = append(m.bids, repo.Bid{
		ID: id, AuctionID: auctionID, UserID: userID,
		Amount: decimal.RequireFromString(amount), Status: repo.BidStatusActive, CreatedAt: at,
	})
	return id
}

func (m *memStore) addWinner(auctionID, userID, bidID string, deadline time.Time) string {
	id := uuid.NewString()
	m.winners = append(m.winners, &repo.Winner{
		ID: id, AuctionID: auctionID, UserID: userID, WinningBidID: bidID,
		PaymentDeadline: deadline, Status: repo.WinnerStatusPendingPayment,
	})
	return id
}

func (m *memStore) winnerByID(id string) *repo.Winner {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.winners {
		if w.ID == id {
			return w
		}
	}
	return nil
}

func (m *memStore) winnersOf(auctionID string) []repo.Winner {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.Winner
	for _, w := range m.winners {
		if w.AuctionID == auctionID {
			out = append(out, *w)
		}
	}
	return out
}

func (m *memStore) notificationsOf(userID string) []repo.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repo.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (m *memStore) ExpiredUnprocessedAuctions(_ context.Context, now time.Time) ([]repo.Auction, error) {
	m.mu.Lock()
	var out []repo.Auction
	for _, a := range m.auctions {
		if a.EndsAt.Before(now) && !a.WinnersProcessed {
			out = append(out, *a)
		}
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if m.afterList != nil {
		m.afterList()
	}
	return out, nil
}

func (m *memStore) ClaimAuction(_ context.Context, auctionID string) (bool, error) {
	if err := m.failClaim[auctionID]; err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[auctionID]
	if !ok || a.WinnersProcessed {
		return false, nil
	}
	a.WinnersProcessed = true
	a.Status = repo.AuctionStatusEnded
	return true, nil
}

// rankedBids ordena por valor decrescente com desempate pelo lance mais antigo
func (m *memStore) rankedBids(auctionID string) []repo.Bid {
	var out []repo.Bid
	for _, b := range m.bids {
		if b.AuctionID == auctionID && b.Status == repo.BidStatusActive {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *memStore) TopActiveBids(_ context.Context, auctionID string, limit int) ([]repo.Bid, error) {
	if err := m.failTopBids[auctionID]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.rankedBids(auctionID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CreateWinner(_ context.Context, w *repo.Winner) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.winners {
		if existing.AuctionID == w.AuctionID && existing.UserID == w.UserID {
			return false, nil
		}
	}
	w.ID = uuid.NewString()
	w.Status = repo.WinnerStatusPendingPayment
	cp := *w
	m.winners = append(m.winners, &cp)
	return true, nil
}

func (m *memStore) ExpiredPendingWinners(_ context.Context, now time.Time) ([]repo.Winner, error) {
	m.mu.Lock()
	var out []repo.Winner
	for _, w := range m.winners {
		if w.Status == repo.WinnerStatusPendingPayment && w.PaymentDeadline.Before(now) {
			out = append(out, *w)
		}
	}
	m.mu.Unlock()
	if m.afterReapList != nil {
		m.afterReapList()
	}
	return out, nil
}

func (m *memStore) MarkPaymentMissed(_ context.Context, winnerID string) (bool, error) {
	if err := m.failMissed[winnerID]; err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.winners {
		if w.ID == winnerID && w.Status == repo.WinnerStatusPendingPayment {
			w.Status = repo.WinnerStatusPaymentMissed
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) NextEligibleBid(_ context.Context, auctionID string) (*repo.Bid, error) {
	if m.failPromote != nil {
		return nil, m.failPromote
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rankedBids(auctionID) {
		taken := false
		for _, w := range m.winners {
			if w.AuctionID == auctionID && w.UserID == b.UserID {
				taken = true
				break
			}
		}
		if !taken {
			bid := b
			return &bid, nil
		}
	}
	return nil, nil
}

func (m *memStore) AuctionTitle(_ context.Context, auctionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[auctionID]
	if !ok {
		return "", repo.ErrNotFound
	}
	return a.Title, nil
}

func (m *memStore) CreateNotification(_ context.Context, userID, ntype, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, repo.Notification{
		ID: uuid.NewString(), UserID: userID, Type: ntype, Message: message, CreatedAt: time.Now(),
	})
	return nil
}

// stubNotifier registra entregas e permite injetar falha por usuário
type stubNotifier struct {
	mu        sync.Mutex
	store     *memStore
	notified  []string // userIDs na ordem de entrega
	failUsers map[string]error
}

func newStubNotifier(store *memStore) *stubNotifier {
	return &stubNotifier{store: store, failUsers: make(map[string]error)}
}

func (n *stubNotifier) Notify(_ context.Context, winnerID string) error {
	w := n.store.winnerByID(winnerID)
	if w == nil {
		return fmt.Errorf("winner %s not found", winnerID)
	}
	if err := n.failUsers[w.UserID]; err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, w.UserID)
	return nil
}
