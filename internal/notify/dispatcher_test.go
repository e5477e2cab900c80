package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/auction-marketplace-poc/internal/auction/repo"
)

type fakeStore struct {
	details       map[string]repo.WinnerDetails
	detailsErr    error
	notifications []repo.Notification
	notifErr      error
}

func (f *fakeStore) WinnerDetails(_ context.Context, winnerID string) (repo.WinnerDetails, error) {
	if f.detailsErr != nil {
		return repo.WinnerDetails{}, f.detailsErr
	}
	d, ok := f.details[winnerID]
	if !ok {
		return repo.WinnerDetails{}, repo.ErrNotFound
	}
	return d, nil
}

func (f *fakeStore) CreateNotification(_ context.Context, userID, ntype, message string) error {
	if f.notifErr != nil {
		return f.notifErr
	}
	f.notifications = append(f.notifications, repo.Notification{UserID: userID, Type: ntype, Message: message})
	return nil
}

type fakePayments struct {
	url   string
	err   error
	calls []string
}

func (f *fakePayments) CreateSession(_ context.Context, bidID string) (string, error) {
	f.calls = append(f.calls, bidID)
	return f.url, f.err
}

type sentMail struct {
	to, subject, html string
}

type fakeMailer struct {
	err  error
	sent []sentMail
}

func (f *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

func details() repo.WinnerDetails {
	return repo.WinnerDetails{
		WinnerID:        "w1",
		AuctionID:       "a1",
		UserID:          "u1",
		WinningBidID:    "b1",
		PaymentDeadline: time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC),
		AuctionTitle:    "Homepage Spots",
		Username:        "alice",
		Email:           "alice@example.com",
		Amount:          decimal.RequireFromString("125.50"),
	}
}

func newTestDispatcher(st *fakeStore, pay *fakePayments, mail *fakeMailer) *Dispatcher {
	return &Dispatcher{Log: zap.NewNop(), Store: st, Payments: pay, Mail: mail}
}

func TestNotify_SendsEmailWithPaymentLink(t *testing.T) {
	st := &fakeStore{details: map[string]repo.WinnerDetails{"w1": details()}}
	pay := &fakePayments{url: "https://checkout.local/session/abc"}
	mail := &fakeMailer{}

	d := newTestDispatcher(st, pay, mail)
	require.NoError(t, d.Notify(context.Background(), "w1"))

	require.Equal(t, []string{"b1"}, pay.calls, "sessão de pagamento é criada pelo lance vencedor")
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "alice@example.com", mail.sent[0].to)
	assert.Contains(t, mail.sent[0].subject, "Homepage Spots")
	assert.Contains(t, mail.sent[0].html, "https://checkout.local/session/abc")
	assert.Contains(t, mail.sent[0].html, "125.50")
	assert.Contains(t, mail.sent[0].html, "Saturday, March 14, 2026 at 18:30")

	require.Len(t, st.notifications, 1)
	assert.Equal(t, repo.NotificationTypeAuctionWin, st.notifications[0].Type)
	assert.Equal(t, "u1", st.notifications[0].UserID)
}

func TestNotify_MissingEmailIsReportedNotThrown(t *testing.T) {
	det := details()
	det.Email = ""
	st := &fakeStore{details: map[string]repo.WinnerDetails{"w1": det}}
	pay := &fakePayments{url: "https://x"}
	mail := &fakeMailer{}

	d := newTestDispatcher(st, pay, mail)
	err := d.Notify(context.Background(), "w1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoEmail))
	assert.Empty(t, pay.calls, "sem destinatário não cria sessão")
	assert.Empty(t, mail.sent)
	assert.Empty(t, st.notifications)
}

func TestNotify_PaymentSessionFailureSkipsEmail(t *testing.T) {
	st := &fakeStore{details: map[string]repo.WinnerDetails{"w1": details()}}
	pay := &fakePayments{err: errors.New("checkout session http 503")}
	mail := &fakeMailer{}

	d := newTestDispatcher(st, pay, mail)
	err := d.Notify(context.Background(), "w1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create payment session")
	assert.Empty(t, mail.sent, "sem link de pagamento não há e-mail acionável")
	assert.Empty(t, st.notifications)
}

func TestNotify_TransportFailureIsReported(t *testing.T) {
	st := &fakeStore{details: map[string]repo.WinnerDetails{"w1": details()}}
	pay := &fakePayments{url: "https://x"}
	mail := &fakeMailer{err: errors.New("mail send http 502")}

	d := newTestDispatcher(st, pay, mail)
	err := d.Notify(context.Background(), "w1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send winner email")
	assert.Empty(t, st.notifications, "linha de notificação só depois do envio")
}

func TestNotify_NotificationRowFailureIsSwallowed(t *testing.T) {
	st := &fakeStore{
		details:  map[string]repo.WinnerDetails{"w1": details()},
		notifErr: errors.New("insert failed"),
	}
	pay := &fakePayments{url: "https://x"}
	mail := &fakeMailer{}

	d := newTestDispatcher(st, pay, mail)
	require.NoError(t, d.Notify(context.Background(), "w1"), "e-mail já saiu; a linha de notificação é best-effort")
	assert.Len(t, mail.sent, 1)
}

func TestNotify_UnknownWinner(t *testing.T) {
	st := &fakeStore{details: map[string]repo.WinnerDetails{}}
	d := newTestDispatcher(st, &fakePayments{url: "https://x"}, &fakeMailer{})

	err := d.Notify(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repo.ErrNotFound))
}
