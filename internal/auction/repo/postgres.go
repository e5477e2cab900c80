package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Postgres implementa a persistência de leilões, lances, vencedores e
// notificações em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrNotFound      = errors.New("not found")
	ErrAuctionClosed = errors.New("auction closed")
)

// ExpiredUnprocessedAuctions retorna leilões com ends_at anterior a now e
// ainda não liquidados (winners_processed = false)
func (p *Postgres) ExpiredUnprocessedAuctions(ctx context.Context, now time.Time) ([]Auction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, title, max_spots, ends_at, status, winners_processed, created_at
		FROM auctions
		WHERE ends_at < $1 AND winners_processed = false`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Auction
	for rows.Next() {
		var a Auction
		if err := rows.Scan(&a.ID, &a.Title, &a.MaxSpots, &a.EndsAt, &a.Status, &a.WinnersProcessed, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ClaimAuction marca o leilão como liquidado de forma condicional.
// Retorna false quando outra execução já fez o claim (zero linhas afetadas);
// é esse update condicional que garante o processamento exactly-once.
func (p *Postgres) ClaimAuction(ctx context.Context, auctionID string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE auctions SET winners_processed = true, status = $1
		WHERE id = $2 AND winners_processed = false`,
		AuctionStatusEnded, auctionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TopActiveBids retorna os maiores lances ativos de um leilão, ordenados por
// valor decrescente com desempate pelo lance mais antigo
func (p *Postgres) TopActiveBids(ctx context.Context, auctionID string, limit int) ([]Bid, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, auction_id, user_id, amount, status, created_at
		FROM bids
		WHERE auction_id = $1 AND status = $2
		ORDER BY amount DESC, created_at ASC
		LIMIT $3`, auctionID, BidStatusActive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bid
	for rows.Next() {
		var b Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.UserID, &b.Amount, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateWinner insere um vencedor com chave de idempotência (auction_id, user_id).
// Conflito de chave única é tratado como no-op: retorna created=false sem erro.
func (p *Postgres) CreateWinner(ctx context.Context, w *Winner) (created bool, err error) {
	id := uuid.NewString()
	err = p.db.QueryRowContext(ctx, `
		INSERT INTO auction_winners (id, auction_id, user_id, winning_bid_id, payment_deadline, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (auction_id, user_id) DO NOTHING
		RETURNING id`,
		id, w.AuctionID, w.UserID, w.WinningBidID, w.PaymentDeadline, WinnerStatusPendingPayment,
	).Scan(&w.ID)
	if err == sql.ErrNoRows {
		return false, nil // já existe vencedor pra esse usuário nesse leilão
	}
	if err != nil {
		return false, err
	}
	w.Status = WinnerStatusPendingPayment
	return true, nil
}

// ExpiredPendingWinners retorna vencedores pending_payment com prazo vencido
func (p *Postgres) ExpiredPendingWinners(ctx context.Context, now time.Time) ([]Winner, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, auction_id, user_id, winning_bid_id, payment_deadline, status, created_at
		FROM auction_winners
		WHERE status = $1 AND payment_deadline < $2`,
		WinnerStatusPendingPayment, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Winner
	for rows.Next() {
		var w Winner
		if err := rows.Scan(&w.ID, &w.AuctionID, &w.UserID, &w.WinningBidID, &w.PaymentDeadline, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// MarkPaymentMissed transiciona um vencedor pending_payment para payment_missed.
// Condicional no status atual: retorna false se outra execução já transicionou.
func (p *Postgres) MarkPaymentMissed(ctx context.Context, winnerID string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE auction_winners SET status = $1
		WHERE id = $2 AND status = $3`,
		WinnerStatusPaymentMissed, winnerID, WinnerStatusPendingPayment)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkWinnerPaid confirma o pagamento de um vencedor (pending_payment -> paid)
func (p *Postgres) MarkWinnerPaid(ctx context.Context, winnerID string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE auction_winners SET status = $1
		WHERE id = $2 AND status = $3`,
		WinnerStatusPaid, winnerID, WinnerStatusPendingPayment)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NextEligibleBid retorna o maior lance ativo do leilão cujo usuário ainda não
// tem registro de vencedor, ou nil quando não resta lance elegível.
// Mesma ordenação e desempate de TopActiveBids.
func (p *Postgres) NextEligibleBid(ctx context.Context, auctionID string) (*Bid, error) {
	var b Bid
	err := p.db.QueryRowContext(ctx, `
		SELECT b.id, b.auction_id, b.user_id, b.amount, b.status, b.created_at
		FROM bids b
		WHERE b.auction_id = $1 AND b.status = $2
		  AND NOT EXISTS (
			SELECT 1 FROM auction_winners w
			WHERE w.auction_id = b.auction_id AND w.user_id = b.user_id
		  )
		ORDER BY b.amount DESC, b.created_at ASC
		LIMIT 1`, auctionID, BidStatusActive).
		Scan(&b.ID, &b.AuctionID, &b.UserID, &b.Amount, &b.Status, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// AuctionTitle retorna o título de um leilão
func (p *Postgres) AuctionTitle(ctx context.Context, auctionID string) (string, error) {
	var t string
	err := p.db.QueryRowContext(ctx, `SELECT title FROM auctions WHERE id = $1`, auctionID).Scan(&t)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return t, err
}

// CreateNotification insere uma notificação no sink append-only
func (p *Postgres) CreateNotification(ctx context.Context, userID, ntype, message string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, message)
		VALUES ($1, $2, $3, $4)`,
		uuid.NewString(), userID, ntype, message)
	return err
}

// WinnerDetails retorna a visão juntada usada pelo dispatcher: vencedor +
// título do leilão + contato do usuário + valor do lance vencedor
func (p *Postgres) WinnerDetails(ctx context.Context, winnerID string) (WinnerDetails, error) {
	var d WinnerDetails
	var username, email sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT w.id, w.auction_id, w.user_id, w.winning_bid_id, w.payment_deadline,
		       a.title, pr.username, pr.email, b.amount
		FROM auction_winners w
		JOIN auctions a ON a.id = w.auction_id
		JOIN bids b ON b.id = w.winning_bid_id
		LEFT JOIN profiles pr ON pr.user_id = w.user_id
		WHERE w.id = $1`, winnerID).
		Scan(&d.WinnerID, &d.AuctionID, &d.UserID, &d.WinningBidID, &d.PaymentDeadline,
			&d.AuctionTitle, &username, &email, &d.Amount)
	if err == sql.ErrNoRows {
		return WinnerDetails{}, ErrNotFound
	}
	if err != nil {
		return WinnerDetails{}, err
	}
	d.Username = username.String
	d.Email = email.String
	return d, nil
}

// ListAuctions retorna os leilões mais recentes para a listagem pública
func (p *Postgres) ListAuctions(ctx context.Context, limit int) ([]Auction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, title, max_spots, ends_at, status, winners_processed, created_at
		FROM auctions
		ORDER BY ends_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Auction
	for rows.Next() {
		var a Auction
		if err := rows.Scan(&a.ID, &a.Title, &a.MaxSpots, &a.EndsAt, &a.Status, &a.WinnersProcessed, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// HasStaleAuction indica se existe leilão vencido ainda não liquidado
// (usado pelo caminho de leitura pra disparar liquidação oportunista)
func (p *Postgres) HasStaleAuction(ctx context.Context, now time.Time) (bool, error) {
	var ok bool
	err := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM auctions WHERE ends_at < $1 AND winners_processed = false
		)`, now).Scan(&ok)
	return ok, err
}

// CreateBid registra um lance em leilão ativo, supersedendo o lance ativo
// anterior do mesmo usuário no mesmo leilão.
// Usa transação com lock na linha do leilão pra validar a janela de lances.
func (p *Postgres) CreateBid(ctx context.Context, auctionID, userID string, amount decimal.Decimal, now time.Time) (string, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var status string
	var endsAt time.Time
	err = tx.QueryRowContext(ctx, `SELECT status, ends_at FROM auctions WHERE id=$1 FOR UPDATE`, auctionID).
		Scan(&status, &endsAt)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if status != AuctionStatusActive || !endsAt.After(now) {
		return "", ErrAuctionClosed
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE bids SET status = $1
		WHERE auction_id = $2 AND user_id = $3 AND status = $4`,
		BidStatusSuperseded, auctionID, userID, BidStatusActive); err != nil {
		return "", err
	}

	id := uuid.NewString()
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bids (id, auction_id, user_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)`,
		id, auctionID, userID, amount, BidStatusActive); err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// ListWinners retorna os vencedores de um leilão (inclui payment_missed,
// preservando a trilha de auditoria)
func (p *Postgres) ListWinners(ctx context.Context, auctionID string) ([]Winner, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, auction_id, user_id, winning_bid_id, payment_deadline, status, created_at
		FROM auction_winners
		WHERE auction_id = $1
		ORDER BY created_at ASC`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Winner
	for rows.Next() {
		var w Winner
		if err := rows.Scan(&w.ID, &w.AuctionID, &w.UserID, &w.WinningBidID, &w.PaymentDeadline, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListNotifications retorna as notificações mais recentes de um usuário
func (p *Postgres) ListNotifications(ctx context.Context, userID string, limit int) ([]Notification, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, type, message, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
