package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/RockGamerAK/Economy-Fun-Bot/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

// Ledger implements domain.Ledger on top of the balances and
// currency_transactions tables.
type Ledger struct {
	pool  *pgxpool.Pool
	clock clockwork.Clock
}

func NewLedger(pool *pgxpool.Pool, clock clockwork.Clock) *Ledger {
	return &Ledger{pool: pool, clock: clock}
}

// Repeated ids are credited once per occurrence.
const creditBalancesSQL = `
INSERT INTO balances (user_id, balance, updated_at)
SELECT u, count(*) * $2::bigint, $3
FROM unnest($1::text[]) AS u
GROUP BY u
ON CONFLICT (user_id) DO UPDATE
SET balance = balances.balance + EXCLUDED.balance,
    updated_at = EXCLUDED.updated_at`

var transactionColumns = []string{"id", "user_id", "amount", "source", "batch_id", "created_at"}

// AwardBulk credits amountEach to every user and writes one transaction row
// per user, all in a single database transaction.
func (l *Ledger) AwardBulk(ctx context.Context, userIDs []string, amountEach int64, source string) error {
	if len(userIDs) == 0 {
		return nil
	}
	if amountEach <= 0 {
		return domain.ErrInvalidAmount
	}

	batchID := uuid.New()
	now := l.clock.Now().UTC()

	err := pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, creditBalancesSQL, userIDs, amountEach, now); err != nil {
			return fmt.Errorf("failed to credit balances: %w", err)
		}

		rows := make([][]any, len(userIDs))
		for i, userID := range userIDs {
			rows[i] = []any{uuid.New(), userID, amountEach, source, batchID, now}
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"currency_transactions"}, transactionColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to record transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("award bulk (batch %s): %w", batchID, err)
	}
	return nil
}

// Balance returns the user's balance, zero if they were never credited.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := l.pool.QueryRow(ctx, `SELECT balance FROM balances WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// History returns the user's most recent transactions, newest first.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, amount, source, batch_id, created_at
		FROM currency_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		var t domain.Transaction
		err := row.Scan(&t.ID, &t.Amount, &t.Source, &t.BatchID, &t.CreatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}
	return history, nil
}
