package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Ledger persists currency awards.
type Ledger interface {
	// AwardBulk credits amountEach to every user in a single request.
	AwardBulk(ctx context.Context, userIDs []string, amountEach int64, source string) error
}

// Transaction is one credit written to the ledger. Credits written by the
// same settlement share a BatchID.
type Transaction struct {
	ID        uuid.UUID `json:"id"`
	Amount    int64     `json:"amount"`
	Source    string    `json:"source"`
	BatchID   uuid.UUID `json:"batch_id"`
	CreatedAt time.Time `json:"created_at"`
}
