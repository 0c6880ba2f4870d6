// Package wallet implements the per-user credit wallet: a persisted monthly
// balance that every streaming translation request consumes against, with a
// transactional append-only transaction log.
package wallet

import (
	"errors"
	"time"
)

// FreePlanCreditsPerMonth is the credit allowance of the 'free' plan, which
// every wallet is attached to the first time a user is seen; no other plan is
// looked up.
const FreePlanCreditsPerMonth = 100

// ResetInterval is how long a wallet's credits_used accrues before the
// monthly reset zeroes it.
const ResetInterval = 30 * 24 * time.Hour

// ErrInsufficientCredits is returned by Consume when a user's remaining
// balance is less than the amount requested.
var ErrInsufficientCredits = errors.New("wallet: insufficient credits")

// TransactionKind distinguishes a debit from a credit in the transaction log.
type TransactionKind string

const (
	TransactionUsed   TransactionKind = "used"
	TransactionEarned TransactionKind = "earned"
)

// Wallet is a user's persisted credit balance.
type Wallet struct {
	UserID          string
	Plan            string
	CreditsPerMonth int
	CreditsUsed     int
	BonusCredits    int
	LastResetAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Remaining returns the credits left to spend this period. It does not apply
// reset-if-needed; callers reading through [Store] always get a wallet whose
// reset has already been folded in by the store.
func (w Wallet) Remaining() int {
	r := w.CreditsPerMonth + w.BonusCredits - w.CreditsUsed
	if r < 0 {
		return 0
	}
	return r
}

// CreditTransaction is an append-only log row recording a single balance
// mutation.
type CreditTransaction struct {
	ID        int64
	UserID    string
	Kind      TransactionKind
	Amount    int
	Reason    string
	CreatedAt time.Time
}
