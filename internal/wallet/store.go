package wallet

import "context"

// Store provides transactional access to user credit wallets. Implementations
// must be safe for concurrent use and must serialize mutations per user.
type Store interface {
	// Remaining applies reset-if-needed and returns the user's spendable
	// balance. It provisions a wallet via GetOrProvision semantics if none
	// exists yet.
	Remaining(ctx context.Context, userID string) (int, error)

	// CanConsume reports whether the user can afford to spend n credits.
	CanConsume(ctx context.Context, userID string, n int) (bool, error)

	// Consume debits n credits from userID's balance and appends a "used"
	// transaction row, atomically. Returns ErrInsufficientCredits if the
	// user cannot afford it.
	Consume(ctx context.Context, userID string, n int, reason string) error

	// Reward credits n bonus credits to userID's balance and appends an
	// "earned" transaction row, atomically.
	Reward(ctx context.Context, userID string, n int, reason string) error

	// GetOrProvision returns the user's wallet, creating one attached to the
	// free plan with zero used/bonus credits if none exists yet.
	GetOrProvision(ctx context.Context, userID string) (*Wallet, error)
}
