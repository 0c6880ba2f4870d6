package translation

import "context"

// Store persists TranslationRecord rows. Implementations must be safe for
// concurrent use. The streaming session never reads a record back after
// creation; Get exists for history/inspection callers only.
type Store interface {
	// Create inserts rec in StatusProcessing, stamping ID, CreatedAt, and
	// StartedAt.
	Create(ctx context.Context, rec *Record) error

	// Complete transitions a record to StatusCompleted, recording the final
	// output text/media and CompletedAt.
	Complete(ctx context.Context, id int64, outputText, outputMediaURL string) error

	// Fail transitions a record to StatusFailed, recording the error message
	// and CompletedAt.
	Fail(ctx context.Context, id int64, errMsg string) error

	// Get retrieves a record by ID. Returns (nil, nil) if not found.
	Get(ctx context.Context, id int64) (*Record, error)
}
