package session

import "errors"

// ErrQuotaExceeded is returned by StartTranslation when the session has
// already reached MAX_REQUESTS_PER_SESSION starts. The transport maps this
// to a 4011 close.
var ErrQuotaExceeded = errors.New("session: request quota exceeded")

// ErrInsufficientCredits is returned by StartTranslation when the user's
// wallet cannot afford the one-credit cost of a translation. The transport
// sends an inline error message and the session remains Idle.
var ErrInsufficientCredits = errors.New("session: insufficient credits")

// ErrAlreadyRunning is returned by StartTranslation when the session is not
// Idle. Per the error taxonomy this is a no-op, silently ignored by callers
// that treat it as idempotent.
var ErrAlreadyRunning = errors.New("session: translation already running")

// ErrNotRunning is returned by StopTranslation when the session is not
// Running. Also treated as an idempotent no-op by callers.
var ErrNotRunning = errors.New("session: no translation running")

// ErrClosed is returned by any transition attempted on a Closed session.
var ErrClosed = errors.New("session: closed")
