// Package translation persists TranslationRecord rows: one per start...stop
// span within a streaming session, kept for history only and never read back
// by the streaming loop after creation.
package translation

import "time"

// Direction is the translation's input modality.
type Direction string

const (
	DirectionToSign   Direction = "to_sign"
	DirectionFromSign Direction = "from_sign"
)

// Status is the lifecycle state of a TranslationRecord.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Mode distinguishes a one-shot request from a streaming session span.
type Mode string

const (
	ModeBatch     Mode = "batch"
	ModeStreaming Mode = "streaming"
)

// Record is one persisted translation attempt.
type Record struct {
	ID            int64
	UserID        string
	Direction     Direction
	InputType     string
	OutputType    string
	Status        Status
	InputText     string
	OutputText    string
	OutputMediaURL string
	SourceLanguage string
	Mode          Mode
	CreatedAt     time.Time
	StartedAt     time.Time
	CompletedAt   time.Time
	ErrorMessage  string
}
