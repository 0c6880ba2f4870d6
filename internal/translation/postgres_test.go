package translation

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func TestCreate_StampsIDAndStatus(t *testing.T) {
	db := &mockDB{queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
		return &mockRow{scanFunc: func(dest ...any) error {
			*dest[0].(*int64) = 42
			*dest[1].(*time.Time) = time.Now()
			*dest[2].(*time.Time) = time.Now()
			return nil
		}}
	}}
	s := NewPostgresStore(db)

	rec := &Record{
		UserID:         "u1",
		Direction:      DirectionFromSign,
		OutputType:     "text",
		SourceLanguage: "ase",
		Mode:           ModeStreaming,
	}
	require.NoError(t, s.Create(context.Background(), rec))
	assert.Equal(t, int64(42), rec.ID)
	assert.Equal(t, StatusProcessing, rec.Status)
}

func TestComplete_Success(t *testing.T) {
	var gotText, gotURL string
	db := &mockDB{queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
		gotText = args[1].(string)
		gotURL = args[2].(string)
		return &mockRow{scanFunc: func(dest ...any) error {
			*dest[0].(*int64) = args[0].(int64)
			return nil
		}}
	}}
	s := NewPostgresStore(db)

	err := s.Complete(context.Background(), 7, "hello world", "")
	require.NoError(t, err)
	assert.Equal(t, "hello world", gotText)
	assert.Equal(t, "", gotURL)
}

func TestComplete_NotFound(t *testing.T) {
	db := &mockDB{queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
		return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
	}}
	s := NewPostgresStore(db)

	err := s.Complete(context.Background(), 99, "x", "")
	require.Error(t, err)
}

func TestFail_RecordsErrorMessage(t *testing.T) {
	var gotMsg string
	db := &mockDB{queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
		gotMsg = args[1].(string)
		return &mockRow{scanFunc: func(dest ...any) error {
			*dest[0].(*int64) = 1
			return nil
		}}
	}}
	s := NewPostgresStore(db)

	require.NoError(t, s.Fail(context.Background(), 1, "cv unreachable"))
	assert.Equal(t, "cv unreachable", gotMsg)
}

func TestGet_NotFound(t *testing.T) {
	db := &mockDB{}
	s := NewPostgresStore(db)

	rec, err := s.Get(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGet_Found(t *testing.T) {
	now := time.Now()
	db := &mockDB{queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
		return &mockRow{scanFunc: func(dest ...any) error {
			*dest[0].(*int64) = 5
			*dest[1].(*string) = "u1"
			*dest[2].(*string) = "from_sign"
			*dest[3].(*string) = ""
			*dest[4].(*string) = "text"
			*dest[5].(*Status) = StatusCompleted
			*dest[6].(*string) = ""
			*dest[7].(*string) = "hello"
			*dest[8].(*string) = ""
			*dest[9].(*string) = "ase"
			*dest[10].(*string) = "streaming"
			*dest[11].(*time.Time) = now
			*dest[12].(**time.Time) = &now
			*dest[13].(**time.Time) = &now
			*dest[14].(*string) = ""
			return nil
		}}
	}}
	s := NewPostgresStore(db)

	rec, err := s.Get(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, DirectionFromSign, rec.Direction)
	assert.Equal(t, ModeStreaming, rec.Mode)
	assert.Equal(t, "hello", rec.OutputText)
}
