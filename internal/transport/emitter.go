package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/tafahom/tafahom-stream/internal/observe"
	"github.com/tafahom/tafahom-stream/internal/session"
)

// writeTimeout bounds every outbound frame write so a stalled client cannot
// wedge the batch loop goroutine that calls Emit.
const writeTimeout = 5 * time.Second

// wsEmitter adapts a *websocket.Conn to session.Emitter: it serializes
// OutboundMessage values to JSON text frames and maps the spec's close-code
// taxonomy onto websocket.Conn.Close.
type wsEmitter struct {
	conn    *websocket.Conn
	logger  *slog.Logger
	metrics *observe.Metrics

	mu       sync.Mutex
	isClosed bool
}

func newWSEmitter(conn *websocket.Conn, logger *slog.Logger, metrics *observe.Metrics) *wsEmitter {
	return &wsEmitter{conn: conn, logger: logger, metrics: metrics}
}

// Emit marshals msg and writes it as a text frame. Write failures are logged
// and otherwise ignored: the read loop will observe the same dead connection
// on its next Read and tear the session down.
func (e *wsEmitter) Emit(msg session.OutboundMessage) {
	if e.closed() {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		e.logger.Error("emit: marshal failed", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := e.conn.Write(ctx, websocket.MessageText, data); err != nil {
		e.logger.Warn("emit: write failed", "err", err)
	}
}

// Close closes the underlying connection with the given application close
// code and reason, recording a sessions-closed metric keyed by code. Safe to
// call more than once.
func (e *wsEmitter) Close(code int, reason string) {
	e.mu.Lock()
	if e.isClosed {
		e.mu.Unlock()
		return
	}
	e.isClosed = true
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordSessionClosed(context.Background(), strconv.Itoa(code))
	}
	if err := e.conn.Close(websocket.StatusCode(code), reason); err != nil {
		e.logger.Debug("close: underlying close errored (connection likely already gone)", "err", err)
	}
}

func (e *wsEmitter) closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isClosed
}
