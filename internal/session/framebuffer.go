package session

import "sync"

// FrameBuffer is a bounded, mutex-guarded queue of video frames fed by the
// WebSocket read loop and drained by the batch loop. Overflow drops the
// newest incoming frame rather than growing unbounded.
type FrameBuffer struct {
	mu       sync.Mutex
	frames   [][]byte
	capacity int
}

// NewFrameBuffer creates a FrameBuffer with the given capacity.
func NewFrameBuffer(capacity int) *FrameBuffer {
	return &FrameBuffer{capacity: capacity}
}

// Push appends a frame, dropping it silently if the buffer is already at
// capacity.
func (b *FrameBuffer) Push(frame []byte) (dropped bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) >= b.capacity {
		return true
	}
	b.frames = append(b.frames, frame)
	return false
}

// TakeTail removes and returns up to n frames from the tail of the buffer,
// clearing the buffer entirely. An empty buffer returns nil.
func (b *FrameBuffer) TakeTail(n int) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) == 0 {
		return nil
	}
	all := b.frames
	b.frames = nil

	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// Clear empties the buffer.
func (b *FrameBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = nil
}

// Len reports the number of buffered frames.
func (b *FrameBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}
