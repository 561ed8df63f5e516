package voiceagent

import "sync"

// FrameQueue is an unbounded FIFO of audio frames shared between the
// receive loop and the render worker. Drain removes everything queued at
// the time of the call, which is what barge-in needs.
type FrameQueue struct {
	mu     sync.Mutex
	frames [][]byte
	ready  chan struct{}
}

// NewFrameQueue returns an empty queue.
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{ready: make(chan struct{}, 1)}
}

// Push appends a frame and wakes a waiting consumer.
func (q *FrameQueue) Push(frame []byte) {
	q.mu.Lock()
	q.frames = append(q.frames, frame)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop removes the oldest frame.
func (q *FrameQueue) Pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return nil, false
	}
	f := q.frames[0]
	q.frames[0] = nil
	q.frames = q.frames[1:]
	return f, true
}

// Drain discards every queued frame and reports how many were dropped.
func (q *FrameQueue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.frames)
	q.frames = nil
	return n
}

// Len reports the number of queued frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}

// Ready is signalled after a Push. A single signal may cover several frames.
func (q *FrameQueue) Ready() <-chan struct{} { return q.ready }
