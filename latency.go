package voiceagent

import "time"

// latencyTracker measures how quickly the agent reacts. It is owned by the
// receive loop and needs no locking.
//
// Initial latency runs from the last user utterance to the first function
// decision of a turn. Chain latency runs from the previous function response
// to the next function decision within the same turn.
type latencyTracker struct {
	now          func() time.Time
	lastUser     time.Time
	lastResponse time.Time
	inChain      bool
}

// latencyKind names which measurement a decision produced.
type latencyKind string

const (
	latencyInitial latencyKind = "initial"
	latencyChain   latencyKind = "chain"
)

func newLatencyTracker(now func() time.Time) *latencyTracker {
	if now == nil {
		now = time.Now
	}
	return &latencyTracker{now: now}
}

func (t *latencyTracker) userSpoke() {
	t.lastUser = t.now()
	t.inChain = false
}

func (t *latencyTracker) agentSpoke() {
	t.inChain = false
}

func (t *latencyTracker) responded() {
	t.lastResponse = t.now()
}

// decided records a function decision. ok is false when there is no
// reference point to measure from.
func (t *latencyTracker) decided() (kind latencyKind, d time.Duration, ok bool) {
	now := t.now()
	if t.inChain && !t.lastResponse.IsZero() {
		return latencyChain, now.Sub(t.lastResponse), true
	}
	if t.lastUser.IsZero() {
		return latencyInitial, 0, false
	}
	t.inChain = true
	return latencyInitial, now.Sub(t.lastUser), true
}
