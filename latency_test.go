package voiceagent

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLatencyTracker(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	lt := newLatencyTracker(clock.now)

	if _, _, ok := lt.decided(); ok {
		t.Error("decision without a user utterance should not be measured")
	}

	lt.userSpoke()
	clock.advance(1200 * time.Millisecond)
	kind, d, ok := lt.decided()
	if !ok || kind != latencyInitial || d != 1200*time.Millisecond {
		t.Fatalf("first decision = %s %v %v, want initial 1.2s", kind, d, ok)
	}

	clock.advance(300 * time.Millisecond)
	lt.responded()
	clock.advance(800 * time.Millisecond)
	kind, d, ok = lt.decided()
	if !ok || kind != latencyChain || d != 800*time.Millisecond {
		t.Fatalf("chained decision = %s %v %v, want chain 800ms", kind, d, ok)
	}

	lt.agentSpoke()
	lt.userSpoke()
	clock.advance(500 * time.Millisecond)
	kind, d, _ = lt.decided()
	if kind != latencyInitial || d != 500*time.Millisecond {
		t.Errorf("new turn decision = %s %v, want initial 500ms", kind, d)
	}
}

func TestLatencyTracker_ChainNeedsResponse(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	lt := newLatencyTracker(clock.now)
	lt.userSpoke()
	clock.advance(time.Second)
	lt.decided()
	clock.advance(time.Second)

	// Still in the chain but no response has been recorded yet.
	kind, d, _ := lt.decided()
	if kind != latencyInitial || d != 2*time.Second {
		t.Errorf("decision = %s %v, want initial 2s", kind, d)
	}
}

func TestLatencyTracker_NoChainBeforeUserSpeaks(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	lt := newLatencyTracker(clock.now)

	lt.decided()
	lt.responded()
	clock.advance(time.Second)
	if kind, _, ok := lt.decided(); ok || kind != latencyInitial {
		t.Errorf("decision before any utterance = %s %v, want unmeasured", kind, ok)
	}

	lt.userSpoke()
	clock.advance(700 * time.Millisecond)
	kind, d, ok := lt.decided()
	if !ok || kind != latencyInitial || d != 700*time.Millisecond {
		t.Errorf("first measured decision = %s %v %v, want initial 700ms", kind, d, ok)
	}
}

