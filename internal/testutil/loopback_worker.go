// Package testutil provides testing utilities for the catalog cache.
package testutil

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/medref/catalog-cache/pkg/bridge"
)

// LoopbackWorker simulates the peer worker cache in-process. It
// implements bridge.Conduit: commands sent through it are handled by a
// small fake worker that acknowledges registration, answers stats
// requests, and records invalidations against its own entry set.
type LoopbackWorker struct {
	mu   sync.Mutex
	msgs chan Message

	// Silent suppresses all replies, simulating an unreachable worker.
	Silent bool

	// ReplyDelay delays every reply, for timeout testing.
	ReplyDelay time.Duration

	entries map[string]struct{}
	hits    uint64
	misses  uint64

	// Tracking
	Invalidations []string
	RegisterCount int

	closed bool
}

// Message aliases the bridge protocol frame for test readability.
type Message = bridge.Message

// NewLoopbackWorker creates a loopback worker with the given seeded
// worker-tier entries.
func NewLoopbackWorker(seedKeys ...string) *LoopbackWorker {
	entries := make(map[string]struct{}, len(seedKeys))
	for _, k := range seedKeys {
		entries[k] = struct{}{}
	}
	return &LoopbackWorker{
		msgs:    make(chan Message, 16),
		entries: entries,
	}
}

// Send handles one command as the fake worker would.
func (w *LoopbackWorker) Send(_ context.Context, msg Message) error {
	w.mu.Lock()
	silent := w.Silent
	delay := w.ReplyDelay
	w.mu.Unlock()

	switch msg.Kind {
	case bridge.KindRegister:
		w.mu.Lock()
		w.RegisterCount++
		w.mu.Unlock()
		if !silent {
			w.reply(delay, Message{Kind: bridge.KindRegisterAck, CorrelationID: msg.CorrelationID})
		}

	case bridge.KindGetStats:
		if !silent {
			w.mu.Lock()
			stats := &bridge.WorkerStats{
				Entries: len(w.entries),
				Hits:    w.hits,
				Misses:  w.misses,
			}
			w.mu.Unlock()
			w.reply(delay, Message{Kind: bridge.KindStats, CorrelationID: msg.CorrelationID, Stats: stats})
		}

	case bridge.KindInvalidate:
		w.mu.Lock()
		w.Invalidations = append(w.Invalidations, msg.Pattern)
		if re, err := regexp.Compile(msg.Pattern); err == nil {
			for key := range w.entries {
				if re.MatchString(key) {
					delete(w.entries, key)
				}
			}
		}
		w.mu.Unlock()
	}

	return nil
}

// Receive returns the reply channel.
func (w *LoopbackWorker) Receive() <-chan Message { return w.msgs }

// Close closes the reply channel.
func (w *LoopbackWorker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.msgs)
	}
	return nil
}

// EntryCount returns the worker's current entry count.
func (w *LoopbackWorker) EntryCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// InvalidatedPatterns returns the invalidation patterns received so far.
func (w *LoopbackWorker) InvalidatedPatterns() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.Invalidations))
	copy(out, w.Invalidations)
	return out
}

// SetSilent toggles reply suppression.
func (w *LoopbackWorker) SetSilent(silent bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Silent = silent
}

func (w *LoopbackWorker) reply(delay time.Duration, msg Message) {
	deliver := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if !w.closed {
			w.msgs <- msg
		}
	}
	if delay > 0 {
		go func() {
			time.Sleep(delay)
			deliver()
		}()
		return
	}
	deliver()
}
