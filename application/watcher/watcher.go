// Package watcher decides when the page must be rescanned.
//
// Four triggers feed it: a settle delay after start, same-document and full
// navigation, qualifying DOM mutation batches (debounced on the trailing edge) and
// a periodic backstop. Only one scan runs at a time; a trigger that fires while a
// scan is running is dropped.
package watcher

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Config holds the watcher timings. A zero PeriodicInterval disables the backstop.
type Config struct {
	InitialSettleDelay    time.Duration
	NavigationSettleDelay time.Duration
	DebounceWindow        time.Duration
	PeriodicInterval      time.Duration
}

// DefaultConfig returns the timings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		InitialSettleDelay:    time.Second,
		NavigationSettleDelay: 500 * time.Millisecond,
		DebounceWindow:        250 * time.Millisecond,
		PeriodicInterval:      10 * time.Second,
	}
}

// ScanFunc runs one scan and reports false when it was skipped because another
// scan was already running.
type ScanFunc func(reason entities.ScanReason) bool

// Option configures a Watcher.
type Option func(*Watcher)

func WithConfig(cfg Config) Option {
	return func(w *Watcher) { w.cfg = cfg }
}

func WithClock(c clockwork.Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

func WithLogger(l *logrus.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithNavigation subscribes the watcher to URL changes.
func WithNavigation(src interfaces.NavigationSource) Option {
	return func(w *Watcher) { w.nav = src }
}

// WithMutations subscribes the watcher to DOM mutation batches.
func WithMutations(src interfaces.MutationSource) Option {
	return func(w *Watcher) { w.mutations = src }
}

// WithReset sets the function that clears the registry on navigation.
func WithReset(fn func()) Option {
	return func(w *Watcher) { w.reset = fn }
}

// Watcher is the change-detection state machine.
type Watcher struct {
	cfg       Config
	clock     clockwork.Clock
	logger    *logrus.Logger
	scan      ScanFunc
	reset     func()
	nav       interfaces.NavigationSource
	mutations interfaces.MutationSource

	mu          sync.Mutex
	started     bool
	disposed    bool
	lastURL     string
	settle      clockwork.Timer
	settleSeq   uint64
	debounce    clockwork.Timer
	debounceSeq uint64
	unsubscribe []func()

	scanning  atomic.Bool
	callbacks sync.WaitGroup
	done      chan struct{}
	loop      sync.WaitGroup
	once      sync.Once
}

// New returns a watcher that calls scan for every accepted trigger.
func New(scan ScanFunc, opts ...Option) *Watcher {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	w := &Watcher{
		cfg:    DefaultConfig(),
		clock:  clockwork.NewRealClock(),
		logger: logger,
		scan:   scan,
		reset:  func() {},
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start schedules the initial scan and attaches every trigger source.
// It returns Dispose for convenience; calling Start more than once is a no-op.
func (w *Watcher) Start() (dispose func()) {
	w.mu.Lock()
	if w.started || w.disposed {
		w.mu.Unlock()
		return w.Dispose
	}
	w.started = true
	if w.nav != nil {
		w.lastURL = w.nav.CurrentURL()
	}
	w.scheduleSettleLocked(w.cfg.InitialSettleDelay, entities.ScanInitial)
	w.mu.Unlock()

	var subs []func()
	if w.nav != nil {
		subs = append(subs, w.nav.Subscribe(w.onNavigate))
	}
	if w.mutations != nil {
		subs = append(subs, w.mutations.Observe(w.onMutations))
	}

	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		for _, unsubscribe := range subs {
			unsubscribe()
		}
		return w.Dispose
	}
	w.unsubscribe = subs
	if w.cfg.PeriodicInterval > 0 {
		ticker := w.clock.NewTicker(w.cfg.PeriodicInterval)
		w.loop.Add(1)
		go w.periodic(ticker)
	}
	w.mu.Unlock()

	w.logger.WithFields(logrus.Fields{
		"settle":   w.cfg.InitialSettleDelay,
		"debounce": w.cfg.DebounceWindow,
		"periodic": w.cfg.PeriodicInterval,
	}).Debug("Watcher started")
	return w.Dispose
}

// Dispose releases every subscription and timer and waits for running callbacks.
// After it returns no further scans are started. It must not be called from
// inside the scan function.
func (w *Watcher) Dispose() {
	w.once.Do(func() {
		w.mu.Lock()
		w.disposed = true
		subs := w.unsubscribe
		w.unsubscribe = nil
		w.stopSettleLocked()
		w.stopDebounceLocked()
		w.mu.Unlock()

		for _, unsubscribe := range subs {
			unsubscribe()
		}
		close(w.done)
		w.loop.Wait()
		w.callbacks.Wait()
		w.logger.Debug("Watcher disposed")
	})
}

// State reports the current state of the machine. A pending debounce takes
// precedence over a pending settle delay.
func (w *Watcher) State() entities.WatcherState {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.disposed:
		return entities.WatcherDisposed
	case w.scanning.Load():
		return entities.WatcherScanning
	case w.debounce != nil:
		return entities.WatcherWaitingDebounce
	case w.settle != nil:
		return entities.WatcherSettling
	default:
		return entities.WatcherIdle
	}
}

// Trigger requests an immediate scan, subject to the reentrancy guard.
func (w *Watcher) Trigger(reason entities.ScanReason) bool {
	if !w.enter() {
		return false
	}
	defer w.callbacks.Done()
	return w.run(reason)
}

func (w *Watcher) onNavigate(ev entities.NavigationEvent) {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}
	changed := ev.URL != w.lastURL
	if ev.Kind.SameDocument() && !changed {
		w.mu.Unlock()
		return
	}
	previous := w.lastURL
	w.lastURL = ev.URL
	w.stopDebounceLocked()
	w.scheduleSettleLocked(w.cfg.NavigationSettleDelay, entities.ScanNavigation)
	w.mu.Unlock()

	w.logger.WithFields(logrus.Fields{
		"from": previous,
		"to":   ev.URL,
		"kind": ev.Kind,
	}).Info("Navigation detected, registry cleared")
	w.reset()
}

func (w *Watcher) onMutations(records []interfaces.MutationRecord) {
	if !Qualifies(records) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.disposed {
		return
	}
	w.stopDebounceLocked()
	w.debounceSeq++
	seq := w.debounceSeq
	w.debounce = w.clock.AfterFunc(w.cfg.DebounceWindow, func() {
		w.fireDebounce(seq)
	})
}

func (w *Watcher) fireDebounce(seq uint64) {
	w.mu.Lock()
	if w.disposed || seq != w.debounceSeq {
		w.mu.Unlock()
		return
	}
	w.debounce = nil
	w.callbacks.Add(1)
	w.mu.Unlock()

	defer w.callbacks.Done()
	w.run(entities.ScanMutation)
}

func (w *Watcher) fireSettle(seq uint64, reason entities.ScanReason) {
	w.mu.Lock()
	if w.disposed || seq != w.settleSeq {
		w.mu.Unlock()
		return
	}
	w.settle = nil
	w.callbacks.Add(1)
	w.mu.Unlock()

	defer w.callbacks.Done()
	w.run(reason)
}

func (w *Watcher) periodic(ticker clockwork.Ticker) {
	defer w.loop.Done()
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.Chan():
			if !w.enter() {
				return
			}
			w.run(entities.ScanPeriodic)
			w.callbacks.Done()
		}
	}
}

// enter registers a callback unless the watcher is disposed.
func (w *Watcher) enter() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.disposed {
		return false
	}
	w.callbacks.Add(1)
	return true
}

func (w *Watcher) run(reason entities.ScanReason) bool {
	if !w.scanning.CompareAndSwap(false, true) {
		w.logger.WithField("reason", reason).Debug("Scan already running, trigger dropped")
		return false
	}
	defer w.scanning.Store(false)

	ran := w.scan(reason)
	if !ran {
		w.logger.WithField("reason", reason).Debug("Scan skipped by engine")
	}
	return ran
}

func (w *Watcher) scheduleSettleLocked(delay time.Duration, reason entities.ScanReason) {
	w.stopSettleLocked()
	w.settleSeq++
	seq := w.settleSeq
	w.settle = w.clock.AfterFunc(delay, func() {
		w.fireSettle(seq, reason)
	})
}

func (w *Watcher) stopSettleLocked() {
	if w.settle != nil {
		w.settle.Stop()
		w.settle = nil
	}
	w.settleSeq++
}

func (w *Watcher) stopDebounceLocked() {
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
	w.debounceSeq++
}
