// Package engine owns one interactive-element registry and exposes the query
// surface consumers use: capture, read, look up and reset.
package engine

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"ai_registry/application/registry"
	"ai_registry/application/scanner"
	"ai_registry/application/watcher"
	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Stats summarizes scan activity since the engine was created.
type Stats struct {
	Scans           uint64              `json:"scans"`
	Skipped         uint64              `json:"skipped"`
	Discarded       uint64              `json:"discarded"`
	LastReason      entities.ScanReason `json:"lastReason,omitempty"`
	LastDuration    time.Duration       `json:"lastDuration"`
	LastScanAt      time.Time           `json:"lastScanAt"`
	Elements        int                 `json:"elements"`
	RegistryVersion uint64              `json:"registryVersion"`
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithScanner replaces the default scanner.
func WithScanner(s *scanner.Scanner) Option {
	return func(e *Engine) { e.scanner = s }
}

// WithGateway sets where snapshots are loaded from and pushed to.
func WithGateway(g interfaces.SyncGateway) Option {
	return func(e *Engine) { e.gateway = g }
}

// WithWatcherConfig sets the timings used by Watch.
func WithWatcherConfig(cfg watcher.Config) Option {
	return func(e *Engine) { e.watcherCfg = cfg }
}

// WithNavigation overrides the navigation source detected from the DOM capability.
func WithNavigation(src interfaces.NavigationSource) Option {
	return func(e *Engine) { e.nav = src }
}

// WithMutations overrides the mutation source detected from the DOM capability.
func WithMutations(src interfaces.MutationSource) Option {
	return func(e *Engine) { e.mutations = src }
}

// WithAutoSync pushes the registry to the gateway after every scan.
func WithAutoSync(enabled bool) Option {
	return func(e *Engine) { e.autoSync = enabled }
}

// Engine is an explicitly owned registry instance. The zero value is not usable;
// a nil *Engine answers every query with an empty result.
type Engine struct {
	dom        interfaces.DOM
	nav        interfaces.NavigationSource
	mutations  interfaces.MutationSource
	gateway    interfaces.SyncGateway
	scanner    *scanner.Scanner
	store      *registry.Store
	clock      clockwork.Clock
	logger     *logrus.Logger
	watcherCfg watcher.Config
	autoSync   bool

	// scanMu serializes scans. Watcher triggers skip when it is held; manual
	// captures wait for it.
	scanMu sync.Mutex
	// publishMu orders registry publication against resets.
	publishMu sync.Mutex
	epoch     atomic.Uint64

	statsMu sync.Mutex
	stats   Stats
	lastURL string
	title   string

	subsMu  sync.Mutex
	subs    map[int]func([]entities.ElementDescriptor)
	nextSub int

	baselineMu sync.Mutex
	baseline   *entities.RegistrySnapshot

	watchMu sync.Mutex
	watcher *watcher.Watcher

	pushCh    chan struct{}
	closeCh   chan struct{}
	closeOnce sync.Once
	pusher    sync.WaitGroup
}

// New builds an engine reading pages through dom. When dom also implements
// NavigationSource or MutationSource those are used by Watch.
func New(dom interfaces.DOM, opts ...Option) *Engine {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	e := &Engine{
		dom:        dom,
		store:      registry.NewStore(),
		clock:      clockwork.NewRealClock(),
		logger:     logger,
		watcherCfg: watcher.DefaultConfig(),
		subs:       make(map[int]func([]entities.ElementDescriptor)),
		pushCh:     make(chan struct{}, 1),
		closeCh:    make(chan struct{}),
	}
	if nav, ok := dom.(interfaces.NavigationSource); ok {
		e.nav = nav
	}
	if mut, ok := dom.(interfaces.MutationSource); ok {
		e.mutations = mut
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scanner == nil {
		e.scanner = scanner.New(scanner.WithClock(e.clock))
	}

	if e.autoSync && e.gateway != nil {
		e.pusher.Add(1)
		go e.pushLoop()
	}
	return e
}

// CaptureInteractiveElements runs a scan now and returns the resulting descriptors.
// It waits for a scan already in progress instead of skipping.
func (e *Engine) CaptureInteractiveElements(ctx context.Context) []entities.ElementDescriptor {
	if e == nil {
		return []entities.ElementDescriptor{}
	}
	if descriptors, ok := e.scan(ctx, entities.ScanManual, true); ok {
		return descriptors
	}
	return e.store.Snapshot()
}

// GetElementRegistry returns a copy of the registry keyed by target id.
func (e *Engine) GetElementRegistry() map[string]entities.ElementDescriptor {
	if e == nil {
		return map[string]entities.ElementDescriptor{}
	}
	return e.store.Map()
}

// Descriptors returns a copy of the registry in scan order.
func (e *Engine) Descriptors() []entities.ElementDescriptor {
	if e == nil {
		return []entities.ElementDescriptor{}
	}
	return e.store.Snapshot()
}

// FindElementByTarget resolves a target id to the live node carrying its marker.
// Ids that were suffixed because their marker was shared fall back to the
// recorded path, and a node found that way must still match the recorded tag and
// identifying attributes. It returns nil when nothing matches.
func (e *Engine) FindElementByTarget(ctx context.Context, targetID string) interfaces.Node {
	if e == nil || e.dom == nil || targetID == "" {
		return nil
	}
	doc, err := e.dom.Document(ctx)
	if err != nil {
		e.logger.WithError(err).Debug("No document for target lookup")
		return nil
	}

	if nodes := doc.QueryAll(scanner.TargetSelector(targetID)); len(nodes) > 0 {
		return nodes[0]
	}
	if desc, ok := e.store.Get(targetID); ok && desc.Path != "" {
		for _, n := range doc.QueryAll(desc.Path) {
			if sameElement(n, desc) {
				return n
			}
		}
	}
	return nil
}

// Attributes compared when a node is resolved through its recorded path.
var identifyingAttrs = []string{scanner.TargetAttr, "id", "name", "type", "href"}

func sameElement(n interfaces.Node, desc entities.ElementDescriptor) bool {
	if n.TagName() != desc.TagName {
		return false
	}
	for _, name := range identifyingAttrs {
		want, recorded := desc.Attributes[name]
		got, present := n.Attr(name)
		if recorded != present || got != want {
			return false
		}
	}
	return true
}

// ResetElementRegistry clears every descriptor. A scan running concurrently
// discards its result.
func (e *Engine) ResetElementRegistry() {
	if e == nil {
		return
	}
	e.publishMu.Lock()
	e.epoch.Add(1)
	e.store.Reset()
	e.publishMu.Unlock()
	e.logger.Debug("Element registry reset")
}

// OnUpdate registers fn to receive a copy of the registry after every scan.
func (e *Engine) OnUpdate(fn func([]entities.ElementDescriptor)) (unsubscribe func()) {
	if e == nil || fn == nil {
		return func() {}
	}
	e.subsMu.Lock()
	e.nextSub++
	id := e.nextSub
	e.subs[id] = fn
	e.subsMu.Unlock()

	return func() {
		e.subsMu.Lock()
		delete(e.subs, id)
		e.subsMu.Unlock()
	}
}

// Watch starts change detection and returns its disposer. Calling Watch while a
// watcher is active returns the active watcher's disposer.
func (e *Engine) Watch() (dispose func()) {
	if e == nil {
		return func() {}
	}
	e.watchMu.Lock()
	defer e.watchMu.Unlock()
	if e.watcher != nil && e.watcher.State() != entities.WatcherDisposed {
		return e.watcher.Dispose
	}

	w := watcher.New(
		func(reason entities.ScanReason) bool {
			_, ran := e.scan(context.Background(), reason, false)
			return ran
		},
		watcher.WithConfig(e.watcherCfg),
		watcher.WithClock(e.clock),
		watcher.WithLogger(e.logger),
		watcher.WithNavigation(e.nav),
		watcher.WithMutations(e.mutations),
		watcher.WithReset(e.ResetElementRegistry),
	)
	e.watcher = w
	return w.Start()
}

// WatcherState reports the active watcher's state, or Idle when none was started.
func (e *Engine) WatcherState() entities.WatcherState {
	if e == nil {
		return entities.WatcherIdle
	}
	e.watchMu.Lock()
	w := e.watcher
	e.watchMu.Unlock()
	if w == nil {
		return entities.WatcherIdle
	}
	return w.State()
}

// Stats returns scan counters and the current registry size.
func (e *Engine) Stats() Stats {
	if e == nil {
		return Stats{}
	}
	e.statsMu.Lock()
	s := e.stats
	e.statsMu.Unlock()
	s.Elements = e.store.Len()
	s.RegistryVersion = e.store.Version()
	return s
}

// Close disposes the watcher and stops the background pusher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.watchMu.Lock()
	w := e.watcher
	e.watchMu.Unlock()
	if w != nil {
		w.Dispose()
	}
	e.closeOnce.Do(func() { close(e.closeCh) })
	e.pusher.Wait()
}

func (e *Engine) scan(ctx context.Context, reason entities.ScanReason, wait bool) ([]entities.ElementDescriptor, bool) {
	if wait {
		e.scanMu.Lock()
	} else if !e.scanMu.TryLock() {
		e.statsMu.Lock()
		e.stats.Skipped++
		e.statsMu.Unlock()
		return nil, false
	}
	defer e.scanMu.Unlock()

	log := e.logger.WithFields(logrus.Fields{
		"scan":   uuid.NewString(),
		"reason": reason,
	})
	if e.dom == nil {
		log.Debug("No DOM capability, scan skipped")
		return nil, false
	}
	doc, err := e.dom.Document(ctx)
	if err != nil {
		log.WithError(err).Debug("No document, scan skipped")
		return nil, false
	}

	epoch := e.epoch.Load()
	res, err := e.scanner.Scan(ctx, doc, e.store.Has)
	if err != nil {
		log.WithError(err).Warn("Scan failed")
		return nil, false
	}
	if res.CommitErr != nil {
		log.WithError(res.CommitErr).Warn("Failed to persist identity markers")
	}

	e.publishMu.Lock()
	if e.epoch.Load() != epoch {
		e.publishMu.Unlock()
		e.statsMu.Lock()
		e.stats.Discarded++
		e.statsMu.Unlock()
		log.Debug("Registry reset during scan, result discarded")
		return nil, false
	}
	e.store.Replace(res.Descriptors)
	e.publishMu.Unlock()

	e.statsMu.Lock()
	e.stats.Scans++
	e.stats.LastReason = reason
	e.stats.LastDuration = res.Duration
	e.stats.LastScanAt = e.clock.Now()
	e.lastURL = res.URL
	e.title = res.Title
	e.statsMu.Unlock()

	log.WithFields(logrus.Fields{
		"elements":   len(res.Descriptors),
		"candidates": res.Candidates,
		"duration":   res.Duration,
		"url":        res.URL,
	}).Debug("Scan complete")

	e.publish()
	e.requestSync()
	return e.store.Snapshot(), true
}

func (e *Engine) publish() {
	e.subsMu.Lock()
	fns := make([]func([]entities.ElementDescriptor), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subsMu.Unlock()

	for _, fn := range fns {
		fn(e.store.Snapshot())
	}
}
