// Package scanner turns a page into element descriptors: it selects candidate
// nodes, classifies them, assigns stable identities and records their geometry.
package scanner

import (
	"context"
	"strings"
	"sync"
	"time"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"github.com/jonboulle/clockwork"
)

// Result is the outcome of one scan.
type Result struct {
	Descriptors []entities.ElementDescriptor
	// Candidates is the number of nodes matching the interactive selector.
	Candidates int
	Duration   time.Duration
	URL        string
	Title      string
	// CommitErr is set when identity markers could not be written back to the page.
	// The descriptors are still valid; derived ids are recomputed on the next scan.
	CommitErr error
}

// Scanner performs full-page scans. It is safe for concurrent use, though the
// watcher never runs two scans at once.
type Scanner struct {
	classifier Classifier
	assigner   *Assigner
	clock      clockwork.Clock

	mu     sync.Mutex
	lastTS int64
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClassifier replaces the default classifier.
func WithClassifier(c Classifier) Option {
	return func(s *Scanner) { s.classifier = c }
}

// WithAssigner replaces the default identity assigner.
func WithAssigner(a *Assigner) Option {
	return func(s *Scanner) { s.assigner = a }
}

// WithClock sets the clock used for timestamps and durations.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scanner) { s.clock = c }
}

func New(opts ...Option) *Scanner {
	s := &Scanner{
		classifier: NewClassifier(),
		assigner:   NewAssigner(),
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Classifier returns the classifier used by the scanner.
func (s *Scanner) Classifier() Classifier {
	return s.classifier
}

// Assigner returns the identity assigner used by the scanner.
func (s *Scanner) Assigner() *Assigner {
	return s.assigner
}

// Scan reads every candidate in doc and returns descriptors for the nodes that are
// visible and interactable. live reports ids currently held by the registry and
// may be nil. A scan is not interrupted by ctx; ctx only bounds the commit.
func (s *Scanner) Scan(ctx context.Context, doc interfaces.Document, live func(id string) bool) (Result, error) {
	if doc == nil {
		return Result{}, interfaces.ErrNoDocument
	}
	start := s.clock.Now()

	candidates := doc.QueryAll(InteractiveSelector)
	cache := newHitCache()
	scope := NewScope(live)
	vp := doc.Viewport()
	ts := s.timestamp()

	for _, n := range candidates {
		if marker, ok := n.Attr(TargetAttr); ok {
			scope.Reserve(marker)
		}
	}

	descriptors := make([]entities.ElementDescriptor, 0, len(candidates))
	for _, n := range candidates {
		vis := s.classifier.inspect(doc, n, cache)
		if !vis.Visible || !AcceptsInput(n) {
			continue
		}
		id := s.assigner.Assign(n, scope)
		descriptors = append(descriptors, Describe(n, id, vis, vp, ts))
	}

	res := Result{
		Descriptors: descriptors,
		Candidates:  len(candidates),
		URL:         doc.URL(),
		Title:       doc.Title(),
	}
	if err := doc.Commit(ctx); err != nil {
		res.CommitErr = err
	}
	res.Duration = s.clock.Since(start)
	return res, nil
}

// timestamp returns the current time in milliseconds, strictly increasing across scans.
func (s *Scanner) timestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.clock.Now().UnixMilli()
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts
	return ts
}

// Describe builds the descriptor for a node that passed both classifiers.
func Describe(n interfaces.Node, id Identity, vis Visibility, vp entities.Viewport, ts int64) entities.ElementDescriptor {
	attrs := n.Attrs()
	d := entities.ElementDescriptor{
		TargetID:        id.TargetID,
		InteractionType: id.InteractionType,
		ComponentName:   componentName(n),
		TagName:         n.TagName(),
		ElementType:     attrs["type"],
		ID:              attrs["id"],
		ClassName:       attrs["class"],
		Name:            attrs["name"],
		Href:            attrs["href"],
		Path:            ComputePath(n),
		Attributes:      attrs,
		Position: entities.Position{
			Viewport:          vis.Rect,
			Absolute:          vis.Rect.Translate(vp.ScrollX, vp.ScrollY),
			Center:            vis.Rect.Center(),
			VisiblePercentage: vis.VisiblePercentage,
		},
		Visible:      true,
		Interactable: true,
		Timestamp:    ts,
	}

	if v, ok := n.FormValue(); ok {
		d.Value = v
		d.Attributes["value"] = v
	}
	if checked, ok := n.Checked(); ok {
		if checked {
			d.Attributes["checked"] = "true"
		} else {
			d.Attributes["checked"] = "false"
		}
	}
	return d
}

func componentName(n interfaces.Node) *string {
	for cur := n; cur != nil; cur = cur.Parent() {
		if v, ok := cur.Attr(ComponentAttr); ok && strings.TrimSpace(v) != "" {
			name := strings.TrimSpace(v)
			return &name
		}
	}
	return nil
}
