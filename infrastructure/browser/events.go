package browser

import (
	"encoding/json"
	"fmt"
	"sync"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"
	"ai_registry/infrastructure/dom"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

type hookRecord struct {
	Kind   string   `json:"kind"`
	Target string   `json:"target"`
	Attr   string   `json:"attr"`
	Added  []string `json:"added"`
}

type hookEvent struct {
	Type    string       `json:"type"`
	Kind    string       `json:"kind"`
	URL     string       `json:"url"`
	Records []hookRecord `json:"records"`
}

// events fans browser-side notifications out to navigation and mutation
// subscribers. It implements both sources for the controllers.
type events struct {
	logger *logrus.Logger

	mu      sync.Mutex
	url     string
	nextID  int
	navSubs map[int]func(entities.NavigationEvent)
	mutSubs map[int]func([]interfaces.MutationRecord)
}

var (
	_ interfaces.NavigationSource = (*events)(nil)
	_ interfaces.MutationSource   = (*events)(nil)
)

func newEvents(logger *logrus.Logger) *events {
	return &events{
		logger:  logger,
		navSubs: make(map[int]func(entities.NavigationEvent)),
		mutSubs: make(map[int]func([]interfaces.MutationRecord)),
	}
}

func (e *events) Subscribe(fn func(entities.NavigationEvent)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.navSubs[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.navSubs, id)
		e.mu.Unlock()
	}
}

func (e *events) Observe(fn func([]interfaces.MutationRecord)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.mutSubs[id] = fn
	return func() {
		e.mu.Lock()
		delete(e.mutSubs, id)
		e.mu.Unlock()
	}
}

func (e *events) CurrentURL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.url
}

func (e *events) setURL(url string) {
	e.mu.Lock()
	e.url = url
	e.mu.Unlock()
}

func (e *events) navigate(ev entities.NavigationEvent) {
	e.mu.Lock()
	e.url = ev.URL
	fns := make([]func(entities.NavigationEvent), 0, len(e.navSubs))
	for _, fn := range e.navSubs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (e *events) mutate(records []interfaces.MutationRecord) {
	if len(records) == 0 {
		return
	}
	e.mu.Lock()
	fns := make([]func([]interfaces.MutationRecord), 0, len(e.mutSubs))
	for _, fn := range e.mutSubs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(records)
	}
}

// dispatch decodes one JSON hook event and delivers it.
func (e *events) dispatch(payload []byte) error {
	var ev hookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("failed to decode hook event: %w", err)
	}
	switch ev.Type {
	case "navigation":
		kind := entities.NavigationKind(ev.Kind)
		switch kind {
		case entities.NavigationPush, entities.NavigationReplace, entities.NavigationPop:
		default:
			return fmt.Errorf("unknown navigation kind %q", ev.Kind)
		}
		e.navigate(entities.NavigationEvent{URL: ev.URL, Kind: kind})
	case "mutations":
		e.mutate(e.records(ev.Records))
	default:
		return fmt.Errorf("unknown hook event %q", ev.Type)
	}
	return nil
}

// dispatchQueue delivers a JSON array of hook events, logging bad entries.
func (e *events) dispatchQueue(payload []byte) error {
	var queue []json.RawMessage
	if err := json.Unmarshal(payload, &queue); err != nil {
		return fmt.Errorf("failed to decode hook queue: %w", err)
	}
	for _, raw := range queue {
		if err := e.dispatch(raw); err != nil {
			e.logger.WithError(err).Debug("Dropped hook event")
		}
	}
	return nil
}

// records turns serialized mutation records into detached nodes the watcher
// filter can match selectors against. Each batch gets its own scratch document
// so parsed nodes are released with the batch.
func (e *events) records(in []hookRecord) []interfaces.MutationRecord {
	scratch := dom.NewDocument(nil)
	out := make([]interfaces.MutationRecord, 0, len(in))
	for _, r := range in {
		rec := interfaces.MutationRecord{
			Kind:          interfaces.MutationKind(r.Kind),
			Target:        fragment(scratch, r.Target),
			AttributeName: r.Attr,
		}
		for _, src := range r.Added {
			if n := fragment(scratch, src); n != nil {
				rec.Added = append(rec.Added, n)
			}
		}
		out = append(out, rec)
	}
	return out
}

func fragment(scratch *dom.Document, src string) interfaces.Node {
	if src == "" {
		return nil
	}
	nodes, err := scratch.ParseFragment(src)
	if err != nil {
		return nil
	}
	for _, n := range nodes {
		if n.HTML().Type == html.ElementNode {
			return n
		}
	}
	return nil
}
