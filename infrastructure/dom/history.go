package dom

import (
	"sync"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"
)

// History is a session history that notifies subscribers explicitly instead of
// relying on patched pushState/replaceState globals.
type History struct {
	mu      sync.Mutex
	doc     *Document
	entries []string
	index   int
	subs    map[int]func(entities.NavigationEvent)
	nextSub int
}

var _ interfaces.NavigationSource = (*History)(nil)

// NewHistory starts a history at url. When doc is non-nil its URL follows navigation.
func NewHistory(doc *Document, url string) *History {
	if doc != nil {
		doc.SetURL(url)
	}
	return &History{
		doc:     doc,
		entries: []string{url},
		subs:    make(map[int]func(entities.NavigationEvent)),
	}
}

// History returns the document's session history, created on first use.
func (d *Document) History() *History {
	d.historyOnce.Do(func() {
		d.history = NewHistory(d, d.URL())
	})
	return d.history
}

func (h *History) Subscribe(fn func(entities.NavigationEvent)) func() {
	h.mu.Lock()
	h.nextSub++
	id := h.nextSub
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

func (h *History) CurrentURL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// PushState adds an entry after the current one, dropping any forward entries.
func (h *History) PushState(url string) {
	h.mu.Lock()
	h.entries = append(h.entries[:h.index+1], url)
	h.index++
	h.mu.Unlock()
	h.notify(entities.NavigationEvent{URL: url, Kind: entities.NavigationPush})
}

// ReplaceState swaps the current entry.
func (h *History) ReplaceState(url string) {
	h.mu.Lock()
	h.entries[h.index] = url
	h.mu.Unlock()
	h.notify(entities.NavigationEvent{URL: url, Kind: entities.NavigationReplace})
}

// Back moves one entry back and fires a pop navigation. It is a no-op at the first entry.
func (h *History) Back() {
	h.step(-1)
}

// Forward moves one entry forward and fires a pop navigation.
func (h *History) Forward() {
	h.step(1)
}

func (h *History) step(delta int) {
	h.mu.Lock()
	next := h.index + delta
	if next < 0 || next >= len(h.entries) {
		h.mu.Unlock()
		return
	}
	h.index = next
	url := h.entries[next]
	h.mu.Unlock()
	h.notify(entities.NavigationEvent{URL: url, Kind: entities.NavigationPop})
}

// Navigate simulates a full document load of url.
func (h *History) Navigate(url string) {
	h.mu.Lock()
	h.entries = append(h.entries[:h.index+1], url)
	h.index++
	h.mu.Unlock()
	h.notify(entities.NavigationEvent{URL: url, Kind: entities.NavigationFull})
}

func (h *History) notify(ev entities.NavigationEvent) {
	if h.doc != nil {
		h.doc.SetURL(ev.URL)
	}
	h.mu.Lock()
	fns := make([]func(entities.NavigationEvent), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
