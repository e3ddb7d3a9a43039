package dom

import (
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var selectorCache sync.Map // string -> cascadia.Selector, or nil for invalid selectors

// compile returns a cached compiled selector, or nil when sel does not parse.
func compile(sel string) cascadia.Selector {
	if cached, ok := selectorCache.Load(sel); ok {
		s, _ := cached.(cascadia.Selector)
		return s
	}
	s, err := cascadia.Compile(sel)
	if err != nil {
		selectorCache.Store(sel, nil)
		return nil
	}
	selectorCache.Store(sel, s)
	return s
}

// ValidSelector reports whether sel compiles
func ValidSelector(sel string) bool {
	return compile(sel) != nil
}

func matches(n *html.Node, sel string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	s := compile(sel)
	if s == nil {
		return false
	}
	return s.Match(n)
}

// queryAll returns matching descendants of n in document order, excluding n itself.
func queryAll(n *html.Node, sel string) []*html.Node {
	s := compile(sel)
	if s == nil || n == nil {
		return nil
	}
	var out []*html.Node
	for _, m := range s.MatchAll(n) {
		if m != n {
			out = append(out, m)
		}
	}
	return out
}
