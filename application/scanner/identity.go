package scanner

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	randomIDLength   = 6
	randomIDAttempts = 8
	maxTextLength    = 20
	base36           = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Identity is the result of assigning an id to a node.
type Identity struct {
	TargetID        string
	InteractionType entities.InteractionType

	// Reused is set when the node already carried a target marker.
	Reused bool
	// Aliased is set when the node's marker duplicated one seen earlier in the same
	// scan; TargetID is then a suffixed alias that is not written to the node.
	Aliased bool
}

// Scope tracks ids claimed during one scan. Reserved ids are markers already
// present on the page; only the nodes carrying them may claim them. Live, when
// set, reports ids held by the registry and is consulted for random ids only: a
// derived id matching the registry usually belongs to the same element from an
// earlier scan.
type Scope struct {
	claimed  map[string]struct{}
	reserved map[string]struct{}
	live     func(id string) bool
}

func NewScope(live func(id string) bool) *Scope {
	return &Scope{
		claimed:  make(map[string]struct{}),
		reserved: make(map[string]struct{}),
		live:     live,
	}
}

// Reserve records an existing target marker so derived and random ids avoid it
// regardless of where its node sits in the document.
func (s *Scope) Reserve(marker string) {
	if s == nil {
		return
	}
	if marker = strings.TrimSpace(marker); marker != "" {
		s.reserved[markerID(marker)] = struct{}{}
	}
}

// owned reports whether id was claimed by a node earlier in this scan.
func (s *Scope) owned(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.claimed[id]
	return ok
}

func (s *Scope) has(id string) bool {
	if s.owned(id) {
		return true
	}
	if s == nil {
		return false
	}
	_, ok := s.reserved[id]
	return ok
}

func (s *Scope) taken(id string) bool {
	if s.has(id) {
		return true
	}
	return s != nil && s.live != nil && s.live(id)
}

func (s *Scope) claim(id string) {
	if s != nil {
		s.claimed[id] = struct{}{}
	}
}

// Assigner derives and persists target ids.
type Assigner struct {
	mu    sync.Mutex
	intN  func(n int) int
	lower cases.Caser
}

// NewAssigner returns an assigner drawing random suffixes from math/rand.
func NewAssigner() *Assigner {
	return NewAssignerWithSource(rand.Intn)
}

// NewAssignerWithSource uses intN for random suffixes. intN(n) must return a value in [0, n).
func NewAssignerWithSource(intN func(n int) int) *Assigner {
	return &Assigner{intN: intN, lower: cases.Lower(language.Und)}
}

// Assign returns n's target id and interaction type, writing both markers to the
// node when it has none. A node that already carries a marker keeps it. scope may
// be nil, in which case no collision checks are made.
func (a *Assigner) Assign(n interfaces.Node, scope *Scope) Identity {
	if marker, ok := n.Attr(TargetAttr); ok && strings.TrimSpace(marker) != "" {
		return a.reuse(n, strings.TrimSpace(marker), scope)
	}

	typ := InteractionTypeOf(n)
	var id string
	if base := a.derive(n); base != "" {
		id = uniqueSuffix(TargetPrefix+base, scope)
	} else {
		id = a.randomID(n.TagName(), scope)
	}
	scope.claim(id)

	n.SetAttr(TargetAttr, id)
	n.SetAttr(ActionAttr, string(typ))
	return Identity{TargetID: id, InteractionType: typ}
}

func markerID(marker string) string {
	if strings.HasPrefix(marker, TargetPrefix) {
		return marker
	}
	return TargetPrefix + marker
}

func (a *Assigner) reuse(n interfaces.Node, marker string, scope *Scope) Identity {
	id := markerID(marker)

	typ := entities.InteractionType("")
	if action, ok := n.Attr(ActionAttr); ok {
		typ = entities.InteractionType(strings.TrimSpace(action))
	}
	if !typ.Valid() {
		typ = InteractionTypeOf(n)
		n.SetAttr(ActionAttr, string(typ))
	}

	if scope.owned(id) {
		alias := uniqueSuffix(id, scope)
		scope.claim(alias)
		return Identity{TargetID: alias, InteractionType: typ, Reused: true, Aliased: true}
	}
	scope.claim(id)
	return Identity{TargetID: id, InteractionType: typ, Reused: true}
}

// derive applies the naming precedence and returns "" when nothing meaningful is found.
func (a *Assigner) derive(n interfaces.Node) string {
	if v := rawAttr(n, "id"); v != "" {
		return v
	}
	if v := rawAttr(n, TestIDAttr); v != "" {
		return v
	}
	if v := a.Normalize(rawAttr(n, "aria-label")); v != "" {
		return v
	}
	if v := rawAttr(n, "name"); v != "" {
		return v
	}
	if v := a.Normalize(rawAttr(n, "placeholder")); v != "" {
		return v
	}
	if text := strings.TrimSpace(n.Text()); text != "" && utf8.RuneCountInString(text) < maxTextLength {
		if v := a.Normalize(text); v != "" {
			return v
		}
	}
	return ""
}

func rawAttr(n interfaces.Node, name string) string {
	v, _ := n.Attr(name)
	return strings.TrimSpace(v)
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	disallowed    = regexp.MustCompile(`[^a-z0-9_-]+`)
	hyphenRun     = regexp.MustCompile(`-{2,}`)
)

// Normalize lowercases s, folds accents, turns whitespace runs into hyphens and
// strips every character outside [a-z0-9_-].
func (a *Assigner) Normalize(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = folded
	}
	a.mu.Lock()
	s = a.lower.String(strings.TrimSpace(s))
	a.mu.Unlock()
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = disallowed.ReplaceAllString(s, "")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// randomID returns "ai-target-<tag>-<base36>", retrying on collision and widening
// the suffix after repeated collisions.
func (a *Assigner) randomID(tag string, scope *Scope) string {
	length := randomIDLength
	for {
		for i := 0; i < randomIDAttempts; i++ {
			id := fmt.Sprintf("%s%s-%s", TargetPrefix, tag, a.randomSuffix(length))
			if !scope.taken(id) {
				return id
			}
		}
		length += 2
	}
}

func (a *Assigner) randomSuffix(length int) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := make([]byte, length)
	for i := range b {
		b[i] = base36[a.intN(len(base36))]
	}
	return string(b)
}

func uniqueSuffix(id string, scope *Scope) string {
	if !scope.has(id) {
		return id
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", id, i)
		if !scope.has(candidate) {
			return candidate
		}
	}
}
