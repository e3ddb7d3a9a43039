package interfaces

import (
	"context"
	"errors"

	"ai_registry/domain/entities"
)

// ErrNoDocument is returned when there is no page to read from, e.g. the browser is
// closed or the engine was built without a DOM capability.
var ErrNoDocument = errors.New("no document available")

// Node is a read-mostly view of one element. Implementations are compared by identity,
// so they must be pointer types.
type Node interface {
	// TagName returns the lowercase tag name
	TagName() string

	Attr(name string) (string, bool)

	// Attrs returns a copy of every attribute on the node
	Attrs() map[string]string

	// SetAttr writes an attribute. Browser-backed nodes buffer the write until
	// the owning Document is committed.
	SetAttr(name, value string)

	Parent() Node
	Children() []Node
	Text() string
	Style() entities.ComputedStyle

	// Rect returns the viewport-relative bounding box. ok is false when the node
	// has no layout (detached, never rendered).
	Rect() (rect entities.Rect, ok bool)

	// Disabled returns the DOM disabled property
	Disabled() bool

	// FormValue returns the current value of form controls
	FormValue() (value string, ok bool)

	// Checked returns the checked state of checkboxes and radios
	Checked() (checked bool, ok bool)

	// HasClickHandler reports an inline or property click handler
	HasClickHandler() bool

	// Contains reports whether other is the node itself or one of its descendants
	Contains(other Node) bool

	Matches(selector string) bool
	QueryAll(selector string) []Node
}

// Document is one consistent view of a page used for the duration of a scan.
type Document interface {
	URL() string
	Title() string
	Body() Node
	Viewport() entities.Viewport

	// ElementFromPoint returns the topmost node at p (viewport coordinates), or nil
	ElementFromPoint(p entities.Point) Node

	QueryAll(selector string) []Node

	// Commit flushes attribute writes made during a scan back to the page
	Commit(ctx context.Context) error
}

// DOM is the injected DOM-access capability. Document returns ErrNoDocument
// when no page is available.
type DOM interface {
	Document(ctx context.Context) (Document, error)
}
