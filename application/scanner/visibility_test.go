package scanner

import (
	"testing"

	"ai_registry/domain/entities"

	"github.com/stretchr/testify/assert"
)

func TestIsVisible(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		rect    entities.Rect
		visible bool
	}{
		{"plain button", `<button id="t">Go</button>`, rect(10, 10, 100, 30), true},
		{"display none", `<button id="t" style="display: none">Go</button>`, rect(10, 10, 100, 30), false},
		{"hidden attribute", `<button id="t" hidden>Go</button>`, rect(10, 10, 100, 30), false},
		{"inside display none", `<div style="display:none"><button id="t">Go</button></div>`, rect(10, 10, 100, 30), false},
		{"visibility hidden", `<button id="t" style="visibility:hidden">Go</button>`, rect(10, 10, 100, 30), false},
		{"inherited visibility hidden", `<div style="visibility:hidden"><button id="t">Go</button></div>`, rect(10, 10, 100, 30), false},
		{"opacity zero", `<button id="t" style="opacity:0">Go</button>`, rect(10, 10, 100, 30), false},
		{"opacity zero decimal", `<button id="t" style="opacity: 0.0 !important">Go</button>`, rect(10, 10, 100, 30), false},
		{"opacity zero percent", `<button id="t" style="opacity:0%">Go</button>`, rect(10, 10, 100, 30), false},
		{"opacity partial", `<button id="t" style="opacity:0.2">Go</button>`, rect(10, 10, 100, 30), true},
		{"zero width", `<button id="t">Go</button>`, rect(10, 10, 0, 30), false},
		{"zero height", `<button id="t">Go</button>`, rect(10, 10, 100, 0), false},
		{"below viewport", `<button id="t">Go</button>`, rect(10, 720, 100, 30), false},
		{"right of viewport", `<button id="t">Go</button>`, rect(1280, 10, 100, 30), false},
		{"above viewport", `<button id="t">Go</button>`, rect(10, -30, 100, 30), false},
		{"partially above viewport", `<button id="t">Go</button>`, rect(10, -10, 100, 30), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.body)
			n := find(t, doc, "#t")
			n.SetRect(tt.rect)

			assert.Equal(t, tt.visible, NewClassifier().IsVisible(doc, n))
		})
	}
}

func TestIsVisibleNoLayout(t *testing.T) {
	doc := parse(t, `<button id="t">Go</button>`)
	assert.False(t, NewClassifier().IsVisible(doc, find(t, doc, "#t")))
}

func TestIsVisibleNilInputs(t *testing.T) {
	doc := parse(t, `<button id="t">Go</button>`)
	c := NewClassifier()
	assert.False(t, c.IsVisible(doc, nil))
	assert.False(t, c.IsVisible(nil, find(t, doc, "#t")))
	assert.False(t, c.IsInteractable(doc, nil))
}

func TestIsVisibleDetachedNode(t *testing.T) {
	doc := parse(t, `<button id="t">Go</button>`)
	n := find(t, doc, "#t").SetRect(rect(0, 0, 100, 30))
	doc.Remove(n)
	assert.False(t, NewClassifier().IsVisible(doc, n))
}

func TestOcclusion(t *testing.T) {
	doc := parse(t, `<button id="t">Go</button><div id="overlay"></div>`)
	target := find(t, doc, "#t").SetRect(rect(10, 10, 100, 30))
	find(t, doc, "#overlay").SetRect(rect(0, 0, 1280, 720)).SetZIndex(10)

	assert.False(t, NewClassifier().IsVisible(doc, target), "covered by overlay")
	assert.True(t, Classifier{OcclusionCheck: false}.IsVisible(doc, target), "occlusion probe disabled")
}

func TestOcclusionIgnoresPointerEventsNoneOverlay(t *testing.T) {
	doc := parse(t, `<button id="t">Go</button><div id="overlay" style="pointer-events:none"></div>`)
	target := find(t, doc, "#t").SetRect(rect(10, 10, 100, 30))
	find(t, doc, "#overlay").SetRect(rect(0, 0, 1280, 720)).SetZIndex(10)

	assert.True(t, NewClassifier().IsVisible(doc, target))
}

func TestOcclusionByRelatives(t *testing.T) {
	t.Run("descendant on top", func(t *testing.T) {
		doc := parse(t, `<button id="t"><span id="label">Go</span></button>`)
		target := find(t, doc, "#t").SetRect(rect(0, 0, 100, 40))
		find(t, doc, "#label").SetRect(rect(10, 10, 80, 20))
		assert.True(t, NewClassifier().IsVisible(doc, target))
	})

	t.Run("ancestor on top", func(t *testing.T) {
		doc := parse(t, `<div id="wrap"><a id="t" href="#">Go</a></div>`)
		find(t, doc, "#wrap").SetRect(rect(0, 0, 200, 200)).SetZIndex(5)
		target := find(t, doc, "#t").SetRect(rect(10, 10, 50, 20))
		assert.True(t, NewClassifier().IsVisible(doc, target))
	})
}

func TestOcclusionProbesClippedCentre(t *testing.T) {
	// The element's full centre is off-screen; the probe lands on the visible part.
	doc := parse(t, `<button id="t">Go</button>`)
	target := find(t, doc, "#t").SetRect(rect(0, 700, 100, 100))

	vis := NewClassifier().inspect(doc, target, nil)
	assert.True(t, vis.Visible)
	assert.InDelta(t, 20.0, vis.VisiblePercentage, 0.001)
}

func TestIsInteractable(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		interactable bool
	}{
		{"enabled button", `<button id="t">Go</button>`, true},
		{"disabled attribute", `<button id="t" disabled>Go</button>`, false},
		{"disabled fieldset", `<fieldset disabled><input id="t"></fieldset>`, false},
		{"aria-disabled", `<a id="t" href="#" aria-disabled="true">Go</a>`, false},
		{"aria-disabled mixed case", `<a id="t" href="#" aria-disabled=" TRUE ">Go</a>`, false},
		{"aria-disabled false", `<a id="t" href="#" aria-disabled="false">Go</a>`, true},
		{"pointer-events none", `<button id="t" style="pointer-events: none">Go</button>`, false},
		{"disabled attribute on div", `<div id="t" role="button" disabled>Go</div>`, false},
		{"hidden", `<button id="t" style="display:none">Go</button>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.body)
			n := find(t, doc, "#t").SetRect(rect(10, 10, 100, 30))
			assert.Equal(t, tt.interactable, NewClassifier().IsInteractable(doc, n))
		})
	}
}

func TestDisabledPropertyWithoutAttribute(t *testing.T) {
	doc := parse(t, `<button id="t">Go</button>`)
	n := find(t, doc, "#t").SetRect(rect(10, 10, 100, 30)).SetDisabledProperty(true)
	assert.False(t, NewClassifier().IsInteractable(doc, n))
}

func TestInteractableImpliesVisible(t *testing.T) {
	doc := parse(t, `
		<button id="a">A</button>
		<button id="b" style="display:none">B</button>
		<button id="c" disabled>C</button>
		<input id="d" style="opacity:0">
		<a id="e" href="#">E</a>
		<div id="f" role="button"></div>`)
	find(t, doc, "#a").SetRect(rect(0, 0, 100, 20))
	find(t, doc, "#b").SetRect(rect(0, 30, 100, 20))
	find(t, doc, "#c").SetRect(rect(0, 60, 100, 20))
	find(t, doc, "#d").SetRect(rect(0, 90, 100, 20))
	find(t, doc, "#e").SetRect(rect(0, 2000, 100, 20))
	find(t, doc, "#f").SetRect(rect(0, 120, 0, 0))

	c := NewClassifier()
	for _, n := range doc.FindAll("button, input, a, div") {
		if !c.IsVisible(doc, n) {
			assert.False(t, c.IsInteractable(doc, n), n.Attrs()["id"])
		}
	}
}
