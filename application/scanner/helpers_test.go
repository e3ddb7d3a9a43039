package scanner

import (
	"testing"

	"ai_registry/domain/entities"
	"ai_registry/infrastructure/dom"

	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, body string) *dom.Document {
	t.Helper()
	doc, err := dom.Parse("<html><head><title>Fixture</title></head><body>" + body + "</body></html>")
	require.NoError(t, err)
	doc.SetViewport(entities.Viewport{Width: 1280, Height: 720})
	return doc
}

func laidOut(t *testing.T, body string) *dom.Document {
	t.Helper()
	doc := parse(t, body)
	dom.AutoLayout(doc, 20)
	return doc
}

func find(t *testing.T, doc *dom.Document, selector string) *dom.Node {
	t.Helper()
	n := doc.Find(selector)
	require.NotNil(t, n, "no node for %q", selector)
	return n
}

func rect(x, y, w, h float64) entities.Rect {
	return entities.Rect{X: x, Y: y, Width: w, Height: h}
}
