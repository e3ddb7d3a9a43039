package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePath(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "terminates at ancestor id",
			body: `<main><div id="app"><ul class="menu main"><li><a href="#">A</a></li><li><a href="#" role="menuitem" class="item">B</a></li></ul></div></main>`,
			want: `div#app > ul.menu.main > li:nth-child(2) > a.item[role="menuitem"]`,
		},
		{
			name: "stops below body",
			body: `<section><form><button class="primary">Save</button></form></section>`,
			want: `section > form > button.primary`,
		},
		{
			name: "counts same-tag siblings only",
			body: `<div><p></p><button class="a"></button><p></p><button class="b"></button></div>`,
			want: `div > button.b:nth-child(2)`,
		},
		{
			name: "escapes identifiers",
			body: `<div id="1st"><button class="w-1/2 sm:hidden">Go</button></div>`,
			want: `div#\31 st > button.w-1\/2.sm\:hidden`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, tt.body)
			nodes := doc.FindAll("button, a[role]")
			target := nodes[len(nodes)-1]
			assert.Equal(t, tt.want, ComputePath(target))
		})
	}
}

func TestComputePathOwnID(t *testing.T) {
	doc := parse(t, `<div class="wrap"><button id="go" class="primary">Go</button></div>`)
	assert.Equal(t, "button#go", ComputePath(find(t, doc, "#go")))
}

func TestComputePathResolvesToNode(t *testing.T) {
	doc := parse(t, `<div id="app"><nav class="top"><a href="/a">A</a><a href="/b">B</a></nav></div>`)
	target := doc.FindAll("a")[1]

	path := ComputePath(target)
	assert.Equal(t, "div#app > nav.top > a:nth-child(2)", path)
	assert.Same(t, target, doc.Find(path))
}
