package scanner

import (
	"fmt"
	"strings"

	"ai_registry/domain/interfaces"
)

// ComputePath builds a descriptive CSS-like path from n up to the nearest ancestor
// carrying an id, or to the body. Segments are joined with " > ".
//
// The nth-child index counts same-tag siblings only, so the path is advisory and
// is not guaranteed to re-select n under real CSS semantics.
func ComputePath(n interfaces.Node) string {
	var segments []string
	for cur := n; cur != nil; cur = cur.Parent() {
		tag := cur.TagName()
		if tag == "body" || tag == "html" {
			break
		}

		if id, ok := cur.Attr("id"); ok && strings.TrimSpace(id) != "" {
			segments = append(segments, tag+"#"+cssEscape(id))
			break
		}

		var b strings.Builder
		b.WriteString(tag)
		if class, ok := cur.Attr("class"); ok {
			for _, c := range strings.Fields(class) {
				b.WriteString(".")
				b.WriteString(cssEscape(c))
			}
		}
		if role, ok := cur.Attr("role"); ok && strings.TrimSpace(role) != "" {
			fmt.Fprintf(&b, `[role="%s"]`, strings.ReplaceAll(strings.TrimSpace(role), `"`, `\"`))
		}
		if parent := cur.Parent(); parent != nil {
			same, index := 0, 0
			for _, sib := range parent.Children() {
				if sib.TagName() != tag {
					continue
				}
				same++
				if sib == cur {
					index = same
				}
			}
			if same > 1 && index > 0 {
				fmt.Fprintf(&b, ":nth-child(%d)", index)
			}
		}
		segments = append(segments, b.String())
	}

	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, " > ")
}

// cssEscape escapes an identifier for use in a selector.
func cssEscape(ident string) string {
	var b strings.Builder
	for i, r := range ident {
		switch {
		case r == 0:
			b.WriteString(`\fffd `)
		case r >= 0x1 && r <= 0x1f, r == 0x7f:
			fmt.Fprintf(&b, `\%x `, r)
		case i == 0 && r >= '0' && r <= '9':
			fmt.Fprintf(&b, `\%x `, r)
		case i == 1 && r >= '0' && r <= '9' && ident[0] == '-':
			fmt.Fprintf(&b, `\%x `, r)
		case r >= 0x80, r == '-', r == '_',
			r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	if ident == "-" {
		return `\-`
	}
	return b.String()
}
