package dom

import (
	"strings"

	"github.com/gorilla/css/scanner"
)

// parseInlineStyle tokenizes a style attribute into lowercase property -> value pairs.
// Later declarations win, as in the cascade.
func parseInlineStyle(style string) map[string]string {
	decls := make(map[string]string)
	if strings.TrimSpace(style) == "" {
		return decls
	}

	s := scanner.New(style)
	var prop string
	var value []string
	inValue := false

	flush := func() {
		if prop != "" && len(value) > 0 {
			v := strings.TrimSpace(strings.Join(value, " "))
			v = strings.ReplaceAll(v, "! important", "")
			v = strings.TrimSpace(strings.ReplaceAll(v, "!important", ""))
			decls[prop] = strings.ToLower(v)
		}
		prop, value, inValue = "", nil, false
	}

	for {
		tok := s.Next()
		if tok.Type == scanner.TokenEOF || tok.Type == scanner.TokenError {
			break
		}
		switch tok.Type {
		case scanner.TokenS, scanner.TokenComment:
			continue
		case scanner.TokenChar:
			switch tok.Value {
			case ":":
				if !inValue && prop != "" {
					inValue = true
					continue
				}
			case ";":
				flush()
				continue
			}
		}
		if !inValue {
			if tok.Type == scanner.TokenIdent && prop == "" {
				prop = strings.ToLower(tok.Value)
			}
			continue
		}
		value = append(value, tok.Value)
	}
	flush()
	return decls
}
