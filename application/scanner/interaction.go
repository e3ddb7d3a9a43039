package scanner

import (
	"strings"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"
)

var inputTypes = map[string]entities.InteractionType{
	"checkbox":       entities.InteractionClick,
	"radio":          entities.InteractionClick,
	"submit":         entities.InteractionClick,
	"button":         entities.InteractionClick,
	"reset":          entities.InteractionClick,
	"image":          entities.InteractionClick,
	"file":           entities.InteractionUpload,
	"range":          entities.InteractionRange,
	"color":          entities.InteractionColor,
	"date":           entities.InteractionDate,
	"datetime-local": entities.InteractionDate,
	"month":          entities.InteractionDate,
	"time":           entities.InteractionDate,
	"week":           entities.InteractionDate,
}

var roleTypes = map[string]entities.InteractionType{
	"button":     entities.InteractionClick,
	"link":       entities.InteractionClick,
	"checkbox":   entities.InteractionClick,
	"radio":      entities.InteractionClick,
	"switch":     entities.InteractionClick,
	"tab":        entities.InteractionClick,
	"menuitem":   entities.InteractionClick,
	"option":     entities.InteractionClick,
	"textbox":    entities.InteractionInput,
	"searchbox":  entities.InteractionInput,
	"spinbutton": entities.InteractionInput,
	"listbox":    entities.InteractionSelect,
	"combobox":   entities.InteractionSelect,
	"slider":     entities.InteractionRange,
}

// InteractionTypeOf classifies how n is meant to be used: by tag first, then
// input type or ARIA role, then click handlers and a pointer cursor.
func InteractionTypeOf(n interfaces.Node) entities.InteractionType {
	if n == nil {
		return entities.InteractionInteract
	}

	switch n.TagName() {
	case "button", "a", "summary", "details", "label":
		return entities.InteractionClick
	case "textarea":
		return entities.InteractionInput
	case "select", "option":
		return entities.InteractionSelect
	case "input":
		typ, _ := n.Attr("type")
		if t, ok := inputTypes[strings.ToLower(strings.TrimSpace(typ))]; ok {
			return t
		}
		return entities.InteractionInput
	}

	if role, ok := n.Attr("role"); ok {
		if fields := strings.Fields(strings.ToLower(role)); len(fields) > 0 {
			if t, ok := roleTypes[fields[0]]; ok {
				return t
			}
		}
	}

	if n.HasClickHandler() || n.Style().Cursor == "pointer" {
		return entities.InteractionClick
	}
	return entities.InteractionInteract
}
