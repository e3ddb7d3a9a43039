package scanner

import (
	"strings"

	"ai_registry/domain/interfaces"
)

// Attributes the engine reads and writes on page nodes.
const (
	TargetAttr    = "data-ai-target"
	ActionAttr    = "data-ai-action"
	ComponentAttr = "data-ai-component"
	TestIDAttr    = "data-testid"

	TargetPrefix = "ai-target-"
)

// InteractiveTags and InteractiveRoles form the fixed allow-list of candidate elements.
var (
	InteractiveTags = []string{
		"a[href]", "button", "input", "select", "textarea", "summary",
	}

	InteractiveRoles = []string{
		"button", "link", "checkbox", "radio", "switch", "tab", "menuitem", "option",
		"textbox", "searchbox", "listbox", "combobox", "slider", "spinbutton",
	}

	interactiveExtras = []string{
		"[onclick]",
		`[contenteditable="true"]`,
		`[tabindex]:not([tabindex="-1"])`,
		"[" + TargetAttr + "]",
	}
)

// InteractiveSelector is the allow-list joined into one selector group.
var InteractiveSelector = buildInteractiveSelector()

func buildInteractiveSelector() string {
	parts := make([]string, 0, len(InteractiveTags)+len(InteractiveRoles)+len(interactiveExtras))
	parts = append(parts, InteractiveTags...)
	for _, role := range InteractiveRoles {
		parts = append(parts, `[role="`+role+`"]`)
	}
	parts = append(parts, interactiveExtras...)
	return strings.Join(parts, ", ")
}

// IsInteractiveCandidate reports whether n itself matches the allow-list.
func IsInteractiveCandidate(n interfaces.Node) bool {
	return n != nil && n.Matches(InteractiveSelector)
}

// ContainsInteractive reports whether n matches the allow-list or has a descendant that does.
func ContainsInteractive(n interfaces.Node) bool {
	if n == nil {
		return false
	}
	return n.Matches(InteractiveSelector) || len(n.QueryAll(InteractiveSelector)) > 0
}

// TargetSelector returns a selector matching the node marked with targetID. A
// marker written without the id prefix matches too.
func TargetSelector(targetID string) string {
	sel := attrEquals(TargetAttr, targetID)
	if bare := strings.TrimPrefix(targetID, TargetPrefix); bare != targetID && bare != "" {
		sel += ", " + attrEquals(TargetAttr, bare)
	}
	return sel
}

func attrEquals(name, value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return "[" + name + `="` + value + `"]`
}
