package entities

// InteractionType is the dominant way an external actor operates a control
type InteractionType string

const (
	InteractionClick    InteractionType = "click"
	InteractionInput    InteractionType = "input"
	InteractionSelect   InteractionType = "select"
	InteractionUpload   InteractionType = "upload"
	InteractionRange    InteractionType = "range"
	InteractionColor    InteractionType = "color"
	InteractionDate     InteractionType = "date"
	InteractionInteract InteractionType = "interact"
)

// Valid reports whether t is one of the known interaction types.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionClick, InteractionInput, InteractionSelect, InteractionUpload,
		InteractionRange, InteractionColor, InteractionDate, InteractionInteract:
		return true
	}
	return false
}
