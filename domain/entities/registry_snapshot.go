package entities

import "encoding/json"

// RegistrySnapshot is the document exchanged with the Sync Gateway.
// Extra keys found in a persisted snapshot are carried in Extra so a push
// never drops data written by other producers.
type RegistrySnapshot struct {
	Components      json.RawMessage        `json:"components,omitempty"`
	RuntimeElements []ElementDescriptor    `json:"runtimeElements"`
	GeneratedAt     string                 `json:"generatedAt,omitempty"`
	Version         string                 `json:"version,omitempty"`
	PageContexts    map[string]PageContext `json:"pageContexts,omitempty"`
	CurrentPath     string                 `json:"currentPath,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// PageContext summarizes one page (keyed by path) in a persisted snapshot.
type PageContext struct {
	Title        string `json:"title,omitempty"`
	ElementCount int    `json:"elementCount"`
	CapturedAt   string `json:"capturedAt"`
}

var snapshotKeys = map[string]bool{
	"components":      true,
	"runtimeElements": true,
	"generatedAt":     true,
	"version":         true,
	"pageContexts":    true,
	"currentPath":     true,
}

// MarshalJSON writes the known fields over any preserved extra keys.
func (s RegistrySnapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.Extra)+6)
	for k, v := range s.Extra {
		out[k] = v
	}

	type plain RegistrySnapshot
	known, err := json.Marshal(plain(s))
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}
	if s.RuntimeElements == nil {
		out["runtimeElements"] = json.RawMessage("[]")
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the known fields and keeps everything else in Extra.
func (s *RegistrySnapshot) UnmarshalJSON(data []byte) error {
	type plain RegistrySnapshot
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*s = RegistrySnapshot(p)
	s.Extra = nil
	for k, v := range all {
		if snapshotKeys[k] {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]json.RawMessage)
		}
		s.Extra[k] = v
	}
	return nil
}
