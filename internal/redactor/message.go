package redactor

import "encoding/json"

// Message is one chat message in the `{role, content, ...}` shape the
// gateway passes through. Fields beyond role/content (tool_call_id, name,
// and anything else a provider's schema adds) round-trip through Extra
// untouched.
type Message struct {
	Role    string
	Content string
	Extra   map[string]any
}

func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["role"] = m.Role
	out["content"] = m.Content
	return json.Marshal(out)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if role, ok := raw["role"].(string); ok {
		m.Role = role
	}
	if content, ok := raw["content"].(string); ok {
		m.Content = content
	}
	delete(raw, "role")
	delete(raw, "content")
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}
