package doc

import (
	"encoding/json"
	"fmt"
)

// ParseJSON decodes a ProseMirror JSON document and normalizes it.
func ParseJSON(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if n.Type != TypeDoc {
		return nil, fmt.Errorf("%w: root is %q", ErrSchema, n.Type)
	}
	return Normalize(&n), nil
}
