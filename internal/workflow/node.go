package workflow

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Node is one entry of a workflow's "nodes" array. Every field is kept as raw
// JSON in document order so nodes round-trip without loss; id, name and type
// are decoded for lookups.
type Node struct {
	id    string
	name  string
	typ   string
	attrs *orderedmap.OrderedMap[string, json.RawMessage]
}

func NewNode() *Node {
	return &Node{attrs: orderedmap.New[string, json.RawMessage]()}
}

func (n *Node) ID() string   { return n.id }
func (n *Node) Name() string { return n.name }
func (n *Node) Type() string { return n.typ }

// Get returns the raw JSON value of a field.
func (n *Node) Get(key string) (json.RawMessage, bool) {
	if n == nil || n.attrs == nil {
		return nil, false
	}
	return n.attrs.Get(key)
}

// Set marshals value into the named field. Existing fields keep their
// position; new fields are appended.
func (n *Node) Set(key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("node field %q: %w", key, err)
	}
	return n.setRaw(key, b)
}

func (n *Node) Keys() []string {
	if n == nil || n.attrs == nil {
		return nil
	}
	keys := make([]string, 0, n.attrs.Len())
	for p := n.attrs.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

func (n *Node) setRaw(key string, raw json.RawMessage) error {
	if n.attrs == nil {
		n.attrs = orderedmap.New[string, json.RawMessage]()
	}
	switch key {
	case "id", "name", "type":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("node field %q must be a string: %w", key, err)
		}
		switch key {
		case "id":
			n.id = s
		case "name":
			n.name = s
		case "type":
			n.typ = s
		}
	}
	n.attrs.Set(key, raw)
	return nil
}

func (n *Node) UnmarshalJSON(b []byte) error {
	attrs := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(b, attrs); err != nil {
		return err
	}
	out := Node{attrs: orderedmap.New[string, json.RawMessage]()}
	for p := attrs.Oldest(); p != nil; p = p.Next() {
		if err := out.setRaw(p.Key, p.Value); err != nil {
			return err
		}
	}
	*n = out
	return nil
}

func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil || n.attrs == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(n.attrs)
}
