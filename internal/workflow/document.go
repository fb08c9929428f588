// Package workflow models n8n workflow documents. Decoding and encoding keep
// unknown fields and key order intact so a patched file differs from its
// input only where it was changed.
package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var ErrNoNodes = errors.New(`workflow has no "nodes" field`)

type Document struct {
	Nodes       []*Node
	Connections *Connections

	attrs *orderedmap.OrderedMap[string, json.RawMessage]
}

func NewDocument() *Document {
	return &Document{
		Connections: NewConnections(),
		attrs:       orderedmap.New[string, json.RawMessage](),
	}
}

func Decode(b []byte) (*Document, error) {
	d := NewDocument()
	if err := json.Unmarshal(b, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Encode writes d as tab-indented JSON. <, > and & are written literally, as
// n8n writes them.
func Encode(w io.Writer, d *Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "\t")
	if err := enc.Encode(d); err != nil {
		return err
	}
	_, err := w.Write(unescapeHTML(buf.Bytes()))
	return err
}

// Nested Marshalers (nodes, ordered maps) run their own json.Marshal, which
// always escapes HTML characters; SetEscapeHTML only reaches the outer level.
var htmlEscapes = map[string]byte{
	`\u003c`: '<', `\u003C`: '<',
	`\u003e`: '>', `\u003E`: '>',
	`\u0026`: '&',
}

// unescapeHTML turns \u003c, \u003e and \u0026 escapes in encoded JSON back
// into literal characters. Escaped backslashes are skipped as pairs, so text
// such as \\u003c is left alone.
func unescapeHTML(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u00`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != '\\' || i+1 >= len(b) {
			out = append(out, c)
			continue
		}
		if i+6 <= len(b) {
			if r, ok := htmlEscapes[string(b[i:i+6])]; ok {
				out = append(out, r)
				i += 5
				continue
			}
		}
		out = append(out, c, b[i+1])
		i++
	}
	return out
}

func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Attr returns a top-level field other than nodes and connections.
func (d *Document) Attr(key string) (json.RawMessage, bool) {
	if d.attrs == nil {
		return nil, false
	}
	return d.attrs.Get(key)
}

// NodeIndex returns the position of the first node named name, or -1.
func (d *Document) NodeIndex(name string) int {
	for i, n := range d.Nodes {
		if n != nil && n.Name() == name {
			return i
		}
	}
	return -1
}

func (d *Document) FindNode(name string) *Node {
	if i := d.NodeIndex(name); i >= 0 {
		return d.Nodes[i]
	}
	return nil
}

// InsertNodes inserts nodes before position i, keeping their order.
func (d *Document) InsertNodes(i int, nodes ...*Node) {
	if i < 0 || i > len(d.Nodes) {
		i = len(d.Nodes)
	}
	out := make([]*Node, 0, len(d.Nodes)+len(nodes))
	out = append(out, d.Nodes[:i]...)
	out = append(out, nodes...)
	out = append(out, d.Nodes[i:]...)
	d.Nodes = out
}

func (d *Document) UnmarshalJSON(b []byte) error {
	attrs := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(b, attrs); err != nil {
		return err
	}
	rawNodes, ok := attrs.Get("nodes")
	if !ok {
		return ErrNoNodes
	}
	var nodes []*Node
	if err := json.Unmarshal(rawNodes, &nodes); err != nil {
		return fmt.Errorf("decode nodes: %w", err)
	}
	conns := NewConnections()
	if raw, ok := attrs.Get("connections"); ok {
		if err := json.Unmarshal(raw, conns); err != nil {
			return fmt.Errorf("decode connections: %w", err)
		}
	}
	d.Nodes = nodes
	d.Connections = conns
	d.attrs = attrs
	return nil
}

func (d *Document) MarshalJSON() ([]byte, error) {
	out := orderedmap.New[string, json.RawMessage]()
	if d.attrs != nil {
		for p := d.attrs.Oldest(); p != nil; p = p.Next() {
			out.Set(p.Key, p.Value)
		}
	}
	nodes := d.Nodes
	if nodes == nil {
		nodes = []*Node{}
	}
	nb, err := json.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("encode nodes: %w", err)
	}
	out.Set("nodes", nb)
	conns := d.Connections
	if conns == nil {
		conns = NewConnections()
	}
	cb, err := json.Marshal(conns)
	if err != nil {
		return nil, fmt.Errorf("encode connections: %w", err)
	}
	out.Set("connections", cb)
	return json.Marshal(out)
}
