package workflow

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MainOutput is the n8n output type used for ordinary data flow.
const MainOutput = "main"

// Target is one edge endpoint inside an output port.
type Target struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`

	// Raw is the target as it was decoded. It is written back verbatim, so
	// edges that are only passed through keep fields this type does not model.
	Raw json.RawMessage `json:"-"`
}

type plainTarget struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

func (t *Target) UnmarshalJSON(b []byte) error {
	var p plainTarget
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*t = Target{Node: p.Node, Type: p.Type, Index: p.Index, Raw: append(json.RawMessage(nil), b...)}
	return nil
}

func (t Target) MarshalJSON() ([]byte, error) {
	if len(t.Raw) > 0 {
		return t.Raw, nil
	}
	return json.Marshal(plainTarget{Node: t.Node, Type: t.Type, Index: t.Index})
}

// Ports maps an output type ("main") to its ordered output ports; each port
// is an ordered list of targets.
type Ports = orderedmap.OrderedMap[string, [][]Target]

// Connections maps a source node name to its output ports, in document order.
type Connections = orderedmap.OrderedMap[string, *Ports]

func NewConnections() *Connections {
	return orderedmap.New[string, *Ports]()
}

// MainEdge is a target on the first input of the named node.
func MainEdge(node string) Target {
	return Target{Node: node, Type: MainOutput, Index: 0}
}

// SinglePort builds a "main" output with one port fanning out to targets.
func SinglePort(targets ...Target) *Ports {
	ports := orderedmap.New[string, [][]Target]()
	port := make([]Target, len(targets))
	copy(port, targets)
	ports.Set(MainOutput, [][]Target{port})
	return ports
}

// MainTargets flattens every "main" port of source, in port order. The
// returned targets carry only the modelled fields.
func MainTargets(conns *Connections, source string) []Target {
	if conns == nil {
		return nil
	}
	ports, ok := conns.Get(source)
	if !ok || ports == nil {
		return nil
	}
	main, _ := ports.Get(MainOutput)
	var out []Target
	for _, port := range main {
		for _, t := range port {
			t.Raw = nil
			out = append(out, t)
		}
	}
	return out
}

// Sources lists the connection keys in document order.
func Sources(conns *Connections) []string {
	if conns == nil {
		return nil
	}
	out := make([]string, 0, conns.Len())
	for p := conns.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}
