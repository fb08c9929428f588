// Package topology holds the fixed test-node table that drives label
// insertion: which nodes are tests, which node collects their results, and
// which chain successors each test node keeps after patching.
package topology

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultSink = "Collect Test Results"

//go:embed default_topology.yaml
var defaultTopologyRaw []byte

// Route lists the nodes a test node keeps feeding once its label node is
// spliced in. An empty Successors list means the node feeds only its label.
type Route struct {
	Source     string   `json:"source" yaml:"source"`
	Successors []string `json:"successors,omitempty" yaml:"successors,omitempty"`
}

type Table struct {
	Version   int      `json:"version" yaml:"version"`
	Sink      string   `json:"sink" yaml:"sink"`
	TestNodes []string `json:"test_nodes" yaml:"test_nodes"`
	Routes    []Route  `json:"routes" yaml:"routes"`

	testSet map[string]bool
}

// Default returns the built-in Mastodon test-workflow table.
func Default() (*Table, error) {
	return Parse(defaultTopologyRaw, "yaml")
}

func LoadFile(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	t, err := Parse(b, format)
	if err != nil {
		return nil, fmt.Errorf("topology %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a table in the given format ("json" or "yaml"), applies
// defaults and validates it.
func Parse(b []byte, format string) (*Table, error) {
	var t Table
	switch format {
	case "json":
		if err := json.Unmarshal(b, &t); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(b, &t); err != nil {
			return nil, err
		}
	}
	return New(t)
}

// New applies defaults to t, validates it and returns a ready table. Use it
// for tables built in code.
func New(t Table) (*Table, error) {
	applyDefaults(&t)
	if err := validateTable(&t); err != nil {
		return nil, err
	}
	t.testSet = make(map[string]bool, len(t.TestNodes))
	for _, name := range t.TestNodes {
		t.testSet[name] = true
	}
	return &t, nil
}

func applyDefaults(t *Table) {
	if t.Version == 0 {
		t.Version = 1
	}
	if strings.TrimSpace(t.Sink) == "" {
		t.Sink = DefaultSink
	}
}

func validateTable(t *Table) error {
	if t.Version != 1 {
		return fmt.Errorf("unsupported topology version: %d", t.Version)
	}
	if len(t.TestNodes) == 0 {
		return fmt.Errorf("test_nodes is required")
	}
	names := map[string]bool{}
	seqs := map[int]string{}
	for i, name := range t.TestNodes {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("test_nodes[%d] is empty", i)
		}
		if names[name] {
			return fmt.Errorf("duplicate test node %q", name)
		}
		names[name] = true
		seq, ok := SequenceNumber(name)
		if !ok {
			return fmt.Errorf("test node %q has no sequence prefix (want \"<n>. <name>\")", name)
		}
		if prev, dup := seqs[seq]; dup {
			return fmt.Errorf("test nodes %q and %q share sequence number %d", prev, name, seq)
		}
		seqs[seq] = name
	}
	if names[t.Sink] {
		return fmt.Errorf("sink %q is listed as a test node", t.Sink)
	}
	sources := map[string]bool{}
	for i, r := range t.Routes {
		if !names[r.Source] {
			return fmt.Errorf("routes[%d]: source %q is not a test node", i, r.Source)
		}
		if sources[r.Source] {
			return fmt.Errorf("routes[%d]: duplicate route for %q", i, r.Source)
		}
		sources[r.Source] = true
		for j, s := range r.Successors {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("routes[%d].successors[%d] is empty", i, j)
			}
		}
	}
	return nil
}

func (t *Table) IsTestNode(name string) bool {
	if t == nil {
		return false
	}
	return t.testSet[name]
}

// SequenceNumber extracts n from a "<n>. <name>" test node name.
func SequenceNumber(name string) (int, bool) {
	prefix, rest, ok := strings.Cut(name, ". ")
	if !ok || strings.TrimSpace(rest) == "" {
		return 0, false
	}
	n, err := strconv.Atoi(prefix)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
