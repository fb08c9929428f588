// Package patch splices test-name label nodes into n8n test workflows.
package patch

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/strongdm/labelpatch/internal/topology"
	"github.com/strongdm/labelpatch/internal/workflow"
)

const (
	LabelNamePrefix = "Label: "
	LabelIDPrefix   = "label-"

	labelNodeType        = "n8n-nodes-base.set"
	labelNodeTypeVersion = 3.3
	labelField           = "test_name"
	labelAssignmentID    = "test_name_id"
)

var (
	ErrSinkNotFound  = errors.New("sink node not found")
	ErrMissingNodeID = errors.New("test node has no id")
)

// Result describes one successful Patch.
type Result struct {
	Labels  []*workflow.Node
	Skipped []string
}

func LabelName(testName string) string { return LabelNamePrefix + testName }
func LabelID(sourceID string) string   { return LabelIDPrefix + sourceID }

// Patch inserts one label node per test node found in doc and rebuilds the
// connection map from the table's routes. doc is left untouched when an
// error is returned.
func Patch(doc *workflow.Document, table *topology.Table, log *zap.Logger) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("patch: nil document")
	}
	if table == nil {
		return nil, fmt.Errorf("patch: nil topology")
	}
	if log == nil {
		log = zap.NewNop()
	}

	ids := map[string]string{}
	for _, n := range doc.Nodes {
		if n != nil && table.IsTestNode(n.Name()) {
			ids[n.Name()] = n.ID()
		}
	}

	res := &Result{}
	for _, name := range table.TestNodes {
		id, ok := ids[name]
		if !ok {
			log.Debug("test node not in workflow; no label", zap.String("test", name))
			res.Skipped = append(res.Skipped, name)
			continue
		}
		if id == "" {
			return nil, fmt.Errorf("%w: %q", ErrMissingNodeID, name)
		}
		label, err := newLabelNode(id, name)
		if err != nil {
			return nil, err
		}
		res.Labels = append(res.Labels, label)
	}

	at := doc.NodeIndex(table.Sink)
	if at < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSinkNotFound, table.Sink)
	}

	conns := rebuildConnections(doc.Connections, table)
	doc.InsertNodes(at, res.Labels...)
	doc.Connections = conns
	return res, nil
}

func newLabelNode(sourceID, testName string) (*workflow.Node, error) {
	params := map[string]any{
		"assignments": map[string]any{
			"assignments": []labelAssignment{{
				ID:    labelAssignmentID,
				Name:  labelField,
				Value: testName,
				Type:  "string",
			}},
		},
		"options": map[string]any{},
	}
	n := workflow.NewNode()
	fields := []struct {
		key   string
		value any
	}{
		{"parameters", params},
		{"type", labelNodeType},
		{"typeVersion", labelNodeTypeVersion},
		// Layout is left to the editor.
		{"position", [2]int{0, 0}},
		{"id", LabelID(sourceID)},
		{"name", LabelName(testName)},
	}
	for _, f := range fields {
		if err := n.Set(f.key, f.value); err != nil {
			return nil, err
		}
	}
	return n, nil
}

type labelAssignment struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

// rebuildConnections redirects every connected test node to its label, sends
// each such label to the sink and then applies the table's routes in order.
// Keys keep their first position; later writes for the same key replace the
// value in place.
func rebuildConnections(old *workflow.Connections, table *topology.Table) *workflow.Connections {
	out := workflow.NewConnections()
	if old != nil {
		for p := old.Oldest(); p != nil; p = p.Next() {
			if !table.IsTestNode(p.Key) {
				out.Set(p.Key, p.Value)
				continue
			}
			label := LabelName(p.Key)
			out.Set(p.Key, workflow.SinglePort(workflow.MainEdge(label)))
			out.Set(label, workflow.SinglePort(workflow.MainEdge(table.Sink)))
		}
	}
	for _, r := range table.Routes {
		targets := make([]workflow.Target, 0, len(r.Successors)+1)
		for _, s := range r.Successors {
			targets = append(targets, workflow.MainEdge(s))
		}
		targets = append(targets, workflow.MainEdge(LabelName(r.Source)))
		out.Set(r.Source, workflow.SinglePort(targets...))
	}
	return out
}
