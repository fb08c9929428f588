// Package validate lints patched workflows. Findings are advisory: the
// patcher trusts its table and does not refuse to write a file that trips
// one of these rules.
package validate

import (
	"fmt"
	"strings"

	"github.com/strongdm/labelpatch/internal/patch"
	"github.com/strongdm/labelpatch/internal/topology"
	"github.com/strongdm/labelpatch/internal/workflow"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Diagnostic struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	NodeID   string   `json:"node_id,omitempty"`
	EdgeFrom string   `json:"edge_from,omitempty"`
	EdgeTo   string   `json:"edge_to,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s (%s)", d.Severity, d.Message, d.Rule)
}

func Validate(doc *workflow.Document, table *topology.Table) []Diagnostic {
	if doc == nil {
		return nil
	}
	var diags []Diagnostic
	diags = append(diags, lintDuplicateIDs(doc)...)
	diags = append(diags, lintEdgeEndpoints(doc)...)
	if table != nil {
		diags = append(diags, lintLabelSinkEdges(doc, table)...)
	}
	return diags
}

func nodeNames(doc *workflow.Document) map[string]bool {
	names := make(map[string]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n != nil {
			names[n.Name()] = true
		}
	}
	return names
}

func lintDuplicateIDs(doc *workflow.Document) []Diagnostic {
	var diags []Diagnostic
	seen := map[string]string{}
	for _, n := range doc.Nodes {
		if n == nil || n.ID() == "" {
			continue
		}
		if prev, ok := seen[n.ID()]; ok {
			diags = append(diags, Diagnostic{
				Rule:     "duplicate_node_id",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("nodes %q and %q share id %q", prev, n.Name(), n.ID()),
				NodeID:   n.ID(),
			})
			continue
		}
		seen[n.ID()] = n.Name()
	}
	return diags
}

func lintEdgeEndpoints(doc *workflow.Document) []Diagnostic {
	names := nodeNames(doc)
	var diags []Diagnostic
	for _, src := range workflow.Sources(doc.Connections) {
		if !names[src] {
			diags = append(diags, Diagnostic{
				Rule:     "edge_source_exists",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("connections reference missing source node %q", src),
				EdgeFrom: src,
			})
		}
		for _, t := range workflow.MainTargets(doc.Connections, src) {
			if names[t.Node] {
				continue
			}
			diags = append(diags, Diagnostic{
				Rule:     "edge_target_exists",
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("edge %s -> %s targets a missing node", src, t.Node),
				EdgeFrom: src,
				EdgeTo:   t.Node,
			})
		}
	}
	return diags
}

func lintLabelSinkEdges(doc *workflow.Document, table *topology.Table) []Diagnostic {
	var diags []Diagnostic
	for _, n := range doc.Nodes {
		if n == nil || !strings.HasPrefix(n.Name(), patch.LabelNamePrefix) {
			continue
		}
		targets := workflow.MainTargets(doc.Connections, n.Name())
		if len(targets) == 1 && targets[0].Node == table.Sink {
			continue
		}
		diags = append(diags, Diagnostic{
			Rule:     "label_sink_edge",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("label node %q should feed only %q", n.Name(), table.Sink),
			NodeID:   n.ID(),
		})
	}
	return diags
}
