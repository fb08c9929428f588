package workflow

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleWorkflow = `{
	"name": "Sample",
	"nodes": [
		{
			"parameters": {"resource": "status", "text": "<b>hi</b>"},
			"id": "n1",
			"name": "1. Verify Credentials",
			"type": "n8n-nodes-mastodon.mastodon",
			"typeVersion": 1,
			"position": [250, 300],
			"credentials": {"mastodonOAuth2Api": {"id": "7", "name": "Mastodon"}}
		},
		{
			"id": "c",
			"name": "Collect Test Results",
			"type": "n8n-nodes-base.code",
			"position": [1.5, -20]
		}
	],
	"connections": {
		"1. Verify Credentials": {
			"main": [[{"node": "Collect Test Results", "type": "main", "index": 0}]]
		}
	},
	"settings": {"executionOrder": "v1"},
	"pinData": {}
}`

func TestDecode_TypedAccessors(t *testing.T) {
	doc, err := Decode([]byte(sampleWorkflow))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Nodes) != 2 {
		t.Fatalf("nodes: got %d", len(doc.Nodes))
	}
	n := doc.Nodes[0]
	if n.ID() != "n1" || n.Name() != "1. Verify Credentials" || n.Type() != "n8n-nodes-mastodon.mastodon" {
		t.Fatalf("accessors: id=%q name=%q type=%q", n.ID(), n.Name(), n.Type())
	}
	want := []string{"parameters", "id", "name", "type", "typeVersion", "position", "credentials"}
	if diff := cmp.Diff(want, n.Keys()); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
	if got := doc.NodeIndex("Collect Test Results"); got != 1 {
		t.Fatalf("NodeIndex: got %d", got)
	}
	if got := doc.NodeIndex("nope"); got != -1 {
		t.Fatalf("NodeIndex(missing): got %d", got)
	}
	if diff := cmp.Diff([]Target{MainEdge("Collect Test Results")}, MainTargets(doc.Connections, "1. Verify Credentials")); diff != "" {
		t.Fatalf("targets (-want +got):\n%s", diff)
	}
}

func TestEncode_PreservesFieldOrderAndUnknownFields(t *testing.T) {
	doc, err := Decode([]byte(sampleWorkflow))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	out := string(b)

	order := []string{`"name": "Sample"`, `"nodes": [`, `"connections": {`, `"settings": {`, `"pinData": {}`}
	last := -1
	for _, s := range order {
		i := strings.Index(out, s)
		if i < 0 {
			t.Fatalf("missing %s in:\n%s", s, out)
		}
		if i < last {
			t.Fatalf("%s out of order in:\n%s", s, out)
		}
		last = i
	}
	for _, s := range []string{`"mastodonOAuth2Api"`, `"typeVersion": 1`, `"executionOrder": "v1"`, "1.5", "-20"} {
		if !strings.Contains(out, s) {
			t.Fatalf("lost %s in:\n%s", s, out)
		}
	}
	if !strings.Contains(out, "\n\t\"nodes\": [\n\t\t{\n\t\t\t\"parameters\"") {
		t.Fatalf("expected tab indentation, got:\n%s", out)
	}
}

func TestEncode_RoundTripIsStable(t *testing.T) {
	doc, err := Decode([]byte(sampleWorkflow))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	first, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	again, err := Decode(first)
	if err != nil {
		t.Fatalf("Decode(again): %v", err)
	}
	second, err := again.Bytes()
	if err != nil {
		t.Fatalf("Bytes(again): %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("round trip changed output:\n%s\n---\n%s", first, second)
	}
}

func TestDecode_RequiresNodes(t *testing.T) {
	if _, err := Decode([]byte(`{"connections": {}}`)); !errors.Is(err, ErrNoNodes) {
		t.Fatalf("expected ErrNoNodes, got %v", err)
	}
	if _, err := Decode([]byte(`{"nodes": [{"id": 5, "name": "x"}], "connections": {}}`)); err == nil {
		t.Fatalf("expected error for non-string id")
	}
}

func TestInsertNodes_PositionalInsert(t *testing.T) {
	doc := NewDocument()
	for _, name := range []string{"a", "b", "c"} {
		n := NewNode()
		if err := n.Set("name", name); err != nil {
			t.Fatal(err)
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	x, y := NewNode(), NewNode()
	_ = x.Set("name", "x")
	_ = y.Set("name", "y")
	doc.InsertNodes(2, x, y)

	var got []string
	for _, n := range doc.Nodes {
		got = append(got, n.Name())
	}
	if diff := cmp.Diff([]string{"a", "b", "x", "y", "c"}, got); diff != "" {
		t.Fatalf("order (-want +got):\n%s", diff)
	}
}

func TestSinglePort_FansOutOnOnePort(t *testing.T) {
	conns := NewConnections()
	conns.Set("src", SinglePort(MainEdge("a"), MainEdge("b")))
	ports, _ := conns.Get("src")
	main, _ := ports.Get(MainOutput)
	if len(main) != 1 || len(main[0]) != 2 {
		t.Fatalf("ports: %v", main)
	}
	if diff := cmp.Diff([]string{"src"}, Sources(conns)); diff != "" {
		t.Fatalf("sources (-want +got):\n%s", diff)
	}
}

func TestEncode_KeepsHTMLCharactersLiteral(t *testing.T) {
	doc, err := Decode([]byte(`{
		"nodes": [{"id": "c", "name": "A & B", "parameters": {"jsCode": "return a < b && c > d ? x => x : \"\u003c\" + \"\\u003c\";"}}],
		"connections": {"A & B": {"main": [[{"node": "<out>", "type": "main", "index": 0}]]}}
	}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	out := string(b)
	for _, s := range []string{`"name": "A & B"`, `"A & B": {`, `a < b && c > d ? x => x : \"<\"`, `\"\\u003c\"`, `"node": "<out>"`} {
		if !strings.Contains(out, s) {
			t.Fatalf("missing %s in:\n%s", s, out)
		}
	}
	again, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode(output): %v", err)
	}
	raw, _ := again.Nodes[0].Get("parameters")
	if !strings.Contains(string(raw), `\\u003c`) {
		t.Fatalf("escaped backslash lost: %s", raw)
	}
}

func TestUnescapeHTML(t *testing.T) {
	cases := []struct{ in, want string }{
		{`"a \u003c b"`, `"a < b"`},
		{`"\u0026\u003E"`, `"&>"`},
		{`"\\u003c"`, `"\\u003c"`},
		{`"\\\u003c"`, `"\\<"`},
		{`"\u00e9 \u2028"`, `"\u00e9 \u2028"`},
		{`"trailing \\"`, `"trailing \\"`},
		{`{"k": "\"\u003c"}`, `{"k": "\"<"}`},
	}
	for _, c := range cases {
		if got := string(unescapeHTML([]byte(c.in))); got != c.want {
			t.Errorf("unescapeHTML(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestDecode_TargetsKeepUnmodelledFields(t *testing.T) {
	doc, err := Decode([]byte(`{
		"nodes": [{"id": "x", "name": "X"}],
		"connections": {
			"X": {"main": [[{"node": "Collect Test Results"}]]},
			"Agent": {"ai_tool": [[{"node": "C", "type": "ai_tool", "index": 0, "extra": 1}]]}
		}
	}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	var got struct {
		Connections map[string]map[string][][]map[string]any `json:"connections"`
	}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := map[string]map[string][][]map[string]any{
		"X":     {"main": {{{"node": "Collect Test Results"}}}},
		"Agent": {"ai_tool": {{{"node": "C", "type": "ai_tool", "index": 0.0, "extra": 1.0}}}},
	}
	if diff := cmp.Diff(want, got.Connections); diff != "" {
		t.Fatalf("connections (-want +got):\n%s", diff)
	}
	// Typed views drop the raw bytes.
	if diff := cmp.Diff([]Target{{Node: "Collect Test Results"}}, MainTargets(doc.Connections, "X")); diff != "" {
		t.Fatalf("targets (-want +got):\n%s", diff)
	}
}
