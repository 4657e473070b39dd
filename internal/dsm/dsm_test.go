package dsm

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/christikaes/macaroni-arch/internal/logging"
)

type mapReader map[string]string

func (m mapReader) Load(path string) ([]byte, error) {
	return []byte(m[path]), nil
}

func TestCountSignificantLines(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   int
	}{
		{"empty", "", 0},
		{"blank only", "\n   \n\t\n", 0},
		{"mixed", "a\n\nb\n   \nc\n", 3},
		{"no trailing newline", "a\nb", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountSignificantLines([]byte(tt.source)); got != tt.want {
				t.Errorf("CountSignificantLines() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	sources := mapReader{
		"a.ts": "import { x } from './b';\n\nconsole.log(x);\n",
		"b.ts": "export const x = 1;\n",
	}
	edges := map[string]map[string]int{
		"a.ts": {"b.ts": 1},
	}
	complexity := map[string]int{"a.ts": 1, "b.ts": 1}

	agg := NewAggregator(sources, logging.Nop(), 2)
	payload, err := agg.Aggregate(context.Background(), []string{"a.ts", "b.ts"}, edges, complexity, "main")
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	if payload.Branch != "main" {
		t.Errorf("branch = %q, want main", payload.Branch)
	}
	if len(payload.Files) != 2 {
		t.Fatalf("expected 2 file records, got %d", len(payload.Files))
	}

	a := payload.Files["a.ts"]
	if a.LineCount != 2 {
		t.Errorf("a.ts line count = %d, want 2", a.LineCount)
	}
	if len(a.Dependencies) != 1 || a.Dependencies[0].FileName != "b.ts" || a.Dependencies[0].Dependencies != 1 {
		t.Errorf("a.ts dependencies = %v", a.Dependencies)
	}

	// Invariant: file list matches record keys.
	if len(payload.FileList) != len(payload.Files) {
		t.Errorf("file list and record keys diverge")
	}
	for _, f := range payload.FileList {
		if _, ok := payload.Files[f]; !ok {
			t.Errorf("file %s missing from records", f)
		}
	}
}

func TestAggregateDropsBadEdges(t *testing.T) {
	sources := mapReader{"a.py": "x = 1\n", "b.py": "y = 2\n"}
	edges := map[string]map[string]int{
		"a.py": {
			"a.py":       3, // self-edge
			"missing.py": 2, // unknown target
			"b.py":       0, // non-positive weight
		},
	}

	agg := NewAggregator(sources, logging.Nop(), 1)
	payload, err := agg.Aggregate(context.Background(), []string{"a.py", "b.py"}, edges, nil, "main")
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	if len(payload.Files["a.py"].Dependencies) != 0 {
		t.Errorf("expected all edges dropped, got %v", payload.Files["a.py"].Dependencies)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	sources := mapReader{"a.go": "package a\n", "b.go": "package b\n", "c.go": "package c\n"}
	edges := map[string]map[string]int{
		"a.go": {"c.go": 2, "b.go": 1},
	}

	agg := NewAggregator(sources, logging.Nop(), 4)

	run := func() []byte {
		payload, err := agg.Aggregate(context.Background(), []string{"c.go", "a.go", "b.go"}, edges, nil, "main")
		if err != nil {
			t.Fatalf("Aggregate() error: %v", err)
		}
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal error: %v", err)
		}
		return data
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two aggregations over identical input produced different payloads")
	}
}

func TestAggregateSortsDependencies(t *testing.T) {
	sources := mapReader{"m.go": "package m\n", "a.go": "package a\n", "z.go": "package z\n"}
	edges := map[string]map[string]int{
		"m.go": {"z.go": 1, "a.go": 1},
	}

	agg := NewAggregator(sources, logging.Nop(), 1)
	payload, err := agg.Aggregate(context.Background(), []string{"m.go", "a.go", "z.go"}, edges, nil, "x")
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	deps := payload.Files["m.go"].Dependencies
	if len(deps) != 2 || deps[0].FileName != "a.go" || deps[1].FileName != "z.go" {
		t.Errorf("dependencies not sorted by file_name: %v", deps)
	}
}

func TestToSCIP(t *testing.T) {
	payload := &Payload{
		Files: map[string]*FileRecord{
			"a.ts": {Complexity: 1, LineCount: 3, Dependencies: []Dependency{{FileName: "b.ts", Dependencies: 2}}},
			"b.ts": {Complexity: 1, LineCount: 1},
		},
		FileList: []string{"a.ts", "b.ts"},
		Branch:   "main",
	}

	index := payload.ToSCIP("/tmp/ws", "0.1.0")
	if len(index.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(index.Documents))
	}
	if index.Documents[0].RelativePath != "a.ts" {
		t.Errorf("expected document order to follow file list")
	}

	syms := index.Documents[0].Symbols
	if len(syms) != 1 || len(syms[0].Relationships) != 1 {
		t.Fatalf("expected one symbol with one relationship, got %v", syms)
	}
	if !syms[0].Relationships[0].IsReference {
		t.Errorf("expected reference relationship")
	}
}
