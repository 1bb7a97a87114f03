package staging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewTableValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewTable(nil, nil); err == nil {
		t.Error("NewTable accepted zero columns")
	}
	if _, err := NewTable([]string{"a", "b"}, [][]any{{1}}); err == nil {
		t.Error("NewTable accepted a short row")
	}
	if _, err := NewTable([]string{"a"}, [][]any{{1, 2}}); err == nil {
		t.Error("NewTable accepted a long row")
	}

	table, err := NewTable([]string{"a", "b"}, [][]any{{1, "x"}, {2, "y"}})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if table.NumRows() != 2 {
		t.Errorf("NumRows = %d, want 2", table.NumRows())
	}
}

func TestColumnsReturnsCopy(t *testing.T) {
	t.Parallel()

	table, err := NewTable([]string{"a", "b"}, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	cols := table.Columns()
	cols[0] = "mutated"
	if got := table.Columns(); got[0] != "a" {
		t.Errorf("columns mutated through the returned slice: %v", got)
	}
}

func TestEncodeNDJSON(t *testing.T) {
	t.Parallel()

	table, err := NewTable(
		[]string{"user_id", "score"},
		[][]any{{"u1", 0.5}, {"u2", 0.75}},
	)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	data, err := table.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	lines := bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("encoded %d lines, want 2", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatalf("line 1: %v", err)
	}
	if first["user_id"] != "u1" || first["score"] != 0.5 {
		t.Errorf("line 1 = %v", first)
	}
}

func TestEncodeEmptyTable(t *testing.T) {
	t.Parallel()

	table, err := NewTable([]string{"a"}, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	data, err := table.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("empty table encoded to %q", data)
	}
}
