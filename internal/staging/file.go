package staging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ReadFile loads a table from a newline-delimited JSON file, one object per
// line. The first record fixes the column set (sorted for determinism);
// later records must not introduce new keys, and missing keys become nil.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table file: %w", err)
	}
	defer f.Close()

	var columns []string
	known := make(map[string]int)
	var rows [][]any

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var record map[string]any
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if columns == nil {
			for k := range record {
				columns = append(columns, k)
			}
			sort.Strings(columns)
			for i, k := range columns {
				known[k] = i
			}
		}

		row := make([]any, len(columns))
		for k, v := range record {
			i, ok := known[k]
			if !ok {
				return nil, fmt.Errorf("line %d: unexpected column %q", line, k)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read table file: %w", err)
	}
	if columns == nil {
		return nil, fmt.Errorf("table file %s is empty", path)
	}

	return NewTable(columns, rows)
}
