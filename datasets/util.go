package datasets

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// parseFloat parses a numeric CSV cell. Empty cells (and the usual textual
// missing markers) come back as NaN so Preprocess can drop them; anything else
// that fails to parse is an error.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func normalizeColumn(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}

// headerIndex maps normalized column names to their position in the header.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		// the first BOM in a file sticks to the first column name
		col = strings.TrimPrefix(col, "\ufeff")
		idx[normalizeColumn(col)] = i
	}
	return idx
}

// SplitList splits a comma separated flag value, trimming spaces and dropping
// empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ExpandPaths resolves each entry as a glob pattern and returns the matching
// files in a stable order. Entries without glob metacharacters are kept as is
// so a missing file is reported by the reader instead of silently skipped.
func ExpandPaths(patterns []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if !strings.ContainsAny(pattern, "*?[") {
			if !seen[pattern] {
				seen[pattern] = true
				paths = append(paths, pattern)
			}
			continue
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no CSV files found matching pattern: %s", pattern)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no CSV files given")
	}
	return paths, nil
}

// FindCSVInAssets returns every CSV file in dir.
func FindCSVInAssets(dir string) ([]string, error) {
	return ExpandPaths([]string{filepath.Join(dir, "*.csv")})
}
