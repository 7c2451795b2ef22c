package datasets

import (
	"math"
	"sort"
	"strings"
)

// Preprocess cleans a raw frame and returns a new one:
//   - rows with an empty key or a missing (NaN) week, feature or target are dropped
//   - duplicate (key, week) rows keep the last occurrence
//   - rows are ordered by key (first appearance) then week
//
// The input frame is not modified.
func Preprocess(f *Frame) *Frame {
	type slot struct {
		key  string
		week float64
	}
	last := make(map[slot]int)
	clean := make([]Record, 0, len(f.Records))
	for _, r := range f.Records {
		r.KeyID = strings.TrimSpace(r.KeyID)
		if r.KeyID == "" || math.IsNaN(r.Week) || hasNaN(r.Features) || hasNaN(r.Targets) {
			continue
		}
		s := slot{r.KeyID, r.Week}
		if i, ok := last[s]; ok {
			clean[i] = copyRecord(r)
			continue
		}
		last[s] = len(clean)
		clean = append(clean, copyRecord(r))
	}

	order := make(map[string]int)
	for _, r := range clean {
		if _, ok := order[r.KeyID]; !ok {
			order[r.KeyID] = len(order)
		}
	}
	sort.SliceStable(clean, func(i, j int) bool {
		oi, oj := order[clean[i].KeyID], order[clean[j].KeyID]
		if oi != oj {
			return oi < oj
		}
		return clean[i].Week < clean[j].Week
	})
	return &Frame{Schema: f.Schema, Records: clean}
}

// ResetWeekNumbers renumbers the weeks of every patient to 1..n following
// their original ascending order, closing any gaps.
func ResetWeekNumbers(f *Frame) *Frame {
	weeks := make(map[string][]float64)
	for _, r := range f.Records {
		weeks[r.KeyID] = append(weeks[r.KeyID], r.Week)
	}
	rank := make(map[string]map[float64]int, len(weeks))
	for key, ws := range weeks {
		sort.Float64s(ws)
		m := make(map[float64]int, len(ws))
		n := 0
		for _, w := range ws {
			if _, ok := m[w]; !ok {
				n++
				m[w] = n
			}
		}
		rank[key] = m
	}

	out := &Frame{Schema: f.Schema, Records: make([]Record, len(f.Records))}
	for i, r := range f.Records {
		r = copyRecord(r)
		r.Week = float64(rank[r.KeyID][r.Week])
		out.Records[i] = r
	}
	return out
}

// TransformTarget binarizes every target: values above threshold become 1,
// everything else 0.
func TransformTarget(f *Frame, threshold float64) *Frame {
	out := &Frame{Schema: f.Schema, Records: make([]Record, len(f.Records))}
	for i, r := range f.Records {
		r = copyRecord(r)
		for j, v := range r.Targets {
			if v > threshold {
				r.Targets[j] = 1
			} else {
				r.Targets[j] = 0
			}
		}
		out.Records[i] = r
	}
	return out
}

func hasNaN(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

func copyRecord(r Record) Record {
	r.Features = append([]float64(nil), r.Features...)
	r.Targets = append([]float64(nil), r.Targets...)
	return r
}
