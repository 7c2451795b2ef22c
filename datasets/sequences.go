package datasets

import "sort"

// Sequence is the ordered weekly history of one patient.
type Sequence struct {
	KeyID string
	// Steps holds one feature row per week, shape [weeks][channels].
	Steps [][]float32
	// Targets are the labels of the patient's last week.
	Targets []float32
}

// Len returns the number of weeks in the sequence.
func (s Sequence) Len() int {
	return len(s.Steps)
}

// GroupSequences groups a frame's rows by patient. Patients keep their order
// of first appearance and weeks are sorted ascending.
func GroupSequences(f *Frame) []Sequence {
	byKey := make(map[string][]Record)
	var keys []string
	for _, r := range f.Records {
		if _, ok := byKey[r.KeyID]; !ok {
			keys = append(keys, r.KeyID)
		}
		byKey[r.KeyID] = append(byKey[r.KeyID], r)
	}

	seqs := make([]Sequence, 0, len(keys))
	for _, key := range keys {
		rows := byKey[key]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Week < rows[j].Week })

		seq := Sequence{KeyID: key, Steps: make([][]float32, len(rows))}
		for i, r := range rows {
			seq.Steps[i] = toFloat32(r.Features)
		}
		seq.Targets = toFloat32(rows[len(rows)-1].Targets)
		seqs = append(seqs, seq)
	}
	return seqs
}

// MaxSequenceLength returns the largest number of weeks recorded for any
// patient of the frame.
func MaxSequenceLength(f *Frame) int {
	type slot struct {
		key  string
		week float64
	}
	seen := make(map[slot]bool)
	counts := make(map[string]int)
	maxLen := 0
	for _, r := range f.Records {
		s := slot{r.KeyID, r.Week}
		if seen[s] {
			continue
		}
		seen[s] = true
		counts[r.KeyID]++
		if counts[r.KeyID] > maxLen {
			maxLen = counts[r.KeyID]
		}
	}
	return maxLen
}

func toFloat32(xs []float64) []float32 {
	out := make([]float32, len(xs))
	for i, x := range xs {
		out[i] = float32(x)
	}
	return out
}
