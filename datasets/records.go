package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Default column names of the weekly patient CSVs.
const (
	DefaultKeyCol  = "key_id"
	DefaultWeekCol = "week"
)

// Schema names the columns read from every CSV file.
type Schema struct {
	// KeyCol identifies the patient. Defaults to "key_id".
	KeyCol string
	// WeekCol orders the rows of a patient. Defaults to "week".
	WeekCol string
	// SeqCols are the per-week input features, in model channel order.
	SeqCols []string
	// TargetCols are the per-week labels, in model output order.
	TargetCols []string
}

// withDefaults fills in the key and week column names when they are empty.
func (s Schema) withDefaults() Schema {
	if s.KeyCol == "" {
		s.KeyCol = DefaultKeyCol
	}
	if s.WeekCol == "" {
		s.WeekCol = DefaultWeekCol
	}
	return s
}

// Record is one patient-week row.
type Record struct {
	KeyID    string
	Week     float64
	Features []float64
	Targets  []float64
}

// Frame is a table of records sharing one schema.
type Frame struct {
	Schema  Schema
	Records []Record
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Records)
}

// PatientIDs returns the unique patient ids in order of first appearance.
func (f *Frame) PatientIDs() []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, r := range f.Records {
		if !seen[r.KeyID] {
			seen[r.KeyID] = true
			ids = append(ids, r.KeyID)
		}
	}
	return ids
}

// FilterPatients returns a frame holding only the rows of the given patients.
// Row order is preserved.
func (f *Frame) FilterPatients(ids []string) *Frame {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	out := &Frame{Schema: f.Schema, Records: make([]Record, 0, len(f.Records))}
	for _, r := range f.Records {
		if keep[r.KeyID] {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// LoadRecords reads every CSV file and concatenates their rows. All files
// must contain the schema's columns; column names are matched
// case-insensitively.
func LoadRecords(paths []string, schema Schema) (*Frame, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no CSV files given")
	}
	schema = schema.withDefaults()
	if len(schema.SeqCols) == 0 {
		return nil, fmt.Errorf("no sequence columns given")
	}
	if len(schema.TargetCols) == 0 {
		return nil, fmt.Errorf("no target columns given")
	}

	frame := &Frame{Schema: schema}
	for _, path := range paths {
		records, err := readRecords(path, schema)
		if err != nil {
			return nil, err
		}
		frame.Records = append(frame.Records, records...)
	}
	return frame, nil
}

// columnSet holds the header positions of the schema columns in one file.
type columnSet struct {
	key     int
	week    int
	seq     []int
	targets []int
}

func resolveColumns(header []string, schema Schema) (columnSet, error) {
	idx := headerIndex(header)
	lookup := func(name string) (int, error) {
		i, ok := idx[normalizeColumn(name)]
		if !ok {
			return 0, fmt.Errorf("required column %q not found in CSV", name)
		}
		return i, nil
	}

	var cols columnSet
	var err error
	if cols.key, err = lookup(schema.KeyCol); err != nil {
		return cols, err
	}
	if cols.week, err = lookup(schema.WeekCol); err != nil {
		return cols, err
	}
	cols.seq = make([]int, len(schema.SeqCols))
	for i, name := range schema.SeqCols {
		if cols.seq[i], err = lookup(name); err != nil {
			return cols, err
		}
	}
	cols.targets = make([]int, len(schema.TargetCols))
	for i, name := range schema.TargetCols {
		if cols.targets[i], err = lookup(name); err != nil {
			return cols, err
		}
	}
	return cols, nil
}

// readRecords parses a single CSV file.
func readRecords(path string, schema Schema) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	cols, err := resolveColumns(header, schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var records []Record
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d of %s: %w", row, path, err)
		}

		rec := Record{
			KeyID:    fields[cols.key],
			Features: make([]float64, len(cols.seq)),
			Targets:  make([]float64, len(cols.targets)),
		}
		if rec.Week, err = parseFloat(fields[cols.week]); err != nil {
			return nil, fmt.Errorf("%s row %d: failed to parse %s: %w", path, row, schema.WeekCol, err)
		}
		for i, c := range cols.seq {
			if rec.Features[i], err = parseFloat(fields[c]); err != nil {
				return nil, fmt.Errorf("%s row %d: failed to parse %s: %w", path, row, schema.SeqCols[i], err)
			}
		}
		for i, c := range cols.targets {
			if rec.Targets[i], err = parseFloat(fields[c]); err != nil {
				return nil, fmt.Errorf("%s row %d: failed to parse %s: %w", path, row, schema.TargetCols[i], err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
