package main

// Example command that loads weekly patient CSVs, runs the preprocessing
// pipeline and prints the shapes of the first padded batches as gomlx
// tensors.
//
// Usage:
//   go run ./datasets/example -data 'assets/weekly/*.csv' -seq-cols hr,bp -target-cols event

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/Noofbiz/cnngru/datasets"
)

func main() {
	data := flag.String("data", "assets/weekly/*.csv", "comma separated CSV files or glob patterns")
	seqCols := flag.String("seq-cols", "", "comma separated input feature columns")
	targetCols := flag.String("target-cols", "", "comma separated target columns")
	batchSize := flag.Int("batch-size", 4, "patients per batch")
	batches := flag.Int("batches", 2, "number of batches to print")
	flag.Parse()

	paths, err := datasets.ExpandPaths(datasets.SplitList(*data))
	if err != nil {
		log.Fatalf("failed to find CSV files: %v", err)
	}
	fmt.Printf("Reading %d CSV file(s)\n", len(paths))

	frame, err := datasets.LoadRecords(paths, datasets.Schema{
		SeqCols:    datasets.SplitList(*seqCols),
		TargetCols: datasets.SplitList(*targetCols),
	})
	if err != nil {
		log.Fatalf("failed to load records: %v", err)
	}
	raw := frame.Len()
	frame = datasets.TransformTarget(datasets.ResetWeekNumbers(datasets.Preprocess(frame)), 0)
	fmt.Printf("Rows: %d read, %d kept after cleaning\n", raw, frame.Len())
	fmt.Printf("Patients: %d\n", len(frame.PatientIDs()))

	maxLen := datasets.MaxSequenceLength(frame)
	fmt.Printf("Longest history: %d weeks\n", maxLen)

	loader, err := datasets.NewLoader("example", datasets.GroupSequences(frame), maxLen,
		datasets.LoaderOptions{BatchSize: *batchSize})
	if err != nil {
		log.Fatalf("failed to create loader: %v", err)
	}
	fmt.Printf("Batches per epoch: %d\n", loader.Len())

	for i := 0; i < *batches; i++ {
		spec, inputs, labels, err := loader.Yield()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("failed to build batch: %v", err)
		}
		fmt.Printf("Batch %d patients=%v\n", i+1, spec)
		fmt.Printf("  Input shape: %v\n", inputs[0].Shape())
		fmt.Printf("  Label shape: %v\n", labels[0].Shape())
	}
}
