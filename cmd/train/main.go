package main

// Command train fits the CNN-GRU network on weekly per-patient CSV files.
//
// Configuration comes from an optional JSON file (-config); flags that are
// set explicitly on the command line override the JSON values.
//
// Usage:
//   go run ./cmd/train -data 'assets/weekly/*.csv' -seq-cols hr,bp,spo2 -target-cols event
//   go run ./cmd/train -config run.json -epochs 10 -save output/model.gob -plot plots/loss.png

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/Noofbiz/cnngru/datasets"
	"github.com/Noofbiz/cnngru/network"
	"github.com/Noofbiz/cnngru/training"
)

func main() {
	configPath := flag.String("config", "", "path to JSON run configuration (optional)")
	data := flag.String("data", "", "comma separated CSV files or glob patterns (overrides JSON if provided)")
	seqCols := flag.String("seq-cols", "", "comma separated input feature columns (overrides JSON if provided)")
	targetCols := flag.String("target-cols", "", "comma separated target columns (overrides JSON if provided)")
	keyCol := flag.String("key-col", "key_id", "patient id column (overrides JSON if provided)")
	weekCol := flag.String("week-col", "week", "week column (overrides JSON if provided)")
	batchSize := flag.Int("batch-size", 32, "patients per batch (overrides JSON if provided)")
	epochs := flag.Int("epochs", 50, "number of training epochs (overrides JSON if provided)")
	learningRate := flag.Float64("learning-rate", 0.0001, "AdamW learning rate (overrides JSON if provided)")
	device := flag.String("device", "cpu", "compute device (overrides JSON if provided)")
	savePath := flag.String("save", "", "if set, write a checkpoint of the trained model to this path")
	resumePath := flag.String("resume", "", "if set, continue training from this checkpoint")
	plotPath := flag.String("plot", "", "if set, write the loss curves as PNG to this path")
	progress := flag.Bool("progress", false, "show a progress bar for the batches of every epoch")
	printEffectiveConfig := flag.Bool("print-effective-config", false, "print the effective (JSON+CLI merged) configuration and exit")
	flag.Parse()

	cfg := training.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = training.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		log.Printf("Loaded config from %s", *configPath)
	}

	// only flags given on the command line take precedence over JSON
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Data.Paths = datasets.SplitList(*data)
		case "seq-cols":
			cfg.Data.SeqCols = datasets.SplitList(*seqCols)
		case "target-cols":
			cfg.Data.TargetCols = datasets.SplitList(*targetCols)
		case "key-col":
			cfg.Data.KeyCol = *keyCol
		case "week-col":
			cfg.Data.WeekCol = *weekCol
		case "batch-size":
			cfg.Data.BatchSize = *batchSize
		case "epochs":
			cfg.Training.Epochs = *epochs
		case "learning-rate":
			cfg.Training.LearningRate = *learningRate
		case "device":
			cfg.Device = *device
		}
	})

	if *printEffectiveConfig {
		text, err := cfg.JSON()
		if err != nil {
			log.Fatalf("failed to encode config: %v", err)
		}
		fmt.Println(text)
		os.Exit(0)
	}

	if len(cfg.Data.Paths) == 0 {
		log.Fatalf("no input files: set -data or data.paths in the config")
	}
	if len(cfg.Data.SeqCols) == 0 || len(cfg.Data.TargetCols) == 0 {
		log.Fatalf("both sequence and target columns are required")
	}

	dev, err := network.ParseDevice(cfg.Device)
	if err != nil {
		log.Fatalf("invalid device: %v", err)
	}
	log.Printf("Using device: %s", dev.Describe())

	trainLoader, valLoader, err := training.LoadAndPreprocessData(cfg.Data.Paths, cfg.Data.SeqCols, cfg.Data.TargetCols, cfg.Data.DataOptions)
	if err != nil {
		log.Fatalf("failed to load data: %v", err)
	}
	log.Printf("Patients: train=%d validation=%d, padded to %d weeks",
		trainLoader.NumSequences(), valLoader.NumSequences(), trainLoader.MaxLength())

	var model *network.Model
	if *resumePath != "" {
		model, err = network.Load(*resumePath, dev)
		if err != nil {
			log.Fatalf("failed to resume from checkpoint: %v", err)
		}
		if model.InputDim != len(cfg.Data.SeqCols) || model.OutputDim != len(cfg.Data.TargetCols) {
			log.Fatalf("checkpoint %s expects %d inputs and %d targets, got %d and %d", *resumePath,
				model.InputDim, model.OutputDim, len(cfg.Data.SeqCols), len(cfg.Data.TargetCols))
		}
		model.Train()
		log.Printf("Resumed model from %s", *resumePath)
	} else {
		model, err = training.InitializeModel(cfg.Data.SeqCols, cfg.Data.TargetCols, cfg.Model, dev)
		if err != nil {
			log.Fatalf("failed to initialize model: %v", err)
		}
	}
	log.Printf("Model parameters: %s", humanize.Comma(int64(model.NumParameters())))

	trainer := &training.Trainer{
		Model:      model,
		Params:     cfg.Training,
		TargetCols: cfg.Data.TargetCols,
		Device:     dev,
		Logger:     log.Default(),
	}
	if *progress {
		var bar *progressbar.ProgressBar
		trainer.OnBatch = func(epoch, batch int, loss float64) {
			if batch == 1 {
				bar = progressbar.NewOptions(trainLoader.Len(),
					progressbar.OptionSetDescription(fmt.Sprintf("epoch %d", epoch)),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Add(1)
			if batch == trainLoader.Len() {
				_ = bar.Finish()
			}
		}
	}

	history, err := trainer.Train(trainLoader, valLoader)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
	best, bestEpoch := history.ValLoss[0], 1
	for i, l := range history.ValLoss {
		if l < best {
			best, bestEpoch = l, i+1
		}
	}
	log.Printf("Finished %d epochs, best validation loss %.4f at epoch %d", history.Epochs(), best, bestEpoch)

	if *savePath != "" {
		id, err := network.Save(model, *savePath)
		if err != nil {
			log.Fatalf("failed to save checkpoint: %v", err)
		}
		size := "unknown size"
		if info, err := os.Stat(*savePath); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}
		log.Printf("Saved checkpoint %s to %s (%s)", id, *savePath, size)
	}

	if *plotPath != "" {
		if err := history.Plot(*plotPath); err != nil {
			log.Fatalf("failed to write loss plot: %v", err)
		}
		log.Printf("Wrote loss plot to %s", *plotPath)
	}
}
