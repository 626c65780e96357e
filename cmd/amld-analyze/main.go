package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Gautam825406/Finance-crime-detection/internal/config"
	"github.com/Gautam825406/Finance-crime-detection/internal/ingest"
	"github.com/Gautam825406/Finance-crime-detection/internal/pipeline"
	"github.com/Gautam825406/Finance-crime-detection/internal/report"
)

// amld-analyze runs one batch analysis from the command line:
// CSV in, fraud report JSON out.
func main() {
	var (
		inputPath  = flag.String("input", "", "Path to the transaction CSV (required)")
		outputPath = flag.String("output", "", "Write the report to this file instead of stdout")
		configPath = flag.String("config", "", "Path to YAML config file (defaults apply when empty)")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().
		Str("service", "amld-analyze").
		Logger()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		cfg = loaded
	}

	f, err := os.Open(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *inputPath).Msg("Failed to open input")
	}
	defer f.Close()

	txs, rowErrs, err := ingest.ParseCSV(f)
	if err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}
	if len(rowErrs) > 0 {
		for _, re := range rowErrs {
			log.Error().Int("row", re.Row).Str("reason", re.Message).Msg("Invalid row")
		}
		log.Fatal().Int("rows", len(rowErrs)).Msg("Batch rejected")
	}

	runner := pipeline.New(cfg.Detection, nil, nil)
	rep, err := runner.Run(context.Background(), txs)
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}

	if *outputPath != "" {
		if err := report.WriteFile(rep, *outputPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to write report")
		}
		return
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode report")
	}
	fmt.Println(string(data))
}
