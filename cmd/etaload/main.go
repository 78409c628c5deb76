package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/etabench/etabench/internal/aggregate"
	"github.com/etabench/etabench/internal/classify"
	"github.com/etabench/etabench/internal/config"
	"github.com/etabench/etabench/internal/eta"
	"github.com/etabench/etabench/internal/ingest"
	"github.com/etabench/etabench/internal/store"
)

// etaload reads a benchmark CSV, runs it through the classification pipeline
// and prints per-city and per-time-bucket rollups. With -insert it also bulk
// loads the cleaned rows into the configured Mongo collection.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	file := flag.String("file", "", "benchmark CSV to load (required)")
	comparison := flag.String("comparison", "", "provider to compare (mappls|oauth2); default from config")
	insert := flag.Bool("insert", false, "insert the cleaned rows into the document store")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	provider := cfg.Server.Pipeline.Comparison()
	if *comparison != "" {
		provider = eta.Provider(*comparison)
		if !provider.Valid() || provider == eta.ProviderGoogle {
			slog.Error("unknown comparison provider", "comparison", *comparison)
			os.Exit(2)
		}
	}

	f, err := os.Open(*file)
	if err != nil {
		slog.Error("failed to open file", "file", *file, "err", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := ingest.ReadCSV(f)
	if err != nil {
		slog.Error("failed to parse csv", "file", *file, "err", err)
		os.Exit(1)
	}

	clean := ingest.DropIncomplete(rows)
	records := classify.Batch(ingest.NormalizeRows(clean), cfg.Server.Pipeline.ThresholdPct)
	slog.Info("csv loaded", "rows", len(rows), "kept", len(clean), "dropped", len(rows)-len(clean))

	printCityStats(aggregate.ByCity(records, provider), provider)
	printBucketStats(aggregate.ByTimeBucket(records, provider))

	if *insert {
		ctx := context.Background()
		mongoCfg := cfg.Server.Mongo
		db, err := store.Connect(ctx, mongoCfg.EffectiveURI(), mongoCfg.Database, mongoCfg.Collection)
		if err != nil {
			slog.Error("document store unavailable", "err", err)
			os.Exit(1)
		}
		defer db.Close(ctx) //nolint:errcheck

		if err := db.InsertRows(ctx, clean); err != nil {
			slog.Error("insert failed", "err", err)
			os.Exit(1)
		}
		slog.Info("rows inserted", "collection", db.Collection(), "rows", len(clean))
	}
}

func printCityStats(stats []eta.CityStats, provider eta.Provider) {
	fmt.Printf("\nPer-city rollup (%s vs google)\n", provider)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CITY\tTOTAL\tSIMILAR\tOVER\tUNDER\tAVG VAR %\tITERATIONS\tLAST RUN")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%.1f%%\t%.1f%%\t%.1f\t%d\t%s\n",
			s.City, s.TotalRecords, s.SimilarPct, s.OverPct, s.UnderPct,
			s.AvgVariationPct, s.Iterations, s.LastBenchmark)
	}
	w.Flush() //nolint:errcheck
}

func printBucketStats(stats []eta.TimeBucketStats) {
	fmt.Println("\nPer-time-bucket rollup")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BUCKET\tTOTAL\tSIMILAR\tOVER\tUNDER\tAVG VAR %")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%.1f%%\t%.1f%%\t%.1f\n",
			s.TimeBucket, s.TotalRecords, s.SimilarPct, s.OverPct, s.UnderPct, s.AvgVariationPct)
	}
	w.Flush() //nolint:errcheck
}
