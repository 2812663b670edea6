// Command xes-analyze runs the upload analysis on a local XES file and prints
// the result tables as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gyaneshwarpardhi/xesinsight/internal/analysis"
	"github.com/gyaneshwarpardhi/xesinsight/internal/engine"
	"github.com/gyaneshwarpardhi/xesinsight/internal/upload"
	"github.com/gyaneshwarpardhi/xesinsight/internal/xes"
)

func main() {
	policy := flag.String("policy", string(xes.PolicyFail), "Trace policy for traces without concept:name (fail|skip)")
	pretty := flag.Bool("pretty", false, "Indent JSON output")
	maxMB := flag.Int("max-mb", 512, "Maximum decompressed size in MB")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] FILE(.xes|.xes.gz|.xes.zst)\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if p := xes.TracePolicy(*policy); p != xes.PolicyFail && p != xes.PolicySkip {
		slog.Error("invalid policy", "policy", *policy)
		os.Exit(2)
	}

	if err := run(flag.Arg(0), xes.TracePolicy(*policy), int64(*maxMB)<<20, *pretty); err != nil {
		slog.Error("analysis failed", "err", err)
		os.Exit(1)
	}
}

func run(path string, policy xes.TracePolicy, limit int64, pretty bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := upload.Read(path, f, limit)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	rep, err := engine.Run(&engine.Upload{Name: filepath.Base(path), Data: data}, engine.Options{
		TracePolicy:      policy,
		TimestampLayouts: analysis.DefaultTimestampLayouts,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(rep)
}
