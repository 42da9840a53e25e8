// Command replayctl replays a reevaluation record against a registered
// Land definition and reports whether every recomputed state hash matches
// what was captured live, per spec.md §4.7.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"statetree/pkg/land"
	"statetree/pkg/landdemo"
	"statetree/pkg/replay"
)

// cliConfig holds the command-line configuration for replayctl.
type cliConfig struct {
	RecordPath string
	Timeout    time.Duration
	Verbose    bool
}

func parseFlags() *cliConfig {
	cfg := &cliConfig{}
	flag.StringVar(&cfg.RecordPath, "record", "", "path to a reevaluation record (.jsonl) to replay")
	flag.DurationVar(&cfg.Timeout, "timeout", 5*time.Minute, "maximum duration for the replay")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()
	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run loads the record at cfg.RecordPath, replays it against the
// landdemo cookieClicker definition (the only Land definition this binary
// knows how to resolve by LandType), and prints a final tally. Extending
// replayctl to other Land definitions means adding them to this lookup.
func run(cfg *cliConfig, w io.Writer) error {
	if cfg.RecordPath == "" {
		return fmt.Errorf("-record is required")
	}

	logger := logrus.New()
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	logger.SetOutput(w)

	record, err := replay.LoadRecord(cfg.RecordPath)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}

	def, ok := definitionFor(record.Header.LandType)
	if !ok {
		return fmt.Errorf("no registered land definition for landType %q", record.Header.LandType)
	}

	runner, err := replay.NewRunner(def, record)
	if err != nil {
		return fmt.Errorf("construct runner: %w", err)
	}

	fmt.Fprintf(w, "Replaying %s (landType=%s, %d ticks)...\n", cfg.RecordPath, record.Header.LandType, len(record.Entries))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	status := runner.Status()
	printStatus(w, status)

	if status.MismatchedTicks > 0 || status.Phase == replay.PhaseFailed {
		return fmt.Errorf("replay detected %d mismatched tick(s)", status.MismatchedTicks)
	}
	return nil
}

func printStatus(w io.Writer, status replay.Status) {
	fmt.Fprintf(w, "\nPhase:            %s\n", status.Phase)
	fmt.Fprintf(w, "Ticks replayed:   %d/%d\n", status.CurrentTick, status.TotalTicks)
	fmt.Fprintf(w, "Correct ticks:    %d\n", status.CorrectTicks)
	fmt.Fprintf(w, "Mismatched ticks: %d\n", status.MismatchedTicks)
	if status.MismatchedTicks > 0 {
		fmt.Fprintf(w, "Last computed hash:  %s\n", status.LastComputedHash)
		fmt.Fprintf(w, "Last recorded hash:  %s\n", status.LastRecordedHash)
	}
	if status.ErrorMessage != "" {
		fmt.Fprintf(w, "Error: %s\n", status.ErrorMessage)
	}
}

// definitionFor resolves a recorded landType to the land.Definition that
// must replay it. This binary only ships the landdemo example; a
// production deployment would register every live Land's definition here.
func definitionFor(landType string) (*land.Definition, bool) {
	if landType == landdemo.LandType {
		return landdemo.Definition(), true
	}
	return nil, false
}
