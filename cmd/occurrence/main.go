// Copyright (C) 2025 bcminer contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command occurrence counts, for every defined function in a bitcode
// module, how many call sites invoke it, keyed by a coarse signature
// rather than the raw symbol name, and writes the result to
// output/occurrences/<bcfile>.json.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aleutian-oss/bcminer/internal/callgraph"
	"github.com/aleutian-oss/bcminer/internal/irmodel"
	"github.com/aleutian-oss/bcminer/internal/occurrence"
	"github.com/aleutian-oss/bcminer/internal/telemetry"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "occurrence INPUT OUTPUT",
		Short:         "get functions occur in a *.bc file",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1])
		},
	}
	return cmd
}

func run(input, output string) error {
	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(output, "analyze_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("cannot create log file: %w", err)
	}
	defer logFile.Close()
	logger := telemetry.NewLogger(logFile)

	logger.Info("loading byte code file and creating context")
	mod, err := irmodel.LoadModule(input)
	if err != nil {
		return err
	}

	logger.Info("generating call graph")
	cg := callgraph.Build(mod)

	logger.Info("generating occurrence map")
	counts := occurrence.Compute(mod, cg)

	logger.Info("transforming occurrence map into json")
	bcName := filepath.Base(input)
	if err := occurrence.Dump(counts, output, bcName); err != nil {
		return err
	}
	logger.Info("occurrence map written", slog.Int("functions", len(counts)))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
