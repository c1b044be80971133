// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/AleutianAI/renderscope/services/profile"
	"github.com/AleutianAI/renderscope/services/profile/format"
	"github.com/AleutianAI/renderscope/services/profile/ingest"
	"github.com/spf13/cobra"
)

var (
	analyzeFormat string
	analyzeLabel  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [export.json]",
	Short: "Analyze a profiling export and print the report",
	Long: `Replays every commit in the export, attributes render cost per
component, and prints the ranked hotspot report.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyzeCommand,
}

func runAnalyzeCommand(cmd *cobra.Command, args []string) error {
	svc := newProfileService()

	report, err := analyzeExportFile(cmd, svc, args[0], analyzeLabel)
	if err != nil {
		return err
	}

	return printResult(cmd, report, analyzeFormat)
}

// newProfileService builds a profile service from the loaded config.
func newProfileService() *profile.Service {
	cfg := profile.DefaultServiceConfig()
	if config.Analysis.MaxHotspots > 0 {
		cfg.MaxHotspots = config.Analysis.MaxHotspots
	}
	if config.Analysis.CompareTopN > 0 {
		cfg.CompareTopN = config.Analysis.CompareTopN
	}
	if config.Analysis.MaxExportBytes > 0 {
		cfg.MaxExportBytes = config.Analysis.MaxExportBytes
	}
	return profile.NewService(cfg)
}

// analyzeExportFile parses and analyzes one export file. The file's
// base name is used as the label when none is given.
func analyzeExportFile(cmd *cobra.Command, svc *profile.Service, path, label string) (*profile.AnalysisReport, error) {
	maxBytes := config.Analysis.MaxExportBytes
	if maxBytes <= 0 {
		maxBytes = profile.DefaultServiceConfig().MaxExportBytes
	}

	export, err := ingest.ParseFile(path, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if label == "" {
		label = filepath.Base(path)
	}

	report, err := svc.Analyze(cmd.Context(), export, label)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", path, err)
	}
	return report, nil
}

// printResult renders the result in the requested format to stdout.
func printResult(cmd *cobra.Command, result interface{}, formatName string) error {
	formatter, err := format.New(format.FormatType(formatName))
	if err != nil {
		return fmt.Errorf("format %q: %w", formatName, err)
	}
	return formatter.FormatStreaming(result, cmd.OutOrStdout())
}
