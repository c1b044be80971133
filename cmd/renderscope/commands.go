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
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "renderscope",
		Short: "Analyze render profiling exports for performance hotspots",
		Long: `Renderscope replays component-tree profiling exports, attributes
render cost per component, ranks hotspots, detects periodic re-render
churn, and compares runs against saved baselines.`,
	}

	configPath string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file (optional)")

	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "json",
		"Output format: json or markdown")
	analyzeCmd.Flags().StringVar(&analyzeLabel, "label", "",
		"Label recorded in the report")

	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringVarP(&compareFormat, "format", "f", "json",
		"Output format: json or markdown")
	compareCmd.Flags().StringVar(&compareBeforeBaseline, "before-baseline", "",
		"Use a saved baseline as the before side instead of a file")
	compareCmd.Flags().StringVar(&compareAfterBaseline, "after-baseline", "",
		"Use a saved baseline as the after side instead of a file")

	rootCmd.AddCommand(baselineCmd)
	baselineCmd.AddCommand(baselineSaveCmd)
	baselineCmd.AddCommand(baselineListCmd)
	baselineCmd.AddCommand(baselineDeleteCmd)
	baselineSaveCmd.Flags().StringVar(&baselineLabel, "label", "",
		"Label recorded in the saved report")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false,
		"Enable debug mode (request logging, gin debug)")
	serveCmd.Flags().StringVar(&serveWatchDir, "watch", "",
		"Directory to watch for new export files to auto-analyze")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false,
		"Disable the baseline store (baseline endpoints return 503)")
}
