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

	"github.com/AleutianAI/renderscope/services/profile"
	"github.com/spf13/cobra"
)

var (
	compareFormat         string
	compareBeforeBaseline string
	compareAfterBaseline  string
)

var compareCmd = &cobra.Command{
	Use:   "compare [before.json] [after.json]",
	Short: "Compare two profiling runs and print the verdict",
	Long: `Analyzes both sides and prints per-component deltas with an overall
verdict (improved, regressed, or mixed). Either side may be a saved
baseline instead of an export file:

  renderscope compare before.json after.json
  renderscope compare --before-baseline main-branch after.json
  renderscope compare --before-baseline main --after-baseline feature`,
	RunE: runCompareCommand,
}

func runCompareCommand(cmd *cobra.Command, args []string) error {
	svc := newProfileService()
	files := args

	before, files, err := resolveCompareSide(cmd, svc, "before", compareBeforeBaseline, files)
	if err != nil {
		return err
	}
	after, files, err := resolveCompareSide(cmd, svc, "after", compareAfterBaseline, files)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		return fmt.Errorf("unexpected extra arguments: %v", files)
	}

	result, err := svc.Compare(before, after)
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}
	return printResult(cmd, result, compareFormat)
}

// resolveCompareSide produces one side of the comparison, either from
// a saved baseline or by consuming the next positional export file.
func resolveCompareSide(cmd *cobra.Command, svc *profile.Service, side, baseline string, files []string) (*profile.AnalysisReport, []string, error) {
	if baseline != "" {
		store, err := openBaselineStore()
		if err != nil {
			return nil, files, err
		}
		defer store.Close()

		var report profile.AnalysisReport
		if err := store.Get(baseline, &report); err != nil {
			return nil, files, fmt.Errorf("%s baseline %q: %w", side, baseline, err)
		}
		return &report, files, nil
	}

	if len(files) == 0 {
		return nil, files, fmt.Errorf("missing %s side: give an export file or --%s-baseline", side, side)
	}
	report, err := analyzeExportFile(cmd, svc, files[0], "")
	if err != nil {
		return nil, files, err
	}
	return report, files[1:], nil
}
