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

	"github.com/AleutianAI/renderscope/services/profile/reportstore"
	"github.com/spf13/cobra"
)

var baselineLabel string

var (
	baselineCmd = &cobra.Command{
		Use:   "baseline",
		Short: "Manage saved baseline reports",
		Long:  `Save, list, and delete analysis reports kept as named baselines for later comparison.`,
	}
	baselineSaveCmd = &cobra.Command{
		Use:   "save [name] [export.json]",
		Short: "Analyze an export and save the report under a name",
		Args:  cobra.ExactArgs(2),
		RunE:  runBaselineSave,
	}
	baselineListCmd = &cobra.Command{
		Use:   "list",
		Short: "List saved baselines",
		RunE:  runBaselineList,
	}
	baselineDeleteCmd = &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a saved baseline",
		Args:  cobra.ExactArgs(1),
		RunE:  runBaselineDelete,
	}
)

// openBaselineStore opens the configured on-disk baseline store.
func openBaselineStore() (*reportstore.Store, error) {
	cfg := reportstore.DefaultConfig()
	cfg.Path = config.Store.Path
	store, err := reportstore.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open baseline store at %s: %w", cfg.Path, err)
	}
	return store, nil
}

func runBaselineSave(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	svc := newProfileService()
	report, err := analyzeExportFile(cmd, svc, path, baselineLabel)
	if err != nil {
		return err
	}

	store, err := openBaselineStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(name, report); err != nil {
		return fmt.Errorf("save baseline %q: %w", name, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved baseline %q (%d hotspots, %d commits)\n",
		name, len(report.Hotspots), report.Totals.CommitCount)
	return nil
}

func runBaselineList(cmd *cobra.Command, args []string) error {
	store, err := openBaselineStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List()
	if err != nil {
		return fmt.Errorf("list baselines: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved baselines.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.Name, e.SavedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runBaselineDelete(cmd *cobra.Command, args []string) error {
	store, err := openBaselineStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(args[0]); err != nil {
		return fmt.Errorf("delete baseline %q: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted baseline %q\n", args[0])
	return nil
}
