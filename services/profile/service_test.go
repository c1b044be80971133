// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/AleutianAI/renderscope/services/profile/compare"
	"github.com/AleutianAI/renderscope/services/profile/hotspot"
	"github.com/AleutianAI/renderscope/services/profile/ingest"
)

// buildRecord encodes a raw edit record: header, string table, ops.
func buildRecord(rendererID, rootID int, table []string, ops ...int) []int {
	rec := []int{rendererID, rootID, len(table)}
	for _, s := range table {
		rec = append(rec, len(s))
		for _, r := range s {
			rec = append(rec, int(r))
		}
	}
	return append(rec, ops...)
}

func ptr(v float64) *float64 { return &v }

// twoComponentExport builds one root whose single pass mounts
// A (self 5ms) and B (subtree 7ms, no self time).
func twoComponentExport() *ingest.Export {
	rec := buildRecord(1, 1, []string{"A", "B"},
		1, 1, 11, 1, 1, // add root id=1
		1, 2, 5, 1, 0, 1, 0, // add A under root
		1, 3, 5, 1, 0, 2, 0, // add B under root
	)
	return &ingest.Export{
		Version: 5,
		DataForRoots: []ingest.RootData{{
			RootID:     1,
			Operations: [][]int{rec},
			CommitData: []ingest.CommitData{{
				Duration:             ptr(12),
				Timestamp:            100,
				FiberSelfDurations:   ingest.DurationMap{2: 5},
				FiberActualDurations: ingest.DurationMap{3: 7},
				ChangeDescriptions: ingest.ChangeMap{
					2: {IsFirstMount: true},
					3: {IsFirstMount: true},
				},
			}},
		}},
	}
}

func TestService_AnalyzeEndToEnd(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	report, err := svc.Analyze(context.Background(), twoComponentExport(), "run-1")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.Label != "run-1" || report.Mode != ModeStructured {
		t.Errorf("report = %q/%v", report.Label, report.Mode)
	}
	if report.Totals.CommitCount != 1 || report.Totals.EventCount != 2 {
		t.Errorf("Totals = %+v", report.Totals)
	}
	if report.Totals.TimeMs != 12 {
		t.Errorf("TimeMs = %v, want 12", report.Totals.TimeMs)
	}
	if report.PrimaryMetric != hotspot.MetricDuration {
		t.Errorf("PrimaryMetric = %v, want duration", report.PrimaryMetric)
	}
	if report.UnknownCauseRate != 0 {
		t.Errorf("UnknownCauseRate = %v, want 0", report.UnknownCauseRate)
	}

	// B's subtree time (7ms) outranks A's self time (5ms): a
	// component with no self time still costs its subtree.
	if len(report.Hotspots) != 2 {
		t.Fatalf("Hotspots = %+v", report.Hotspots)
	}
	if report.Hotspots[0].Name != "B" || report.Hotspots[0].TotalMs != 7 {
		t.Errorf("top = %+v, want B at 7", report.Hotspots[0])
	}
	if report.Hotspots[1].Name != "A" || report.Hotspots[1].TotalMs != 5 {
		t.Errorf("second = %+v, want A at 5", report.Hotspots[1])
	}
	for _, h := range report.Hotspots {
		if len(h.TopReasons) == 0 || h.TopReasons[0].Reason != "mount" {
			t.Errorf("%s reasons = %+v, want mount", h.Name, h.TopReasons)
		}
	}

	// The report is registered for later lookup.
	got, err := svc.Report(report.ID)
	if err != nil || got.ID != report.ID {
		t.Errorf("Report(%s) = %v, %v", report.ID, got, err)
	}
}

func TestService_AnalyzeNilExport(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	if _, err := svc.Analyze(context.Background(), nil, ""); !errors.Is(err, ErrNilExport) {
		t.Errorf("err = %v, want ErrNilExport", err)
	}
}

func TestService_AnalyzeReader(t *testing.T) {
	doc := `{
		"version": 5,
		"dataForRoots": [{
			"rootID": 1,
			"operations": [[1, 1, 1, 3, 65, 112, 112, 1, 1, 11, 1, 1, 1, 2, 5, 1, 0, 1, 0]],
			"commitData": [{
				"timestamp": 50,
				"fiberSelfDurations": [[2, 3.5]],
				"changeDescriptions": [[2, {"isFirstMount": true}]]
			}]
		}]
	}`
	svc := NewService(DefaultServiceConfig())
	report, err := svc.AnalyzeReader(context.Background(), strings.NewReader(doc), "stream")
	if err != nil {
		t.Fatalf("AnalyzeReader: %v", err)
	}
	if len(report.Hotspots) != 1 || report.Hotspots[0].Name != "App" {
		t.Errorf("Hotspots = %+v, want App", report.Hotspots)
	}
	// No explicit pass duration: the self-time sum stands in.
	if report.Totals.TimeMs != 3.5 {
		t.Errorf("TimeMs = %v, want 3.5", report.Totals.TimeMs)
	}
}

func TestService_MultiRootMerge(t *testing.T) {
	recFor := func(rootID, nodeID int, name string) []int {
		return buildRecord(1, rootID, []string{name},
			1, rootID, 11, 1, 1,
			1, nodeID, 5, rootID, 0, 1, 0,
		)
	}
	export := &ingest.Export{
		Version: 5,
		DataForRoots: []ingest.RootData{
			{
				RootID:     1,
				Operations: [][]int{recFor(1, 2, "Alpha")},
				CommitData: []ingest.CommitData{{
					Timestamp:          0,
					FiberSelfDurations: ingest.DurationMap{2: 4},
				}},
			},
			{
				RootID:     10,
				Operations: [][]int{recFor(10, 11, "Beta")},
				CommitData: []ingest.CommitData{{
					Timestamp:          5,
					FiberSelfDurations: ingest.DurationMap{11: 9},
				}},
			},
		},
	}

	svc := NewService(DefaultServiceConfig())
	report, err := svc.Analyze(context.Background(), export, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Totals.CommitCount != 2 {
		t.Errorf("CommitCount = %d, want 2", report.Totals.CommitCount)
	}
	if len(report.Hotspots) != 2 || report.Hotspots[0].Name != "Beta" {
		t.Errorf("Hotspots = %+v, want Beta ranked first", report.Hotspots)
	}
}

func TestService_DeterministicAcrossRuns(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	a, err := svc.Analyze(context.Background(), twoComponentExport(), "x")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	b, err := svc.Analyze(context.Background(), twoComponentExport(), "x")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if len(a.Hotspots) != len(b.Hotspots) {
		t.Fatalf("hotspot counts diverge: %d vs %d", len(a.Hotspots), len(b.Hotspots))
	}
	for i := range a.Hotspots {
		if a.Hotspots[i].Name != b.Hotspots[i].Name || a.Hotspots[i].TotalMs != b.Hotspots[i].TotalMs {
			t.Errorf("hotspot %d diverges: %+v vs %+v", i, a.Hotspots[i], b.Hotspots[i])
		}
	}
	if a.Totals != b.Totals {
		t.Errorf("totals diverge: %+v vs %+v", a.Totals, b.Totals)
	}
}

func TestService_OperationCommitMismatchWarning(t *testing.T) {
	export := twoComponentExport()
	export.DataForRoots[0].Operations = append(export.DataForRoots[0].Operations,
		buildRecord(1, 1, nil, 4, 2, 1000))

	svc := NewService(DefaultServiceConfig())
	report, err := svc.Analyze(context.Background(), export, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Totals.CommitCount != 1 {
		t.Errorf("CommitCount = %d, want 1 (shorter prefix)", report.Totals.CommitCount)
	}
	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "commit entries") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want mismatch warning", report.Warnings)
	}
}

func TestService_NoSignalExport(t *testing.T) {
	export := &ingest.Export{
		Version:      5,
		DataForRoots: []ingest.RootData{{RootID: 1}},
	}
	svc := NewService(DefaultServiceConfig())
	report, err := svc.Analyze(context.Background(), export, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Totals.TimeMs != 0 || report.Totals.EventCount != 0 {
		t.Errorf("Totals = %+v, want zeroed", report.Totals)
	}
	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "no usable") {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %v, want no-signal warning", report.Warnings)
	}
}

func TestService_RegistryEviction(t *testing.T) {
	cfg := DefaultServiceConfig()
	cfg.MaxCachedReports = 2
	svc := NewService(cfg)

	var ids []string
	for i := 0; i < 3; i++ {
		report, err := svc.Analyze(context.Background(), twoComponentExport(), fmt.Sprintf("run-%d", i))
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		ids = append(ids, report.ID)
	}

	if _, err := svc.Report(ids[0]); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("oldest report err = %v, want ErrReportNotFound", err)
	}
	for _, id := range ids[1:] {
		if _, err := svc.Report(id); err != nil {
			t.Errorf("Report(%s) = %v", id, err)
		}
	}
}

func TestService_Compare(t *testing.T) {
	svc := NewService(DefaultServiceConfig())
	before, err := svc.Analyze(context.Background(), twoComponentExport(), "before")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	slower := twoComponentExport()
	slower.DataForRoots[0].CommitData[0].FiberSelfDurations = ingest.DurationMap{2: 50}
	after, err := svc.Analyze(context.Background(), slower, "after")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	res, err := svc.Compare(before, after)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.Verdict != compare.VerdictRegressed {
		t.Errorf("Verdict = %v, want regressed", res.Verdict)
	}
	if res.Before.Label != "before" || res.After.Label != "after" {
		t.Errorf("labels = %q/%q", res.Before.Label, res.After.Label)
	}

	if _, err := svc.Compare(nil, after); !errors.Is(err, ErrNilReport) {
		t.Errorf("nil side err = %v, want ErrNilReport", err)
	}
}
