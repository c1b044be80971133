// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package profile turns exported render-instrumentation data into
// ranked, comparable reports of rendering hotspots.
//
// The pipeline per root: decode each pass's edit record (oplog), apply
// it to the persistent tree model (tree), derive the pass's flamegraph
// (commit), classify render causes (cause), and fold everything into
// per-component aggregates with cadence classification (hotspot).
// Decoding and tree mutation for one root are strictly ordered: each
// record is a diff against the cumulative state left by all prior
// passes. Independent roots share no state and are analyzed in
// parallel.
//
// The pipeline is best-effort: no single malformed record
// aborts an analysis. Recoverable anomalies are collected into the
// report's de-duplicated warnings list.
package profile

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/renderscope/services/profile/cause"
	"github.com/AleutianAI/renderscope/services/profile/commit"
	"github.com/AleutianAI/renderscope/services/profile/compare"
	"github.com/AleutianAI/renderscope/services/profile/hotspot"
	"github.com/AleutianAI/renderscope/services/profile/ingest"
	"github.com/AleutianAI/renderscope/services/profile/oplog"
	"github.com/AleutianAI/renderscope/services/profile/tree"
	"github.com/aclements/go-moremath/stats"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ServiceConfig tunes the analysis service.
type ServiceConfig struct {
	// MaxExportBytes caps parsed export documents. Default: 256MB.
	MaxExportBytes int64

	// MaxHotspots caps the ranked hotspot list per report.
	// Default: 100. Zero means unlimited.
	MaxHotspots int

	// CompareTopN caps topImprovements/topRegressions.
	// Default: compare.DefaultTopN.
	CompareTopN int

	// MaxCachedReports bounds the in-memory report registry.
	// Default: 32.
	MaxCachedReports int
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxExportBytes:   256 * 1024 * 1024,
		MaxHotspots:      100,
		CompareTopN:      compare.DefaultTopN,
		MaxCachedReports: 32,
	}
}

// Service is the profile analysis service.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Each Analyze call builds its
//	own trees and aggregator; only the report registry is shared.
type Service struct {
	config ServiceConfig

	mu      sync.RWMutex
	reports map[string]*AnalysisReport
	order   []string
}

// NewService creates a new profile service.
func NewService(config ServiceConfig) *Service {
	return &Service{
		config:  config,
		reports: make(map[string]*AnalysisReport),
	}
}

// Analyze replays an export document and produces its analysis report.
//
// Description:
//
//	Analyzes every root in the export. Roots are independent (no shared
//	mutable state) and run in parallel; within one root, passes replay
//	strictly in index order. The merged report ranks hotspots across
//	all roots and classifies the report-wide render cadence.
//
//	Analyze always produces a report for a decodable document: decode
//	and replay anomalies degrade to warnings, and an export with no
//	usable signal yields zeroed totals plus a warning rather than an
//	error.
//
// Inputs:
//
//	ctx - Context; cancellation is honored between roots.
//	export - The parsed export document.
//	label - Source label for the report (file name, capture name).
//
// Outputs:
//
//	*AnalysisReport - The finished report, registered for later lookup.
//	error - Non-nil only for a nil export or cancelled context.
func (s *Service) Analyze(ctx context.Context, export *ingest.Export, label string) (*AnalysisReport, error) {
	if export == nil {
		return nil, ErrNilExport
	}
	start := time.Now()
	ctx, span := startAnalyzeSpan(ctx, label, len(export.DataForRoots))
	defer span.End()

	outcomes := make([]rootOutcome, len(export.DataForRoots))
	g, gctx := errgroup.WithContext(ctx)
	for i := range export.DataForRoots {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = analyzeRoot(&export.DataForRoots[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		recordAnalyze(ctx, time.Since(start).Seconds(), 0, 0, false)
		return nil, fmt.Errorf("analyze roots: %w", err)
	}

	report := s.assemble(label, outcomes)
	s.register(report)
	recordAnalyze(ctx, time.Since(start).Seconds(), report.Totals.CommitCount, len(report.Warnings), true)
	return report, nil
}

// AnalyzeReader parses an export document from r and analyzes it.
func (s *Service) AnalyzeReader(ctx context.Context, r io.Reader, label string) (*AnalysisReport, error) {
	export, err := ingest.Parse(r, s.config.MaxExportBytes)
	if err != nil {
		return nil, err
	}
	return s.Analyze(ctx, export, label)
}

// Compare produces the before/after comparison of two reports.
func (s *Service) Compare(before, after *AnalysisReport) (*compare.Result, error) {
	if before == nil || after == nil {
		return nil, ErrNilReport
	}
	res := compare.Compare(before.CompareInput(""), after.CompareInput(""), compare.Options{TopN: s.config.CompareTopN})
	return &res, nil
}

// Report returns a previously produced report by id.
func (s *Service) Report(id string) (*AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	return report, nil
}

// register stores a report in the bounded registry, evicting the
// oldest entry when full.
func (s *Service) register(report *AnalysisReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.MaxCachedReports > 0 && len(s.order) >= s.config.MaxCachedReports {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.reports, oldest)
	}
	s.reports[report.ID] = report
	s.order = append(s.order, report.ID)
}

// rootOutcome is one root's replay result.
type rootOutcome struct {
	analyses []commit.Analysis
	warnings []string
}

// analyzeRoot replays one root's pass sequence against a fresh tree.
// Passes apply strictly in index order.
func analyzeRoot(root *ingest.RootData) rootOutcome {
	var out rootOutcome

	t := tree.New()
	for _, snap := range root.Snapshots {
		name := ""
		if snap.DisplayName != nil {
			name = *snap.DisplayName
		}
		key := ""
		if snap.Key != nil {
			key = *snap.Key
		}
		t.Seed(tree.RenderNode{
			ID:          snap.ID,
			Children:    snap.Children,
			DisplayName: name,
			Key:         key,
			Kind:        snap.Kind(),
		})
	}
	t.SetRootID(root.RootID)
	t.LinkParents()
	for id, ms := range root.InitialTreeBaseDurations {
		if node := t.Node(id); node != nil {
			node.TreeBaseDurationMs = ms
		}
	}

	count := root.CommitCount()
	if len(root.Operations) != len(root.CommitData) {
		out.warnings = append(out.warnings, fmt.Sprintf(
			"root %d: %d operation records but %d commit entries; replaying first %d",
			root.RootID, len(root.Operations), len(root.CommitData), count))
	}

	for i := 0; i < count; i++ {
		decoded := oplog.Decode(root.Operations[i])
		out.warnings = append(out.warnings, decoded.Diagnostics...)
		t.ApplyAll(decoded.Ops)
		out.warnings = append(out.warnings, t.TakeDiagnostics()...)

		cd := &root.CommitData[i]
		causes := make(map[int]*cause.ChangeRecord, len(cd.ChangeDescriptions))
		for id, desc := range cd.ChangeDescriptions {
			d := desc
			causes[id] = d.ChangeRecord()
		}
		pass := commit.Pass{
			Index:       i,
			TimestampMs: cd.Timestamp,
			DurationMs:  cd.EffectiveDurationMs(),
			SelfMs:      cd.FiberSelfDurations,
			SubtreeMs:   cd.FiberActualDurations,
			Causes:      causes,
			UpdaterIDs:  cd.UpdaterIDs(),
		}
		out.analyses = append(out.analyses, commit.Analyze(t, pass))
	}
	return out
}

// assemble merges per-root outcomes into the final report.
func (s *Service) assemble(label string, outcomes []rootOutcome) *AnalysisReport {
	agg := hotspot.NewAggregator()
	var (
		analyses   []commit.Analysis
		warnings   []string
		timestamps []float64
		durations  []float64
		totalMs    float64
	)
	for _, out := range outcomes {
		warnings = append(warnings, out.warnings...)
		for _, a := range out.analyses {
			agg.Observe(a)
			analyses = append(analyses, a)
			timestamps = append(timestamps, a.TimestampMs)
			durations = append(durations, a.DurationMs)
			totalMs += a.DurationMs
		}
	}

	hotspots := agg.Hotspots(s.config.MaxHotspots)
	report := &AnalysisReport{
		ID:               uuid.NewString(),
		Mode:             ModeStructured,
		Label:            label,
		GeneratedAt:      time.Now().UTC(),
		PrimaryMetric:    hotspot.PrimaryMetric(hotspots),
		UnknownCauseRate: agg.UnknownRate(),
		Cadence:          hotspot.SummarizeCadence(timestamps),
		Hotspots:         hotspots,
		Commits:          analyses,
	}
	report.Totals = Totals{
		EventCount:  agg.Samples(),
		TimeMs:      totalMs,
		CommitCount: len(analyses),
	}
	if len(durations) > 0 {
		sort.Float64s(durations)
		sample := stats.Sample{Xs: durations, Sorted: true}
		report.Totals.MedianCommitMs = sample.Quantile(0.5)
		report.Totals.P95CommitMs = sample.Quantile(0.95)
	}

	if report.Totals.TimeMs == 0 && report.Totals.EventCount == 0 {
		warnings = append(warnings, "no usable duration or occurrence signal in export; totals are zero")
	}
	report.Warnings = dedupe(warnings)
	return report
}

// dedupe removes repeated warnings, preserving first-seen order.
func dedupe(warnings []string) []string {
	if len(warnings) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(warnings))
	out := warnings[:0]
	for _, w := range warnings {
		if seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
