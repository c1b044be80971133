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
	"time"

	"github.com/AleutianAI/renderscope/services/profile/commit"
	"github.com/AleutianAI/renderscope/services/profile/compare"
	"github.com/AleutianAI/renderscope/services/profile/hotspot"
)

// Mode identifies the analysis path that produced a report.
type Mode string

const (
	// ModeStructured is the structural replay path (edit-log decoding).
	ModeStructured Mode = "structured"

	// ModeTimeline is reserved for the heuristic timeline path. Reports
	// in this mode share the same shape but are produced elsewhere.
	ModeTimeline Mode = "timeline"
)

// Totals are the whole-report counters.
type Totals struct {
	// EventCount is the number of rendered samples across all passes.
	EventCount int `json:"event_count"`

	// TimeMs is the accumulated pass duration.
	TimeMs float64 `json:"time_ms"`

	// CommitCount is the number of render passes analyzed.
	CommitCount int `json:"commit_count"`

	// MedianCommitMs is the median pass duration.
	MedianCommitMs float64 `json:"median_commit_ms"`

	// P95CommitMs is the 95th-percentile pass duration.
	P95CommitMs float64 `json:"p95_commit_ms"`
}

// AnalysisReport is the engine's output for one export: schema-stable,
// consumed by the comparator and downstream presentation.
type AnalysisReport struct {
	// ID uniquely identifies this report.
	ID string `json:"id"`

	// Mode is the analysis path.
	Mode Mode `json:"mode"`

	// Label identifies the source (file name or caller-supplied).
	Label string `json:"label,omitempty"`

	// GeneratedAt is the report creation time.
	GeneratedAt time.Time `json:"generated_at"`

	// Totals are the whole-report counters.
	Totals Totals `json:"totals"`

	// PrimaryMetric is the metric selection every consumer of this
	// report (ranking, comparison) must share.
	PrimaryMetric hotspot.Metric `json:"primary_metric"`

	// UnknownCauseRate is the fraction of rendered samples with no
	// captured causal attribution.
	UnknownCauseRate float64 `json:"unknown_cause_rate"`

	// Cadence summarizes the pass timestamps report-wide.
	Cadence hotspot.CadenceSummary `json:"cadence"`

	// Hotspots are the per-component aggregates, ranked.
	Hotspots []hotspot.Aggregate `json:"hotspots"`

	// Commits holds one flamegraph analysis per render pass, in
	// replay order across roots.
	Commits []commit.Analysis `json:"commits"`

	// Warnings are the de-duplicated recoverable anomalies.
	Warnings []string `json:"warnings,omitempty"`
}

// CompareInput projects the report onto the comparator's input shape.
func (r *AnalysisReport) CompareInput(label string) compare.Input {
	if label == "" {
		label = r.Label
	}
	if label == "" {
		label = r.ID
	}
	return compare.Input{
		Label:         label,
		Metric:        r.PrimaryMetric,
		Hotspots:      r.Hotspots,
		PeriodicChurn: r.Cadence.LikelyPeriodicChurn,
	}
}
