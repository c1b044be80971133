// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compare computes a metric-aware before/after delta between
// two independently produced analysis reports.
package compare

import (
	"math"
	"sort"

	"github.com/AleutianAI/renderscope/services/profile/hotspot"
)

// DefaultTopN caps the topImprovements/topRegressions lists.
const DefaultTopN = 10

// Verdict is the overall before/after judgement.
type Verdict string

const (
	VerdictImproved  Verdict = "improved"
	VerdictRegressed Verdict = "regressed"
	VerdictMixed     Verdict = "mixed"
)

// ComparedUsing values name the shared primary metric of a comparison.
const (
	ComparedUsingDuration = "primary-duration"
	ComparedUsingCount    = "primary-count"
)

// Input is one side of a comparison: the slice of an analysis report
// the comparator needs.
type Input struct {
	// Label identifies the report (file name, report id, baseline name).
	Label string

	// Metric is the report's own primary metric selection.
	Metric hotspot.Metric

	// Hotspots are the report's ranked aggregates.
	Hotspots []hotspot.Aggregate

	// PeriodicChurn is the report-level periodic-churn classification.
	PeriodicChurn bool
}

// Delta is the per-name difference on the shared primary metric.
type Delta struct {
	// Name is the component display name.
	Name string `json:"name"`

	// Before is the metric value on the before side (0 if absent).
	Before float64 `json:"before"`

	// After is the metric value on the after side (0 if absent).
	After float64 `json:"after"`

	// Diff is After - Before.
	Diff float64 `json:"diff"`

	// Pct is the percent change relative to Before. Zero when Before
	// is zero; see New.
	Pct float64 `json:"pct"`

	// New marks names absent on the before side.
	New bool `json:"new,omitempty"`

	// Removed marks names absent on the after side.
	Removed bool `json:"removed,omitempty"`
}

// Side is one report's summary within a comparison result.
type Side struct {
	// Label identifies the report.
	Label string `json:"label"`

	// Total is the report's total on the shared primary metric.
	Total float64 `json:"total"`

	// PeriodicChurn is the report's churn classification.
	PeriodicChurn bool `json:"periodic_churn"`
}

// Result is the comparison report.
type Result struct {
	// Before summarizes the before side.
	Before Side `json:"before"`

	// After summarizes the after side.
	After Side `json:"after"`

	// ComparedUsing names the shared primary metric.
	ComparedUsing string `json:"compared_using"`

	// Deltas holds every aligned name, sorted by |Diff| descending.
	Deltas []Delta `json:"deltas"`

	// TopImprovements are the largest negative diffs, capped.
	TopImprovements []Delta `json:"top_improvements"`

	// TopRegressions are the largest positive diffs, capped.
	TopRegressions []Delta `json:"top_regressions"`

	// Verdict is the overall judgement.
	Verdict Verdict `json:"verdict"`
}

// Options tunes a comparison.
type Options struct {
	// TopN caps the improvement/regression lists. Default: DefaultTopN.
	TopN int
}

// Compare aligns two reports by hotspot name and judges the change.
//
// Description:
//
//	The shared primary metric is duration only when both sides selected
//	duration; a duration-free side forces the comparison onto counts so
//	both sides measure the same thing. Names absent on one side are
//	treated as zero. The verdict is regressed when the primary total
//	increased or periodic churn newly appeared; improved when the total
//	decreased (without new churn) or churn got resolved; mixed
//	otherwise. Equal totals with no churn change are mixed, not
//	improved.
func Compare(before, after Input, opts Options) Result {
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	metric := hotspot.MetricDuration
	comparedUsing := ComparedUsingDuration
	if before.Metric == hotspot.MetricCount || after.Metric == hotspot.MetricCount {
		metric = hotspot.MetricCount
		comparedUsing = ComparedUsingCount
	}

	beforeByName := valuesByName(before.Hotspots, metric)
	afterByName := valuesByName(after.Hotspots, metric)

	names := make(map[string]bool, len(beforeByName)+len(afterByName))
	for name := range beforeByName {
		names[name] = true
	}
	for name := range afterByName {
		names[name] = true
	}

	var beforeTotal, afterTotal float64
	deltas := make([]Delta, 0, len(names))
	for name := range names {
		b, hadBefore := beforeByName[name]
		a, hadAfter := afterByName[name]
		beforeTotal += b
		afterTotal += a
		d := Delta{
			Name:    name,
			Before:  b,
			After:   a,
			Diff:    a - b,
			New:     !hadBefore,
			Removed: !hadAfter,
		}
		if b != 0 {
			d.Pct = d.Diff / b * 100
		}
		deltas = append(deltas, d)
	}
	sort.Slice(deltas, func(i, j int) bool {
		di, dj := math.Abs(deltas[i].Diff), math.Abs(deltas[j].Diff)
		if di != dj {
			return di > dj
		}
		return deltas[i].Name < deltas[j].Name
	})

	res := Result{
		Before:        Side{Label: before.Label, Total: beforeTotal, PeriodicChurn: before.PeriodicChurn},
		After:         Side{Label: after.Label, Total: afterTotal, PeriodicChurn: after.PeriodicChurn},
		ComparedUsing: comparedUsing,
		Deltas:        deltas,
	}
	for _, d := range deltas {
		if d.Diff < 0 && len(res.TopImprovements) < topN {
			res.TopImprovements = append(res.TopImprovements, d)
		}
		if d.Diff > 0 && len(res.TopRegressions) < topN {
			res.TopRegressions = append(res.TopRegressions, d)
		}
	}

	res.Verdict = verdict(beforeTotal, afterTotal, before.PeriodicChurn, after.PeriodicChurn)
	return res
}

func verdict(beforeTotal, afterTotal float64, churnBefore, churnAfter bool) Verdict {
	churnAppeared := churnAfter && !churnBefore
	churnResolved := churnBefore && !churnAfter

	switch {
	case afterTotal > beforeTotal || churnAppeared:
		return VerdictRegressed
	case afterTotal < beforeTotal || churnResolved:
		return VerdictImproved
	default:
		return VerdictMixed
	}
}

func valuesByName(aggs []hotspot.Aggregate, metric hotspot.Metric) map[string]float64 {
	out := make(map[string]float64, len(aggs))
	for _, a := range aggs {
		out[a.Name] += hotspot.MetricValue(a, metric)
	}
	return out
}
