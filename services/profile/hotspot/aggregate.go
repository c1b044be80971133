// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hotspot accumulates per-component render totals across all
// passes and classifies the cadence of repeated renders.
//
// Aggregation groups by display name, not per-pass node identity: a
// component re-created across passes rolls up together.
package hotspot

import (
	"sort"

	"github.com/AleutianAI/renderscope/services/profile/cause"
	"github.com/AleutianAI/renderscope/services/profile/commit"
)

// AnonymousName groups rendered nodes that carried no display name.
const AnonymousName = "(anonymous)"

// Metric names a report's primary ranking/comparison metric.
type Metric string

const (
	// MetricDuration ranks by accumulated milliseconds.
	MetricDuration Metric = "duration"

	// MetricCount ranks by occurrence count, used for duration-free inputs.
	MetricCount Metric = "count"
)

// ReasonCount is one entry of a ranked reason distribution.
type ReasonCount struct {
	// Reason is the cause summary category.
	Reason string `json:"reason"`

	// Count is how many samples carried it.
	Count int `json:"count"`
}

// Aggregate is the accumulated cost of one component name across all
// render passes.
type Aggregate struct {
	// Name is the component display name.
	Name string `json:"name"`

	// Count is the number of rendered samples.
	Count int `json:"count"`

	// TotalMs is the accumulated per-sample cost (self time, falling
	// back to subtree time when self is zero).
	TotalMs float64 `json:"total_ms"`

	// SelfMs is the accumulated self time.
	SelfMs float64 `json:"self_ms"`

	// SubtreeMs is the accumulated subtree time.
	SubtreeMs float64 `json:"subtree_ms"`

	// TopReasons is the reason distribution, ranked by count.
	TopReasons []ReasonCount `json:"top_reasons,omitempty"`

	// LowConfidenceTriggers counts unknown-reason samples that
	// coincided with the pass's update-trigger list.
	LowConfidenceTriggers int `json:"low_confidence_triggers,omitempty"`

	// Cadence summarizes this component's render timestamps.
	Cadence CadenceSummary `json:"cadence"`
}

// Aggregator folds per-pass analyses into per-name aggregates. Not safe
// for concurrent use; one Aggregator belongs to one analysis run.
type Aggregator struct {
	byName  map[string]*accum
	samples int
	unknown int
}

type accum struct {
	agg        Aggregate
	reasons    map[string]int
	timestamps []float64
	lastPass   int
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{byName: make(map[string]*accum)}
}

// Observe folds one pass's analysis into the running totals. Only
// rendered frames count; ancestor-context frames are skipped.
func (ag *Aggregator) Observe(a commit.Analysis) {
	for _, frame := range a.Frames {
		if !frame.Rendered {
			continue
		}
		name := frame.Name
		if name == "" {
			name = AnonymousName
		}
		acc, ok := ag.byName[name]
		if !ok {
			acc = &accum{agg: Aggregate{Name: name}, reasons: make(map[string]int), lastPass: -1}
			ag.byName[name] = acc
		}

		cost := frame.SelfMs
		if cost <= 0 {
			cost = frame.SubtreeMs
		}
		acc.agg.Count++
		acc.agg.TotalMs += cost
		acc.agg.SelfMs += frame.SelfMs
		acc.agg.SubtreeMs += frame.SubtreeMs
		acc.reasons[frame.Reason]++
		if frame.LowConfidenceTrigger {
			acc.agg.LowConfidenceTriggers++
		}
		// One timestamp per name per pass: several instances of the
		// same component rendering together are one cadence event.
		if acc.lastPass != a.Index {
			acc.timestamps = append(acc.timestamps, a.TimestampMs)
			acc.lastPass = a.Index
		}

		ag.samples++
		if frame.Reason == cause.ReasonUnknown {
			ag.unknown++
		}
	}
}

// Hotspots returns the aggregates ranked by TotalMs descending,
// tie-broken by Count, then name for determinism. A limit of 0 returns
// everything.
func (ag *Aggregator) Hotspots(limit int) []Aggregate {
	out := make([]Aggregate, 0, len(ag.byName))
	for _, acc := range ag.byName {
		agg := acc.agg
		agg.TopReasons = rankReasons(acc.reasons)
		agg.Cadence = SummarizeCadence(acc.timestamps)
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalMs != out[j].TotalMs {
			return out[i].TotalMs > out[j].TotalMs
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// UnknownRate is the fraction of rendered samples whose cause
// classified as unknown. Zero when nothing was observed.
func (ag *Aggregator) UnknownRate() float64 {
	if ag.samples == 0 {
		return 0
	}
	return float64(ag.unknown) / float64(ag.samples)
}

// Samples returns the total number of rendered samples observed.
func (ag *Aggregator) Samples() int {
	return ag.samples
}

// PrimaryMetric selects the shared ranking/comparison metric for a set
// of aggregates: duration when any aggregate carries positive duration,
// occurrence count otherwise. Every consumer of one report must use the
// same selection.
func PrimaryMetric(aggregates []Aggregate) Metric {
	for _, a := range aggregates {
		if a.TotalMs > 0 {
			return MetricDuration
		}
	}
	return MetricCount
}

// MetricValue returns an aggregate's value under the given metric.
func MetricValue(a Aggregate, m Metric) float64 {
	if m == MetricCount {
		return float64(a.Count)
	}
	return a.TotalMs
}

func rankReasons(reasons map[string]int) []ReasonCount {
	if len(reasons) == 0 {
		return nil
	}
	out := make([]ReasonCount, 0, len(reasons))
	for reason, count := range reasons {
		out = append(out, ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
