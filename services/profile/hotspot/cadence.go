// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hotspot

import (
	"sort"

	"github.com/aclements/go-moremath/stats"
)

// Periodic-churn classification window. Targets one-second timer-driven
// update loops while tolerating jitter; a heuristic, not proof of
// causation.
const (
	churnMinDeltas    = 3
	churnMinMedianMs  = 700.0
	churnMaxMedianMs  = 1300.0
	churnMinRegular   = 0.5
	regularityFloorMs = 40.0
	regularityFrac    = 0.2
)

// CadenceSummary describes how regular the intervals between repeated
// renders of one signal are.
type CadenceSummary struct {
	// SampleCount is the number of timestamps analyzed.
	SampleCount int `json:"sample_count"`

	// MedianDeltaMs is the median consecutive interval.
	MedianDeltaMs float64 `json:"median_delta_ms"`

	// Regularity is the fraction of intervals within
	// max(40ms, 0.2 x median) of the median, in [0, 1].
	Regularity float64 `json:"regularity"`

	// LikelyPeriodicChurn is set when the signal looks like a
	// timer-driven one-second update loop.
	LikelyPeriodicChurn bool `json:"likely_periodic_churn"`
}

// SummarizeCadence classifies the cadence of one timestamp sequence
// (per-pass or per-component).
//
// Timestamps are sorted, consecutive deltas taken, and the median delta
// computed. LikelyPeriodicChurn requires at least 3 deltas, a median in
// [700ms, 1300ms], and regularity of at least 0.5.
func SummarizeCadence(timestamps []float64) CadenceSummary {
	s := CadenceSummary{SampleCount: len(timestamps)}
	if len(timestamps) < 2 {
		return s
	}

	sorted := append([]float64(nil), timestamps...)
	sort.Float64s(sorted)

	deltas := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		deltas = append(deltas, sorted[i]-sorted[i-1])
	}
	sort.Float64s(deltas)

	sample := stats.Sample{Xs: deltas, Sorted: true}
	s.MedianDeltaMs = sample.Quantile(0.5)

	tolerance := regularityFrac * s.MedianDeltaMs
	if tolerance < regularityFloorMs {
		tolerance = regularityFloorMs
	}
	within := 0
	for _, d := range deltas {
		if d >= s.MedianDeltaMs-tolerance && d <= s.MedianDeltaMs+tolerance {
			within++
		}
	}
	s.Regularity = float64(within) / float64(len(deltas))

	s.LikelyPeriodicChurn = len(deltas) >= churnMinDeltas &&
		s.MedianDeltaMs >= churnMinMedianMs &&
		s.MedianDeltaMs <= churnMaxMedianMs &&
		s.Regularity >= churnMinRegular
	return s
}
