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
	"math"
	"testing"
)

func TestSummarizeCadence_OneSecondLoop(t *testing.T) {
	var timestamps []float64
	for i := 0; i < 10; i++ {
		timestamps = append(timestamps, float64(i)*1000)
	}
	s := SummarizeCadence(timestamps)

	if s.SampleCount != 10 {
		t.Errorf("SampleCount = %d, want 10", s.SampleCount)
	}
	if math.Abs(s.MedianDeltaMs-1000) > 1e-9 {
		t.Errorf("MedianDeltaMs = %v, want 1000", s.MedianDeltaMs)
	}
	if s.Regularity != 1.0 {
		t.Errorf("Regularity = %v, want 1.0", s.Regularity)
	}
	if !s.LikelyPeriodicChurn {
		t.Error("one-second loop must classify as periodic churn")
	}
}

func TestSummarizeCadence_JitteredLoop(t *testing.T) {
	// One-second loop with mild jitter stays within the 200ms band.
	timestamps := []float64{0, 980, 2010, 2995, 4020, 5005}
	s := SummarizeCadence(timestamps)
	if !s.LikelyPeriodicChurn {
		t.Errorf("jittered loop = %+v, want periodic churn", s)
	}
}

func TestSummarizeCadence_IrregularIsNotChurn(t *testing.T) {
	timestamps := []float64{0, 55, 340, 360, 900, 910, 1500}
	s := SummarizeCadence(timestamps)
	if s.LikelyPeriodicChurn {
		t.Errorf("irregular intervals classified as churn: %+v", s)
	}
}

func TestSummarizeCadence_FastLoopIsNotChurn(t *testing.T) {
	// Regular but far below the one-second window (e.g. 60fps).
	var timestamps []float64
	for i := 0; i < 20; i++ {
		timestamps = append(timestamps, float64(i)*16.7)
	}
	s := SummarizeCadence(timestamps)
	if s.LikelyPeriodicChurn {
		t.Errorf("16ms loop classified as churn: %+v", s)
	}
	if s.Regularity != 1.0 {
		t.Errorf("Regularity = %v, want 1.0", s.Regularity)
	}
}

func TestSummarizeCadence_TooFewSamples(t *testing.T) {
	// Three timestamps give two deltas, below the three-delta minimum.
	s := SummarizeCadence([]float64{0, 1000, 2000})
	if s.LikelyPeriodicChurn {
		t.Errorf("two deltas classified as churn: %+v", s)
	}

	if s := SummarizeCadence([]float64{500}); s.SampleCount != 1 || s.MedianDeltaMs != 0 {
		t.Errorf("single timestamp summary = %+v", s)
	}
	if s := SummarizeCadence(nil); s.SampleCount != 0 {
		t.Errorf("nil summary = %+v", s)
	}
}

func TestSummarizeCadence_UnsortedInput(t *testing.T) {
	s := SummarizeCadence([]float64{3000, 0, 2000, 1000, 4000})
	if math.Abs(s.MedianDeltaMs-1000) > 1e-9 {
		t.Errorf("MedianDeltaMs = %v, want 1000", s.MedianDeltaMs)
	}
	if !s.LikelyPeriodicChurn {
		t.Errorf("summary = %+v, want periodic churn", s)
	}
}
