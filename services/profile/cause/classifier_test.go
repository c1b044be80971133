// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cause

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		rec  *ChangeRecord
		want string
	}{
		{"nil record", nil, ReasonUnknown},
		{"empty record", &ChangeRecord{}, ReasonUnknown},
		{"first mount", &ChangeRecord{IsFirstMount: true}, ReasonMount},
		{
			"mount wins over changes",
			&ChangeRecord{IsFirstMount: true, ChangedProps: []string{"items"}},
			ReasonMount,
		},
		{"props only", &ChangeRecord{ChangedProps: []string{"items"}}, ReasonProps},
		{"state only", &ChangeRecord{ChangedState: []string{"open"}}, ReasonState},
		{"context marker", &ChangeRecord{ChangedContext: []string{"*"}}, ReasonContext},
		{"hooks only", &ChangeRecord{ChangedHookSlots: []int{2}}, ReasonHooks},
		{
			"fixed combination order",
			&ChangeRecord{
				ChangedHookSlots: []int{0},
				ChangedProps:     []string{"a"},
				ChangedState:     []string{"b"},
			},
			"props+state+hooks",
		},
		{
			"all four",
			&ChangeRecord{
				ChangedProps:     []string{"a"},
				ChangedState:     []string{"b"},
				ChangedContext:   []string{"theme"},
				ChangedHookSlots: []int{1},
			},
			"props+state+context+hooks",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.rec); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyWithTriggers(t *testing.T) {
	c := ClassifyWithTriggers(nil, true)
	if c.Reason != ReasonUnknown || !c.LowConfidenceTrigger {
		t.Errorf("unknown trigger = %+v", c)
	}

	c = ClassifyWithTriggers(nil, false)
	if c.LowConfidenceTrigger {
		t.Error("non-trigger unknown must not be low-confidence")
	}

	// A classified reason never carries the low-confidence tag, even
	// for update triggers.
	c = ClassifyWithTriggers(&ChangeRecord{ChangedState: []string{"x"}}, true)
	if c.Reason != ReasonState || c.LowConfidenceTrigger {
		t.Errorf("classified trigger = %+v", c)
	}
}
