// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cause summarizes per-node change records into coarse render
// reasons.
//
// "unknown" is a first-class outcome, not a failure: the
// instrumentation does not capture causal attribution for every node in
// every pass. Consumers report the unknown rate instead of treating it
// as an error.
package cause

import "strings"

// ChangeRecord describes why a node rendered in one pass, as captured
// by the instrumentation. All change sets are optional.
type ChangeRecord struct {
	// IsFirstMount marks the node's first appearance.
	IsFirstMount bool

	// ChangedProps lists prop keys that changed.
	ChangedProps []string

	// ChangedState lists state keys that changed.
	ChangedState []string

	// ChangedContext lists changed context sources. Captures that only
	// record a boolean use the single marker entry "*".
	ChangedContext []string

	// ChangedHookSlots lists hook indexes that changed.
	ChangedHookSlots []int
}

// Reason categories produced by Classify.
const (
	ReasonMount   = "mount"
	ReasonProps   = "props"
	ReasonState   = "state"
	ReasonContext = "context"
	ReasonHooks   = "hooks"
	ReasonUnknown = "unknown"
)

// Classify maps a ChangeRecord to a reason summary.
//
// First mount wins outright. Otherwise every non-empty change set
// contributes its category, concatenated with "+" in a fixed order
// (props, state, context, hooks) so equal records classify equally.
// A nil record or a record with no changes yields "unknown".
func Classify(rec *ChangeRecord) string {
	if rec == nil {
		return ReasonUnknown
	}
	if rec.IsFirstMount {
		return ReasonMount
	}
	var parts []string
	if len(rec.ChangedProps) > 0 {
		parts = append(parts, ReasonProps)
	}
	if len(rec.ChangedState) > 0 {
		parts = append(parts, ReasonState)
	}
	if len(rec.ChangedContext) > 0 {
		parts = append(parts, ReasonContext)
	}
	if len(rec.ChangedHookSlots) > 0 {
		parts = append(parts, ReasonHooks)
	}
	if len(parts) == 0 {
		return ReasonUnknown
	}
	return strings.Join(parts, "+")
}

// Classification carries a reason plus its confidence qualifier.
type Classification struct {
	// Reason is the summary category (see Classify).
	Reason string

	// LowConfidenceTrigger is set when the reason is unknown but the
	// node appeared in the pass's update-trigger list, suggesting it
	// initiated the render without captured attribution.
	LowConfidenceTrigger bool
}

// ClassifyWithTriggers classifies a record and tags unknown outcomes
// that coincide with the externally supplied update-trigger list.
func ClassifyWithTriggers(rec *ChangeRecord, isUpdateTrigger bool) Classification {
	reason := Classify(rec)
	return Classification{
		Reason:               reason,
		LowConfidenceTrigger: reason == ReasonUnknown && isUpdateTrigger,
	}
}
