// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest parses structured profiling exports into in-memory
// documents the analysis pipeline can replay.
//
// The export serializes its sparse id-keyed maps as entry arrays
// ([[id, value], ...]) because the producer dumps ES Maps; the entry
// types below decode either that form or a plain JSON object keyed by
// stringified ids.
package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/AleutianAI/renderscope/services/profile/cause"
	"github.com/AleutianAI/renderscope/services/profile/oplog"
)

// Export is one profiling export document: everything captured for a
// recording session, possibly spanning multiple roots.
type Export struct {
	// Version is the export format version.
	Version int `json:"version"`

	// DataForRoots holds one entry per profiled root tree.
	DataForRoots []RootData `json:"dataForRoots"`
}

// RootData is the capture for one root tree: the snapshot of tree
// state at capture start, one raw edit record per render pass, and one
// commit-data entry per render pass.
type RootData struct {
	// RootID is the root node's id.
	RootID int `json:"rootID"`

	// DisplayName is the root's label, if the capture recorded one.
	DisplayName string `json:"displayName"`

	// Snapshots maps node id to tree state at the start of capture.
	Snapshots SnapshotMap `json:"snapshots"`

	// InitialTreeBaseDurations maps node id to base duration at the
	// start of capture, in milliseconds.
	InitialTreeBaseDurations DurationMap `json:"initialTreeBaseDurations"`

	// Operations holds one raw edit record per render pass, ordered.
	Operations [][]int `json:"operations"`

	// CommitData holds one entry per render pass, ordered.
	CommitData []CommitData `json:"commitData"`
}

// SnapshotNode is the exported state of one node at capture start.
type SnapshotNode struct {
	// ID is the node id.
	ID int `json:"id"`

	// Children holds child ids in render order.
	Children []int `json:"children"`

	// DisplayName is the component name, if any.
	DisplayName *string `json:"displayName"`

	// HOCDisplayNames lists wrapper names for higher-order components.
	HOCDisplayNames []string `json:"hocDisplayNames"`

	// Key is the reconciliation key, if any.
	Key *string `json:"key"`

	// Type is the node kind (oplog.NodeKind values).
	Type int `json:"type"`
}

// Kind returns the snapshot node's kind.
func (s SnapshotNode) Kind() oplog.NodeKind {
	return oplog.NodeKind(s.Type)
}

// CommitData is the timing and attribution capture for one render pass.
type CommitData struct {
	// Duration is the pass's explicit duration in ms, if captured.
	Duration *float64 `json:"duration"`

	// ActualDuration is an alternative explicit duration some capture
	// versions emit instead of Duration.
	ActualDuration *float64 `json:"actualDuration"`

	// CommitDuration is the commit-phase-only duration, if captured.
	CommitDuration *float64 `json:"commitDuration"`

	// Timestamp is the pass's start time in ms since recording start.
	Timestamp float64 `json:"timestamp"`

	// PriorityLevel is the scheduler lane label, if captured.
	PriorityLevel string `json:"priorityLevel"`

	// FiberActualDurations maps node id to subtree ms (sparse).
	FiberActualDurations DurationMap `json:"fiberActualDurations"`

	// FiberSelfDurations maps node id to self ms (sparse).
	FiberSelfDurations DurationMap `json:"fiberSelfDurations"`

	// ChangeDescriptions maps node id to its change record (sparse).
	ChangeDescriptions ChangeMap `json:"changeDescriptions"`

	// Updaters lists the nodes that scheduled this pass's update.
	Updaters []Updater `json:"updaters"`
}

// Updater identifies a node that triggered an update.
type Updater struct {
	// ID is the node id.
	ID int `json:"id"`

	// DisplayName is the node's component name, if any.
	DisplayName string `json:"displayName"`
}

// UpdaterIDs returns the set of update-triggering node ids.
func (c *CommitData) UpdaterIDs() map[int]bool {
	if len(c.Updaters) == 0 {
		return nil
	}
	ids := make(map[int]bool, len(c.Updaters))
	for _, u := range c.Updaters {
		ids[u.ID] = true
	}
	return ids
}

// EffectiveDurationMs resolves the pass duration through the fallback
// chain: explicit duration, then sum of self durations, then sum of
// subtree durations, then zero.
func (c *CommitData) EffectiveDurationMs() float64 {
	for _, d := range []*float64{c.Duration, c.ActualDuration, c.CommitDuration} {
		if d != nil {
			return *d
		}
	}
	if len(c.FiberSelfDurations) > 0 {
		var sum float64
		for _, v := range c.FiberSelfDurations {
			sum += v
		}
		return sum
	}
	if len(c.FiberActualDurations) > 0 {
		var sum float64
		for _, v := range c.FiberActualDurations {
			sum += v
		}
		return sum
	}
	return 0
}

// DurationMap is a sparse id -> milliseconds map.
type DurationMap map[int]float64

// UnmarshalJSON accepts either [[id, ms], ...] or {"id": ms, ...}.
func (m *DurationMap) UnmarshalJSON(data []byte) error {
	*m = make(DurationMap)
	if isNullOrEmpty(data) {
		return nil
	}
	if data[0] == '[' {
		var entries [][2]float64
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("duration entries: %w", err)
		}
		for _, e := range entries {
			(*m)[int(e[0])] = e[1]
		}
		return nil
	}
	var obj map[string]float64
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("duration map: %w", err)
	}
	for k, v := range obj {
		id, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("duration map key %q: %w", k, err)
		}
		(*m)[id] = v
	}
	return nil
}

// SnapshotMap is an id -> snapshot node map.
type SnapshotMap map[int]SnapshotNode

// UnmarshalJSON accepts either [[id, node], ...] or {"id": node, ...}.
func (m *SnapshotMap) UnmarshalJSON(data []byte) error {
	*m = make(SnapshotMap)
	if isNullOrEmpty(data) {
		return nil
	}
	if data[0] == '[' {
		var entries []snapshotEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("snapshot entries: %w", err)
		}
		for _, e := range entries {
			(*m)[e.id] = e.node
		}
		return nil
	}
	var obj map[string]SnapshotNode
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("snapshot map: %w", err)
	}
	for k, v := range obj {
		id, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("snapshot map key %q: %w", k, err)
		}
		(*m)[id] = v
	}
	return nil
}

type snapshotEntry struct {
	id   int
	node SnapshotNode
}

func (e *snapshotEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("snapshot entry has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.id); err != nil {
		return fmt.Errorf("snapshot entry id: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.node); err != nil {
		return fmt.Errorf("snapshot entry node: %w", err)
	}
	return nil
}

// ChangeMap is a sparse id -> change description map.
type ChangeMap map[int]ChangeDescription

// UnmarshalJSON accepts either [[id, desc], ...] or {"id": desc, ...}.
func (m *ChangeMap) UnmarshalJSON(data []byte) error {
	*m = make(ChangeMap)
	if isNullOrEmpty(data) {
		return nil
	}
	if data[0] == '[' {
		var entries []changeEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("change entries: %w", err)
		}
		for _, e := range entries {
			(*m)[e.id] = e.desc
		}
		return nil
	}
	var obj map[string]ChangeDescription
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("change map: %w", err)
	}
	for k, v := range obj {
		id, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("change map key %q: %w", k, err)
		}
		(*m)[id] = v
	}
	return nil
}

type changeEntry struct {
	id   int
	desc ChangeDescription
}

func (e *changeEntry) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("change entry has %d elements, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.id); err != nil {
		return fmt.Errorf("change entry id: %w", err)
	}
	if err := json.Unmarshal(pair[1], &e.desc); err != nil {
		return fmt.Errorf("change entry description: %w", err)
	}
	return nil
}

// ChangeDescription is the raw exported change record for one node in
// one pass. The context field is polymorphic across capture versions:
// a boolean in older exports, a list of context names in newer ones.
type ChangeDescription struct {
	// IsFirstMount marks the node's first appearance.
	IsFirstMount bool `json:"isFirstMount"`

	// DidHooksChange is set when any hook slot changed.
	DidHooksChange bool `json:"didHooksChange"`

	// Props lists changed prop keys, or null.
	Props []string `json:"props"`

	// State lists changed state keys, or null.
	State []string `json:"state"`

	// Hooks lists changed hook slot indexes, or null.
	Hooks []int `json:"hooks"`

	// Context holds the raw context field; see ContextKeys.
	Context json.RawMessage `json:"context"`
}

// ContextKeys normalizes the polymorphic context field. A bare "true"
// becomes the single marker entry "*".
func (d *ChangeDescription) ContextKeys() []string {
	if isNullOrEmpty(d.Context) {
		return nil
	}
	var names []string
	if err := json.Unmarshal(d.Context, &names); err == nil {
		return names
	}
	var changed bool
	if err := json.Unmarshal(d.Context, &changed); err == nil && changed {
		return []string{"*"}
	}
	return nil
}

// ChangeRecord converts the raw description into the classifier's
// model. Hook changes flagged only by DidHooksChange (no slot list)
// are represented by the single slot -1.
func (d *ChangeDescription) ChangeRecord() *cause.ChangeRecord {
	rec := &cause.ChangeRecord{
		IsFirstMount:     d.IsFirstMount,
		ChangedProps:     d.Props,
		ChangedState:     d.State,
		ChangedContext:   d.ContextKeys(),
		ChangedHookSlots: d.Hooks,
	}
	if d.DidHooksChange && len(rec.ChangedHookSlots) == 0 {
		rec.ChangedHookSlots = []int{-1}
	}
	return rec
}

func isNullOrEmpty(data []byte) bool {
	return len(data) == 0 || string(data) == "null"
}
