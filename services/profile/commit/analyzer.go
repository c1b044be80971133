// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package commit derives per-pass flamegraphs from the reconstructed
// tree and the pass's sparse timing and attribution maps.
package commit

import (
	"sort"

	"github.com/AleutianAI/renderscope/services/profile/cause"
	"github.com/AleutianAI/renderscope/services/profile/tree"
)

// Pass is the input for one render pass's analysis: the duration and
// cause maps captured alongside the edit record this pass applied.
type Pass struct {
	// Index is the pass's position in the recording, 0-based.
	Index int

	// TimestampMs is the pass's start time.
	TimestampMs float64

	// DurationMs is the resolved whole-pass duration.
	DurationMs float64

	// SelfMs maps node id to self time (sparse).
	SelfMs map[int]float64

	// SubtreeMs maps node id to explicit subtree time (sparse).
	SubtreeMs map[int]float64

	// Causes maps node id to its change record (sparse).
	Causes map[int]*cause.ChangeRecord

	// UpdaterIDs is the externally captured update-trigger set, if any.
	UpdaterIDs map[int]bool
}

// Frame is one node of a pass's flamegraph.
type Frame struct {
	// NodeID is the render node id.
	NodeID int `json:"node_id"`

	// ParentID is the parent's id within the included set, 0 for a
	// flamegraph root.
	ParentID int `json:"parent_id"`

	// Depth is the BFS depth within the included set.
	Depth int `json:"depth"`

	// Name is the node's display name.
	Name string `json:"name"`

	// Rendered marks nodes that actually rendered this pass; ancestors
	// included only for context carry false.
	Rendered bool `json:"rendered"`

	// SelfMs is the node's self time (0 if not captured).
	SelfMs float64 `json:"self_ms"`

	// SubtreeMs is the explicit subtree time when captured, otherwise
	// the recomputed value.
	SubtreeMs float64 `json:"subtree_ms"`

	// ComputedSubtreeMs is always the bottom-up recomputed value, kept
	// alongside the explicit one so the two can be cross-checked.
	ComputedSubtreeMs float64 `json:"computed_subtree_ms"`

	// HasExplicitSubtree marks frames whose SubtreeMs came from the capture.
	HasExplicitSubtree bool `json:"has_explicit_subtree"`

	// Reason is the render-cause summary for rendered frames.
	Reason string `json:"reason,omitempty"`

	// LowConfidenceTrigger tags unknown-reason frames that appear in
	// the pass's update-trigger list.
	LowConfidenceTrigger bool `json:"low_confidence_trigger,omitempty"`

	// Children are the frame's child node ids within the included set.
	Children []int `json:"children,omitempty"`
}

// Analysis is the per-pass output: the flamegraph restricted to
// rendered nodes and their ancestor chains.
type Analysis struct {
	// Index is the pass index.
	Index int `json:"index"`

	// TimestampMs is the pass's start time.
	TimestampMs float64 `json:"timestamp_ms"`

	// DurationMs is the resolved whole-pass duration.
	DurationMs float64 `json:"duration_ms"`

	// Frames holds the flamegraph in BFS order (parents before children).
	Frames []Frame `json:"frames"`

	// RenderedCount is the number of frames with Rendered set.
	RenderedCount int `json:"rendered_count"`
}

// Analyze builds one pass's flamegraph from the current tree state.
//
// Description:
//
//	The rendered set is the union of nodes appearing in SelfMs,
//	SubtreeMs, or Causes. The included set adds every rendered node's
//	ancestor chain up to the tree root (context only, not counted as
//	rendered). Depth is assigned by a breadth-first walk restricted to
//	the included set. Subtree time is recomputed bottom-up as
//	self + sum of included children, with a recursion-lineage guard:
//	a revisited node contributes only its self time, guaranteeing
//	termination on corrupted (cyclic) trees.
//
//	Rendered nodes absent from the tree (dangling capture references)
//	are dropped; the replay path already tolerates these.
func Analyze(t *tree.Tree, p Pass) Analysis {
	a := Analysis{Index: p.Index, TimestampMs: p.TimestampMs, DurationMs: p.DurationMs}

	rendered := make(map[int]bool)
	for id := range p.SelfMs {
		rendered[id] = true
	}
	for id := range p.SubtreeMs {
		rendered[id] = true
	}
	for id := range p.Causes {
		rendered[id] = true
	}

	included := make(map[int]bool)
	for id := range rendered {
		if !t.Has(id) {
			continue
		}
		included[id] = true
		for _, anc := range t.AncestorChain(id) {
			included[anc] = true
		}
	}
	if len(included) == 0 {
		return a
	}

	// Children adjacency restricted to the included set, preserving
	// the tree's child order.
	children := make(map[int][]int, len(included))
	for id := range included {
		node := t.Node(id)
		for _, childID := range node.Children {
			if included[childID] {
				children[id] = append(children[id], childID)
			}
		}
	}

	// BFS roots: included nodes whose parent is outside the included
	// set. Normally just the tree root; detached fragments produce
	// additional roots at depth 0.
	var roots []int
	for id := range included {
		node := t.Node(id)
		if node.ParentID == 0 || !included[node.ParentID] {
			roots = append(roots, id)
		}
	}
	sort.Ints(roots)

	comp := &subtreeComputer{
		selfMs:   p.SelfMs,
		children: children,
		memo:     make(map[int]float64, len(included)),
		visiting: make(map[int]bool),
	}

	depth := make(map[int]int, len(included))
	queue := append([]int(nil), roots...)
	for _, r := range roots {
		depth[r] = 0
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		node := t.Node(id)
		frame := Frame{
			NodeID:   id,
			Depth:    depth[id],
			Name:     node.DisplayName,
			Rendered: rendered[id],
			SelfMs:   p.SelfMs[id],
			Children: children[id],
		}
		if included[node.ParentID] {
			frame.ParentID = node.ParentID
		}

		frame.ComputedSubtreeMs = comp.compute(id)
		if explicit, ok := p.SubtreeMs[id]; ok {
			frame.SubtreeMs = explicit
			frame.HasExplicitSubtree = true
		} else {
			frame.SubtreeMs = frame.ComputedSubtreeMs
		}

		if frame.Rendered {
			cl := cause.ClassifyWithTriggers(p.Causes[id], p.UpdaterIDs[id])
			frame.Reason = cl.Reason
			frame.LowConfidenceTrigger = cl.LowConfidenceTrigger
			a.RenderedCount++
		}

		a.Frames = append(a.Frames, frame)
		for _, childID := range children[id] {
			if _, seen := depth[childID]; seen {
				continue
			}
			depth[childID] = depth[id] + 1
			queue = append(queue, childID)
		}
	}
	return a
}

// subtreeComputer recomputes subtree times bottom-up with an explicit
// currently-visiting set rather than relying on call-stack identity.
type subtreeComputer struct {
	selfMs   map[int]float64
	children map[int][]int
	memo     map[int]float64
	visiting map[int]bool
}

func (c *subtreeComputer) compute(id int) float64 {
	if v, ok := c.memo[id]; ok {
		return v
	}
	if c.visiting[id] {
		// Cycle: the revisited node contributes only its self time.
		return c.selfMs[id]
	}
	c.visiting[id] = true
	total := c.selfMs[id]
	for _, childID := range c.children[id] {
		total += c.compute(childID)
	}
	delete(c.visiting, id)
	c.memo[id] = total
	return total
}
