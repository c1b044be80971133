// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tree maintains the mutable render-node tree reconstructed by
// replaying edit records.
//
// A Tree is scoped to one analysis of one root: created empty (or seeded
// from a capture-start snapshot), mutated strictly in render-pass order,
// and discarded when the analysis finishes. It is not safe for
// concurrent use; independent roots get independent Trees.
package tree

import (
	"fmt"

	"github.com/AleutianAI/renderscope/services/profile/oplog"
)

// RenderNode is one node of the profiled component tree.
type RenderNode struct {
	// ID is unique while the node is live within one replay.
	ID int

	// ParentID names the current parent; 0 for the root.
	ParentID int

	// Children holds child ids in render order.
	Children []int

	// DisplayName is the component name ("" if the capture had none).
	DisplayName string

	// Key is the reconciliation key ("" if absent).
	Key string

	// Kind classifies the node (root vs ordinary flavors).
	Kind oplog.NodeKind

	// TreeBaseDurationMs is the instrumentation's base render cost.
	TreeBaseDurationMs float64
}

// Tree is a keyed mutable tree of render nodes.
//
// Invariant: every non-root node's ParentID names a present node whose
// Children contains it. Operations referencing unknown ids are no-ops
// with a diagnostic, never faults: a partially-captured record must not
// abort the whole analysis.
type Tree struct {
	nodes  map[int]*RenderNode
	rootID int
	diags  []string
}

// New creates an empty tree.
func New() *Tree {
	return &Tree{nodes: make(map[int]*RenderNode)}
}

// RootID returns the designated root id, or 0 if no root has been added.
func (t *Tree) RootID() int {
	return t.rootID
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node with the given id, or nil.
func (t *Tree) Node(id int) *RenderNode {
	return t.nodes[id]
}

// Has reports whether the id names a live node.
func (t *Tree) Has(id int) bool {
	_, ok := t.nodes[id]
	return ok
}

// Seed inserts a node directly, bypassing the operation path. Used to
// load the capture-start snapshot before replaying edit records.
// Children lists are taken as given; parents are not re-linked.
func (t *Tree) Seed(n RenderNode) {
	node := n
	node.Children = append([]int(nil), n.Children...)
	t.nodes[node.ID] = &node
	if node.Kind.IsRoot() || node.ParentID == 0 && t.rootID == 0 {
		t.rootID = node.ID
	}
}

// SetRootID designates the root explicitly. Snapshot documents carry
// the root id alongside the node map, so seeding does not have to
// infer it.
func (t *Tree) SetRootID(id int) {
	t.rootID = id
}

// LinkParents rewrites every node's ParentID from the children lists.
// Snapshot documents carry children but not parents; call this once
// after seeding and before replay.
func (t *Tree) LinkParents() {
	for id, node := range t.nodes {
		for _, childID := range node.Children {
			if child, ok := t.nodes[childID]; ok {
				child.ParentID = id
			}
		}
	}
	if root, ok := t.nodes[t.rootID]; ok {
		root.ParentID = 0
	}
}

// Apply effects one decoded operation.
//
// Description:
//
//	Add inserts a node and attaches it under its parent, detaching it
//	from any previous parent first (replays may re-add without an
//	intervening remove). Remove detaches each id from its parent and
//	deletes it; descendants are NOT cascaded. They stay live until
//	re-parented by a later reorder or left unreachable. Reorder
//	replaces a node's children list with the given order, re-parenting
//	every listed child. UpdateBaseDuration sets a scalar on an
//	existing node only.
//
//	Unknown-id references are tolerated as no-ops; a diagnostic is
//	recorded so frequent recurrence surfaces in the report warnings.
func (t *Tree) Apply(op oplog.Op) {
	switch op.Kind {
	case oplog.OpAddNode:
		t.applyAdd(op)
	case oplog.OpRemoveNodes:
		t.applyRemove(op)
	case oplog.OpReorderChildren:
		t.applyReorder(op)
	case oplog.OpUpdateBaseDuration:
		node, ok := t.nodes[op.ID]
		if !ok {
			t.diag("base duration update for unknown node %d", op.ID)
			return
		}
		node.TreeBaseDurationMs = op.DurationMs
	}
}

// ApplyAll effects a decoded operation sequence in order.
func (t *Tree) ApplyAll(ops []oplog.Op) {
	for _, op := range ops {
		t.Apply(op)
	}
}

func (t *Tree) applyAdd(op oplog.Op) {
	if existing, ok := t.nodes[op.ID]; ok {
		// Re-add of a live id: detach from its current parent and let
		// the add re-attach it below.
		t.detach(existing)
	}
	node := &RenderNode{
		ID:          op.ID,
		ParentID:    op.ParentID,
		DisplayName: op.DisplayName,
		Key:         op.Key,
		Kind:        op.NodeKind,
	}
	t.nodes[op.ID] = node

	if op.NodeKind.IsRoot() {
		t.rootID = op.ID
		return
	}

	parent, ok := t.nodes[op.ParentID]
	if !ok {
		t.diag("add of node %d under unknown parent %d", op.ID, op.ParentID)
		return
	}
	parent.Children = append(parent.Children, op.ID)
}

func (t *Tree) applyRemove(op oplog.Op) {
	for _, id := range op.IDs {
		node, ok := t.nodes[id]
		if !ok {
			// Missing ids here are common in partial captures; stay quiet
			// per record and let frequency-based reporting happen upstream.
			continue
		}
		t.detach(node)
		delete(t.nodes, id)
		if id == t.rootID {
			t.rootID = 0
		}
	}
}

func (t *Tree) applyReorder(op oplog.Op) {
	node, ok := t.nodes[op.ID]
	if !ok {
		t.diag("reorder of unknown node %d", op.ID)
		return
	}
	children := make([]int, 0, len(op.IDs))
	for _, childID := range op.IDs {
		child, ok := t.nodes[childID]
		if !ok {
			t.diag("reorder of node %d lists unknown child %d", op.ID, childID)
			continue
		}
		if child.ParentID != op.ID {
			// Re-parent: the listed child may still hang under its old
			// parent after a non-cascading remove.
			if old, ok := t.nodes[child.ParentID]; ok {
				old.Children = removeID(old.Children, childID)
			}
			child.ParentID = op.ID
		}
		children = append(children, childID)
	}
	node.Children = children
}

// detach unlinks a node from its parent's children list. The node
// itself stays in the map.
func (t *Tree) detach(node *RenderNode) {
	parent, ok := t.nodes[node.ParentID]
	if !ok {
		return
	}
	parent.Children = removeID(parent.Children, node.ID)
}

// AncestorChain returns the ids from the node's parent up to the root
// (or up to the first missing link). The node itself is excluded.
func (t *Tree) AncestorChain(id int) []int {
	var chain []int
	seen := map[int]bool{id: true}
	node, ok := t.nodes[id]
	for ok && node.ParentID != 0 {
		parentID := node.ParentID
		if seen[parentID] {
			// A corrupted replay can leave a parent loop; stop at the first repeat.
			break
		}
		seen[parentID] = true
		node, ok = t.nodes[parentID]
		if !ok {
			break
		}
		chain = append(chain, parentID)
	}
	return chain
}

// TakeDiagnostics returns accumulated diagnostics and clears them.
// Called once per pass so anomalies attribute to the record that
// produced them.
func (t *Tree) TakeDiagnostics() []string {
	d := t.diags
	t.diags = nil
	return d
}

func (t *Tree) diag(format string, args ...any) {
	t.diags = append(t.diags, fmt.Sprintf(format, args...))
}

func removeID(ids []int, id int) []int {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
