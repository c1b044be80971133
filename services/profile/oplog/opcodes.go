// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package oplog decodes the compact edit records emitted by the render
// instrumentation into typed tree operations.
//
// One record describes the mutations a single render pass applied to the
// component tree. A record is an ordered sequence of integers:
//
//	[rendererID, rootID,
//	 stringCount, (length, codepoints...) x stringCount,
//	 op, payload..., op, payload..., ...]
//
// The embedded string table is decoded once per record, before any
// operation is read. String references inside operation payloads are
// 1-based indexes into the table; reference 0 means "no string".
//
// Decoding is separated from effecting: Decode produces an ordered []Op
// and never touches a tree. The tree package applies the result.
package oplog

// Opcode identifies one operation in an edit record.
type Opcode int

const (
	// OpcodeAddNode inserts a node. Payload for an ordinary node:
	// id, kind, parentID, ownerID, displayNameRef, keyRef.
	// Payload for a root node: id, kind, supportsProfiling, hasOwnerMetadata.
	OpcodeAddNode Opcode = 1

	// OpcodeRemoveNodes removes nodes. Payload: count, id x count.
	OpcodeRemoveNodes Opcode = 2

	// OpcodeReorderChildren replaces a node's child order.
	// Payload: id, count, childID x count.
	OpcodeReorderChildren Opcode = 3

	// OpcodeUpdateBaseDuration sets a node's tree base duration.
	// Payload: id, microseconds.
	OpcodeUpdateBaseDuration Opcode = 4

	// OpcodeErrorsWarnings carries per-node error/warning counts.
	// Payload: id, errorCount, warningCount. Recognized but not applied.
	OpcodeErrorsWarnings Opcode = 5

	// OpcodeRemoveRoot tears down the whole root. No payload.
	// Recognized but not applied.
	OpcodeRemoveRoot Opcode = 6

	// OpcodeSubtreeMode flags a subtree's capture mode.
	// Payload: rootID, mode. Recognized but not applied.
	OpcodeSubtreeMode Opcode = 7

	// OpcodeRegionAdd adds a node to the secondary visual-region tree.
	// Payload: id, parentID, nameRef. Recognized but not applied.
	OpcodeRegionAdd Opcode = 8

	// OpcodeRegionRemove removes visual-region nodes.
	// Payload: count, id x count. Recognized but not applied.
	OpcodeRegionRemove Opcode = 9

	// OpcodeRegionReorder reorders visual-region children.
	// Payload: id, count, childID x count. Recognized but not applied.
	OpcodeRegionReorder Opcode = 10

	// OpcodeRegionResize updates a visual region's rectangle.
	// Payload: id, x, y, width, height. Recognized but not applied.
	OpcodeRegionResize Opcode = 11

	// OpcodeRegionSuspended toggles a visual region's suspended state.
	// Payload: id, state. Recognized but not applied.
	OpcodeRegionSuspended Opcode = 12
)

// opcodeNames maps Opcode values to their string representations.
var opcodeNames = map[Opcode]string{
	OpcodeAddNode:            "add_node",
	OpcodeRemoveNodes:        "remove_nodes",
	OpcodeReorderChildren:    "reorder_children",
	OpcodeUpdateBaseDuration: "update_base_duration",
	OpcodeErrorsWarnings:     "errors_warnings",
	OpcodeRemoveRoot:         "remove_root",
	OpcodeSubtreeMode:        "subtree_mode",
	OpcodeRegionAdd:          "region_add",
	OpcodeRegionRemove:       "region_remove",
	OpcodeRegionReorder:      "region_reorder",
	OpcodeRegionResize:       "region_resize",
	OpcodeRegionSuspended:    "region_suspended",
}

// String returns the string representation of the Opcode.
func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return "unknown"
}

// NodeKind classifies a render node.
//
// The instrumentation distinguishes many component flavors; the replay
// engine only cares whether a node is the tree root. The remaining
// values are kept so snapshots and edit records round-trip faithfully.
type NodeKind int

const (
	NodeKindClass         NodeKind = 1
	NodeKindContext       NodeKind = 2
	NodeKindFunction      NodeKind = 5
	NodeKindForwardRef    NodeKind = 6
	NodeKindHostComponent NodeKind = 7
	NodeKindMemo          NodeKind = 8
	NodeKindOtherOrHidden NodeKind = 9
	NodeKindRoot          NodeKind = 11
	NodeKindSuspense      NodeKind = 12
	NodeKindProfiler      NodeKind = 13
)

// IsRoot reports whether the kind marks a tree root.
func (k NodeKind) IsRoot() bool {
	return k == NodeKindRoot
}

// OpKind identifies the semantic class of a decoded operation.
type OpKind int

const (
	// OpAddNode attaches a node under a parent (or establishes the root).
	OpAddNode OpKind = iota

	// OpRemoveNodes detaches and deletes a set of nodes.
	OpRemoveNodes

	// OpReorderChildren replaces a node's children list.
	OpReorderChildren

	// OpUpdateBaseDuration sets treeBaseDurationMs on an existing node.
	OpUpdateBaseDuration
)

// String returns the string representation of the OpKind.
func (k OpKind) String() string {
	switch k {
	case OpAddNode:
		return "add_node"
	case OpRemoveNodes:
		return "remove_nodes"
	case OpReorderChildren:
		return "reorder_children"
	case OpUpdateBaseDuration:
		return "update_base_duration"
	default:
		return "unknown"
	}
}

// Op is one decoded tree mutation.
//
// Op is a tagged union: Kind selects which fields are meaningful.
// String references are resolved against the record's string table at
// decode time, so consumers never see raw table indexes.
type Op struct {
	// Kind selects the operation.
	Kind OpKind

	// ID is the target node for add, reorder, and base-duration ops.
	ID int

	// ParentID is the parent for add ops. Zero for a root add.
	ParentID int

	// NodeKind is the node classification for add ops.
	NodeKind NodeKind

	// DisplayName is the resolved component name for add ops ("" if absent).
	DisplayName string

	// Key is the resolved reconciliation key for add ops ("" if absent).
	Key string

	// IDs is the removal list for remove ops and the ordered children
	// list for reorder ops.
	IDs []int

	// DurationMs is the new tree base duration for base-duration ops.
	DurationMs float64
}
