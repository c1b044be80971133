// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oplog

import (
	"strings"
	"testing"
)

// encodeStrings builds the wire form of a string table.
func encodeStrings(values ...string) []int {
	out := []int{len(values)}
	for _, v := range values {
		runes := []rune(v)
		out = append(out, len(runes))
		for _, r := range runes {
			out = append(out, int(r))
		}
	}
	return out
}

// record assembles header + string table + op stream.
func record(rendererID, rootID int, table []int, ops ...int) []int {
	out := []int{rendererID, rootID}
	out = append(out, table...)
	out = append(out, ops...)
	return out
}

func TestDecode_Header(t *testing.T) {
	res := Decode(record(7, 42, encodeStrings()))
	if res.RendererID != 7 {
		t.Errorf("RendererID = %d, want 7", res.RendererID)
	}
	if res.RootID != 42 {
		t.Errorf("RootID = %d, want 42", res.RootID)
	}
	if len(res.Ops) != 0 || len(res.Diagnostics) != 0 {
		t.Errorf("empty record decoded ops=%v diags=%v", res.Ops, res.Diagnostics)
	}
}

func TestDecode_AddRootAndChild(t *testing.T) {
	rec := record(1, 10, encodeStrings("App", "a-key"),
		// root add: id=10, kind=root, supportsProfiling, hasOwnerMetadata
		int(OpcodeAddNode), 10, int(NodeKindRoot), 1, 1,
		// ordinary add: id=11, kind, parent=10, owner=0, nameRef=1, keyRef=2
		int(OpcodeAddNode), 11, int(NodeKindFunction), 10, 0, 1, 2,
	)
	res := Decode(rec)
	if len(res.Diagnostics) != 0 {
		t.Fatalf("Diagnostics = %v, want none", res.Diagnostics)
	}
	if len(res.Ops) != 2 {
		t.Fatalf("len(Ops) = %d, want 2", len(res.Ops))
	}

	root := res.Ops[0]
	if root.Kind != OpAddNode || root.ID != 10 || !root.NodeKind.IsRoot() {
		t.Errorf("root op = %+v", root)
	}
	if root.ParentID != 0 {
		t.Errorf("root ParentID = %d, want 0", root.ParentID)
	}

	child := res.Ops[1]
	if child.ID != 11 || child.ParentID != 10 {
		t.Errorf("child op = %+v", child)
	}
	if child.DisplayName != "App" {
		t.Errorf("DisplayName = %q, want App", child.DisplayName)
	}
	if child.Key != "a-key" {
		t.Errorf("Key = %q, want a-key", child.Key)
	}
}

func TestDecode_StringRefZeroMeansNone(t *testing.T) {
	rec := record(1, 10, encodeStrings("App"),
		int(OpcodeAddNode), 11, int(NodeKindFunction), 10, 0, 0, 0,
	)
	res := Decode(rec)
	if len(res.Ops) != 1 {
		t.Fatalf("len(Ops) = %d, want 1", len(res.Ops))
	}
	if res.Ops[0].DisplayName != "" || res.Ops[0].Key != "" {
		t.Errorf("ref 0 resolved to %q/%q, want empty", res.Ops[0].DisplayName, res.Ops[0].Key)
	}
}

func TestDecode_OutOfRangeStringRef(t *testing.T) {
	rec := record(1, 10, encodeStrings("App"),
		int(OpcodeAddNode), 11, int(NodeKindFunction), 10, 0, 9, 0,
	)
	res := Decode(rec)
	if len(res.Ops) != 1 {
		t.Fatalf("len(Ops) = %d, want 1", len(res.Ops))
	}
	if res.Ops[0].DisplayName != "" {
		t.Errorf("out-of-range ref resolved to %q, want empty", res.Ops[0].DisplayName)
	}
}

func TestDecode_RemoveNodes(t *testing.T) {
	rec := record(1, 10, encodeStrings(),
		int(OpcodeRemoveNodes), 3, 11, 12, 13,
	)
	res := Decode(rec)
	if len(res.Ops) != 1 {
		t.Fatalf("len(Ops) = %d, want 1", len(res.Ops))
	}
	op := res.Ops[0]
	if op.Kind != OpRemoveNodes {
		t.Errorf("Kind = %v, want remove", op.Kind)
	}
	want := []int{11, 12, 13}
	if len(op.IDs) != len(want) {
		t.Fatalf("IDs = %v, want %v", op.IDs, want)
	}
	for i := range want {
		if op.IDs[i] != want[i] {
			t.Errorf("IDs[%d] = %d, want %d", i, op.IDs[i], want[i])
		}
	}
}

func TestDecode_ReorderChildren(t *testing.T) {
	rec := record(1, 10, encodeStrings(),
		int(OpcodeReorderChildren), 10, 2, 12, 11,
	)
	res := Decode(rec)
	if len(res.Ops) != 1 {
		t.Fatalf("len(Ops) = %d, want 1", len(res.Ops))
	}
	op := res.Ops[0]
	if op.Kind != OpReorderChildren || op.ID != 10 {
		t.Errorf("op = %+v", op)
	}
	if len(op.IDs) != 2 || op.IDs[0] != 12 || op.IDs[1] != 11 {
		t.Errorf("IDs = %v, want [12 11]", op.IDs)
	}
}

func TestDecode_BaseDurationMicrosToMillis(t *testing.T) {
	rec := record(1, 10, encodeStrings(),
		int(OpcodeUpdateBaseDuration), 11, 2500,
	)
	res := Decode(rec)
	if len(res.Ops) != 1 {
		t.Fatalf("len(Ops) = %d, want 1", len(res.Ops))
	}
	if got := res.Ops[0].DurationMs; got != 2.5 {
		t.Errorf("DurationMs = %v, want 2.5", got)
	}
}

func TestDecode_SkippedOpcodes(t *testing.T) {
	// Each ignored opcode must consume exactly its payload so the
	// base-duration op after it still decodes.
	tests := []struct {
		name   string
		prefix []int
	}{
		{"errors_warnings", []int{int(OpcodeErrorsWarnings), 11, 2, 1}},
		{"remove_root", []int{int(OpcodeRemoveRoot)}},
		{"subtree_mode", []int{int(OpcodeSubtreeMode), 10, 1}},
		{"region_add", []int{int(OpcodeRegionAdd), 50, 0, 0}},
		{"region_remove", []int{int(OpcodeRegionRemove), 2, 50, 51}},
		{"region_reorder", []int{int(OpcodeRegionReorder), 50, 2, 52, 51}},
		{"region_resize", []int{int(OpcodeRegionResize), 50, 0, 0, 100, 200}},
		{"region_suspended", []int{int(OpcodeRegionSuspended), 50, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := append(append([]int{}, tt.prefix...),
				int(OpcodeUpdateBaseDuration), 11, 1000)
			res := Decode(record(1, 10, encodeStrings(), ops...))
			if len(res.Diagnostics) != 0 {
				t.Fatalf("Diagnostics = %v, want none", res.Diagnostics)
			}
			if len(res.Ops) != 1 || res.Ops[0].Kind != OpUpdateBaseDuration {
				t.Errorf("Ops = %+v, want single base-duration op", res.Ops)
			}
		})
	}
}

func TestDecode_UnknownOpcodeStopsRecord(t *testing.T) {
	rec := record(1, 10, encodeStrings(),
		int(OpcodeUpdateBaseDuration), 11, 1000,
		99, 1, 2, 3,
		int(OpcodeUpdateBaseDuration), 12, 2000,
	)
	res := Decode(rec)
	if len(res.Ops) != 1 {
		t.Fatalf("len(Ops) = %d, want 1 (ops after unknown opcode must be dropped)", len(res.Ops))
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %v, want one", res.Diagnostics)
	}
	if !strings.Contains(res.Diagnostics[0], "unknown opcode 99") {
		t.Errorf("diagnostic = %q", res.Diagnostics[0])
	}
}

func TestDecode_TruncatedPayload(t *testing.T) {
	rec := record(1, 10, encodeStrings(),
		int(OpcodeUpdateBaseDuration), 11, // missing duration value
	)
	res := Decode(rec)
	if len(res.Ops) != 0 {
		t.Errorf("Ops = %+v, want none", res.Ops)
	}
	if len(res.Diagnostics) != 1 || !strings.Contains(res.Diagnostics[0], "truncated") {
		t.Errorf("Diagnostics = %v, want one truncation diagnostic", res.Diagnostics)
	}
}

func TestDecode_TruncatedStringTable(t *testing.T) {
	res := Decode([]int{1, 10, 2, 3, 'A'})
	if len(res.Diagnostics) != 1 {
		t.Errorf("Diagnostics = %v, want one", res.Diagnostics)
	}
}

func TestDecode_NegativeStringCount(t *testing.T) {
	res := Decode([]int{1, 10, -4})
	if len(res.Diagnostics) != 1 || !strings.Contains(res.Diagnostics[0], "negative") {
		t.Errorf("Diagnostics = %v", res.Diagnostics)
	}
}

func TestDecode_ShortRecords(t *testing.T) {
	if res := Decode(nil); len(res.Ops) != 0 || len(res.Diagnostics) != 0 {
		t.Errorf("nil record: %+v", res)
	}
	if res := Decode([]int{1}); len(res.Diagnostics) != 1 {
		t.Errorf("one-value record diagnostics = %v, want one", res.Diagnostics)
	}
}

func TestOpcodeString(t *testing.T) {
	if got := OpcodeAddNode.String(); got != "add_node" {
		t.Errorf("String() = %q", got)
	}
	if got := Opcode(99).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
}
