// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package commit

import (
	"testing"

	"github.com/AleutianAI/renderscope/services/profile/cause"
	"github.com/AleutianAI/renderscope/services/profile/oplog"
	"github.com/AleutianAI/renderscope/services/profile/tree"
)

// buildTree assembles: root(1) -> App(2) -> [List(3), Sidebar(4)],
// List(3) -> Row(5).
func buildTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New()
	tr.ApplyAll([]oplog.Op{
		{Kind: oplog.OpAddNode, ID: 1, NodeKind: oplog.NodeKindRoot},
		{Kind: oplog.OpAddNode, ID: 2, ParentID: 1, NodeKind: oplog.NodeKindFunction, DisplayName: "App"},
		{Kind: oplog.OpAddNode, ID: 3, ParentID: 2, NodeKind: oplog.NodeKindFunction, DisplayName: "List"},
		{Kind: oplog.OpAddNode, ID: 4, ParentID: 2, NodeKind: oplog.NodeKindFunction, DisplayName: "Sidebar"},
		{Kind: oplog.OpAddNode, ID: 5, ParentID: 3, NodeKind: oplog.NodeKindFunction, DisplayName: "Row"},
	})
	return tr
}

func frameByID(a Analysis, id int) *Frame {
	for i := range a.Frames {
		if a.Frames[i].NodeID == id {
			return &a.Frames[i]
		}
	}
	return nil
}

func TestAnalyze_RenderedAndAncestors(t *testing.T) {
	tr := buildTree(t)
	a := Analyze(tr, Pass{
		Index:       0,
		TimestampMs: 100,
		DurationMs:  6,
		SelfMs:      map[int]float64{5: 2.5},
		Causes:      map[int]*cause.ChangeRecord{5: {ChangedProps: []string{"row"}}},
	})

	// Row plus its ancestor chain List, App, root.
	if len(a.Frames) != 4 {
		t.Fatalf("len(Frames) = %d, want 4", len(a.Frames))
	}
	if a.RenderedCount != 1 {
		t.Errorf("RenderedCount = %d, want 1", a.RenderedCount)
	}

	row := frameByID(a, 5)
	if row == nil || !row.Rendered || row.Reason != "props" {
		t.Fatalf("row frame = %+v", row)
	}
	if row.Depth != 3 {
		t.Errorf("row depth = %d, want 3", row.Depth)
	}

	list := frameByID(a, 3)
	if list == nil || list.Rendered {
		t.Fatalf("ancestor list frame = %+v, must not be rendered", list)
	}
	if list.Reason != "" {
		t.Errorf("ancestor reason = %q, want empty", list.Reason)
	}

	// Sidebar rendered nothing and is not an ancestor of Row.
	if frameByID(a, 4) != nil {
		t.Error("sidebar must be excluded")
	}
}

func TestAnalyze_SubtreeRecomputation(t *testing.T) {
	tr := buildTree(t)
	a := Analyze(tr, Pass{
		SelfMs: map[int]float64{2: 1, 3: 2, 5: 4},
	})

	app := frameByID(a, 2)
	if app == nil {
		t.Fatal("app frame missing")
	}
	if app.ComputedSubtreeMs != 7 {
		t.Errorf("app computed subtree = %v, want 7", app.ComputedSubtreeMs)
	}
	if app.HasExplicitSubtree {
		t.Error("app must not claim an explicit subtree time")
	}
	if app.SubtreeMs != 7 {
		t.Errorf("app subtree = %v, want recomputed 7", app.SubtreeMs)
	}
}

func TestAnalyze_ExplicitSubtreeWins(t *testing.T) {
	tr := buildTree(t)
	a := Analyze(tr, Pass{
		SelfMs:    map[int]float64{3: 2, 5: 4},
		SubtreeMs: map[int]float64{3: 9.5},
	})

	list := frameByID(a, 3)
	if list == nil || !list.HasExplicitSubtree {
		t.Fatalf("list frame = %+v", list)
	}
	if list.SubtreeMs != 9.5 {
		t.Errorf("SubtreeMs = %v, want explicit 9.5", list.SubtreeMs)
	}
	if list.ComputedSubtreeMs != 6 {
		t.Errorf("ComputedSubtreeMs = %v, want 6", list.ComputedSubtreeMs)
	}
}

func TestAnalyze_DanglingCaptureIDs(t *testing.T) {
	tr := buildTree(t)
	a := Analyze(tr, Pass{
		SelfMs: map[int]float64{5: 1, 99: 3},
	})
	if frameByID(a, 99) != nil {
		t.Error("dangling capture id must be dropped")
	}
	if a.RenderedCount != 1 {
		t.Errorf("RenderedCount = %d, want 1", a.RenderedCount)
	}
}

func TestAnalyze_EmptyPass(t *testing.T) {
	tr := buildTree(t)
	a := Analyze(tr, Pass{Index: 3, DurationMs: 1})
	if len(a.Frames) != 0 || a.RenderedCount != 0 {
		t.Errorf("empty pass analysis = %+v", a)
	}
	if a.Index != 3 {
		t.Errorf("Index = %d, want 3", a.Index)
	}
}

func TestAnalyze_UpdateTriggerTagging(t *testing.T) {
	tr := buildTree(t)
	a := Analyze(tr, Pass{
		SelfMs:     map[int]float64{3: 1, 5: 1},
		UpdaterIDs: map[int]bool{3: true},
	})

	list := frameByID(a, 3)
	if list.Reason != cause.ReasonUnknown || !list.LowConfidenceTrigger {
		t.Errorf("trigger frame = %+v", list)
	}
	row := frameByID(a, 5)
	if row.LowConfidenceTrigger {
		t.Errorf("non-trigger frame tagged: %+v", row)
	}
}

func TestAnalyze_ParentIDWithinIncludedSet(t *testing.T) {
	tr := buildTree(t)
	a := Analyze(tr, Pass{SelfMs: map[int]float64{5: 1}})

	root := frameByID(a, 1)
	if root.ParentID != 0 || root.Depth != 0 {
		t.Errorf("root frame = %+v", root)
	}
	row := frameByID(a, 5)
	if row.ParentID != 3 {
		t.Errorf("row ParentID = %d, want 3", row.ParentID)
	}
}

func TestAnalyze_CyclicTreeTerminates(t *testing.T) {
	tr := tree.New()
	tr.Seed(tree.RenderNode{ID: 1, Children: []int{2}, DisplayName: "A"})
	tr.Seed(tree.RenderNode{ID: 2, ParentID: 1, Children: []int{1}, DisplayName: "B"})

	a := Analyze(tr, Pass{SelfMs: map[int]float64{1: 1, 2: 1}})
	if len(a.Frames) == 0 {
		t.Fatal("cyclic tree produced no frames")
	}
	for _, f := range a.Frames {
		if f.ComputedSubtreeMs > 3 {
			t.Errorf("frame %d computed subtree = %v, cycle guard failed", f.NodeID, f.ComputedSubtreeMs)
		}
	}
}
