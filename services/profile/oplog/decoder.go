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
	"fmt"
)

// headerLen is the fixed record prefix: rendererID, rootID.
const headerLen = 2

// Result holds the outcome of decoding one edit record.
//
// Decoding is best-effort: a malformed record yields the operations that
// were decoded before the fault plus one diagnostic per anomaly, never an
// error. The caller applies Ops in order and forwards Diagnostics into
// the report's warnings list.
type Result struct {
	// RendererID is the record's renderer header value.
	RendererID int

	// RootID is the record's root header value.
	RootID int

	// Ops are the decoded operations, in record order.
	Ops []Op

	// Diagnostics describe recoverable decode anomalies.
	Diagnostics []string
}

// Decode parses one render pass's raw edit record.
//
// Description:
//
//	Reads the two-value header, decodes the embedded string table, then
//	walks the operation stream. Semantically-ignored opcodes (see the
//	opcode constants in opcodes.go) are skipped by consuming their full
//	payload so the cursor stays aligned for subsequent operations.
//
//	An unknown opcode aborts the remainder of the record: the recovery
//	width of an unrecognized operation is not knowable, and guessing
//	would silently desynchronize every operation after it. The
//	operations decoded so far are still returned.
//
// Inputs:
//
//	record - One pass's raw integer sequence. May be nil or truncated.
//
// Outputs:
//
//	Result - Decoded operations plus diagnostics. Never nil slices for
//	a well-formed record; Ops may be partial after a diagnostic.
func Decode(record []int) Result {
	res := Result{}
	if len(record) < headerLen {
		if len(record) > 0 {
			res.Diagnostics = append(res.Diagnostics, "edit record shorter than header")
		}
		return res
	}
	res.RendererID = record[0]
	res.RootID = record[1]

	d := &decoder{record: record, pos: headerLen}
	d.readStringTable()
	for d.ok() {
		if !d.readOp() {
			break
		}
	}
	res.Ops = d.ops
	res.Diagnostics = d.diags
	return res
}

// decoder tracks the cursor over one record.
type decoder struct {
	record  []int
	pos     int
	strings []string // 1-based via stringAt
	ops     []Op
	diags   []string
}

func (d *decoder) ok() bool {
	return d.pos < len(d.record)
}

func (d *decoder) remaining() int {
	return len(d.record) - d.pos
}

// take consumes n values, or reports a truncation diagnostic and moves
// the cursor to the end so decoding stops.
func (d *decoder) take(n int, what string) ([]int, bool) {
	if d.remaining() < n {
		d.diags = append(d.diags, fmt.Sprintf("truncated %s at offset %d (want %d values, have %d)", what, d.pos, n, d.remaining()))
		d.pos = len(d.record)
		return nil, false
	}
	vals := d.record[d.pos : d.pos+n]
	d.pos += n
	return vals, true
}

// readStringTable decodes the embedded string table: a run count
// followed by (length, codepoints...) per run.
func (d *decoder) readStringTable() {
	header, ok := d.take(1, "string table header")
	if !ok {
		return
	}
	count := header[0]
	if count < 0 {
		d.diags = append(d.diags, fmt.Sprintf("negative string table count %d", count))
		d.pos = len(d.record)
		return
	}
	for i := 0; i < count; i++ {
		lenVal, ok := d.take(1, "string length")
		if !ok {
			return
		}
		n := lenVal[0]
		if n < 0 {
			d.diags = append(d.diags, fmt.Sprintf("negative string length %d in table entry %d", n, i))
			d.pos = len(d.record)
			return
		}
		codepoints, ok := d.take(n, "string codepoints")
		if !ok {
			return
		}
		runes := make([]rune, n)
		for j, cp := range codepoints {
			runes[j] = rune(cp)
		}
		d.strings = append(d.strings, string(runes))
	}
}

// stringAt resolves a 1-based string table reference. Reference 0 and
// out-of-range references resolve to "".
func (d *decoder) stringAt(ref int) string {
	if ref <= 0 || ref > len(d.strings) {
		return ""
	}
	return d.strings[ref-1]
}

// readOp decodes one operation. Returns false when the record is
// exhausted or decoding must stop.
func (d *decoder) readOp() bool {
	opVals, ok := d.take(1, "opcode")
	if !ok {
		return false
	}
	op := Opcode(opVals[0])

	switch op {
	case OpcodeAddNode:
		return d.readAdd()

	case OpcodeRemoveNodes:
		ids, ok := d.readIDList("remove list")
		if !ok {
			return false
		}
		d.ops = append(d.ops, Op{Kind: OpRemoveNodes, IDs: ids})
		return true

	case OpcodeReorderChildren:
		head, ok := d.take(1, "reorder target")
		if !ok {
			return false
		}
		ids, ok := d.readIDList("reorder children")
		if !ok {
			return false
		}
		d.ops = append(d.ops, Op{Kind: OpReorderChildren, ID: head[0], IDs: ids})
		return true

	case OpcodeUpdateBaseDuration:
		vals, ok := d.take(2, "base duration")
		if !ok {
			return false
		}
		// The wire carries microseconds to avoid fractional values.
		d.ops = append(d.ops, Op{Kind: OpUpdateBaseDuration, ID: vals[0], DurationMs: float64(vals[1]) / 1000})
		return true

	case OpcodeErrorsWarnings:
		_, ok := d.take(3, "errors/warnings payload")
		return ok

	case OpcodeRemoveRoot:
		return true

	case OpcodeSubtreeMode:
		_, ok := d.take(2, "subtree mode payload")
		return ok

	case OpcodeRegionAdd:
		_, ok := d.take(3, "region add payload")
		return ok

	case OpcodeRegionRemove, OpcodeRegionReorder:
		return d.skipRegionList(op)

	case OpcodeRegionResize:
		_, ok := d.take(5, "region resize payload")
		return ok

	case OpcodeRegionSuspended:
		_, ok := d.take(2, "region suspended payload")
		return ok

	default:
		// The recovery width of an unknown opcode is not knowable.
		// Decoding the rest of the record would desynchronize, so stop
		// here and keep what was decoded.
		d.diags = append(d.diags, fmt.Sprintf("unknown opcode %d at offset %d; remainder of record skipped", int(op), d.pos-1))
		d.pos = len(d.record)
		return false
	}
}

// readAdd decodes an add operation. Root adds carry a different payload
// than ordinary adds.
func (d *decoder) readAdd() bool {
	head, ok := d.take(2, "add header")
	if !ok {
		return false
	}
	id, kind := head[0], NodeKind(head[1])

	if kind.IsRoot() {
		// supportsProfiling, hasOwnerMetadata: capture capabilities,
		// irrelevant to replay.
		if _, ok := d.take(2, "root add payload"); !ok {
			return false
		}
		d.ops = append(d.ops, Op{Kind: OpAddNode, ID: id, NodeKind: kind})
		return true
	}

	vals, ok := d.take(4, "add payload")
	if !ok {
		return false
	}
	parentID, nameRef, keyRef := vals[0], vals[2], vals[3]
	d.ops = append(d.ops, Op{
		Kind:        OpAddNode,
		ID:          id,
		ParentID:    parentID,
		NodeKind:    kind,
		DisplayName: d.stringAt(nameRef),
		Key:         d.stringAt(keyRef),
	})
	return true
}

// readIDList decodes a count-prefixed id list.
func (d *decoder) readIDList(what string) ([]int, bool) {
	head, ok := d.take(1, what+" count")
	if !ok {
		return nil, false
	}
	count := head[0]
	if count < 0 {
		d.diags = append(d.diags, fmt.Sprintf("negative %s count %d", what, count))
		d.pos = len(d.record)
		return nil, false
	}
	vals, ok := d.take(count, what)
	if !ok {
		return nil, false
	}
	ids := make([]int, count)
	copy(ids, vals)
	return ids, true
}

// skipRegionList consumes a count-prefixed visual-region id list
// (region remove) or target+count+ids (region reorder).
func (d *decoder) skipRegionList(op Opcode) bool {
	if op == OpcodeRegionReorder {
		if _, ok := d.take(1, "region reorder target"); !ok {
			return false
		}
	}
	_, ok := d.readIDList("region id list")
	return ok
}
