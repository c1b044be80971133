// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Sentinel errors for export parsing.
var (
	// ErrEmptyExport indicates the document decoded but holds nothing to analyze.
	ErrEmptyExport = errors.New("export contains no root data")

	// ErrMissingRootID indicates a root entry without an id.
	ErrMissingRootID = errors.New("root entry missing rootID")

	// ErrExportTooLarge indicates the document exceeds the size limit.
	ErrExportTooLarge = errors.New("export exceeds size limit")

	// ErrUnsupportedVersion indicates an export format this engine cannot replay.
	ErrUnsupportedVersion = errors.New("unsupported export version")
)

// Export format versions this engine replays. Older versions encode
// operations differently and are rejected rather than misread.
const (
	MinSupportedVersion = 4
	MaxSupportedVersion = 5
)

// Parse reads and validates an export document.
//
// Description:
//
//	Decodes JSON from r (bounded by maxBytes when > 0) and validates
//	the structural invariants the replay engine depends on: a
//	supported version, at least one root, and a root id per entry.
//	Referential integrity across snapshots/operations/commitData is
//	NOT checked here; the replay path tolerates dangling ids.
//
// Inputs:
//
//	r - Export document stream.
//	maxBytes - Size cap in bytes; 0 disables the cap.
//
// Outputs:
//
//	*Export - The decoded document.
//	error - Wrapped sentinel on validation failure.
func Parse(r io.Reader, maxBytes int64) (*Export, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: > %d bytes", ErrExportTooLarge, maxBytes)
	}

	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	if err := Validate(&export); err != nil {
		return nil, err
	}
	return &export, nil
}

// ParseFile reads and validates an export document from disk.
func ParseFile(path string, maxBytes int64) (*Export, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()
	return Parse(f, maxBytes)
}

// Validate checks the invariants Parse enforces. Exposed so callers
// that build an Export in memory get the same checks.
func Validate(export *Export) error {
	if export.Version < MinSupportedVersion || export.Version > MaxSupportedVersion {
		return fmt.Errorf("%w: %d (supported: %d-%d)", ErrUnsupportedVersion, export.Version, MinSupportedVersion, MaxSupportedVersion)
	}
	if len(export.DataForRoots) == 0 {
		return ErrEmptyExport
	}
	for i := range export.DataForRoots {
		if export.DataForRoots[i].RootID == 0 {
			return fmt.Errorf("%w: entry %d", ErrMissingRootID, i)
		}
	}
	return nil
}

// CommitCount returns the number of replayable passes for a root: the
// smaller of the operations and commit-data lists. A well-formed export
// has them equal; a truncated capture may not, and the shorter prefix
// is still replayable.
func (r *RootData) CommitCount() int {
	n := len(r.Operations)
	if len(r.CommitData) < n {
		n = len(r.CommitData)
	}
	return n
}
