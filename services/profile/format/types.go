// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package format renders analysis and comparison reports into output
// representations for the CLI and downstream tooling.
package format

import (
	"errors"
	"io"
)

// FormatType represents the type of output format.
type FormatType string

const (
	// FormatJSON is full JSON output (default).
	FormatJSON FormatType = "json"

	// FormatMarkdown is table/list output for humans.
	FormatMarkdown FormatType = "markdown"
)

// ErrUnsupportedResult indicates a formatter was given a value it
// cannot render.
var ErrUnsupportedResult = errors.New("unsupported result type")

// ErrUnknownFormat indicates an unrecognized format name.
var ErrUnknownFormat = errors.New("unknown format")

// Formatter renders reports into one output representation.
type Formatter interface {
	// Format converts the report to a formatted string.
	Format(result interface{}) (string, error)

	// Name returns the format name.
	Name() FormatType

	// FormatStreaming writes formatted output to a writer.
	FormatStreaming(result interface{}, w io.Writer) error
}

// New returns the formatter for the given format name.
func New(t FormatType) (Formatter, error) {
	switch t {
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(), nil
	default:
		return nil, ErrUnknownFormat
	}
}
