// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/renderscope/services/profile"
	"github.com/AleutianAI/renderscope/services/profile/compare"
	"github.com/AleutianAI/renderscope/services/profile/hotspot"
)

// MarkdownFormatter formats reports as Markdown tables and lists.
type MarkdownFormatter struct {
	maxRows int
}

// NewMarkdownFormatter creates a new Markdown formatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{maxRows: 25}
}

// SetMaxRows sets the maximum number of hotspot/delta table rows.
func (f *MarkdownFormatter) SetMaxRows(max int) {
	f.maxRows = max
}

// Format converts the report to a Markdown string.
func (f *MarkdownFormatter) Format(result interface{}) (string, error) {
	var sb strings.Builder
	if err := f.FormatStreaming(result, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Name returns the format name.
func (f *MarkdownFormatter) Name() FormatType {
	return FormatMarkdown
}

// FormatStreaming writes Markdown to a writer.
func (f *MarkdownFormatter) FormatStreaming(result interface{}, w io.Writer) error {
	switch r := result.(type) {
	case *profile.AnalysisReport:
		return f.formatAnalysis(r, w)
	case *compare.Result:
		return f.formatComparison(r, w)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedResult, result)
	}
}

func (f *MarkdownFormatter) formatAnalysis(r *profile.AnalysisReport, w io.Writer) error {
	bw := &errWriter{w: w}

	title := r.Label
	if title == "" {
		title = r.ID
	}
	bw.printf("# Render Analysis: %s\n\n", title)
	bw.printf("- Mode: %s\n", r.Mode)
	bw.printf("- Commits: %d\n", r.Totals.CommitCount)
	bw.printf("- Total time: %.1f ms (median commit %.1f ms, p95 %.1f ms)\n",
		r.Totals.TimeMs, r.Totals.MedianCommitMs, r.Totals.P95CommitMs)
	bw.printf("- Rendered samples: %d\n", r.Totals.EventCount)
	bw.printf("- Primary metric: %s\n", r.PrimaryMetric)
	bw.printf("- Unknown cause rate: %.0f%%\n\n", r.UnknownCauseRate*100)

	bw.printf("## Cadence\n\n")
	bw.printf("- Samples: %d, median interval %.0f ms, regularity %.2f\n",
		r.Cadence.SampleCount, r.Cadence.MedianDeltaMs, r.Cadence.Regularity)
	if r.Cadence.LikelyPeriodicChurn {
		bw.printf("- **Likely periodic churn**: render cadence matches a timer-driven update loop\n")
	}
	bw.printf("\n## Hotspots\n\n")

	if len(r.Hotspots) == 0 {
		bw.printf("_No rendered components._\n")
	} else {
		bw.printf("| # | Component | Count | Total ms | Self ms | Subtree ms | Top reason |\n")
		bw.printf("|---|-----------|-------|----------|---------|------------|------------|\n")
		for i, h := range r.Hotspots {
			if i >= f.maxRows {
				bw.printf("\n_%d more components omitted._\n", len(r.Hotspots)-f.maxRows)
				break
			}
			bw.printf("| %d | %s | %d | %.1f | %.1f | %.1f | %s |\n",
				i+1, h.Name, h.Count, h.TotalMs, h.SelfMs, h.SubtreeMs, topReason(h))
		}
	}

	if len(r.Warnings) > 0 {
		bw.printf("\n## Warnings\n\n")
		for _, warning := range r.Warnings {
			bw.printf("- %s\n", warning)
		}
	}
	return bw.err
}

func (f *MarkdownFormatter) formatComparison(r *compare.Result, w io.Writer) error {
	bw := &errWriter{w: w}

	bw.printf("# Comparison: %s vs %s\n\n", r.Before.Label, r.After.Label)
	bw.printf("- Verdict: **%s**\n", r.Verdict)
	bw.printf("- Compared using: %s\n", r.ComparedUsing)
	bw.printf("- Total: %.1f -> %.1f\n", r.Before.Total, r.After.Total)
	bw.printf("- Periodic churn: %s -> %s\n\n",
		churnLabel(r.Before.PeriodicChurn), churnLabel(r.After.PeriodicChurn))

	writeDeltaTable(bw, "Top improvements", r.TopImprovements, f.maxRows)
	writeDeltaTable(bw, "Top regressions", r.TopRegressions, f.maxRows)
	return bw.err
}

func writeDeltaTable(bw *errWriter, title string, deltas []compare.Delta, maxRows int) {
	bw.printf("## %s\n\n", title)
	if len(deltas) == 0 {
		bw.printf("_None._\n\n")
		return
	}
	bw.printf("| Component | Before | After | Diff | Pct |\n")
	bw.printf("|-----------|--------|-------|------|-----|\n")
	for i, d := range deltas {
		if i >= maxRows {
			break
		}
		pct := fmt.Sprintf("%+.1f%%", d.Pct)
		if d.New {
			pct = "new"
		}
		bw.printf("| %s | %.1f | %.1f | %+.1f | %s |\n", d.Name, d.Before, d.After, d.Diff, pct)
	}
	bw.printf("\n")
}

func topReason(h hotspot.Aggregate) string {
	if len(h.TopReasons) == 0 {
		return "-"
	}
	top := h.TopReasons[0]
	return fmt.Sprintf("%s (%d)", top.Reason, top.Count)
}

func churnLabel(churn bool) string {
	if churn {
		return "yes"
	}
	return "no"
}

// errWriter batches write errors so table emission stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (b *errWriter) printf(format string, args ...interface{}) {
	if b.err != nil {
		return
	}
	_, b.err = fmt.Fprintf(b.w, format, args...)
}
