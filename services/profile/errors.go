// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package profile

import "errors"

// Sentinel errors for the profile service.
var (
	// ErrNilExport indicates Analyze was called without a document.
	ErrNilExport = errors.New("nil export document")

	// ErrReportNotFound indicates the requested report id is unknown.
	ErrReportNotFound = errors.New("report not found")

	// ErrNilReport indicates Compare was called with a missing side.
	ErrNilReport = errors.New("nil report")
)
