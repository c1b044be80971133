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

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/renderscope/services/profile/ingest"
	"github.com/AleutianAI/renderscope/services/profile/reportstore"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ServiceVersion is the profile service version.
const ServiceVersion = "0.1.0"

// ErrorResponse is the error body for all profile endpoints.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}

// CompareRequest selects the two sides of a comparison. Each side is a
// previously produced report id or a stored baseline name.
type CompareRequest struct {
	BeforeID       string `json:"before_id"`
	AfterID        string `json:"after_id"`
	BeforeBaseline string `json:"before_baseline"`
	AfterBaseline  string `json:"after_baseline"`
}

// BaselineSaveRequest stores an existing report as a named baseline.
type BaselineSaveRequest struct {
	Name     string `json:"name" binding:"required"`
	ReportID string `json:"report_id" binding:"required"`
}

// Handlers contains the HTTP handlers for the profile service.
type Handlers struct {
	svc   *Service
	store *reportstore.Store
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// WithStore sets the baseline store used by the baseline and compare
// endpoints. Without a store, baseline operations return 503.
func (h *Handlers) WithStore(store *reportstore.Store) *Handlers {
	h.store = store
	return h
}

// HandleAnalyze handles POST /v1/profile/analyze.
//
// The request body is the export document itself, subject to the
// service's size cap. An optional "label" query parameter names the
// capture in the report.
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAnalyze")

	report, err := h.svc.AnalyzeReader(c.Request.Context(), c.Request.Body, c.Query("label"))
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrExportTooLarge):
			logger.Warn("Export exceeds size limit", "error", err)
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error(), Code: "EXPORT_TOO_LARGE"})
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			logger.Error("Analysis failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "ANALYZE_FAILED"})
		default:
			logger.Warn("Invalid export document", "error", err)
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_EXPORT"})
		}
		return
	}

	logger.Info("Export analyzed",
		"report_id", report.ID,
		"commits", report.Totals.CommitCount,
		"hotspots", len(report.Hotspots),
		"warnings", len(report.Warnings))
	c.JSON(http.StatusOK, report)
}

// HandleReport handles GET /v1/profile/reports/:id.
func (h *Handlers) HandleReport(c *gin.Context) {
	report, err := h.svc.Report(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "REPORT_NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleCompare handles POST /v1/profile/compare.
func (h *Handlers) HandleCompare(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCompare")

	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	before, err := h.resolveReport(req.BeforeID, req.BeforeBaseline)
	if err != nil {
		respondResolveError(c, "before", err)
		return
	}
	after, err := h.resolveReport(req.AfterID, req.AfterBaseline)
	if err != nil {
		respondResolveError(c, "after", err)
		return
	}

	result, err := h.svc.Compare(before, after)
	if err != nil {
		logger.Error("Comparison failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "COMPARE_FAILED"})
		return
	}

	logger.Info("Reports compared",
		"before", result.Before.Label,
		"after", result.After.Label,
		"verdict", result.Verdict)
	c.JSON(http.StatusOK, result)
}

// HandleBaselineSave handles POST /v1/profile/baselines.
func (h *Handlers) HandleBaselineSave(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "No baseline store configured", Code: "NO_STORE"})
		return
	}
	var req BaselineSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}
	report, err := h.svc.Report(req.ReportID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "REPORT_NOT_FOUND"})
		return
	}
	if err := h.store.Save(req.Name, report); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "BASELINE_SAVE_FAILED"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": req.Name, "report_id": report.ID})
}

// HandleBaselineList handles GET /v1/profile/baselines.
func (h *Handlers) HandleBaselineList(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "No baseline store configured", Code: "NO_STORE"})
		return
	}
	entries, err := h.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "BASELINE_LIST_FAILED"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"baselines": entries})
}

// HandleBaselineDelete handles DELETE /v1/profile/baselines/:name.
func (h *Handlers) HandleBaselineDelete(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "No baseline store configured", Code: "NO_STORE"})
		return
	}
	if err := h.store.Delete(c.Param("name")); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "BASELINE_DELETE_FAILED"})
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleHealth handles GET /v1/profile/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": ServiceVersion})
}

// HandleReady handles GET /v1/profile/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

// resolveReport loads one comparison side from the report registry or
// the baseline store.
func (h *Handlers) resolveReport(id, baseline string) (*AnalysisReport, error) {
	switch {
	case id != "":
		return h.svc.Report(id)
	case baseline != "":
		if h.store == nil {
			return nil, errors.New("no baseline store configured")
		}
		var report AnalysisReport
		if err := h.store.Get(baseline, &report); err != nil {
			return nil, err
		}
		if report.Label == "" {
			report.Label = baseline
		}
		return &report, nil
	default:
		return nil, errors.New("report id or baseline name required")
	}
}

func respondResolveError(c *gin.Context, side string, err error) {
	status := http.StatusNotFound
	code := "REPORT_NOT_FOUND"
	if errors.Is(err, reportstore.ErrNotFound) {
		code = "BASELINE_NOT_FOUND"
	}
	c.JSON(status, ErrorResponse{Error: side + ": " + err.Error(), Code: code})
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
