// Package api exposes stored analysis runs over HTTP so dashboards
// can pull validation reports and test results after a batch run.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ablab/adapters/postgres"
	"ablab/adapters/report"
	"ablab/domain/core"
	"ablab/internal/errors"
)

// AnalysisHandler serves stored analysis runs
type AnalysisHandler struct {
	repo *postgres.AnalysisRepository
}

// NewAnalysisHandler creates a handler over the analysis repository
func NewAnalysisHandler(repo *postgres.AnalysisRepository) *AnalysisHandler {
	return &AnalysisHandler{repo: repo}
}

// Register mounts the handler's routes on a router group
func (h *AnalysisHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/runs", h.ListRuns)
	rg.GET("/runs/:runId", h.GetRun)
	rg.GET("/runs/:runId/report", h.GetRunReport)
	rg.GET("/experiments/:experimentId/latest", h.GetLatestForExperiment)
}

// ListRuns returns recent analysis runs, newest first
func (h *AnalysisHandler) ListRuns(c *gin.Context) {
	runs, err := h.repo.ListRuns(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun returns one stored analysis run as JSON
func (h *AnalysisHandler) GetRun(c *gin.Context) {
	runID := core.RunID(c.Param("runId"))
	a, err := h.repo.GetRun(c.Request.Context(), runID)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}
	c.JSON(http.StatusOK, a)
}

// GetRunReport returns one stored run rendered as an HTML report
func (h *AnalysisHandler) GetRunReport(c *gin.Context) {
	runID := core.RunID(c.Param("runId"))
	a, err := h.repo.GetRun(c.Request.Context(), runID)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(a))
}

// GetLatestForExperiment returns the newest run for one experiment
func (h *AnalysisHandler) GetLatestForExperiment(c *gin.Context) {
	id := core.ExperimentID(c.Param("experimentId"))
	a, err := h.repo.LatestForExperiment(c.Request.Context(), id)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no runs for experiment"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}
	c.JSON(http.StatusOK, a)
}
