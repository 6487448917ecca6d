package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/api/errors"
	"github.com/jordanlanch/leadrouter/pkg/jobs"
	"github.com/labstack/echo/v4"
)

// SweepRunner runs one stale lead sweep.
type SweepRunner interface {
	Run(ctx context.Context) (jobs.SweepResult, error)
}

// JobsHandler exposes manual triggers for scheduled jobs.
type JobsHandler struct {
	sweeper SweepRunner
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(sweeper SweepRunner) *JobsHandler {
	return &JobsHandler{sweeper: sweeper}
}

// RunSweepHandler godoc
// @Summary Run the stale lead sweep now
// @Description Schedules follow-ups for open leads that have gone quiet, without waiting for the cron schedule.
// @Tags Admin Jobs
// @Produce json
// @Success 200 {object} map[string]interface{} "Sweep summary"
// @Failure 500 {object} models.ErrorResponse
// @Router /admin/jobs/sweep [post]
func (h *JobsHandler) RunSweepHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Minute)
	defer cancel()

	res, err := h.sweeper.Run(ctx)
	if err != nil {
		return errors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"processed": res.Processed,
		"failed":    res.Failed,
		"stored":    res.Stored,
	})
}
