package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/leadrouter/pkg/api/errors"
	"github.com/jordanlanch/leadrouter/pkg/models"
	"github.com/jordanlanch/leadrouter/pkg/orchestrator"
	"github.com/labstack/echo/v4"
)

// Orchestrator is the invocation surface served over HTTP.
type Orchestrator interface {
	RouteAndSchedule(ctx context.Context, tenantID, leadID string, event models.LeadEvent) (*orchestrator.Result, error)
	SuggestedActions(ctx context.Context, tenantID, leadID string) ([]models.FollowUpAction, error)
}

// FollowUpLister reads follow-ups already stored for a lead.
type FollowUpLister interface {
	ListForLead(ctx context.Context, tenantID, leadID string) ([]models.FollowUpAction, error)
}

// RoutingHandler handles lead routing and follow-up endpoints.
type RoutingHandler struct {
	orchestrator Orchestrator
	followUps    FollowUpLister
	validator    *validator.Validate
	timeout      time.Duration
}

// NewRoutingHandler creates a new routing handler. A zero timeout means 10s.
func NewRoutingHandler(o Orchestrator, followUps FollowUpLister, timeout time.Duration) *RoutingHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RoutingHandler{
		orchestrator: o,
		followUps:    followUps,
		validator:    validator.New(),
		timeout:      timeout,
	}
}

// Register mounts the routes on g, which is expected to be the /api/v1 group.
func (h *RoutingHandler) Register(g *echo.Group, mw ...echo.MiddlewareFunc) {
	leads := g.Group("/tenants/:tenant_id/leads/:id", mw...)
	leads.POST("/route", h.Route)
	leads.GET("/suggested-actions", h.SuggestedActions)
	leads.GET("/follow-ups", h.ListFollowUps)
}

// Route godoc
// @Summary Route a lead and schedule its follow-ups
// @Tags Routing
// @Accept json
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param id path string true "Lead ID"
// @Param request body models.LeadEvent false "Triggering event (defaults to manual)"
// @Success 200 {object} models.RouteResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "No eligible assignee"
// @Failure 503 {object} models.ErrorResponse "Follow-ups could not be saved"
// @Router /tenants/{tenant_id}/leads/{id}/route [post]
func (h *RoutingHandler) Route(c echo.Context) error {
	tenantID, leadID := c.Param("tenant_id"), c.Param("id")

	var event models.LeadEvent
	if c.Request().ContentLength == 0 {
		event.Type = models.EventManual
	} else if err := c.Bind(&event); err != nil {
		return errors.ValidationError(c, err)
	}
	if err := h.validator.Struct(event); err != nil {
		return errors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	res, err := h.orchestrator.RouteAndSchedule(ctx, tenantID, leadID, event)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	if res == nil {
		return errors.InternalError(c, fmt.Errorf("orchestrator returned no result for lead %s", leadID))
	}

	return c.JSON(http.StatusOK, models.RouteResponse{
		LeadID:   res.LeadID,
		Assignee: res.Assignee,
		RuleID:   res.RuleID,
		Strategy: string(res.Strategy),
		Routed:   res.Routed,
		Stored:   res.Stored,
		Actions:  res.Actions,
	})
}

// SuggestedActions godoc
// @Summary Preview follow-ups for a lead without saving them
// @Tags Routing
// @Produce json
// @Param tenant_id path string true "Tenant ID"
// @Param id path string true "Lead ID"
// @Success 200 {object} models.SuggestedActionsResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /tenants/{tenant_id}/leads/{id}/suggested-actions [get]
func (h *RoutingHandler) SuggestedActions(c echo.Context) error {
	tenantID, leadID := c.Param("tenant_id"), c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	actions, err := h.orchestrator.SuggestedActions(ctx, tenantID, leadID)
	if err != nil {
		return errors.FromDomain(c, err)
	}
	if actions == nil {
		actions = []models.FollowUpAction{}
	}
	return c.JSON(http.StatusOK, models.SuggestedActionsResponse{LeadID: leadID, Actions: actions})
}

// ListFollowUps returns the follow-ups stored for a lead in schedule order.
func (h *RoutingHandler) ListFollowUps(c echo.Context) error {
	tenantID, leadID := c.Param("tenant_id"), c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	actions, err := h.followUps.ListForLead(ctx, tenantID, leadID)
	if err != nil {
		return errors.InternalError(c, err)
	}
	if actions == nil {
		actions = []models.FollowUpAction{}
	}
	return c.JSON(http.StatusOK, models.SuggestedActionsResponse{LeadID: leadID, Actions: actions})
}
