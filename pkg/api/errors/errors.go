package errors

import (
	stderrors "errors"
	"net/http"
	"sync/atomic"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/models"
	"github.com/labstack/echo/v4"
)

var current atomic.Pointer[logger.Logger]

// SetLogger sets the logger used to record the internal error behind each
// generic response.
func SetLogger(l logger.Logger) {
	current.Store(&l)
}

func log() logger.Logger {
	if l := current.Load(); l != nil {
		return *l
	}
	return logger.Default()
}

// capture reports a server-side failure to Sentry when the request carries
// a hub.
func capture(c echo.Context, err error) {
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}

// ValidationError returns a generic validation error without exposing internal details
func ValidationError(c echo.Context, err error) error {
	log().Warn("validation error", "path", c.Request().URL.Path, "error", err)

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request data. Please check your input and try again.",
	})
}

// NotFoundError returns a not found error naming the resource.
func NotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: "The requested " + resource + " was not found.",
	})
}

// NoEligibleAssigneeError reports that routing found nobody to take the lead.
func NoEligibleAssigneeError(c echo.Context, err error) error {
	log().Warn("no eligible assignee", "path", c.Request().URL.Path, "error", err)

	resp := models.ErrorResponse{
		Error:   "no_eligible_assignee",
		Message: "No active rep is eligible for this lead. Check the matching rule and the roster.",
	}
	var de *domain.DomainError
	if stderrors.As(err, &de) && de.RuleID != "" {
		resp.Details = map[string]string{"rule_id": de.RuleID}
	}
	return c.JSON(http.StatusConflict, resp)
}

// UnavailableError reports a store that rejected a write. The client may retry.
func UnavailableError(c echo.Context, err error) error {
	log().Error("repository write failed", "path", c.Request().URL.Path, "error", err)
	capture(c, err)

	return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
		Error:   "repository_write_failed",
		Message: "Follow-ups could not be saved. Please retry.",
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	log().Error("internal error", "path", c.Request().URL.Path, "error", err)
	capture(c, err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// FromDomain writes the response matching err's domain error code.
func FromDomain(c echo.Context, err error) error {
	switch {
	case domain.IsNotFound(err):
		return NotFoundError(c, "lead")
	case domain.IsValidation(err):
		return ValidationError(c, err)
	case domain.IsNoEligibleAssignee(err):
		return NoEligibleAssigneeError(c, err)
	case domain.IsRepositoryWriteFailed(err):
		return UnavailableError(c, err)
	default:
		// Unknown templates are configuration bugs, not client errors.
		return InternalError(c, err)
	}
}
