package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/knowledgehub/workflow/internal/api/metrics"
	"github.com/knowledgehub/workflow/internal/api/middleware"
	"github.com/knowledgehub/workflow/internal/core/domain"
	"github.com/knowledgehub/workflow/internal/core/ports"
)

type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Signup creates a pending account.
//
// @Summary      Request an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Account request"
// @Success      201   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/signup [post]
func (h *AccountHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	user, err := h.service.Signup(c.Request().Context(), ports.SignupInput{
		Username:      req.Username,
		Password:      req.Password,
		Region:        req.Region,
		RequestedRole: req.RequestedRole,
	})
	if err != nil {
		return err
	}

	metrics.AccountSignupsTotal.Inc()
	return c.JSON(http.StatusCreated, accountResponse{Message: "Signup request submitted", User: *user})
}

// Login checks credentials and returns the caller identity.
//
// @Summary      Login
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  domain.Identity
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /api/login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	identity, err := h.service.Login(c.Request().Context(), ports.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	switch {
	case err == nil:
		metrics.LoginsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, domain.ErrUnauthorized):
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
	case errors.Is(err, domain.ErrPendingApproval):
		metrics.LoginsTotal.WithLabelValues("pending").Inc()
	default:
		metrics.LoginsTotal.WithLabelValues("error").Inc()
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, identity)
}

// ListPending returns accounts awaiting approval, oldest first.
//
// @Summary      List pending account requests
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        X-User-Role  header    string  false  "Caller role (trust mode)"
// @Success      200          {array}   domain.SanitizedUser
// @Failure      403          {object}  errorResponse
// @Router       /api/admin/requests [get]
func (h *AccountHandler) ListPending(c echo.Context) error {
	users, err := h.service.ListPending(c.Request().Context(), middleware.ContextRole(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Approve activates a pending account with its requested role.
//
// @Summary      Approve an account request
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      accountDecisionRequest  true  "Username and caller role"
// @Success      200   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/admin/requests/approve [put]
func (h *AccountHandler) Approve(c echo.Context) error {
	var req accountDecisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	user, err := h.service.Approve(c.Request().Context(), middleware.ResolveRole(c, req.Role), req.Username)
	if err != nil {
		return err
	}

	metrics.AccountDecisionsTotal.WithLabelValues("approved").Inc()
	return c.JSON(http.StatusOK, accountResponse{Message: "User approved", User: *user})
}

// Reject removes a pending account request.
//
// @Summary      Reject an account request
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      accountDecisionRequest  true  "Username and caller role"
// @Success      200   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/admin/requests/reject [put]
func (h *AccountHandler) Reject(c echo.Context) error {
	var req accountDecisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	user, err := h.service.Reject(c.Request().Context(), middleware.ResolveRole(c, req.Role), req.Username)
	if err != nil {
		return err
	}

	metrics.AccountDecisionsTotal.WithLabelValues("rejected").Inc()
	return c.JSON(http.StatusOK, accountResponse{Message: "User rejected", User: *user})
}
