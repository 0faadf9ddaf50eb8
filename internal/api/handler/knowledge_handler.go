package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/knowledgehub/workflow/internal/api/metrics"
	"github.com/knowledgehub/workflow/internal/api/middleware"
	"github.com/knowledgehub/workflow/internal/core/ports"
)

// HeaderIdempotencyKey lets clients retry a submission safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// KnowledgeHandler handles HTTP requests for knowledge items.
type KnowledgeHandler struct {
	service ports.KnowledgeService
}

func NewKnowledgeHandler(service ports.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{service: service}
}

// List handles GET /api/knowledge.
//
// @Summary      List knowledge items, newest first
// @Tags         knowledge
// @Produce      json
// @Success      200  {array}   domain.KnowledgeItem
// @Failure      500  {object}  errorResponse
// @Router       /api/knowledge [get]
func (h *KnowledgeHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// Get handles GET /api/knowledge/:id.
//
// @Summary      Get a knowledge item
// @Tags         knowledge
// @Produce      json
// @Param        id   path      string  true  "Knowledge item id"
// @Success      200  {object}  domain.KnowledgeItem
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/knowledge/{id} [get]
func (h *KnowledgeHandler) Get(c echo.Context) error {
	item, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

// Submit handles POST /api/knowledge.
//
// @Summary      Submit a knowledge item
// @Tags         knowledge
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                  false  "Idempotency key to prevent duplicate submissions"
// @Param        body             body      submitKnowledgeRequest  true   "Knowledge item"
// @Success      201              {object}  knowledgeResponse
// @Success      200              {object}  knowledgeResponse  "Replay of an earlier submission"
// @Failure      400              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      500              {object}  errorResponse
// @Router       /api/knowledge [post]
func (h *KnowledgeHandler) Submit(c echo.Context) error {
	var req submitKnowledgeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	result, err := h.service.Submit(c.Request().Context(), ports.SubmitKnowledgeInput{
		Title:          req.Title,
		Description:    req.Description,
		Author:         actorName(c, req.Author),
		Role:           string(middleware.ResolveRole(c, req.Role)),
		Tags:           req.Tags.Items,
		TagsText:       req.Tags.Text,
		Project:        req.Project,
		Region:         req.Region,
		Type:           req.Type,
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return err
	}

	if result.AlreadyExisted {
		metrics.KnowledgeSubmissionsTotal.WithLabelValues("replayed").Inc()
		return c.JSON(http.StatusOK, knowledgeResponse{Message: "Knowledge already submitted", Item: result.Item})
	}
	metrics.KnowledgeSubmissionsTotal.WithLabelValues("created").Inc()
	return c.JSON(http.StatusCreated, knowledgeResponse{Message: "Knowledge submitted", Item: result.Item})
}

// Decide handles PUT /api/validate/:id.
//
// @Summary      Record a validation decision
// @Tags         knowledge
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Knowledge item id"
// @Param        body  body      decideRequest  true  "Decision"
// @Success      200   {object}  knowledgeResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/validate/{id} [put]
func (h *KnowledgeHandler) Decide(c echo.Context) error {
	var req decideRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON payload")
	}

	item, err := h.service.Decide(c.Request().Context(), ports.DecideInput{
		ID:         c.Param("id"),
		CallerRole: middleware.ResolveRole(c, req.Role),
		Validator:  actorName(c, req.Validator),
		Decision:   req.Decision,
	})
	if err != nil {
		return err
	}

	metrics.KnowledgeDecisionsTotal.WithLabelValues(string(item.Status)).Inc()
	return c.JSON(http.StatusOK, knowledgeResponse{Message: "Validation updated", Item: *item})
}
