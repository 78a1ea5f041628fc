package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/mysteryforum/forum-api/internal/dto"
	"github.com/mysteryforum/forum-api/internal/service"
	"github.com/mysteryforum/forum-api/internal/utils"
)

// ReportHandler serves report submission and the moderation queue.
type ReportHandler struct {
	reports service.ReportService
	logger  zerolog.Logger
}

// NewReportHandler constructs a report handler.
func NewReportHandler(reports service.ReportService, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger.With().Str("component", "report_handler").Logger(),
	}
}

// RegisterSubmit binds the member-facing submission route.
func (h *ReportHandler) RegisterSubmit(router fiber.Router) {
	router.Post("/submit", h.submit)
}

// RegisterModeration binds the admin routes. Callers guard router with an admin check.
func (h *ReportHandler) RegisterModeration(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/target/:type/:id", h.listByTarget)
	router.Put("/:id/resolve", h.resolve)
}

func (h *ReportHandler) submit(c *fiber.Ctx) error {
	var payload dto.ReportSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	report, err := h.reports.Submit(withRequestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "report submitted", report)
}

func (h *ReportHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if page <= 0 {
		page = 1
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	response, err := h.reports.List(withRequestContext(c), dto.ReportListRequest{
		Page:     page,
		PageSize: pageSize,
		Status:   c.Query("status"),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, response.Items, "reports", response.Pagination)
}

func (h *ReportHandler) listByTarget(c *fiber.Ctx) error {
	targetID, err := parseUintParamValue(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	reports, err := h.reports.ListByTarget(withRequestContext(c), c.Params("type"), targetID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "reports", reports)
}

func (h *ReportHandler) resolve(c *fiber.Ctx) error {
	reportID, err := parseUintParamValue(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ReportResolveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	report, err := h.reports.Resolve(withRequestContext(c), reportID, activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("report_id", report.ID).
		Str("status", string(report.Status)).
		Uint("admin_id", userIDFromContext(c)).
		Msg("report resolved by admin")
	return utils.SendSuccess(c, "report resolved", report)
}
