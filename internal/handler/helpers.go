package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/mysteryforum/forum-api/internal/middleware"
	"github.com/mysteryforum/forum-api/internal/service"
	"github.com/mysteryforum/forum-api/internal/utils"
)

// errorStatuses maps service sentinels to HTTP statuses, first match wins.
var errorStatuses = []struct {
	target error
	status int
}{
	{service.ErrInvalidArgument, fiber.StatusBadRequest},
	{service.ErrNotFound, fiber.StatusNotFound},
	{service.ErrForbidden, fiber.StatusForbidden},
	{service.ErrConflict, fiber.StatusConflict},
}

// parseQueryInt returns 0 for an absent query value.
func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// parseUintParamValue reads a positive id from the route params.
func parseUintParamValue(c *fiber.Ctx, key string) (uint, error) {
	raw := strings.TrimSpace(c.Params(key))
	if raw == "" {
		return 0, fmt.Errorf("%s required", key)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	switch id := c.Locals("user_id").(type) {
	case uint:
		return id
	case int:
		if id > 0 {
			return uint(id)
		}
	}
	return 0
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	role, _ := c.Locals("user_role").(string)
	return service.ActivityActor{ID: userIDFromContext(c), Role: role}
}

// withRequestContext is the context handed to services; it always carries the correlation id.
func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if middleware.CorrelationIDFromContext(ctx) != "" {
		return ctx
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base.With().Str("correlation_id", middleware.GetCorrelationID(c)).Logger()
	return &logger
}

// validationDetails maps each failing field to the rule it broke, e.g. "reason": "oneof".
func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fe.Field()] = rule
	}
	return details
}

// respondError writes the envelope for a service error. Unknown errors are
// logged and hidden behind a 500.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(invalid))
	}
	for _, candidate := range errorStatuses {
		if errors.Is(err, candidate.target) {
			return utils.Fail(c, candidate.status, err.Error(), nil)
		}
	}

	requestLogger(logger, c).Error().Err(err).Str("method", c.Method()).Str("route", c.Path()).Msg("request failed")
	return utils.Fail(c, fiber.StatusInternalServerError, "internal server error", nil)
}
