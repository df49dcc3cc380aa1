package controller

import (
	"lifestory-be/internal/dto"
	"lifestory-be/internal/pkg/serverutils"
	"lifestory-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	OverrideStatus(ctx *fiber.Ctx) error
	ScheduleInterview(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService service.ISessionService
	auth           fiber.Handler
}

func NewSessionController(sessionService service.ISessionService, auth fiber.Handler) ISessionController {
	return &sessionController{
		sessionService: sessionService,
		auth:           auth,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions", c.auth)
	h.Post("", c.Create)
	h.Get(":id", c.Show)
	h.Patch(":id/status", serverutils.RequireRole(serverutils.RoleAdmin), c.OverrideStatus)
	h.Post(":id/interviews", c.ScheduleInterview)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateSessionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.sessionService.Create(ctx.UserContext(), actor, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session scheduled", res))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.sessionService.Show(ctx.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *sessionController) OverrideStatus(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateSessionStatusRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.sessionService.OverrideStatus(ctx.UserContext(), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session status updated", res))
}

func (c *sessionController) ScheduleInterview(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.ScheduleInterviewRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.sessionService.ScheduleInterview(ctx.UserContext(), actor, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Interview scheduled", res))
}
