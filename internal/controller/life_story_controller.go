package controller

import (
	"lifestory-be/internal/dto"
	"lifestory-be/internal/pkg/serverutils"
	"lifestory-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ILifeStoryController interface {
	RegisterRoutes(r fiber.Router)
	Generate(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Transition(ctx *fiber.Ctx) error
}

type lifeStoryController struct {
	lifeStoryService service.ILifeStoryService
	auth             fiber.Handler
}

func NewLifeStoryController(lifeStoryService service.ILifeStoryService, auth fiber.Handler) ILifeStoryController {
	return &lifeStoryController{
		lifeStoryService: lifeStoryService,
		auth:             auth,
	}
}

func (c *lifeStoryController) RegisterRoutes(r fiber.Router) {
	admin := serverutils.RequireRole(serverutils.RoleAdmin)

	r.Post("/sessions/:id/life-story", c.auth, admin, c.Generate)
	r.Get("/sessions/:id/life-stories", c.auth, c.List)
	r.Post("/life-stories/:id/transition", c.auth, admin, c.Transition)
}

// Generate is async unless ?mode=sync is given.
func (c *lifeStoryController) Generate(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	if ctx.Query("mode") == string(dto.UploadModeSync) {
		res, err := c.lifeStoryService.GenerateSync(ctx.UserContext(), id)
		if err != nil {
			return err
		}
		return ctx.JSON(serverutils.SuccessResponse("Life story generated", res))
	}

	ack, err := c.lifeStoryService.GenerateAsync(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.AcceptedResponse("Life story generation queued", ack))
}

func (c *lifeStoryController) List(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.lifeStoryService.List(ctx.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list life stories", res))
}

func (c *lifeStoryController) Transition(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.TransitionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.lifeStoryService.Transition(ctx.UserContext(), actor, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Life story status updated", res))
}
