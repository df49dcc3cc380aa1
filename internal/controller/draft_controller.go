package controller

import (
	"lifestory-be/internal/dto"
	"lifestory-be/internal/pkg/serverutils"
	"lifestory-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IDraftController serves the admin review workflow of drafts.
type IDraftController interface {
	RegisterRoutes(r fiber.Router)
	Transition(ctx *fiber.Ctx) error
	AppendNote(ctx *fiber.Ctx) error
	ListNotes(ctx *fiber.Ctx) error
	ListConflicts(ctx *fiber.Ctx) error
	ResolveConflict(ctx *fiber.Ctx) error
}

type draftController struct {
	draftService service.IDraftService
	auth         fiber.Handler
}

func NewDraftController(draftService service.IDraftService, auth fiber.Handler) IDraftController {
	return &draftController{
		draftService: draftService,
		auth:         auth,
	}
}

func (c *draftController) RegisterRoutes(r fiber.Router) {
	admin := serverutils.RequireRole(serverutils.RoleAdmin)

	d := r.Group("/drafts", c.auth, admin)
	d.Post(":id/transition", c.Transition)
	d.Post(":id/notes", c.AppendNote)
	d.Get(":id/notes", c.ListNotes)
	d.Get(":id/conflicts", c.ListConflicts)

	cf := r.Group("/conflicts", c.auth, admin)
	cf.Patch(":id/resolve", c.ResolveConflict)
}

func (c *draftController) Transition(ctx *fiber.Ctx) error {
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

	res, err := c.draftService.Transition(ctx.UserContext(), actor, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Draft status updated", res))
}

func (c *draftController) AppendNote(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.AppendNoteRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.draftService.AppendNote(ctx.UserContext(), actor, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Note added", res))
}

func (c *draftController) ListNotes(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.draftService.ListNotes(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list notes", res))
}

func (c *draftController) ListConflicts(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.draftService.ListConflicts(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list conflicts", res))
}

func (c *draftController) ResolveConflict(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.ResolveConflictRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.draftService.ResolveConflict(ctx.UserContext(), actor, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Conflict resolved", res))
}
