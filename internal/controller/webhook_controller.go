package controller

import (
	"lifestory-be/internal/dto"
	"lifestory-be/internal/pkg/apperror"
	"lifestory-be/internal/pkg/serverutils"
	"lifestory-be/internal/service"
	"lifestory-be/pkg/webhook"

	"github.com/gofiber/fiber/v2"
)

// IWebhookController receives pipeline callbacks. Every authenticated
// callback gets a 200 so the pipeline stops redelivering it.
type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	TranscriptionComplete(ctx *fiber.Ctx) error
	DraftComplete(ctx *fiber.Ctx) error
	LifeStoryComplete(ctx *fiber.Ctx) error
}

type webhookController struct {
	reconciler service.IReconcilerService
	verifier   *webhook.Verifier
}

func NewWebhookController(reconciler service.IReconcilerService, verifier *webhook.Verifier) IWebhookController {
	return &webhookController{
		reconciler: reconciler,
		verifier:   verifier,
	}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/webhooks", c.verify)
	h.Post("/transcription-complete", c.TranscriptionComplete)
	h.Post("/draft-complete", c.DraftComplete)
	h.Post("/life-story-complete", c.LifeStoryComplete)
}

func (c *webhookController) verify(ctx *fiber.Ctx) error {
	headers := func(key string) string { return ctx.Get(key) }
	if err := c.verifier.Verify(headers, ctx.Body()); err != nil {
		return apperror.UnauthorizedWebhook(err.Error())
	}
	return ctx.Next()
}

func (c *webhookController) TranscriptionComplete(ctx *fiber.Ctx) error {
	return c.handle(ctx, &dto.TranscriptionCallback{})
}

func (c *webhookController) DraftComplete(ctx *fiber.Ctx) error {
	return c.handle(ctx, &dto.DraftCallback{})
}

func (c *webhookController) LifeStoryComplete(ctx *fiber.Ctx) error {
	return c.handle(ctx, &dto.LifeStoryCallback{})
}

func (c *webhookController) handle(ctx *fiber.Ctx, cb dto.StageCallback) error {
	if err := parseBody(ctx, cb); err != nil {
		return err
	}

	res, err := c.reconciler.Handle(ctx.UserContext(), cb)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Callback received", res))
}
