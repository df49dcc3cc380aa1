package controller

import (
	"io"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/pkg/apperror"
	"lifestory-be/internal/pkg/serverutils"
	"lifestory-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IInterviewController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	UploadAsync(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	ListDrafts(ctx *fiber.Ctx) error
	RegenerateDraft(ctx *fiber.Ctx) error
}

type interviewController struct {
	interviewService service.IInterviewService
	ingestService    service.IIngestService
	draftService     service.IDraftService
	auth             fiber.Handler
}

func NewInterviewController(
	interviewService service.IInterviewService,
	ingestService service.IIngestService,
	draftService service.IDraftService,
	auth fiber.Handler,
) IInterviewController {
	return &interviewController{
		interviewService: interviewService,
		ingestService:    ingestService,
		draftService:     draftService,
		auth:             auth,
	}
}

func (c *interviewController) RegisterRoutes(r fiber.Router) {
	admin := serverutils.RequireRole(serverutils.RoleAdmin)

	h := r.Group("/interviews", c.auth)
	h.Post(":id/start", c.Start)
	h.Post(":id/upload", c.Upload)
	h.Post(":id/upload-async", c.UploadAsync)
	h.Get(":id/status", c.Status)
	h.Delete(":id", admin, c.Delete)
	h.Get(":id/drafts", c.ListDrafts)
	h.Post(":id/drafts/regenerate", admin, c.RegenerateDraft)
}

func (c *interviewController) Start(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.interviewService.Start(ctx.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Interview started", res))
}

// readUpload pulls the "file" part out of the multipart body.
func readUpload(ctx *fiber.Ctx, id uuid.UUID, mode dto.UploadMode) (*dto.UploadRequest, error) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return nil, apperror.Validation("file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperror.Validation("file could not be read")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperror.Validation("file could not be read")
	}

	return &dto.UploadRequest{
		InterviewId: id,
		Filename:    fh.Filename,
		Size:        fh.Size,
		Data:        data,
		Mode:        mode,
	}, nil
}

func (c *interviewController) Upload(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}
	req, err := readUpload(ctx, id, dto.UploadModeSync)
	if err != nil {
		return err
	}

	res, err := c.ingestService.UploadSync(ctx.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Interview transcribed", res))
}

func (c *interviewController) UploadAsync(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}
	req, err := readUpload(ctx, id, dto.UploadModeAsync)
	if err != nil {
		return err
	}

	ack, err := c.ingestService.UploadAsync(ctx.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.AcceptedResponse("Upload accepted for processing", ack))
}

func (c *interviewController) Status(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.interviewService.Status(ctx.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show interview status", res))
}

func (c *interviewController) Delete(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.interviewService.Delete(ctx.UserContext(), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Interview deleted", nil))
}

func (c *interviewController) ListDrafts(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.draftService.ListByInterview(ctx.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list drafts", res))
}

// RegenerateDraft is async unless ?mode=sync is given.
func (c *interviewController) RegenerateDraft(ctx *fiber.Ctx) error {
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	if ctx.Query("mode") == string(dto.UploadModeSync) {
		res, err := c.draftService.RegenerateSync(ctx.UserContext(), id)
		if err != nil {
			return err
		}
		return ctx.JSON(serverutils.SuccessResponse("Draft regenerated", res))
	}

	ack, err := c.draftService.RegenerateAsync(ctx.UserContext(), id)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.AcceptedResponse("Draft regeneration queued", ack))
}
