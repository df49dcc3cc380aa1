package controller

import (
	"lifestory-be/internal/dto"
	"lifestory-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

func actorFrom(ctx *fiber.Ctx) (dto.Actor, error) {
	p, err := serverutils.PrincipalFrom(ctx)
	if err != nil {
		return dto.Actor{}, err
	}
	return dto.Actor{UserId: p.UserID, IsAdmin: p.IsAdmin()}, nil
}

// parseBody decodes and validates a JSON body into req.
func parseBody(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return serverutils.ValidateRequest(req)
}
