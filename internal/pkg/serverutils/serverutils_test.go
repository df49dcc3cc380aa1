package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"lifestory-be/internal/pkg/apperror"
	"lifestory-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func decode(t *testing.T, body io.Reader) BaseResponse[any] {
	t.Helper()
	var res BaseResponse[any]
	require.NoError(t, json.NewDecoder(body).Decode(&res))
	return res
}

func TestErrorHandlerMiddleware_MapsKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		kind string
		msg  string
	}{
		{"validation", apperror.Validation("bad input"), 400, "validation_error", "bad input"},
		{"media", apperror.UnsupportedMedia("nope"), 415, "unsupported_media_type", "nope"},
		{"too large", apperror.PayloadTooLarge("big"), 413, "payload_too_large", "big"},
		{"conflict", apperror.Conflict("busy"), 409, "conflict", "busy"},
		{"webhook", apperror.UnauthorizedWebhook("bad sig"), 401, "unauthorized_webhook", "bad sig"},
		{"pipeline", apperror.PipelineFailure("model down", errors.New("x")), 502, "pipeline_failure", "model down"},
		{"timeout", apperror.Timeout("slow", nil), 504, "timeout", "slow"},
		{"precondition", apperror.PreconditionFailed("no approved draft"), 412, "precondition_failed", "no approved draft"},
		{"unknown", errors.New("db password leaked"), 500, "internal", "internal server error"},
		{"fiber", fiber.NewError(fiber.StatusMethodNotAllowed, "nope"), 405, "", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(ErrorHandlerMiddleware(logger.NewNopLogger()))
			app.Get("/", func(*fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			res := decode(t, resp.Body)
			assert.False(t, res.Success)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.msg, res.Message)
		})
	}
}

func TestErrorHandlerMiddleware_RecoversPanic(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(logger.NewNopLogger()))
	app.Get("/", func(*fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestJwtMiddleware(t *testing.T) {
	userID := uuid.New()

	app := fiber.New()
	app.Use(ErrorHandlerMiddleware(logger.NewNopLogger()))
	app.Use(NewJwtMiddleware(testSecret))
	app.Get("/me", func(ctx *fiber.Ctx) error {
		p, err := PrincipalFrom(ctx)
		if err != nil {
			return err
		}
		return ctx.JSON(SuccessResponse("ok", fiber.Map{"id": p.UserID, "role": p.Role}))
	})
	app.Get("/admin", RequireRole(RoleAdmin), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(204)
	})

	userToken := signToken(t, jwt.MapClaims{"user_id": userID.String(), "exp": time.Now().Add(time.Hour).Unix()})
	adminToken := signToken(t, jwt.MapClaims{"user_id": userID.String(), "role": "admin"})
	expired := signToken(t, jwt.MapClaims{"user_id": userID.String(), "exp": time.Now().Add(-time.Hour).Unix()})

	tests := []struct {
		name  string
		path  string
		token string
		code  int
	}{
		{"no token", "/me", "", 401},
		{"garbage", "/me", "abc", 401},
		{"expired", "/me", expired, 401},
		{"user", "/me", userToken, 200},
		{"user on admin route", "/admin", userToken, 403},
		{"admin", "/admin", adminToken, 204},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Name string `validate:"required"`
		Mode string `validate:"omitempty,oneof=sync async"`
	}

	assert.NoError(t, ValidateRequest(req{Name: "x"}))

	err := ValidateRequest(req{Mode: "later"})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "Name failed on required")
	assert.Contains(t, err.Error(), "Mode failed on oneof=sync async")
}
