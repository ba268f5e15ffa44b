package handler

import (
	"github.com/gofiber/fiber/v2"

	"docarchive/internal/service"
	"docarchive/internal/validation"
)

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"notblank,max=100"`
	Password string `json:"password" form:"password" validate:"required"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a session token.
//
//	@Summary	Log in
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		loginRequest	true	"Credentials"
//	@Success	200		{object}	loginResponse
//	@Failure	400		{object}	errorPayload
//	@Failure	401		{object}	errorPayload
//	@Router		/api/auth/login [post]
func Login(svc service.AuthService, v *validation.Validator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := v.Struct(req); err != nil {
			return writeValidationError(c, err)
		}

		token, err := svc.Login(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(loginResponse{Token: token})
	}
}
