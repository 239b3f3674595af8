package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contacts-api/internal/middleware"
	"github.com/iliyamo/contacts-api/internal/model"
	"github.com/iliyamo/contacts-api/internal/service"
)

// AuthHandler serves the /auth endpoints. PublicURL, when set, is the base
// of the links put in emails.
type AuthHandler struct {
	Auth      *service.AuthService
	PublicURL string
}

func NewAuthHandler(a *service.AuthService, publicURL string) *AuthHandler {
	return &AuthHandler{Auth: a, PublicURL: publicURL}
}

// ----- DTOs -----

type signupReq struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=12"`
}

// loginReq accepts either an HTML form or JSON. Username may hold the email.
type loginReq struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type emailReq struct {
	Email string `json:"email" validate:"required,email"`
}

type newPasswordReq struct {
	NewPassword string `json:"new_password" validate:"required,min=6,max=12"`
}

type signupResp struct {
	*model.User
	Detail string `json:"detail"`
}

// baseURL is the base of email links, with a trailing slash. Without a
// configured public URL it falls back to the request's own host, which is
// only trusted in development.
func (h *AuthHandler) baseURL(c echo.Context) string {
	if h.PublicURL != "" {
		return h.PublicURL
	}
	return c.Scheme() + "://" + c.Request().Host + "/"
}

// Signup creates an unconfirmed account and sends the verification email.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.Signup(ctx, service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, h.baseURL(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, signupResp{User: u, Detail: "User successfully created"})
}

// Login exchanges credentials for a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

// RefreshToken rotates the session. The refresh token travels as the bearer
// credential.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	raw, ok := middleware.BearerToken(c)
	if !ok {
		return middleware.Unauthorized(c, "Not authenticated")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

// Logout ends the caller's session.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, middleware.CurrentUser(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RequestPasswordReset mails a reset link.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	msg, err := h.Auth.RequestPasswordReset(ctx, req.Email, h.baseURL(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message{msg})
}

// CheckResetToken answers the reset link opened in a browser.
func (h *AuthHandler) CheckResetToken(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	msg, err := h.Auth.CheckResetToken(ctx, c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message{msg})
}

// ResetPassword applies a new password with the token from the reset link.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req newPasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	msg, err := h.Auth.ApplyPasswordReset(ctx, c.Param("token"), req.NewPassword)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message{msg})
}

// ConfirmEmail is the target of the verification link.
func (h *AuthHandler) ConfirmEmail(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	msg, err := h.Auth.ConfirmEmail(ctx, c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message{msg})
}

// RequestEmail resends the verification link.
func (h *AuthHandler) RequestEmail(c echo.Context) error {
	var req emailReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	msg, err := h.Auth.RequestEmailConfirmation(ctx, req.Email, h.baseURL(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message{msg})
}
