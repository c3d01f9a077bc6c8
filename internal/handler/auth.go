package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ykravets/contacts-api/internal/auth"
	"github.com/ykravets/contacts-api/internal/config"
	"github.com/ykravets/contacts-api/internal/middleware"
	"github.com/ykravets/contacts-api/internal/model"
	"github.com/ykravets/contacts-api/internal/queue"
	"github.com/ykravets/contacts-api/internal/repository"
	queue_publisher "github.com/ykravets/contacts-api/internal/service"
)

// UserStore is the persistence surface the auth endpoints need. It is the
// auth.UserStore contract plus Create; repository.UserRepo satisfies it.
type UserStore interface {
	auth.UserStore
	Create(ctx context.Context, username, email, passwordHash string) (model.User, error)
}

// AuthHandler bundles dependencies for the auth endpoints. Publish defaults
// to the RabbitMQ publisher and is a field so tests can substitute it.
type AuthHandler struct {
	Cfg     config.Config
	Auth    *auth.Authenticator
	Codec   *auth.TokenCodec
	Hasher  auth.Hasher
	Users   UserStore
	Publish func(ctx context.Context, ev queue.EmailVerificationEvent) error
}

func NewAuthHandler(cfg config.Config, a *auth.Authenticator, codec *auth.TokenCodec, hasher auth.Hasher, users UserStore) *AuthHandler {
	return &AuthHandler{
		Cfg:     cfg,
		Auth:    a,
		Codec:   codec,
		Hasher:  hasher,
		Users:   users,
		Publish: queue_publisher.PublishEmailVerification,
	}
}

// ----- DTOs -----

type signupReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type emailReq struct {
	Email string `json:"email"`
}

type userResp struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
}
type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// Signup creates an unconfirmed account and queues the verification mail.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Username, req.Email, hash)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "account already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	h.queueVerificationMail(ctx, c, u)

	return c.JSON(http.StatusCreated, echo.Map{
		"user":   userResp{ID: u.ID, Username: u.Username, Email: u.Email},
		"detail": "User created. Check your email for a confirmation link.",
	})
}

// Login verifies credentials and returns a token pair. Unknown account,
// unconfirmed account and wrong password all read the same to the client.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		c.Logger().Errorf("login: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	return c.JSON(http.StatusOK, tokenResp{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	})
}

// Refresh exchanges the presented refresh token for a new access token. The
// refresh token is not rotated; only the stored one is ever accepted.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	access, err := h.Auth.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		c.Logger().Errorf("refresh: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	return c.JSON(http.StatusOK, tokenResp{AccessToken: access, TokenType: "bearer"})
}

// ConfirmEmail validates the emailed verification token and flips the
// account's confirmation flag.
func (h *AuthHandler) ConfirmEmail(c echo.Context) error {
	token := c.Param("token")

	email, err := h.Auth.ConfirmEmail(token)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "verification error"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}
	if u.Confirmed {
		return c.JSON(http.StatusOK, echo.Map{"message": "your email is already confirmed"})
	}
	if err := h.Users.MarkConfirmed(ctx, email); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email confirmed"})
}

// RequestEmail re-queues the verification mail. The response never reveals
// whether the address is registered.
func (h *AuthHandler) RequestEmail(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err == nil && !u.Confirmed {
		h.queueVerificationMail(ctx, c, u)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "check your email for a confirmation link"})
}

// Me returns the authenticated Principal resolved by the middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}
	return c.JSON(http.StatusOK, userResp{ID: p.ID, Username: p.Username, Email: p.Email, Avatar: p.Avatar})
}

// queueVerificationMail issues a verification token and publishes the mail
// event. Failures are logged only; the originating request still succeeds.
func (h *AuthHandler) queueVerificationMail(ctx context.Context, c echo.Context, u model.User) {
	token, err := h.Codec.IssueEmailToken(u.Email)
	if err != nil {
		c.Logger().Errorf("issue email token: %v", err)
		return
	}
	ev := queue.EmailVerificationEvent{
		UserID:      u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Token:       token,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := h.Publish(ctx, ev); err != nil {
		c.Logger().Warnf("publish verification mail event: %v", err)
	}
}
