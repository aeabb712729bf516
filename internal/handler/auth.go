package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"innkeeper/internal/config"
	"innkeeper/internal/model"
	"innkeeper/internal/repository"
	"innkeeper/internal/utils"
)

// AuthHandler serves registration, login and the refresh-token lifecycle for
// both identity variants. Guests and staff live in separate tables and are
// told apart by the role claim baked into their tokens.
type AuthHandler struct {
	Cfg    config.Config
	Guests *repository.GuestRepo
	Staff  *repository.StaffRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, guests *repository.GuestRepo, staff *repository.StaffRepo, tokens *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Guests: guests, Staff: staff, Tokens: tokens}
}

type authTokensResp struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Role         string    `json:"role"`
	SubjectID    uint64    `json:"subject_id"`
}

// issueTokens mints an access/refresh pair and persists the refresh hash.
func (h *AuthHandler) issueTokens(ctx context.Context, subjectType string, subjectID uint64) (authTokensResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, subjectID, subjectType, h.Cfg.AccessTTLMin)
	if err != nil {
		return authTokensResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authTokensResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, subjectType, subjectID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authTokensResp{}, err
	}
	return authTokensResp{
		AccessToken:  access.Token,
		RefreshToken: refresh.Raw,
		ExpiresAt:    access.Exp,
		Role:         subjectType,
		SubjectID:    subjectID,
	}, nil
}

type registerReq struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Register creates a guest account. If the email already belongs to an
// anonymous walk-in guest the row is upgraded in place so their reservation
// history survives; if it belongs to a registered account the call fails.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not hash password"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Guests.RegisterAccount(ctx, req.Name, req.Email, req.Phone, hash)
	if err != nil {
		if errors.Is(err, repository.ErrAccountExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "an account with this email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not register"})
	}

	tokens, err := h.issueTokens(ctx, model.RoleGuest, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue tokens"})
	}
	return c.JSON(http.StatusCreated, tokens)
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=GUEST STAFF"`
}

// Login authenticates a guest or staff member. The role field selects the
// identity table; it defaults to GUEST.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Role == "" {
		req.Role = model.RoleGuest
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		subjectID uint64
		hash      string
	)
	switch req.Role {
	case model.RoleStaff:
		st, err := h.Staff.GetByEmail(ctx, req.Email)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
		}
		subjectID, hash = st.ID, st.PasswordHash
	default:
		g, err := h.Guests.GetByEmail(ctx, req.Email)
		if err != nil {
			if errors.Is(err, repository.ErrGuestNotFound) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
		}
		// Anonymous walk-in rows have no password and cannot log in.
		if !g.IsAccountCreated || g.PasswordHash == nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		subjectID, hash = g.ID, *g.PasswordHash
	}

	if !utils.VerifyPassword(hash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	tokens, err := h.issueTokens(ctx, req.Role, subjectID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue tokens"})
	}
	return c.JSON(http.StatusOK, tokens)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued for the same subject.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashRefreshRaw(req.RefreshToken)
	subjectType, subjectID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidRefresh) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}

	tokens, err := h.issueTokens(ctx, subjectType, subjectID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue tokens"})
	}
	return c.JSON(http.StatusOK, tokens)
}

// Logout revokes the presented refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(req.RefreshToken)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me returns the profile of the authenticated subject.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if isStaff(c) {
		st, err := h.Staff.GetByID(ctx, uid)
		if err != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "staff member not found"})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"id": st.ID, "name": st.Name, "email": st.Email, "role": model.RoleStaff,
		})
	}

	g, err := h.Guests.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "guest not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id": g.ID, "name": g.Name, "email": g.Email, "phone": g.Phone, "role": model.RoleGuest,
	})
}
