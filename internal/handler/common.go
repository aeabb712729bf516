// Package handler implements the HTTP endpoints. Handlers bundle the
// repositories they need, bound request-scoped database work with a timeout
// context, and orchestrate multi-step mutations inside a single transaction
// with rollback on any failure.
package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"innkeeper/internal/model"
)

var errInvalidWindow = errors.New("check_in and check_out must be dates in 2006-01-02 form")

// getUserID extracts the authenticated subject id stored by the JWTAuth
// middleware.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// isStaff reports whether the request carries the STAFF role claim.
func isStaff(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleStaff
}

// pathID parses a numeric :id path parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

// bearerGuestID inspects an optional Authorization header and returns the
// guest id when a valid guest access token is present. Booking is open to
// anonymous visitors, so a missing or invalid token is not an error; it just
// means the booking is unauthenticated.
func bearerGuestID(c echo.Context, secret string) (uint64, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return 0, false
	}
	raw := strings.TrimPrefix(auth, "Bearer ")
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	if role, _ := claims["role"].(string); role != model.RoleGuest {
		return 0, false
	}
	switch sub := claims["sub"].(type) {
	case float64:
		return uint64(sub), true
	case string:
		if n, err := strconv.ParseUint(sub, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
