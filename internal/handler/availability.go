package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"innkeeper/internal/booking"
	"innkeeper/internal/repository"
)

// AvailabilityHandler serves the public room search.
type AvailabilityHandler struct {
	Rooms *repository.RoomRepo
}

func NewAvailabilityHandler(rooms *repository.RoomRepo) *AvailabilityHandler {
	return &AvailabilityHandler{Rooms: rooms}
}

type availableRoomResp struct {
	repository.AvailableRoom
	Nights     int   `json:"nights"`
	TotalCents int64 `json:"total_cents"`
}

// ListAvailable returns every room free for the whole requested window,
// priced for that window. check_in and check_out are required "2006-01-02"
// query parameters and the window is half-open: a room whose existing stay
// checks out on the requested check-in day is still offered.
func (h *AvailabilityHandler) ListAvailable(c echo.Context) error {
	checkIn, checkOut, err := parseStayWindow(c.QueryParam("check_in"), c.QueryParam("check_out"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rooms, err := h.Rooms.ListAvailable(ctx, checkIn, checkOut)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not search rooms"})
	}

	nights, _ := booking.Nights(checkIn, checkOut)
	out := make([]availableRoomResp, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, availableRoomResp{
			AvailableRoom: r,
			Nights:        nights,
			TotalCents:    r.NightlyRateCents * int64(nights),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"check_in":  checkIn.Format(booking.DateLayout),
		"check_out": checkOut.Format(booking.DateLayout),
		"rooms":     out,
	})
}

// parseStayWindow parses and validates a check-in/check-out pair.
func parseStayWindow(inStr, outStr string) (time.Time, time.Time, error) {
	if inStr == "" || outStr == "" {
		return time.Time{}, time.Time{}, errInvalidWindow
	}
	checkIn, err := time.Parse(booking.DateLayout, inStr)
	if err != nil {
		return time.Time{}, time.Time{}, errInvalidWindow
	}
	checkOut, err := time.Parse(booking.DateLayout, outStr)
	if err != nil {
		return time.Time{}, time.Time{}, errInvalidWindow
	}
	if !checkOut.After(checkIn) {
		return time.Time{}, time.Time{}, booking.ErrInvalidStay
	}
	return checkIn, checkOut, nil
}
