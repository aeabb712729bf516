package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"innkeeper/internal/booking"
	"innkeeper/internal/metrics"
	"innkeeper/internal/model"
	"innkeeper/internal/queue"
	"innkeeper/internal/repository"
	queue_publisher "innkeeper/internal/service"
)

// ChangeHandler serves the pending-change workflow: guests submit date
// changes or cancellations, staff approve or reject them. Nothing touches
// the reservation until a staff member approves.
type ChangeHandler struct {
	Reservations *repository.ReservationRepo
	Changes      *repository.ChangeRepo
	Rooms        *repository.RoomRepo
	Metrics      *metrics.Metrics
	Log          zerolog.Logger
}

func NewChangeHandler(reservations *repository.ReservationRepo, changes *repository.ChangeRepo, rooms *repository.RoomRepo, m *metrics.Metrics, log zerolog.Logger) *ChangeHandler {
	return &ChangeHandler{Reservations: reservations, Changes: changes, Rooms: rooms, Metrics: m, Log: log}
}

type submitChangeReq struct {
	Type        string `json:"type" validate:"required,oneof=DATE_CHANGE CANCELLATION"`
	NewCheckIn  string `json:"new_check_in" validate:"omitempty"`
	NewCheckOut string `json:"new_check_out" validate:"omitempty"`
}

// Submit records a pending change request against the caller's reservation.
// For a date change, a missing new check-in or check-out falls back to the
// reservation's current date, so a guest can move just one end of the stay.
func (h *ChangeHandler) Submit(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req submitChangeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Reservations.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not submit request"})
	}
	if rec.GuestID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your reservation"})
	}
	if _, err := h.Changes.LatestPending(ctx, id); err == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "a change request is already pending for this reservation"})
	} else if !errors.Is(err, repository.ErrNoPendingRequest) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not submit request"})
	}

	ch := model.ReservationChange{
		ReservationID: id,
		ChangeType:    req.Type,
		OldCheckIn:    rec.CheckIn,
		OldCheckOut:   rec.CheckOut,
		Status:        model.ChangePending,
	}
	if req.Type == model.ChangeDateChange {
		newIn, newOut := rec.CheckIn, rec.CheckOut
		if req.NewCheckIn != "" {
			if newIn, err = time.Parse(booking.DateLayout, req.NewCheckIn); err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": errInvalidWindow.Error()})
			}
		}
		if req.NewCheckOut != "" {
			if newOut, err = time.Parse(booking.DateLayout, req.NewCheckOut); err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": errInvalidWindow.Error()})
			}
		}
		if !newOut.After(newIn) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": booking.ErrInvalidStay.Error()})
		}
		ch.NewCheckIn, ch.NewCheckOut = &newIn, &newOut
	}

	if err := h.Changes.Create(ctx, &ch); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not submit request"})
	}

	h.Metrics.ChangesSubmitted.WithLabelValues(req.Type).Inc()
	return c.JSON(http.StatusAccepted, echo.Map{
		"message":    "change request submitted and awaiting staff review",
		"request_id": ch.ID,
	})
}

// ListPending returns the staff review queue, oldest first.
func (h *ChangeHandler) ListPending(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pending, err := h.Changes.ListPending(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load pending requests"})
	}
	return c.JSON(http.StatusOK, echo.Map{"pending": pending})
}

// Approve applies the most recent pending change request of a reservation.
// An approved date change rewrites the stay window; an approved cancellation
// deletes the reservation, frees its room and clears any change rows. Both
// outcomes remove the request itself, all within one transaction.
func (h *ChangeHandler) Approve(c echo.Context) error {
	return h.resolve(c, true)
}

// Reject discards the most recent pending change request without touching
// the reservation.
func (h *ChangeHandler) Reject(c echo.Context) error {
	return h.resolve(c, false)
}

func (h *ChangeHandler) resolve(c echo.Context, approve bool) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	staffID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve request"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	ch, err := h.Changes.LatestPendingTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNoPendingRequest) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no pending change request for this reservation"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve request"})
	}

	var cancelled *model.Reservation
	if approve {
		switch ch.ChangeType {
		case model.ChangeCancellation:
			rec, err := h.Reservations.GetRecordTx(ctx, tx, id)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve request"})
			}
			roomID, err := h.Reservations.DeleteTx(ctx, tx, id)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve request"})
			}
			if err := h.Rooms.UpdateStatusTx(ctx, tx, roomID, model.RoomAvailable); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve request"})
			}
			if err := h.Changes.DeleteByReservationTx(ctx, tx, id); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve request"})
			}
			cancelled = &rec
		case model.ChangeDateChange:
			if ch.NewCheckIn == nil || ch.NewCheckOut == nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change request has no dates"})
			}
			if err := h.Reservations.UpdateDatesTx(ctx, tx, id, *ch.NewCheckIn, *ch.NewCheckOut, staffID); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve request"})
			}
			if err := h.Changes.DeleteTx(ctx, tx, ch.ID); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve request"})
			}
		}
	} else {
		if err := h.Changes.DeleteTx(ctx, tx, ch.ID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve request"})
		}
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve request"})
	}
	committed = true

	outcome := "rejected"
	if approve {
		outcome = "approved"
	}
	h.Metrics.ChangesResolved.WithLabelValues(ch.ChangeType, outcome).Inc()

	if cancelled != nil {
		rec := *cancelled
		go func() {
			pubCtx, pubCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer pubCancel()
			_ = queue_publisher.PublishReservationEvent(pubCtx, h.Log, queue.ReservationEvent{
				Type:             queue.EventCancelled,
				ReservationID:    rec.ID,
				GuestID:          rec.GuestID,
				CheckIn:          rec.CheckIn.Format(booking.DateLayout),
				CheckOut:         rec.CheckOut.Format(booking.DateLayout),
				TotalAmountCents: rec.TotalAmountCents,
				OccurredAt:       time.Now().UTC().Format(time.RFC3339),
			})
		}()
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":        "change request " + outcome,
		"reservation_id": id,
		"type":           ch.ChangeType,
	})
}
