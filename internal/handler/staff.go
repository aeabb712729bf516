package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"innkeeper/internal/booking"
	"innkeeper/internal/metrics"
	"innkeeper/internal/model"
	"innkeeper/internal/repository"
)

// StaffHandler serves the front-desk operations: the full reservation list,
// physical check-in/check-out, service charges, room status and occupancy
// statistics.
type StaffHandler struct {
	Reservations *repository.ReservationRepo
	Rooms        *repository.RoomRepo
	Charges      *repository.ChargeRepo
	Metrics      *metrics.Metrics
}

func NewStaffHandler(reservations *repository.ReservationRepo, rooms *repository.RoomRepo, charges *repository.ChargeRepo, m *metrics.Metrics) *StaffHandler {
	return &StaffHandler{Reservations: reservations, Rooms: rooms, Charges: charges, Metrics: m}
}

// ListReservations returns every reservation with its derived stage.
func (h *StaffHandler) ListReservations(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	details, err := h.Reservations.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load reservations"})
	}
	now := time.Now().UTC()
	for i := range details {
		details[i].Stage = booking.Stage(now, details[i].CheckInDate, details[i].CheckOutDate)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": details})
}

// CheckIn marks a confirmed reservation as physically checked in and the
// room as occupied.
func (h *StaffHandler) CheckIn(c echo.Context) error {
	return h.flipOccupancy(c, model.ReservationConfirmed, model.ReservationCheckedIn, model.RoomOccupied, "checked in")
}

// CheckOut ends a checked-in stay. The reservation returns to its confirmed
// (completed-by-dates) state and the room goes to cleaning; completion stays
// a derived label, never a stored status.
func (h *StaffHandler) CheckOut(c echo.Context) error {
	return h.flipOccupancy(c, model.ReservationCheckedIn, model.ReservationConfirmed, model.RoomCleaning, "checked out")
}

func (h *StaffHandler) flipOccupancy(c echo.Context, from, to, roomStatus, verb string) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rec, err := h.Reservations.GetRecordTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
	}
	if rec.Status != from {
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is not in a state that can be " + verb})
	}

	if err := h.Reservations.UpdateStatusTx(ctx, tx, id, to); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
	}
	if err := h.Rooms.UpdateStatusTx(ctx, tx, rec.RoomID, roomStatus); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{"message": "guest " + verb, "reservation_id": id})
}

type addChargeReq struct {
	ServiceID uint64 `json:"service_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=100"`
}

// AddCharge books a catalogue service against a reservation and folds the
// amount into the reservation total in the same transaction.
func (h *StaffHandler) AddCharge(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req addChargeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not add charge"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := h.Reservations.GetRecordTx(ctx, tx, id); err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not add charge"})
	}
	svc, err := h.Charges.GetServiceTx(ctx, tx, req.ServiceID)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not add charge"})
	}

	charge := model.ServiceCharge{
		ReservationID: id,
		ServiceID:     svc.ID,
		Quantity:      req.Quantity,
		AmountCents:   svc.PriceCents * int64(req.Quantity),
	}
	if err := h.Charges.AddTx(ctx, tx, &charge); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not add charge"})
	}
	if err := h.Reservations.AddToTotalTx(ctx, tx, id, charge.AmountCents); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not add charge"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not add charge"})
	}
	committed = true

	h.Metrics.ChargesAdded.Inc()
	return c.JSON(http.StatusCreated, echo.Map{
		"message":      "charge added",
		"service":      svc.Name,
		"amount_cents": charge.AmountCents,
	})
}

type roomStatusReq struct {
	Status string `json:"status" validate:"required,oneof=AVAILABLE OCCUPIED MAINTENANCE CLEANING"`
}

// SetRoomStatus updates the housekeeping status of a room. Putting a room
// into MAINTENANCE or CLEANING removes it from availability searches; it
// does not touch existing reservations.
func (h *StaffHandler) SetRoomStatus(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var req roomStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Rooms.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update room"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "room status updated", "room_id": id, "status": req.Status})
}

// Stats reports occupancy and workload counters for the dashboard.
func (h *StaffHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stats, err := h.Reservations.GetStats(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load stats"})
	}
	return c.JSON(http.StatusOK, stats)
}
