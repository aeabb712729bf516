package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"innkeeper/internal/booking"
	"innkeeper/internal/config"
	"innkeeper/internal/metrics"
	"innkeeper/internal/model"
	"innkeeper/internal/queue"
	"innkeeper/internal/repository"
	queue_publisher "innkeeper/internal/service"
	"innkeeper/internal/utils"
)

// ReservationHandler serves booking, lookup, claiming and billing.
type ReservationHandler struct {
	Cfg          config.Config
	Rooms        *repository.RoomRepo
	Guests       *repository.GuestRepo
	Reservations *repository.ReservationRepo
	Charges      *repository.ChargeRepo
	Metrics      *metrics.Metrics
	Log          zerolog.Logger
}

func NewReservationHandler(cfg config.Config, rooms *repository.RoomRepo, guests *repository.GuestRepo, reservations *repository.ReservationRepo, charges *repository.ChargeRepo, m *metrics.Metrics, log zerolog.Logger) *ReservationHandler {
	return &ReservationHandler{
		Cfg: cfg, Rooms: rooms, Guests: guests,
		Reservations: reservations, Charges: charges, Metrics: m, Log: log,
	}
}

type createReservationReq struct {
	RoomID        uint64 `json:"room_id" validate:"required"`
	CheckIn       string `json:"check_in" validate:"required"`
	CheckOut      string `json:"check_out" validate:"required"`
	GuestName     string `json:"guest_name" validate:"omitempty,max=100"`
	GuestEmail    string `json:"guest_email" validate:"omitempty,email"`
	GuestPhone    string `json:"guest_phone" validate:"omitempty,max=32"`
	Password      string `json:"password" validate:"omitempty,min=8,max=72"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=CARD CASH TRANSFER"`
}

type createReservationResp struct {
	ReservationID    uint64  `json:"reservation_id"`
	ConfirmationCode *string `json:"confirmation_code,omitempty"`
	RoomNumber       string  `json:"room_number"`
	CheckIn          string  `json:"check_in"`
	CheckOut         string  `json:"check_out"`
	Nights           int     `json:"nights"`
	NightlyRateCents int64   `json:"nightly_rate_cents"`
	TotalAmountCents int64   `json:"total_amount_cents"`
	Status           string  `json:"status"`
}

// Create books a room. The endpoint is public: an anonymous visitor books by
// supplying name and email (optionally opting into an account with a
// password), a logged-in guest books under their own identity via the bearer
// token. Room hold, guest resolution and the reservation insert all happen in
// one transaction so a lost race for the room leaves nothing behind.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	checkIn, checkOut, err := parseStayWindow(req.CheckIn, req.CheckOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	authedGuestID, authed := bearerGuestID(c, h.Cfg.JWTSecret)
	if !authed && (strings.TrimSpace(req.GuestName) == "" || req.GuestEmail == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "guest_name and guest_email are required for anonymous bookings"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not start booking"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	room, err := h.Rooms.GetByIDTx(ctx, tx, req.RoomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
	if room.Status == model.RoomMaintenance || room.Status == model.RoomCleaning {
		return c.JSON(http.StatusConflict, echo.Map{"error": "room is out of service"})
	}

	conflict, err := h.Reservations.OverlapExistsTx(ctx, tx, room.ID, checkIn, checkOut)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
	if conflict {
		return c.JSON(http.StatusConflict, echo.Map{"error": "room is not available for the requested dates"})
	}

	var guestID uint64
	if authed {
		guestID = authedGuestID
	} else {
		var hashPtr *string
		if req.Password != "" {
			hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
			}
			hashPtr = &hash
		}
		guestID, err = h.Guests.ResolveForStayTx(ctx, tx, req.GuestName, req.GuestEmail, req.GuestPhone, hashPtr)
		if err != nil {
			if errors.Is(err, repository.ErrAccountExists) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "an account with this email already exists; log in to book"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
		}
	}

	baseRate, multiplier, err := h.Rooms.RateForTx(ctx, tx, room.RoomTypeID, checkIn)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
	total, err := booking.TotalCents(baseRate, multiplier, checkIn, checkOut)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	code, err := utils.NewConfirmationCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
	method := req.PaymentMethod
	if method == "" {
		method = "CARD"
	}

	rec := model.Reservation{
		GuestID:          guestID,
		RoomID:           room.ID,
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		Status:           model.ReservationConfirmed,
		TotalAmountCents: total,
		PaymentStatus:    model.PaymentPaid,
		PaymentMethod:    method,
		ConfirmationCode: code,
		// A booking made by an account holder (logged in, or opting in with a
		// password) is born claimed; only anonymous bookings need the code to
		// attach later.
		IsClaimed: authed || req.Password != "",
	}
	if err := h.Reservations.CreateTx(ctx, tx, &rec); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
	if err := h.Rooms.UpdateStatusTx(ctx, tx, room.ID, model.RoomOccupied); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "booking failed"})
	}
	committed = true

	h.Metrics.ReservationsCreated.WithLabelValues(room.Number).Inc()
	go func() {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pubCancel()
		_ = queue_publisher.PublishReservationEvent(pubCtx, h.Log, queue.ReservationEvent{
			Type:             queue.EventBooked,
			ReservationID:    rec.ID,
			GuestID:          guestID,
			GuestEmail:       req.GuestEmail,
			RoomNumber:       room.Number,
			CheckIn:          checkIn.Format(booking.DateLayout),
			CheckOut:         checkOut.Format(booking.DateLayout),
			TotalAmountCents: total,
			OccurredAt:       time.Now().UTC().Format(time.RFC3339),
		})
	}()

	nights, _ := booking.Nights(checkIn, checkOut)
	resp := createReservationResp{
		ReservationID:    rec.ID,
		RoomNumber:       room.Number,
		CheckIn:          checkIn.Format(booking.DateLayout),
		CheckOut:         checkOut.Format(booking.DateLayout),
		Nights:           nights,
		NightlyRateCents: booking.NightlyRateCents(baseRate, multiplier),
		TotalAmountCents: total,
		Status:           rec.Status,
	}
	// Claimed bookings are reachable through the account; the code is only
	// returned when it is the guest's sole handle on the reservation.
	if !rec.IsClaimed {
		resp.ConfirmationCode = &code
	}
	return c.JSON(http.StatusCreated, resp)
}

// Lookup resolves a reservation from its confirmation code plus the booking
// email, for guests without an account. A code with the wrong email answers
// not-found rather than confirming the code exists.
func (h *ReservationHandler) Lookup(c echo.Context) error {
	code := strings.ToUpper(strings.TrimSpace(c.QueryParam("code")))
	email := c.QueryParam("email")
	if code == "" || email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code and email are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	target, err := h.Reservations.GetByCode(ctx, code)
	if err != nil || repository.NormalizeEmail(email) != repository.NormalizeEmail(target.GuestEmail) {
		if err != nil && !errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
		}
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	}

	detail, err := h.Reservations.GetDetail(ctx, target.Reservation.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	detail.Stage = booking.Stage(time.Now().UTC(), detail.CheckInDate, detail.CheckOutDate)
	return c.JSON(http.StatusOK, detail)
}

// Get returns one reservation. Guests see only their own; staff see any.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	detail, err := h.Reservations.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load reservation"})
	}
	if !isStaff(c) && detail.GuestID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your reservation"})
	}
	detail.Stage = booking.Stage(time.Now().UTC(), detail.CheckInDate, detail.CheckOutDate)
	return c.JSON(http.StatusOK, detail)
}

// ListMine returns the authenticated guest's reservations, newest first,
// each annotated with its derived stage.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	details, err := h.Reservations.ListByGuest(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load reservations"})
	}
	now := time.Now().UTC()
	for i := range details {
		details[i].Stage = booking.Stage(now, details[i].CheckInDate, details[i].CheckOutDate)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": details})
}

type claimReq struct {
	ConfirmationCode string `json:"confirmation_code" validate:"required,len=8"`
	Email            string `json:"email" validate:"required,email"`
}

// Claim attaches a reservation made anonymously to the authenticated guest's
// account. The caller proves knowledge of the confirmation code and the
// booking email; on success the reservation's owner becomes the caller.
// Claiming a reservation already attached to the caller is an idempotent
// success; one attached to another registered account is refused.
func (h *ReservationHandler) Claim(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req claimReq
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
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "claim failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	target, err := h.Reservations.GetByCodeTx(ctx, tx, strings.ToUpper(strings.TrimSpace(req.ConfirmationCode)))
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "claim failed"})
	}
	if repository.NormalizeEmail(req.Email) != repository.NormalizeEmail(target.GuestEmail) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "email does not match this reservation"})
	}

	switch {
	case target.Reservation.GuestID == uid:
		// Already ours; make sure the claimed flag is set and succeed.
		if !target.Reservation.IsClaimed {
			if err := h.Reservations.SetClaimedTx(ctx, tx, target.Reservation.ID); err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "claim failed"})
			}
		}
	case target.GuestRegistered:
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation already belongs to another account"})
	default:
		if err := h.Reservations.ReassignGuestTx(ctx, tx, target.Reservation.ID, uid); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "claim failed"})
		}
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "claim failed"})
	}
	committed = true

	h.Metrics.ReservationsClaimed.Inc()
	return c.JSON(http.StatusOK, echo.Map{
		"message":        "reservation claimed",
		"reservation_id": target.Reservation.ID,
	})
}

// Bill itemizes a reservation: room charge, service charges and the grand
// total. The stored total already includes service charges, so the room
// portion is the total minus the charge lines.
func (h *ReservationHandler) Bill(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Reservations.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load bill"})
	}
	if !isStaff(c) && rec.GuestID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your reservation"})
	}

	charges, err := h.Charges.ListByReservation(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load bill"})
	}

	var chargeTotal int64
	for _, ch := range charges {
		chargeTotal += ch.AmountCents
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id":    rec.ID,
		"room_cents":        rec.TotalAmountCents - chargeTotal,
		"service_charges":   charges,
		"grand_total_cents": rec.TotalAmountCents,
		"payment_status":    rec.PaymentStatus,
		"payment_method":    rec.PaymentMethod,
	})
}
