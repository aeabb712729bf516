package model

import "time"

// Reservation statuses persisted in the store. CANCELLED never appears on a
// live row: cancellation approval deletes the reservation outright. Display
// labels such as UPCOMING or COMPLETED are derived from the dates and an
// explicit "now" (see booking.Stage) and are never persisted.
const (
	ReservationConfirmed = "CONFIRMED"
	ReservationCheckedIn = "CHECKED_IN"
)

// No payment gateway exists; bookings are recorded PAID at creation and the
// field is a flag only.
const PaymentPaid = "PAID"

// Change request types and statuses. A change row is resolved by deletion:
// approval applies it and deletes it, rejection deletes it without touching
// the reservation. No rejection history is retained.
const (
	ChangeDateChange   = "DATE_CHANGE"
	ChangeCancellation = "CANCELLATION"
	ChangePending      = "PENDING"
)

// Reservation mirrors the reservations table. ConfirmationCode is the only
// externally shareable, unauthenticated lookup key; IsClaimed marks whether
// the reservation is bound to a guest account the guest can authenticate as.
type Reservation struct {
	ID               uint64    // reservations.id
	GuestID          uint64    // reservations.guest_id
	RoomID           uint64    // reservations.room_id
	StaffID          *uint64   // reservations.staff_id (nullable; creator/approver)
	CheckIn          time.Time // reservations.check_in (date)
	CheckOut         time.Time // reservations.check_out (date)
	Status           string    // reservations.status
	TotalAmountCents int64     // reservations.total_amount_cents
	PaymentStatus    string    // reservations.payment_status
	PaymentMethod    string    // reservations.payment_method
	ConfirmationCode string    // reservations.confirmation_code (unique)
	IsClaimed        bool      // reservations.is_claimed
	CreatedAt        time.Time // reservations.created_at
	UpdatedAt        time.Time // reservations.updated_at
}

// ReservationChange mirrors the reservation_changes table. At most one
// PENDING row per reservation is the design intent; the store does not
// enforce it, so consumers always operate on the most recent pending row.
type ReservationChange struct {
	ID            uint64     // reservation_changes.id
	ReservationID uint64     // reservation_changes.reservation_id
	StaffID       *uint64    // reservation_changes.staff_id (nullable; approver)
	ChangeType    string     // reservation_changes.change_type
	OldCheckIn    time.Time  // reservation_changes.old_check_in
	OldCheckOut   time.Time  // reservation_changes.old_check_out
	NewCheckIn    *time.Time // reservation_changes.new_check_in (DATE_CHANGE only)
	NewCheckOut   *time.Time // reservation_changes.new_check_out (DATE_CHANGE only)
	Status        string     // reservation_changes.status
	CreatedAt     time.Time  // reservation_changes.created_at
}

// ServiceCharge is an additive line item against a reservation's total.
type ServiceCharge struct {
	ID            uint64    // service_charges.id
	ReservationID uint64    // service_charges.reservation_id
	ServiceID     uint64    // service_charges.service_id
	Quantity      int       // service_charges.quantity
	AmountCents   int64     // service_charges.amount_cents
	ChargedAt     time.Time // service_charges.charged_at
}
