// Package queue defines the message payloads exchanged over the broker and
// the background consumer that records them.
package queue

// Event types published to the reservation.events queue.
const (
	EventBooked    = "reservation.booked"
	EventCancelled = "reservation.cancelled"
)

// ReservationEvent is published when a reservation is booked or a
// cancellation is approved. It carries enough context for downstream
// consumers (notification, analytics) to act without querying the primary
// database.
type ReservationEvent struct {
	Type             string `json:"type"`
	ReservationID    uint64 `json:"reservation_id"`
	GuestID          uint64 `json:"guest_id"`
	GuestEmail       string `json:"guest_email"`
	RoomNumber       string `json:"room_number"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	OccurredAt       string `json:"occurred_at"`
}
