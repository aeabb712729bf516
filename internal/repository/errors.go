// Package repository implements the data-access layer over database/sql.
// Sentinel errors defined here let handlers translate failure scenarios into
// HTTP codes with errors.Is instead of inspecting driver errors.
package repository

import "errors"

// ErrRoomNotFound is returned when a room id does not exist.
var ErrRoomNotFound = errors.New("room not found")

// ErrReservationNotFound is returned when a reservation id or confirmation
// code does not resolve to a row.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrGuestNotFound is returned when a guest id or email has no row.
var ErrGuestNotFound = errors.New("guest not found")

// ErrServiceNotFound is returned when a service catalogue id does not exist.
var ErrServiceNotFound = errors.New("service not found")

// ErrAccountExists is returned when registration targets an email whose guest
// row already carries credentials. Handlers translate it into HTTP 409.
var ErrAccountExists = errors.New("account already exists")

// ErrNoPendingRequest is returned by approve/reject when a reservation has no
// pending change request.
var ErrNoPendingRequest = errors.New("no pending change request")
