package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"innkeeper/internal/booking"
	"innkeeper/internal/database"
	"innkeeper/internal/model"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	seed := []string{
		`INSERT INTO room_types (name, base_rate_cents) VALUES ('Standard', 12000), ('Suite', 35000)`,
		`INSERT INTO seasonal_rates (room_type_id, start_date, end_date, multiplier)
		 VALUES (1, '2026-06-01', '2026-08-31', 1.5)`,
		`INSERT INTO rooms (room_type_id, number, floor) VALUES (1, '101', 1), (1, '102', 1), (2, '301', 3)`,
		`INSERT INTO services (name, price_cents) VALUES ('Laundry', 1000), ('Minibar', 2500)`,
		`INSERT INTO staff (name, email, password_hash) VALUES ('Desk', 'desk@example.com', 'x')`,
	}
	for _, q := range seed {
		_, err := db.Exec(q)
		require.NoError(t, err)
	}
	return db
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(booking.DateLayout, s)
	require.NoError(t, err)
	return d
}

// book inserts a CONFIRMED reservation directly through the repositories,
// the same way the booking handler does.
func book(t *testing.T, db *sql.DB, guestID, roomID uint64, in, out string) model.Reservation {
	t.Helper()
	repo := NewReservationRepo(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	rec := model.Reservation{
		GuestID:          guestID,
		RoomID:           roomID,
		CheckIn:          date(t, in),
		CheckOut:         date(t, out),
		Status:           model.ReservationConfirmed,
		TotalAmountCents: 36000,
		PaymentStatus:    model.PaymentPaid,
		PaymentMethod:    "CARD",
		ConfirmationCode: "CODE" + in[5:7] + in[8:10] + string(rune('A'+roomID)),
		IsClaimed:        false,
	}
	require.NoError(t, repo.CreateTx(context.Background(), tx, &rec))
	require.NoError(t, tx.Commit())
	return rec
}

func anonGuest(t *testing.T, db *sql.DB, name, email string) uint64 {
	t.Helper()
	repo := NewGuestRepo(db)
	tx, err := db.Begin()
	require.NoError(t, err)
	id, err := repo.CreateTx(context.Background(), tx, name, email, "", nil, false)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return id
}

func TestListAvailable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	rooms := NewRoomRepo(db)

	gid := anonGuest(t, db, "Ada", "ada@example.com")
	book(t, db, gid, 1, "2026-07-10", "2026-07-13")

	t.Run("OverlapExcludesBookedRoom", func(t *testing.T) {
		got, err := rooms.ListAvailable(ctx, date(t, "2026-07-11"), date(t, "2026-07-12"))
		require.NoError(t, err)
		nums := roomNumbers(got)
		assert.NotContains(t, nums, "101")
		assert.Contains(t, nums, "102")
		assert.Contains(t, nums, "301")
	})

	t.Run("DisjointWindowIncludesBookedRoom", func(t *testing.T) {
		got, err := rooms.ListAvailable(ctx, date(t, "2026-07-20"), date(t, "2026-07-22"))
		require.NoError(t, err)
		assert.Contains(t, roomNumbers(got), "101")
	})

	t.Run("BoundaryDayIsFree", func(t *testing.T) {
		// New check-in on the existing check-out day.
		got, err := rooms.ListAvailable(ctx, date(t, "2026-07-13"), date(t, "2026-07-15"))
		require.NoError(t, err)
		assert.Contains(t, roomNumbers(got), "101")

		// New check-out on the existing check-in day.
		got, err = rooms.ListAvailable(ctx, date(t, "2026-07-08"), date(t, "2026-07-10"))
		require.NoError(t, err)
		assert.Contains(t, roomNumbers(got), "101")
	})

	t.Run("SeasonalMultiplierApplied", func(t *testing.T) {
		got, err := rooms.ListAvailable(ctx, date(t, "2026-07-20"), date(t, "2026-07-22"))
		require.NoError(t, err)
		for _, r := range got {
			if r.Number == "102" {
				assert.Equal(t, int64(18000), r.NightlyRateCents)
			}
			if r.Number == "301" {
				// No seasonal rate configured for suites.
				assert.Equal(t, int64(35000), r.NightlyRateCents)
			}
		}
	})

	t.Run("BaseRateOutOfSeason", func(t *testing.T) {
		got, err := rooms.ListAvailable(ctx, date(t, "2026-03-01"), date(t, "2026-03-03"))
		require.NoError(t, err)
		for _, r := range got {
			if r.Number == "102" {
				assert.Equal(t, int64(12000), r.NightlyRateCents)
			}
		}
	})

	t.Run("MaintenanceRoomHidden", func(t *testing.T) {
		require.NoError(t, rooms.UpdateStatus(ctx, 2, model.RoomMaintenance))
		got, err := rooms.ListAvailable(ctx, date(t, "2026-09-01"), date(t, "2026-09-03"))
		require.NoError(t, err)
		assert.NotContains(t, roomNumbers(got), "102")
		require.NoError(t, rooms.UpdateStatus(ctx, 2, model.RoomAvailable))
	})

	t.Run("OccupiedStatusDoesNotHideRoom", func(t *testing.T) {
		// Housekeeping status never drives date availability.
		require.NoError(t, rooms.UpdateStatus(ctx, 1, model.RoomOccupied))
		got, err := rooms.ListAvailable(ctx, date(t, "2026-09-01"), date(t, "2026-09-03"))
		require.NoError(t, err)
		assert.Contains(t, roomNumbers(got), "101")
	})
}

func roomNumbers(rooms []AvailableRoom) []string {
	out := make([]string, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Number)
	}
	return out
}

func TestOverlapExistsTx(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewReservationRepo(db)

	gid := anonGuest(t, db, "Ada", "ada@example.com")
	book(t, db, gid, 1, "2026-07-10", "2026-07-13")

	check := func(in, out string) bool {
		tx, err := db.Begin()
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()
		conflict, err := repo.OverlapExistsTx(ctx, tx, 1, date(t, in), date(t, out))
		require.NoError(t, err)
		return conflict
	}

	assert.True(t, check("2026-07-11", "2026-07-12"))
	assert.True(t, check("2026-07-09", "2026-07-11"))
	assert.True(t, check("2026-07-12", "2026-07-15"))
	assert.False(t, check("2026-07-13", "2026-07-15"))
	assert.False(t, check("2026-07-08", "2026-07-10"))
	assert.False(t, check("2026-08-01", "2026-08-03"))
}

func TestResolveForStay(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewGuestRepo(db)
	hash := "bcrypt-hash"

	resolve := func(email string, withCreds bool) (uint64, error) {
		tx, err := db.Begin()
		require.NoError(t, err)
		var hp *string
		if withCreds {
			hp = &hash
		}
		id, err := repo.ResolveForStayTx(ctx, tx, "Guest", email, "555", hp)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		require.NoError(t, tx.Commit())
		return id, nil
	}

	t.Run("UnknownEmailCreatesRow", func(t *testing.T) {
		id, err := resolve("new@example.com", false)
		require.NoError(t, err)
		g, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, g.IsAccountCreated)
		assert.Nil(t, g.PasswordHash)
	})

	t.Run("AnonymousRowReused", func(t *testing.T) {
		first, err := resolve("repeat@example.com", false)
		require.NoError(t, err)
		second, err := resolve("repeat@example.com", false)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("AnonymousRowUpgradedWithCredentials", func(t *testing.T) {
		id, err := resolve("walkin@example.com", false)
		require.NoError(t, err)
		upgraded, err := resolve("walkin@example.com", true)
		require.NoError(t, err)
		assert.Equal(t, id, upgraded)

		g, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.True(t, g.IsAccountCreated)
		require.NotNil(t, g.PasswordHash)
		assert.Equal(t, hash, *g.PasswordHash)
	})

	t.Run("RegisteredEmailWithCredentialsRefused", func(t *testing.T) {
		_, err := repo.RegisterAccount(ctx, "Reg", "reg@example.com", "", hash)
		require.NoError(t, err)
		_, err = resolve("reg@example.com", true)
		assert.ErrorIs(t, err, ErrAccountExists)
	})

	t.Run("RegisteredEmailWithoutCredentialsReused", func(t *testing.T) {
		id, err := repo.RegisterAccount(ctx, "Reg2", "reg2@example.com", "", hash)
		require.NoError(t, err)
		got, err := resolve("reg2@example.com", false)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("EmailLookupIsCaseInsensitive", func(t *testing.T) {
		first, err := resolve("Mixed@Example.com", false)
		require.NoError(t, err)
		second, err := resolve("mixed@example.COM", false)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestClaimTargetAndReassign(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewReservationRepo(db)
	guests := NewGuestRepo(db)

	anonID := anonGuest(t, db, "Walkin", "walkin@example.com")
	rec := book(t, db, anonID, 1, "2026-07-10", "2026-07-13")

	ownerID, err := guests.RegisterAccount(ctx, "Owner", "walkin@example.com", "", "h")
	require.NoError(t, err)
	// Same email, same row: the anonymous booking row was upgraded.
	assert.Equal(t, anonID, ownerID)

	tx, err := db.Begin()
	require.NoError(t, err)
	target, err := repo.GetByCodeTx(ctx, tx, rec.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, target.Reservation.ID)
	assert.Equal(t, "walkin@example.com", target.GuestEmail)
	assert.True(t, target.GuestRegistered)
	assert.False(t, target.Reservation.IsClaimed)

	require.NoError(t, repo.SetClaimedTx(ctx, tx, rec.ID))
	require.NoError(t, tx.Commit())

	got, err := repo.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.IsClaimed)

	t.Run("ReassignMovesOwnershipAtomically", func(t *testing.T) {
		otherAnon := anonGuest(t, db, "Other", "other@example.com")
		rec2 := book(t, db, otherAnon, 2, "2026-07-10", "2026-07-13")

		claimer, err := guests.RegisterAccount(ctx, "Claimer", "other2@example.com", "", "h")
		require.NoError(t, err)

		tx, err := db.Begin()
		require.NoError(t, err)
		require.NoError(t, repo.ReassignGuestTx(ctx, tx, rec2.ID, claimer))
		require.NoError(t, tx.Commit())

		got, err := repo.GetRecord(ctx, rec2.ID)
		require.NoError(t, err)
		assert.Equal(t, claimer, got.GuestID)
		assert.True(t, got.IsClaimed)
	})

	t.Run("UnknownCodeNotFound", func(t *testing.T) {
		tx, err := db.Begin()
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()
		_, err = repo.GetByCodeTx(ctx, tx, "NOPE0000")
		assert.ErrorIs(t, err, ErrReservationNotFound)
	})
}

func TestListByGuestClaimedOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewReservationRepo(db)
	guests := NewGuestRepo(db)

	anonID := anonGuest(t, db, "Walkin", "walkin@example.com")
	rec := book(t, db, anonID, 1, "2026-07-10", "2026-07-13")

	// Registering with the booking's email upgrades the guest row in place,
	// but the unclaimed reservation must stay reachable only via its code.
	ownerID, err := guests.RegisterAccount(ctx, "Owner", "walkin@example.com", "", "h")
	require.NoError(t, err)
	require.Equal(t, anonID, ownerID)

	got, err := repo.ListByGuest(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, got)

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.SetClaimedTx(ctx, tx, rec.ID))
	require.NoError(t, tx.Commit())

	got, err = repo.ListByGuest(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
}

func TestRoomStatusUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	rooms := NewRoomRepo(db)

	t.Run("SameValueWriteSucceeds", func(t *testing.T) {
		// Check-in rewrites OCCUPIED over OCCUPIED on an already booked
		// room; the update must not be mistaken for a missing row.
		require.NoError(t, rooms.UpdateStatus(ctx, 1, model.RoomOccupied))
		require.NoError(t, rooms.UpdateStatus(ctx, 1, model.RoomOccupied))

		tx, err := db.Begin()
		require.NoError(t, err)
		require.NoError(t, rooms.UpdateStatusTx(ctx, tx, 1, model.RoomOccupied))
		require.NoError(t, tx.Commit())
	})

	t.Run("UnknownRoomNotFound", func(t *testing.T) {
		assert.ErrorIs(t, rooms.UpdateStatus(ctx, 999, model.RoomCleaning), ErrRoomNotFound)

		tx, err := db.Begin()
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()
		assert.ErrorIs(t, rooms.UpdateStatusTx(ctx, tx, 999, model.RoomCleaning), ErrRoomNotFound)
	})
}

func TestChangeRepo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	changes := NewChangeRepo(db)
	reservations := NewReservationRepo(db)

	gid := anonGuest(t, db, "Ada", "ada@example.com")
	rec := book(t, db, gid, 1, "2026-07-10", "2026-07-13")

	t.Run("NoPendingInitially", func(t *testing.T) {
		_, err := changes.LatestPending(ctx, rec.ID)
		assert.ErrorIs(t, err, ErrNoPendingRequest)
	})

	newIn, newOut := date(t, "2026-07-15"), date(t, "2026-07-18")
	first := model.ReservationChange{
		ReservationID: rec.ID,
		ChangeType:    model.ChangeDateChange,
		OldCheckIn:    rec.CheckIn,
		OldCheckOut:   rec.CheckOut,
		NewCheckIn:    &newIn,
		NewCheckOut:   &newOut,
	}
	require.NoError(t, changes.Create(ctx, &first))

	t.Run("LatestPendingReturnsRequest", func(t *testing.T) {
		got, err := changes.LatestPending(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		require.NotNil(t, got.NewCheckIn)
		assert.Equal(t, "2026-07-15", got.NewCheckIn.Format(booking.DateLayout))
	})

	t.Run("StorePermitsSecondRowNewestWins", func(t *testing.T) {
		// The store does not enforce a single pending row; consumers take
		// the most recent one.
		second := model.ReservationChange{
			ReservationID: rec.ID,
			ChangeType:    model.ChangeCancellation,
			OldCheckIn:    rec.CheckIn,
			OldCheckOut:   rec.CheckOut,
		}
		require.NoError(t, changes.Create(ctx, &second))

		got, err := changes.LatestPending(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
		assert.Equal(t, model.ChangeCancellation, got.ChangeType)
	})

	t.Run("ApprovedDateChangeRewritesWindow", func(t *testing.T) {
		tx, err := db.Begin()
		require.NoError(t, err)
		require.NoError(t, reservations.UpdateDatesTx(ctx, tx, rec.ID, newIn, newOut, 1))
		require.NoError(t, changes.DeleteTx(ctx, tx, first.ID))
		require.NoError(t, tx.Commit())

		got, err := reservations.GetRecord(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "2026-07-15", got.CheckIn.Format(booking.DateLayout))
		assert.Equal(t, "2026-07-18", got.CheckOut.Format(booking.DateLayout))
		require.NotNil(t, got.StaffID)
		assert.Equal(t, uint64(1), *got.StaffID)
	})

	t.Run("CancellationDeletesReservationAndChanges", func(t *testing.T) {
		tx, err := db.Begin()
		require.NoError(t, err)
		roomID, err := reservations.DeleteTx(ctx, tx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.RoomID, roomID)
		require.NoError(t, changes.DeleteByReservationTx(ctx, tx, rec.ID))
		require.NoError(t, tx.Commit())

		_, err = reservations.GetRecord(ctx, rec.ID)
		assert.ErrorIs(t, err, ErrReservationNotFound)
		_, err = changes.LatestPending(ctx, rec.ID)
		assert.ErrorIs(t, err, ErrNoPendingRequest)
	})
}

func TestTokenRepo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewTokenRepo(db)

	hash := "a-token-hash"
	require.NoError(t, repo.StoreRefresh(ctx, model.RoleGuest, 7, hash, time.Now().UTC().Add(time.Hour)))

	subjectType, subjectID, err := repo.ValidateRefresh(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, model.RoleGuest, subjectType)
	assert.Equal(t, uint64(7), subjectID)

	t.Run("RevokedTokenRejected", func(t *testing.T) {
		require.NoError(t, repo.RevokeByHash(ctx, hash))
		_, _, err := repo.ValidateRefresh(ctx, hash)
		assert.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("ExpiredTokenRejected", func(t *testing.T) {
		old := "expired-hash"
		require.NoError(t, repo.StoreRefresh(ctx, model.RoleGuest, 7, old, time.Now().UTC().Add(-time.Minute)))
		_, _, err := repo.ValidateRefresh(ctx, old)
		assert.ErrorIs(t, err, ErrInvalidRefresh)
	})

	t.Run("RevokeAllFor", func(t *testing.T) {
		h1, h2 := "hash-one", "hash-two"
		require.NoError(t, repo.StoreRefresh(ctx, model.RoleStaff, 3, h1, time.Now().UTC().Add(time.Hour)))
		require.NoError(t, repo.StoreRefresh(ctx, model.RoleStaff, 3, h2, time.Now().UTC().Add(time.Hour)))
		require.NoError(t, repo.RevokeAllFor(ctx, model.RoleStaff, 3))
		_, _, err := repo.ValidateRefresh(ctx, h1)
		assert.ErrorIs(t, err, ErrInvalidRefresh)
		_, _, err = repo.ValidateRefresh(ctx, h2)
		assert.ErrorIs(t, err, ErrInvalidRefresh)
	})
}

func TestChargesAndStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	reservations := NewReservationRepo(db)
	charges := NewChargeRepo(db)

	gid := anonGuest(t, db, "Ada", "ada@example.com")
	rec := book(t, db, gid, 1, "2026-07-10", "2026-07-13")

	tx, err := db.Begin()
	require.NoError(t, err)
	svc, err := charges.GetServiceTx(ctx, tx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Laundry", svc.Name)

	charge := model.ServiceCharge{
		ReservationID: rec.ID,
		ServiceID:     svc.ID,
		Quantity:      3,
		AmountCents:   3 * svc.PriceCents,
	}
	require.NoError(t, charges.AddTx(ctx, tx, &charge))
	require.NoError(t, reservations.AddToTotalTx(ctx, tx, rec.ID, charge.AmountCents))
	require.NoError(t, tx.Commit())

	lines, err := charges.ListByReservation(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(3000), lines[0].AmountCents)

	got, err := reservations.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.TotalAmountCents+3000, got.TotalAmountCents)

	t.Run("UnknownServiceNotFound", func(t *testing.T) {
		tx, err := db.Begin()
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()
		_, err = charges.GetServiceTx(ctx, tx, 999)
		assert.ErrorIs(t, err, ErrServiceNotFound)
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := reservations.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Confirmed)
		assert.Equal(t, int64(0), stats.CheckedIn)
		assert.Equal(t, rec.TotalAmountCents+3000, stats.TotalRevenueCents)
		assert.Equal(t, int64(0), stats.PendingChanges)
	})
}
