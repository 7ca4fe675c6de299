package services

import (
	"context"
	"testing"

	"github.com/Dosada05/carnival-system/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoster_FeeFollowsConfirmedPlayers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res := f.registrations.Register(ctx, carnivalManual, clubVisitors, details(1, 10), userVisitorsPrim, ModeSelfService)
	require.True(t, res.Success, res.Message)
	regID := res.Registration.ID
	fee := func() decimal.Decimal { return f.store.registration(regID).PaymentAmount }
	require.True(t, decimal.NewFromInt(150).Equal(fee()))

	added := f.registrations.AssignPlayer(ctx, regID, playerVisitorsOne, models.AttendanceConfirmed, userVisitorsPrim)
	require.True(t, added.Success, added.Message)
	assert.True(t, decimal.NewFromInt(60).Equal(fee()), "roster replaces the estimate, got %s", fee())

	pending := f.registrations.AssignPlayer(ctx, regID, playerVisitorsTwo, "", userVisitorsPrim)
	require.True(t, pending.Success, pending.Message)
	assert.Equal(t, models.AttendancePending, pending.Assignment.AttendanceStatus)
	assert.True(t, decimal.NewFromInt(60).Equal(fee()))

	confirmed := f.registrations.SetPlayerAttendance(ctx, pending.Assignment.ID, models.AttendanceConfirmed, userVisitorsPrim)
	require.True(t, confirmed.Success, confirmed.Message)
	assert.True(t, decimal.NewFromInt(70).Equal(fee()))

	declined := f.registrations.SetPlayerAttendance(ctx, added.Assignment.ID, models.AttendanceDeclined, userHostPrimary)
	require.True(t, declined.Success, declined.Message)
	assert.True(t, decimal.NewFromInt(60).Equal(fee()))

	removed := f.registrations.RemovePlayer(ctx, added.Assignment.ID, userVisitorsPrim)
	require.True(t, removed.Success, removed.Message)
	assert.True(t, decimal.NewFromInt(60).Equal(fee()), "removing a declined player leaves the fee alone")

	removed = f.registrations.RemovePlayer(ctx, pending.Assignment.ID, userVisitorsPrim)
	require.True(t, removed.Success, removed.Message)
	assert.True(t, decimal.NewFromInt(50).Equal(fee()))

	list, err := f.registrations.ListAssignments(ctx, regID)
	require.NoError(t, err)
	assert.Empty(t, list)

	again := f.registrations.RemovePlayer(ctx, pending.Assignment.ID, userVisitorsPrim)
	assert.ErrorIs(t, again.Err, ErrAssignmentInactive)

	for _, evt := range f.events.types()[1:] {
		assert.Equal(t, EventRosterChanged, evt)
	}
}

func TestAssignPlayer_Failures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res := f.registrations.Register(ctx, carnivalManual, clubVisitors, details(1, 0), userVisitorsPrim, ModeSelfService)
	require.True(t, res.Success, res.Message)
	regID := res.Registration.ID

	other := f.registrations.AssignPlayer(ctx, regID, playerNorthern, models.AttendanceConfirmed, userVisitorsPrim)
	assert.ErrorIs(t, other.Err, ErrPlayerNotInClub)
	assert.Equal(t, KindValidation, other.Kind)

	missing := f.registrations.AssignPlayer(ctx, regID, 9999, models.AttendanceConfirmed, userVisitorsPrim)
	assert.ErrorIs(t, missing.Err, ErrPlayerNotFound)

	bad := f.registrations.AssignPlayer(ctx, regID, playerVisitorsOne, "maybe", userVisitorsPrim)
	assert.ErrorIs(t, bad.Err, ErrInvalidAttendanceStatus)

	outsider := f.registrations.AssignPlayer(ctx, regID, playerVisitorsOne, models.AttendanceConfirmed, userNorthernPrim)
	assert.ErrorIs(t, outsider.Err, ErrNotClubDelegate)

	require.True(t, f.registrations.AssignPlayer(ctx, regID, playerVisitorsOne, models.AttendanceConfirmed, userVisitorsPrim).Success)
	dup := f.registrations.AssignPlayer(ctx, regID, playerVisitorsOne, models.AttendancePending, userVisitorsPrim)
	assert.ErrorIs(t, dup.Err, ErrAssignmentConflict)
	assert.Equal(t, KindInvalidState, dup.Kind)
}

func TestSetPlayerAttendance_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res := f.registrations.SetPlayerAttendance(ctx, 1, "", userVisitorsPrim)
	assert.ErrorIs(t, res.Err, ErrInvalidAttendanceStatus)

	res = f.registrations.SetPlayerAttendance(ctx, 4242, models.AttendanceConfirmed, userVisitorsPrim)
	assert.ErrorIs(t, res.Err, ErrAssignmentNotFound)
	assert.Equal(t, KindNotFound, res.Kind)
}

func TestRoster_HostRegistrationStaysFree(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.addPlayer(models.ClubPlayer{ID: 101, ClubID: clubHost, FirstName: "Hal", LastName: "Host"})

	res := f.registrations.Register(ctx, carnivalManual, clubHost, details(2, 0), userHostPrimary, ModeOrganizerAdds)
	require.True(t, res.Success, res.Message)

	added := f.registrations.AssignPlayer(ctx, res.Registration.ID, 101, models.AttendanceConfirmed, userHostDelegate)
	require.True(t, added.Success, added.Message)
	stored := f.store.registration(res.Registration.ID)
	assert.True(t, stored.PaymentAmount.IsZero())
	assert.True(t, stored.IsPaid)
}
