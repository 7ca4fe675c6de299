package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/carnival-system/models"
	"github.com/Dosada05/carnival-system/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateManual(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c, err := f.carnivals.CreateManual(ctx, userHostDelegate, CreateCarnivalInput{
		Title:               "  Hawks Winter Cup ",
		Date:                fixedNow.AddDate(0, 2, 0),
		State:               strPtr("NSW"),
		TeamRegistrationFee: decimal.RequireFromString("45.555"),
		PerPlayerFee:        decimal.NewFromInt(5),
		IsRegistrationOpen:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hawks Winter Cup", c.Title)
	assert.True(t, c.IsManuallyEntered)
	assert.True(t, c.IsActive)
	assert.Equal(t, userHostDelegate, *c.OwnerUserID)
	assert.Equal(t, clubHost, *c.HostClubID)
	assert.True(t, c.ClaimedAt.Equal(fixedNow))
	assert.Equal(t, "hugo@hawks.example", *c.OrganiserContactEmail)
	assert.True(t, decimal.RequireFromString("45.56").Equal(c.TeamRegistrationFee))

	// A manual carnival never enters the claim workflow.
	res := f.ownership.Claim(ctx, c.ID, userVisitorsPrim)
	assert.ErrorIs(t, res.Err, ErrCarnivalManuallyEntered)
}

func TestCreateManual_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.carnivals.CreateManual(ctx, userHostPrimary, CreateCarnivalInput{Title: " "})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = f.carnivals.CreateManual(ctx, userHostPrimary, CreateCarnivalInput{Title: "Cup", PerPlayerFee: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrInvalidFees)

	_, err = f.carnivals.CreateManual(ctx, userHostPrimary, CreateCarnivalInput{Title: "Cup", MaxTeams: intPtr(0)})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.carnivals.CreateManual(ctx, userInactive, CreateCarnivalInput{Title: "Cup"})
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestUpsertImported(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	rec := ImportedCarnival{
		ExternalID:   "feed-900",
		Title:        "Inland Carnival",
		Date:         fixedNow.AddDate(0, 3, 0),
		State:        strPtr("NSW"),
		ContactEmail: strPtr("inland@example.org"),
	}
	c, created, err := f.carnivals.UpsertImported(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, c.IsManuallyEntered)
	require.NotNil(t, c.ExternalSyncTimestamp)
	assert.True(t, c.ExternalSyncTimestamp.Equal(fixedNow))
	assert.IsType(t, models.Unowned{}, c.Ownership())

	rec.Title = "Inland Carnival (rescheduled)"
	rec.ContactEmail = strPtr("new-contact@example.org")
	updated, created, err := f.carnivals.UpsertImported(ctx, rec)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, c.ID, updated.ID)
	stored := f.store.carnival(c.ID)
	assert.Equal(t, "Inland Carnival (rescheduled)", stored.Title)
	assert.Equal(t, "new-contact@example.org", *stored.OrganiserContactEmail)

	_, _, err = f.carnivals.UpsertImported(ctx, ImportedCarnival{Title: "No id"})
	assert.ErrorIs(t, err, ErrImportMissingID)
	_, _, err = f.carnivals.UpsertImported(ctx, ImportedCarnival{ExternalID: "feed-901"})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestUpsertImported_KeepsOwnerContactAfterClaim(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.True(t, f.ownership.Claim(ctx, carnivalImported, userHostPrimary).Success)

	_, created, err := f.carnivals.UpsertImported(ctx, ImportedCarnival{
		ExternalID:   "feed-100",
		Title:        "Coastal Carnival 2026",
		Date:         fixedNow.AddDate(0, 1, 0),
		State:        strPtr("NSW"),
		ContactEmail: strPtr("feed-updated@example.org"),
	})
	require.NoError(t, err)
	assert.False(t, created)

	stored := f.store.carnival(carnivalImported)
	assert.Equal(t, "Coastal Carnival 2026", stored.Title)
	assert.Equal(t, "hana@hawks.example", *stored.OrganiserContactEmail)
	assert.Equal(t, clubHost, *stored.HostClubID)
}

func TestList_ClaimableFilter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	all, err := f.carnivals.List(ctx, repositories.ListCarnivalsFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	claimable, err := f.carnivals.List(ctx, repositories.ListCarnivalsFilter{ActiveOnly: true, Claimable: true})
	require.NoError(t, err)
	assert.Len(t, claimable, 2)

	require.True(t, f.ownership.Claim(ctx, carnivalLimited, userVisitorsPrim).Success)
	claimable, err = f.carnivals.List(ctx, repositories.ListCarnivalsFilter{ActiveOnly: true, Claimable: true})
	require.NoError(t, err)
	require.Len(t, claimable, 1)
	assert.Equal(t, carnivalImported, claimable[0].ID)
}

func TestGetOverview(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.True(t, f.registrations.Register(ctx, carnivalManual, clubVisitors, details(1, 0), userHostPrimary, ModeOrganizerAdds).Success)

	overview, err := f.carnivals.GetOverview(ctx, carnivalManual)
	require.NoError(t, err)
	assert.Equal(t, "claimed", overview.Ownership)
	require.NotNil(t, overview.HostClub)
	assert.Equal(t, "Harbour Hawks", overview.HostClub.Name)
	assert.Len(t, overview.Registrations, 1)

	overview, err = f.carnivals.GetOverview(ctx, carnivalImported)
	require.NoError(t, err)
	assert.Equal(t, "unowned", overview.Ownership)
	assert.Nil(t, overview.HostClub)
	assert.Empty(t, overview.Registrations)

	_, err = f.carnivals.GetOverview(ctx, 999)
	assert.ErrorIs(t, err, ErrCarnivalNotFound)
}

func TestUpdateFees_RecalculatesActiveRegistrations(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	visitors := f.registrations.Register(ctx, carnivalManual, clubVisitors, details(2, 15), userHostPrimary, ModeOrganizerAdds)
	require.True(t, visitors.Success, visitors.Message)
	host := f.registrations.Register(ctx, carnivalManual, clubHost, details(1, 10), userHostPrimary, ModeOrganizerAdds)
	require.True(t, host.Success, host.Message)

	c, changed, err := f.carnivals.UpdateFees(ctx, carnivalManual, userHostPrimary, UpdateFeesInput{
		TeamRegistrationFee: decimal.NewFromInt(60),
		PerPlayerFee:        decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.True(t, decimal.NewFromInt(60).Equal(c.TeamRegistrationFee))
	assert.True(t, decimal.NewFromInt(120).Equal(f.store.registration(visitors.Registration.ID).PaymentAmount))
	assert.True(t, f.store.registration(host.Registration.ID).PaymentAmount.IsZero())
	assert.Contains(t, f.events.types(), EventFeesChanged)

	_, _, err = f.carnivals.UpdateFees(ctx, carnivalManual, userVisitorsPrim, UpdateFeesInput{})
	assert.ErrorIs(t, err, ErrNotOrganizer)

	_, _, err = f.carnivals.UpdateFees(ctx, carnivalManual, userHostPrimary, UpdateFeesInput{TeamRegistrationFee: decimal.NewFromInt(-5)})
	assert.ErrorIs(t, err, ErrInvalidFees)
}

func TestDeactivate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	assert.ErrorIs(t, f.carnivals.Deactivate(ctx, carnivalManual, userVisitorsPrim), ErrNotOrganizer)
	require.NoError(t, f.carnivals.Deactivate(ctx, carnivalManual, userHostPrimary))
	require.NoError(t, f.carnivals.Deactivate(ctx, carnivalManual, userHostPrimary))
	assert.False(t, f.store.carnival(carnivalManual).IsActive)

	res := f.registrations.Register(ctx, carnivalManual, clubVisitors, details(1, 0), userHostPrimary, ModeOrganizerAdds)
	assert.ErrorIs(t, res.Err, ErrCarnivalInactive)
}

func TestUploadPromoImage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c, err := f.carnivals.UploadPromoImage(ctx, carnivalManual, userHostPrimary, "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	require.NotNil(t, c.PromoImageKey)
	firstKey := *c.PromoImageKey
	assert.True(t, strings.HasPrefix(firstKey, "carnivals/101/promo/"))
	assert.True(t, strings.HasSuffix(firstKey, ".png"))
	require.NotNil(t, c.PromoImageURL)
	assert.Equal(t, "https://cdn.example.org/"+firstKey, *c.PromoImageURL)

	c, err = f.carnivals.UploadPromoImage(ctx, carnivalManual, userHostPrimary, "image/jpeg", strings.NewReader("jpg"))
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, *c.PromoImageKey)
	assert.Equal(t, []string{firstKey}, f.uploader.deleted)

	_, err = f.carnivals.UploadPromoImage(ctx, carnivalManual, userHostPrimary, "application/pdf", strings.NewReader("pdf"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = f.carnivals.UploadPromoImage(ctx, carnivalManual, userVisitorsPrim, "image/png", strings.NewReader("png"))
	assert.ErrorIs(t, err, ErrNotOrganizer)
}

func TestUploadPromoImage_StorageDisabled(t *testing.T) {
	s := newMemStore()
	svc := NewCarnivalService(s, memCarnivalRepo{s}, memRegistrationRepo{s}, memAssignmentRepo{s}, memUserRepo{s}, memClubRepo{s},
		nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.UploadPromoImage(context.Background(), 1, 1, "image/png", strings.NewReader("png"))
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestReconcileCounters(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.True(t, f.registrations.Register(ctx, carnivalManual, clubVisitors, details(1, 0), userHostPrimary, ModeOrganizerAdds).Success)
	f.store.carnivals[carnivalImported].CurrentRegistrations = 4
	f.store.carnivals[carnivalManual].CurrentRegistrations = 0

	repaired, err := f.carnivals.ReconcileCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repaired)
	assert.Equal(t, 0, f.store.carnival(carnivalImported).CurrentRegistrations)
	assert.Equal(t, 1, f.store.carnival(carnivalManual).CurrentRegistrations)

	repaired, err = f.carnivals.ReconcileCounters(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestReconcileCounters_StopsOnCancelledContext(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := f.carnivals.ReconcileCounters(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
