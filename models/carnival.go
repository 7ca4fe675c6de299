package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Carnival представляет спортивный карнавал: внесённый вручную или импортированный из внешнего фида.
type Carnival struct {
	ID       int        `json:"id" db:"id"`
	Title    string     `json:"title" db:"title"`
	Date     time.Time  `json:"date" db:"date"`
	Location *string    `json:"location,omitempty" db:"location"`
	State    *string    `json:"state,omitempty" db:"state"`
	IsActive bool       `json:"is_active" db:"is_active"`
	EndDate  *time.Time `json:"end_date,omitempty" db:"end_date"`

	// Provenance
	IsManuallyEntered     bool       `json:"is_manually_entered" db:"is_manually_entered"`
	ExternalImportID      *string    `json:"external_import_id,omitempty" db:"external_import_id"`
	ExternalSyncTimestamp *time.Time `json:"external_sync_timestamp,omitempty" db:"external_sync_timestamp"`

	// Ownership
	HostClubID  *int       `json:"host_club_id,omitempty" db:"host_club_id"`
	OwnerUserID *int       `json:"owner_user_id,omitempty" db:"owner_user_id"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty" db:"claimed_at"`

	// Outward-facing contact, overwritten on claim and cleared on release.
	OrganiserContactName         *string `json:"organiser_contact_name,omitempty" db:"organiser_contact_name"`
	OrganiserContactEmail        *string `json:"organiser_contact_email,omitempty" db:"organiser_contact_email"`
	OrganiserContactPhone        *string `json:"organiser_contact_phone,omitempty" db:"organiser_contact_phone"`
	OriginalExternalContactEmail *string `json:"-" db:"original_external_contact_email"`

	TeamRegistrationFee decimal.Decimal `json:"team_registration_fee" db:"team_registration_fee"`
	PerPlayerFee        decimal.Decimal `json:"per_player_fee" db:"per_player_fee"`

	MaxTeams             *int       `json:"max_teams,omitempty" db:"max_teams"`
	CurrentRegistrations int        `json:"current_registrations" db:"current_registrations"`
	IsRegistrationOpen   bool       `json:"is_registration_open" db:"is_registration_open"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty" db:"registration_deadline"`

	PromoImageKey *string `json:"-" db:"promo_image_key"`
	PromoImageURL *string `json:"promo_image_url,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	HostClub *Club `json:"host_club,omitempty" db:"-"`
}

// HasExternalProvenance reports whether the record came from the external event feed.
func (c *Carnival) HasExternalProvenance() bool {
	return c.ExternalSyncTimestamp != nil
}

// IsHostedBy reports whether clubID is the carnival's current host club.
func (c *Carnival) IsHostedBy(clubID int) bool {
	return c.HostClubID != nil && *c.HostClubID == clubID
}

// RegistrationClosed reports whether self-service registration is closed at the given moment.
func (c *Carnival) RegistrationClosed(now time.Time) bool {
	if !c.IsRegistrationOpen {
		return true
	}
	return c.RegistrationDeadline != nil && now.After(*c.RegistrationDeadline)
}

// ClearContact resets the outward-facing contact fields.
func (c *Carnival) ClearContact() {
	c.OrganiserContactName = nil
	c.OrganiserContactEmail = nil
	c.OrganiserContactPhone = nil
}

// SetContactFromUser overwrites the outward-facing contact with the user's identity.
func (c *Carnival) SetContactFromUser(u *User) {
	name := u.FullName()
	email := u.Email
	c.OrganiserContactName = &name
	c.OrganiserContactEmail = &email
	if u.Phone != nil {
		phone := *u.Phone
		c.OrganiserContactPhone = &phone
	} else {
		c.OrganiserContactPhone = nil
	}
}
