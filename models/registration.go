package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalStatus хранится в БД как одна из трёх строк.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// AttendanceRegistration is one club's intent to attend one carnival.
type AttendanceRegistration struct {
	ID         int `json:"id" db:"id"`
	CarnivalID int `json:"carnival_id" db:"carnival_id"`
	ClubID     int `json:"club_id" db:"club_id"`

	NumberOfTeams       int     `json:"number_of_teams" db:"number_of_teams"`
	PlayerCount         *int    `json:"player_count,omitempty" db:"player_count"`
	ContactPerson       *string `json:"contact_person,omitempty" db:"contact_person"`
	ContactEmail        *string `json:"contact_email,omitempty" db:"contact_email"`
	ContactPhone        *string `json:"contact_phone,omitempty" db:"contact_phone"`
	Notes               *string `json:"notes,omitempty" db:"notes"`
	SpecialRequirements *string `json:"special_requirements,omitempty" db:"special_requirements"`

	PaymentAmount decimal.Decimal `json:"payment_amount" db:"payment_amount"`
	IsPaid        bool            `json:"is_paid" db:"is_paid"`
	PaymentDate   *time.Time      `json:"payment_date,omitempty" db:"payment_date"`
	// PaidByExemption is set when IsPaid comes only from the hosting-club exemption.
	PaidByExemption bool `json:"paid_by_exemption" db:"paid_by_exemption"`

	ApprovalStatus   ApprovalStatus `json:"approval_status" db:"approval_status"`
	ApprovedAt       *time.Time     `json:"approved_at,omitempty" db:"approved_at"`
	ApprovedByUserID *int           `json:"approved_by_user_id,omitempty" db:"approved_by_user_id"`
	RejectionReason  *string        `json:"rejection_reason,omitempty" db:"rejection_reason"`

	DisplayOrder int       `json:"display_order" db:"display_order"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`

	Club *Club `json:"club,omitempty" db:"-"`
}

// PublicRegistration is what anonymous viewers of a carnival see of a registration.
type PublicRegistration struct {
	ID             int            `json:"id"`
	CarnivalID     int            `json:"carnival_id"`
	ClubID         int            `json:"club_id"`
	ClubName       string         `json:"club_name,omitempty"`
	NumberOfTeams  int            `json:"number_of_teams"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	DisplayOrder   int            `json:"display_order"`
	IsActive       bool           `json:"is_active"`
}

// Public drops contact details, notes and payment state.
func (r *AttendanceRegistration) Public() PublicRegistration {
	p := PublicRegistration{
		ID:             r.ID,
		CarnivalID:     r.CarnivalID,
		ClubID:         r.ClubID,
		NumberOfTeams:  r.NumberOfTeams,
		ApprovalStatus: r.ApprovalStatus,
		DisplayOrder:   r.DisplayOrder,
		IsActive:       r.IsActive,
	}
	if r.Club != nil {
		p.ClubName = r.Club.Name
	}
	return p
}

func PublicRegistrations(regs []*AttendanceRegistration) []PublicRegistration {
	out := make([]PublicRegistration, 0, len(regs))
	for _, r := range regs {
		out = append(out, r.Public())
	}
	return out
}

type AttendanceStatus string

const (
	AttendanceConfirmed AttendanceStatus = "confirmed"
	AttendancePending   AttendanceStatus = "pending"
	AttendanceDeclined  AttendanceStatus = "declined"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceConfirmed, AttendancePending, AttendanceDeclined:
		return true
	}
	return false
}

// PlayerAssignment links a roster player to an attendance registration.
type PlayerAssignment struct {
	ID               int              `json:"id" db:"id"`
	RegistrationID   int              `json:"registration_id" db:"registration_id"`
	PlayerID         int              `json:"player_id" db:"player_id"`
	AttendanceStatus AttendanceStatus `json:"attendance_status" db:"attendance_status"`
	IsActive         bool             `json:"is_active" db:"is_active"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`

	Player *ClubPlayer `json:"player,omitempty" db:"-"`
}
