package models

import "time"

// Club представляет клуб - участника или организатора карнавалов.
type Club struct {
	ID            int       `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	State         *string   `json:"state,omitempty" db:"state"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	ContactPerson *string   `json:"contact_person,omitempty" db:"contact_person"`
	ContactEmail  *string   `json:"contact_email,omitempty" db:"contact_email"`
	ContactPhone  *string   `json:"contact_phone,omitempty" db:"contact_phone"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	PrimaryDelegate *User `json:"primary_delegate,omitempty" db:"-"`
}

// ClubPlayer is a player on a club's roster.
type ClubPlayer struct {
	ID        int    `json:"id" db:"id"`
	ClubID    int    `json:"club_id" db:"club_id"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	IsActive  bool   `json:"is_active" db:"is_active"`
}
