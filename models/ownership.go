package models

import "time"

// Ownership is the in-memory view of a carnival's ownership columns:
// either Unowned or Claimed. Persisted rows keep nullable columns.
type Ownership interface {
	isOwnership()
}

// Unowned is an imported carnival nobody has claimed yet.
type Unowned struct{}

// Claimed is a carnival with a responsible club and/or owning delegate.
type Claimed struct {
	OwnerUserID *int
	HostClubID  *int
	ClaimedAt   time.Time
}

func (Unowned) isOwnership() {}
func (Claimed) isOwnership() {}

// Ownership derives the ownership variant from the nullable columns.
func (c *Carnival) Ownership() Ownership {
	if c.OwnerUserID == nil && c.HostClubID == nil {
		return Unowned{}
	}
	claimed := Claimed{OwnerUserID: c.OwnerUserID, HostClubID: c.HostClubID}
	if c.ClaimedAt != nil {
		claimed.ClaimedAt = *c.ClaimedAt
	}
	return claimed
}

// ApplyOwnership writes the variant back into the nullable columns.
func (c *Carnival) ApplyOwnership(o Ownership) {
	switch v := o.(type) {
	case Unowned:
		c.OwnerUserID = nil
		c.HostClubID = nil
		c.ClaimedAt = nil
	case Claimed:
		c.OwnerUserID = v.OwnerUserID
		c.HostClubID = v.HostClubID
		at := v.ClaimedAt.UTC()
		c.ClaimedAt = &at
	}
}
