package services

import (
	"context"
	"time"

	"github.com/Dosada05/carnival-system/models"
	"github.com/Dosada05/carnival-system/repositories"
	"github.com/shopspring/decimal"
)

// ComputeFee returns teamFee × teams + perPlayerFee × confirmed players, rounded to cents.
// Absent fees are zero; negative inputs are clamped so the result is never negative.
func ComputeFee(c *models.Carnival, numberOfTeams, confirmedPlayerCount int) decimal.Decimal {
	if numberOfTeams < 0 {
		numberOfTeams = 0
	}
	if confirmedPlayerCount < 0 {
		confirmedPlayerCount = 0
	}
	teamFee := nonNegative(c.TeamRegistrationFee)
	playerFee := nonNegative(c.PerPlayerFee)

	amount := teamFee.Mul(decimal.NewFromInt(int64(numberOfTeams))).
		Add(playerFee.Mul(decimal.NewFromInt(int64(confirmedPlayerCount))))
	return amount.Round(2)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// FeeAssessment is the monetary state a registration should be in.
type FeeAssessment struct {
	Amount          decimal.Decimal
	IsPaid          bool
	PaymentDate     *time.Time
	PaidByExemption bool
	HostExempt      bool
}

// AssessFee applies the hosting-club exemption on top of ComputeFee.
// The host club owes nothing and is treated as paid. A paid state that came only from the exemption
// is withdrawn once the club no longer hosts; a real payment is kept either way.
func AssessFee(c *models.Carnival, reg *models.AttendanceRegistration, confirmedPlayerCount int, now time.Time) FeeAssessment {
	if c.IsHostedBy(reg.ClubID) {
		if reg.IsPaid && reg.PaymentDate != nil && !reg.PaidByExemption {
			return FeeAssessment{Amount: decimal.Zero, IsPaid: true, PaymentDate: reg.PaymentDate, HostExempt: true}
		}
		paidAt := reg.PaymentDate
		if !reg.IsPaid || paidAt == nil {
			at := now.UTC()
			paidAt = &at
		}
		return FeeAssessment{Amount: decimal.Zero, IsPaid: true, PaymentDate: paidAt, PaidByExemption: true, HostExempt: true}
	}

	a := FeeAssessment{Amount: ComputeFee(c, reg.NumberOfTeams, confirmedPlayerCount)}
	if !reg.PaidByExemption {
		a.IsPaid = reg.IsPaid
		a.PaymentDate = reg.PaymentDate
	}
	return a
}

// applyAssessment writes a onto reg and reports whether any monetary field changed.
func applyAssessment(reg *models.AttendanceRegistration, a FeeAssessment) bool {
	changed := !reg.PaymentAmount.Equal(a.Amount) || reg.IsPaid != a.IsPaid ||
		reg.PaidByExemption != a.PaidByExemption || !sameTime(reg.PaymentDate, a.PaymentDate)
	reg.PaymentAmount = a.Amount
	reg.IsPaid = a.IsPaid
	reg.PaymentDate = a.PaymentDate
	reg.PaidByExemption = a.PaidByExemption
	return changed
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// feeRecalculator keeps a stored registration's fee in line with its roster and the carnival's fees.
type feeRecalculator struct {
	regRepo    repositories.RegistrationRepository
	assignRepo repositories.PlayerAssignmentRepository
}

// recalculate counts confirmed roster entries (never the coarse player count) and persists only when the
// monetary fields moved.
func (f feeRecalculator) recalculate(ctx context.Context, exec repositories.SQLExecutor, c *models.Carnival, reg *models.AttendanceRegistration, now time.Time) (bool, error) {
	confirmed, err := f.assignRepo.CountConfirmed(ctx, exec, reg.ID)
	if err != nil {
		return false, err
	}
	if !applyAssessment(reg, AssessFee(c, reg, confirmed, now)) {
		return false, nil
	}
	if err := f.regRepo.UpdatePayment(ctx, exec, reg); err != nil {
		return false, err
	}
	return true, nil
}
