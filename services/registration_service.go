package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/carnival-system/metrics"
	"github.com/Dosada05/carnival-system/models"
	"github.com/Dosada05/carnival-system/repositories"
	"github.com/shopspring/decimal"
)

type RegistrationMode string

const (
	// ModeOrganizerAdds: the carnival organiser enters a club directly; the registration is approved on creation.
	ModeOrganizerAdds RegistrationMode = "organizer_adds"
	// ModeSelfService: a club delegate registers their own club and waits for approval.
	ModeSelfService RegistrationMode = "self_service"
)

func (m RegistrationMode) valid() bool {
	return m == ModeOrganizerAdds || m == ModeSelfService
}

// RegistrationDetails are the participation details a caller may supply.
type RegistrationDetails struct {
	NumberOfTeams       int     `json:"number_of_teams" validate:"gte=1"`
	PlayerCount         *int    `json:"player_count,omitempty" validate:"omitempty,gte=0"`
	ContactPerson       *string `json:"contact_person,omitempty" validate:"omitempty,max=100"`
	ContactEmail        *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone        *string `json:"contact_phone,omitempty" validate:"omitempty,max=30"`
	Notes               *string `json:"notes,omitempty"`
	SpecialRequirements *string `json:"special_requirements,omitempty"`
	// IsPaid is honoured only when an organiser supplies it.
	IsPaid *bool `json:"is_paid,omitempty"`
	// PaymentAmount is accepted for compatibility and always ignored; fees are computed.
	PaymentAmount *decimal.Decimal `json:"payment_amount,omitempty"`
}

func (d RegistrationDetails) validate() error {
	if d.NumberOfTeams < 1 {
		return ErrInvalidTeamCount
	}
	if d.PlayerCount != nil && *d.PlayerCount < 0 {
		return ErrInvalidPlayerCount
	}
	return nil
}

func (d RegistrationDetails) applyTo(reg *models.AttendanceRegistration) {
	reg.NumberOfTeams = d.NumberOfTeams
	reg.PlayerCount = d.PlayerCount
	reg.ContactPerson = d.ContactPerson
	reg.ContactEmail = d.ContactEmail
	reg.ContactPhone = d.ContactPhone
	reg.Notes = d.Notes
	reg.SpecialRequirements = d.SpecialRequirements
}

// RegistrationChanges is a partial update of a registration. Nil fields keep their stored values.
type RegistrationChanges struct {
	NumberOfTeams       *int    `json:"number_of_teams,omitempty" validate:"omitempty,gte=1"`
	PlayerCount         *int    `json:"player_count,omitempty" validate:"omitempty,gte=0"`
	ContactPerson       *string `json:"contact_person,omitempty" validate:"omitempty,max=100"`
	ContactEmail        *string `json:"contact_email,omitempty" validate:"omitempty,email"`
	ContactPhone        *string `json:"contact_phone,omitempty" validate:"omitempty,max=30"`
	Notes               *string `json:"notes,omitempty"`
	SpecialRequirements *string `json:"special_requirements,omitempty"`
	// IsPaid is honoured only when an organiser supplies it.
	IsPaid *bool `json:"is_paid,omitempty"`
	// PaymentAmount is accepted for compatibility and always ignored; fees are computed.
	PaymentAmount *decimal.Decimal `json:"payment_amount,omitempty"`
}

func (c RegistrationChanges) validate() error {
	if c.NumberOfTeams != nil && *c.NumberOfTeams < 1 {
		return ErrInvalidTeamCount
	}
	if c.PlayerCount != nil && *c.PlayerCount < 0 {
		return ErrInvalidPlayerCount
	}
	return nil
}

func (c RegistrationChanges) applyTo(reg *models.AttendanceRegistration) {
	if c.NumberOfTeams != nil {
		reg.NumberOfTeams = *c.NumberOfTeams
	}
	mergeInt(&reg.PlayerCount, c.PlayerCount)
	mergeString(&reg.ContactPerson, c.ContactPerson)
	mergeString(&reg.ContactEmail, c.ContactEmail)
	mergeString(&reg.ContactPhone, c.ContactPhone)
	mergeString(&reg.Notes, c.Notes)
	mergeString(&reg.SpecialRequirements, c.SpecialRequirements)
}

func mergeInt(dst **int, v *int) {
	if v != nil {
		n := *v
		*dst = &n
	}
}

func mergeString(dst **string, v *string) {
	if v != nil {
		str := *v
		*dst = &str
	}
}

func approve(reg *models.AttendanceRegistration, approverID *int, now time.Time) {
	reg.ApprovalStatus = models.ApprovalApproved
	reg.ApprovedAt = &now
	reg.ApprovedByUserID = approverID
	reg.RejectionReason = nil
}

func setPaid(reg *models.AttendanceRegistration, paid bool, now time.Time) {
	reg.IsPaid = paid
	reg.PaidByExemption = false
	if paid {
		reg.PaymentDate = &now
	} else {
		reg.PaymentDate = nil
	}
}

// exemptHostRegistration approves and zero-rates the host club's active registration.
// It reports whether the approval status changed, which moves the carnival's counter.
func exemptHostRegistration(ctx context.Context, exec repositories.SQLExecutor, regRepo repositories.RegistrationRepository, c *models.Carnival, now time.Time) (bool, error) {
	if c.HostClubID == nil {
		return false, nil
	}
	reg, err := regRepo.FindActiveByCarnivalAndClub(ctx, exec, c.ID, *c.HostClubID)
	if errors.Is(err, repositories.ErrRegistrationNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	statusChanged := reg.ApprovalStatus != models.ApprovalApproved
	if statusChanged {
		approve(reg, c.OwnerUserID, now)
		if err := regRepo.Update(ctx, exec, reg); err != nil {
			return false, err
		}
	}
	if applyAssessment(reg, AssessFee(c, reg, 0, now)) {
		if err := regRepo.UpdatePayment(ctx, exec, reg); err != nil {
			return false, err
		}
	}
	return statusChanged, nil
}

// RegistrationService runs the attendance registration workflow. Every write locks the carnival row,
// so registration writes for one carnival are serialized and the counter recount sees a stable set.
type RegistrationService struct {
	tx           repositories.Transactor
	carnivalRepo repositories.CarnivalRepository
	regRepo      repositories.RegistrationRepository
	assignRepo   repositories.PlayerAssignmentRepository
	dir          directory
	fees         feeRecalculator
	notifier     Notifier
	events       EventPublisher
	logger       *slog.Logger
	now          func() time.Time
}

func NewRegistrationService(
	tx repositories.Transactor,
	carnivalRepo repositories.CarnivalRepository,
	regRepo repositories.RegistrationRepository,
	assignRepo repositories.PlayerAssignmentRepository,
	userRepo repositories.UserRepository,
	clubRepo repositories.ClubRepository,
	notifier Notifier,
	logger *slog.Logger,
) *RegistrationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &RegistrationService{
		tx:           tx,
		carnivalRepo: carnivalRepo,
		regRepo:      regRepo,
		assignRepo:   assignRepo,
		dir:          directory{userRepo: userRepo, clubRepo: clubRepo},
		fees:         feeRecalculator{regRepo: regRepo, assignRepo: assignRepo},
		notifier:     notifier,
		events:       nopPublisher{},
		logger:       logger,
		now:          time.Now,
	}
}

// WithEvents routes post-commit carnival events to p.
func (s *RegistrationService) WithEvents(p EventPublisher) *RegistrationService {
	if p != nil {
		s.events = p
	}
	return s
}

// publish sends post-commit events to live subscribers, who are not authenticated,
// so registrations go out in their public form.
func (s *RegistrationService) publish(ctx context.Context, carnivalID int, eventType string, payload any) {
	if reg, ok := payload.(*models.AttendanceRegistration); ok && reg != nil {
		payload = reg.Public()
	}
	publishBestEffort(ctx, s.logger, s.events, carnivalID, eventType, payload)
}

func (s *RegistrationService) record(op string, o Outcome) {
	metrics.RegistrationTransitions.WithLabelValues(op, metrics.Result(o.Success, string(o.Kind))).Inc()
}

// lockRegistration locks the owning carnival and then re-reads the registration under that lock.
func (s *RegistrationService) lockRegistration(ctx context.Context, exec repositories.SQLExecutor, registrationID int) (*models.Carnival, *models.AttendanceRegistration, error) {
	reg, err := loadRegistration(ctx, s.regRepo, exec, registrationID)
	if err != nil {
		return nil, nil, err
	}
	carnival, err := lockCarnival(ctx, s.carnivalRepo, exec, reg.CarnivalID)
	if err != nil {
		return nil, nil, err
	}
	reg, err = loadRegistration(ctx, s.regRepo, exec, registrationID)
	if err != nil {
		return nil, nil, err
	}
	return carnival, reg, nil
}

func (s *RegistrationService) checkCapacity(ctx context.Context, exec repositories.SQLExecutor, c *models.Carnival) error {
	if c.MaxTeams == nil {
		return nil
	}
	approved, err := s.regRepo.CountApproved(ctx, exec, c.ID)
	if err != nil {
		return err
	}
	if approved >= *c.MaxTeams {
		return fmt.Errorf("%w (%d of %d)", ErrCarnivalFull, approved, *c.MaxTeams)
	}
	return nil
}

func (s *RegistrationService) recount(ctx context.Context, exec repositories.SQLExecutor, c *models.Carnival) (int, error) {
	count, err := s.carnivalRepo.RecountRegistrations(ctx, exec, c.ID)
	if err != nil {
		return 0, err
	}
	c.CurrentRegistrations = count
	return count, nil
}

// canEditRegistration: the organiser, or a user of the registering club.
func canEditRegistration(u *models.User, c *models.Carnival, reg *models.AttendanceRegistration) bool {
	return isCarnivalOrganizer(u, c) || u.BelongsTo(reg.ClubID)
}

// Register creates an active registration for clubID. Fees are always computed here;
// any caller-supplied payment amount is ignored.
func (s *RegistrationService) Register(ctx context.Context, carnivalID, clubID int, details RegistrationDetails, actingUserID int, mode RegistrationMode) (res RegistrationResult) {
	const op = "register"
	defer func() { s.record(op, res.Outcome) }()
	attrs := []slog.Attr{slog.Int("carnival_id", carnivalID), slog.Int("club_id", clubID), slog.Int("user_id", actingUserID)}

	if err := details.validate(); err != nil {
		return RegistrationResult{Outcome: failure(ctx, s.logger, op, err, attrs...)}
	}
	if !mode.valid() {
		return RegistrationResult{Outcome: failure(ctx, s.logger, op, ErrInvalidMode, attrs...)}
	}

	var club *models.Club
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		actor, err := s.dir.activeUser(ctx, actingUserID)
		if err != nil {
			return err
		}
		carnival, err := lockActiveCarnival(ctx, s.carnivalRepo, exec, carnivalID)
		if err != nil {
			return err
		}
		club, err = s.dir.activeClub(ctx, clubID)
		if err != nil {
			return err
		}

		switch mode {
		case ModeOrganizerAdds:
			if !isCarnivalOrganizer(actor, carnival) {
				return ErrNotOrganizer
			}
		case ModeSelfService:
			if !actor.BelongsTo(clubID) && !actor.IsAdmin() {
				return ErrNotClubDelegate
			}
		}

		now := s.now().UTC()
		isHost := carnival.IsHostedBy(clubID)
		if mode == ModeSelfService && !isHost && carnival.RegistrationClosed(now) {
			return ErrRegistrationNotOpen
		}

		_, err = s.regRepo.FindActiveByCarnivalAndClub(ctx, exec, carnivalID, clubID)
		if err == nil {
			return ErrRegistrationConflict
		}
		if !errors.Is(err, repositories.ErrRegistrationNotFound) {
			return err
		}
		if !isHost {
			if err := s.checkCapacity(ctx, exec, carnival); err != nil {
				return err
			}
		}

		maxOrder, err := s.regRepo.MaxDisplayOrder(ctx, exec, carnivalID)
		if err != nil {
			return err
		}
		reg := &models.AttendanceRegistration{
			CarnivalID:     carnivalID,
			ClubID:         clubID,
			ApprovalStatus: models.ApprovalPending,
			PaymentAmount:  decimal.Zero,
			DisplayOrder:   maxOrder + 1,
			IsActive:       true,
		}
		details.applyTo(reg)
		if mode == ModeOrganizerAdds || isHost {
			approve(reg, &actor.ID, now)
		}
		if mode == ModeOrganizerAdds && details.IsPaid != nil && *details.IsPaid {
			setPaid(reg, true, now)
		}
		// No roster exists yet, so the coarse player count is the only estimate available.
		estimate := 0
		if details.PlayerCount != nil {
			estimate = *details.PlayerCount
		}
		applyAssessment(reg, AssessFee(carnival, reg, estimate, now))

		if err := s.regRepo.Create(ctx, exec, reg); err != nil {
			if errors.Is(err, repositories.ErrRegistrationConflict) {
				return ErrRegistrationConflict
			}
			return err
		}
		count, err := s.recount(ctx, exec, carnival)
		if err != nil {
			return err
		}
		reg.Club = club
		res.Registration = reg
		res.CurrentRegistrations = count
		return nil
	})
	if err != nil {
		return RegistrationResult{Outcome: failure(ctx, s.logger, op, err, attrs...)}
	}

	msg := fmt.Sprintf("%s registered", club.Name)
	if res.Registration.ApprovalStatus == models.ApprovalPending {
		msg += "; awaiting approval from the carnival organiser"
	}
	res.Outcome = succeeded(msg)
	s.logger.InfoContext(ctx, "club registered for carnival",
		slog.Int("carnival_id", carnivalID), slog.Int("club_id", clubID),
		slog.Int("registration_id", res.Registration.ID), slog.String("mode", string(mode)),
		slog.String("approval_status", string(res.Registration.ApprovalStatus)))
	s.publish(ctx, carnivalID, EventRegistrationCreated, res.Registration)
	return res
}

// Approve moves a pending or rejected registration to approved. Approving an approved registration is a no-op.
func (s *RegistrationService) Approve(ctx context.Context, registrationID, actingUserID int) (res RegistrationResult) {
	const op = "approve"
	defer func() { s.record(op, res.Outcome) }()

	var (
		carnival     *models.Carnival
		club         *models.Club
		approverName string
		noop         bool
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		actor, err := s.dir.activeUser(ctx, actingUserID)
		if err != nil {
			return err
		}
		var reg *models.AttendanceRegistration
		carnival, reg, err = s.lockRegistration(ctx, exec, registrationID)
		if err != nil {
			return err
		}
		if !reg.IsActive {
			return ErrRegistrationInactive
		}
		if !isCarnivalOrganizer(actor, carnival) {
			return ErrNotOrganizer
		}
		res.Registration = reg
		if reg.ApprovalStatus == models.ApprovalApproved {
			noop = true
			res.CurrentRegistrations = carnival.CurrentRegistrations
			return nil
		}
		if !carnival.IsHostedBy(reg.ClubID) {
			if err := s.checkCapacity(ctx, exec, carnival); err != nil {
				return err
			}
		}

		approve(reg, &actor.ID, s.now().UTC())
		if err := s.regRepo.Update(ctx, exec, reg); err != nil {
			return err
		}
		if res.CurrentRegistrations, err = s.recount(ctx, exec, carnival); err != nil {
			return err
		}
		if club, err = s.dir.clubRepo.GetByID(ctx, reg.ClubID); err != nil {
			return err
		}
		reg.Club = club
		approverName = actor.FullName()
		return nil
	})
	if err != nil {
		return RegistrationResult{Outcome: failure(ctx, s.logger, op, err,
			slog.Int("registration_id", registrationID), slog.Int("user_id", actingUserID))}
	}
	if noop {
		res.Outcome = succeeded("registration is already approved")
		return res
	}

	res.Outcome = succeeded(fmt.Sprintf("%s approved for %q", club.Name, carnival.Title))
	s.logger.InfoContext(ctx, "registration approved",
		slog.Int("registration_id", registrationID), slog.Int("carnival_id", carnival.ID), slog.Int("user_id", actingUserID))
	s.publish(ctx, carnival.ID, EventRegistrationApproved, res.Registration)
	notifyBestEffort(ctx, s.logger, op, func() {
		s.notifier.NotifyApproval(ctx, carnival, club, approverName)
	})
	return res
}

// Reject records a rejection with a mandatory reason. The decision time and decider are kept in the approval columns.
func (s *RegistrationService) Reject(ctx context.Context, registrationID, actingUserID int, reason string) (res RegistrationResult) {
	const op = "reject"
	defer func() { s.record(op, res.Outcome) }()
	attrs := []slog.Attr{slog.Int("registration_id", registrationID), slog.Int("user_id", actingUserID)}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return RegistrationResult{Outcome: failure(ctx, s.logger, op, ErrRejectionReasonRequired, attrs...)}
	}

	var (
		carnival     *models.Carnival
		club         *models.Club
		approverName string
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		actor, err := s.dir.activeUser(ctx, actingUserID)
		if err != nil {
			return err
		}
		var reg *models.AttendanceRegistration
		carnival, reg, err = s.lockRegistration(ctx, exec, registrationID)
		if err != nil {
			return err
		}
		if !reg.IsActive {
			return ErrRegistrationInactive
		}
		if !isCarnivalOrganizer(actor, carnival) {
			return ErrNotOrganizer
		}
		if carnival.IsHostedBy(reg.ClubID) {
			return ErrHostRegistrationLocked
		}

		now := s.now().UTC()
		reg.ApprovalStatus = models.ApprovalRejected
		reg.ApprovedAt = &now
		reg.ApprovedByUserID = &actor.ID
		reg.RejectionReason = &reason
		if err := s.regRepo.Update(ctx, exec, reg); err != nil {
			return err
		}
		if res.CurrentRegistrations, err = s.recount(ctx, exec, carnival); err != nil {
			return err
		}
		if club, err = s.dir.clubRepo.GetByID(ctx, reg.ClubID); err != nil {
			return err
		}
		reg.Club = club
		res.Registration = reg
		approverName = actor.FullName()
		return nil
	})
	if err != nil {
		return RegistrationResult{Outcome: failure(ctx, s.logger, op, err, attrs...)}
	}

	res.Outcome = succeeded(fmt.Sprintf("%s's registration for %q was rejected", club.Name, carnival.Title))
	s.logger.InfoContext(ctx, "registration rejected",
		slog.Int("registration_id", registrationID), slog.Int("carnival_id", carnival.ID), slog.Int("user_id", actingUserID))
	s.publish(ctx, carnival.ID, EventRegistrationRejected, res.Registration)
	notifyBestEffort(ctx, s.logger, op, func() {
		s.notifier.NotifyRejection(ctx, carnival, club, approverName, reason)
	})
	return res
}

// Update merges the supplied changes into the registration and recalculates the fee from the confirmed roster.
func (s *RegistrationService) Update(ctx context.Context, registrationID int, changes RegistrationChanges, actingUserID int) (res RegistrationResult) {
	const op = "update"
	defer func() { s.record(op, res.Outcome) }()
	attrs := []slog.Attr{slog.Int("registration_id", registrationID), slog.Int("user_id", actingUserID)}

	if err := changes.validate(); err != nil {
		return RegistrationResult{Outcome: failure(ctx, s.logger, op, err, attrs...)}
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		actor, err := s.dir.activeUser(ctx, actingUserID)
		if err != nil {
			return err
		}
		carnival, reg, err := s.lockRegistration(ctx, exec, registrationID)
		if err != nil {
			return err
		}
		if !reg.IsActive {
			return ErrRegistrationInactive
		}
		if !canEditRegistration(actor, carnival, reg) {
			return ErrNotClubDelegate
		}

		now := s.now().UTC()
		changes.applyTo(reg)
		paidChanged := false
		if isCarnivalOrganizer(actor, carnival) && changes.IsPaid != nil && *changes.IsPaid != reg.IsPaid {
			setPaid(reg, *changes.IsPaid, now)
			paidChanged = true
		}
		if carnival.IsHostedBy(reg.ClubID) && reg.ApprovalStatus != models.ApprovalApproved {
			approve(reg, &actor.ID, now)
		}
		if err := s.regRepo.Update(ctx, exec, reg); err != nil {
			return err
		}
		changed, err := s.fees.recalculate(ctx, exec, carnival, reg, now)
		if err != nil {
			return err
		}
		if paidChanged && !changed {
			if err := s.regRepo.UpdatePayment(ctx, exec, reg); err != nil {
				return err
			}
		}
		if res.CurrentRegistrations, err = s.recount(ctx, exec, carnival); err != nil {
			return err
		}
		res.Registration = reg
		return nil
	})
	if err != nil {
		return RegistrationResult{Outcome: failure(ctx, s.logger, op, err, attrs...)}
	}
	res.Outcome = succeeded("registration updated")
	s.publish(ctx, res.Registration.CarnivalID, EventRegistrationUpdated, res.Registration)
	return res
}

// Unregister soft-deletes a registration. Clubs cannot withdraw a paid registration themselves;
// the organiser can.
func (s *RegistrationService) Unregister(ctx context.Context, registrationID, actingUserID int) (res RegistrationResult) {
	const op = "unregister"
	defer func() { s.record(op, res.Outcome) }()

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		actor, err := s.dir.activeUser(ctx, actingUserID)
		if err != nil {
			return err
		}
		carnival, reg, err := s.lockRegistration(ctx, exec, registrationID)
		if err != nil {
			return err
		}
		if !reg.IsActive {
			return ErrRegistrationInactive
		}
		organizer := isCarnivalOrganizer(actor, carnival)
		if !organizer && !actor.BelongsTo(reg.ClubID) {
			return ErrNotClubDelegate
		}
		if !organizer && reg.IsPaid {
			return ErrPaidWithdrawal
		}

		reg.IsActive = false
		if err := s.regRepo.Update(ctx, exec, reg); err != nil {
			return err
		}
		if res.CurrentRegistrations, err = s.recount(ctx, exec, carnival); err != nil {
			return err
		}
		res.Registration = reg
		return nil
	})
	if err != nil {
		return RegistrationResult{Outcome: failure(ctx, s.logger, op, err,
			slog.Int("registration_id", registrationID), slog.Int("user_id", actingUserID))}
	}

	res.Outcome = succeeded("registration withdrawn")
	s.logger.InfoContext(ctx, "registration withdrawn",
		slog.Int("registration_id", registrationID), slog.Int("carnival_id", res.Registration.CarnivalID),
		slog.Int("user_id", actingUserID))
	s.publish(ctx, res.Registration.CarnivalID, EventRegistrationWithdrawn, res.Registration)
	return res
}

// RecalculateFees re-applies the fee policy to a stored registration and persists the monetary fields if they moved.
func (s *RegistrationService) RecalculateFees(ctx context.Context, registrationID int) (res FeeResult) {
	const op = "recalculate_fees"
	defer func() { s.record(op, res.Outcome) }()

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		carnival, reg, err := s.lockRegistration(ctx, exec, registrationID)
		if err != nil {
			return err
		}
		if !reg.IsActive {
			return ErrRegistrationInactive
		}
		res.Changed, err = s.fees.recalculate(ctx, exec, carnival, reg, s.now().UTC())
		if err != nil {
			return err
		}
		res.Registration = reg
		return nil
	})
	if err != nil {
		return FeeResult{Outcome: failure(ctx, s.logger, op, err, slog.Int("registration_id", registrationID))}
	}
	if res.Changed {
		res.Outcome = succeeded(fmt.Sprintf("fee recalculated: %s", res.Registration.PaymentAmount.StringFixed(2)))
		s.publish(ctx, res.Registration.CarnivalID, EventRegistrationUpdated, res.Registration)
	} else {
		res.Outcome = succeeded("fee unchanged")
	}
	return res
}

// MarkPaid records payment of the current fee. Marking a paid registration again is a no-op.
func (s *RegistrationService) MarkPaid(ctx context.Context, registrationID, actingUserID int) (res FeeResult) {
	const op = "mark_paid"
	defer func() { s.record(op, res.Outcome) }()

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		actor, err := s.dir.activeUser(ctx, actingUserID)
		if err != nil {
			return err
		}
		carnival, reg, err := s.lockRegistration(ctx, exec, registrationID)
		if err != nil {
			return err
		}
		if !reg.IsActive {
			return ErrRegistrationInactive
		}
		if !isCarnivalOrganizer(actor, carnival) {
			return ErrNotOrganizer
		}
		res.Registration = reg
		if reg.IsPaid {
			return nil
		}
		setPaid(reg, true, s.now().UTC())
		res.Changed = true
		return s.regRepo.UpdatePayment(ctx, exec, reg)
	})
	if err != nil {
		return FeeResult{Outcome: failure(ctx, s.logger, op, err,
			slog.Int("registration_id", registrationID), slog.Int("user_id", actingUserID))}
	}
	if !res.Changed {
		res.Outcome = succeeded("registration is already paid")
		return res
	}
	res.Outcome = succeeded("registration marked as paid")
	s.publish(ctx, res.Registration.CarnivalID, EventRegistrationUpdated, res.Registration)
	return res
}

func (s *RegistrationService) GetRegistration(ctx context.Context, registrationID int) (*models.AttendanceRegistration, error) {
	reg, err := loadRegistration(ctx, s.regRepo, nil, registrationID)
	if err != nil {
		return nil, err
	}
	if club, err := s.dir.clubRepo.GetByID(ctx, reg.ClubID); err == nil {
		reg.Club = club
	}
	return reg, nil
}

func (s *RegistrationService) ListByCarnival(ctx context.Context, carnivalID int, activeOnly bool) ([]*models.AttendanceRegistration, error) {
	if _, err := s.carnivalRepo.GetByID(ctx, nil, carnivalID); err != nil {
		if errors.Is(err, repositories.ErrCarnivalNotFound) {
			return nil, ErrCarnivalNotFound
		}
		return nil, err
	}
	return s.regRepo.ListByCarnival(ctx, nil, carnivalID, activeOnly)
}
