package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/carnival-system/metrics"
	"github.com/Dosada05/carnival-system/models"
	"github.com/Dosada05/carnival-system/repositories"
)

// OwnershipService drives the carnival ownership state machine: Unowned ⇄ Claimed.
type OwnershipService struct {
	tx           repositories.Transactor
	carnivalRepo repositories.CarnivalRepository
	regRepo      repositories.RegistrationRepository
	dir          directory
	fees         feeRecalculator
	notifier     Notifier
	events       EventPublisher
	logger       *slog.Logger
	now          func() time.Time
}

func NewOwnershipService(
	tx repositories.Transactor,
	carnivalRepo repositories.CarnivalRepository,
	regRepo repositories.RegistrationRepository,
	assignRepo repositories.PlayerAssignmentRepository,
	userRepo repositories.UserRepository,
	clubRepo repositories.ClubRepository,
	notifier Notifier,
	logger *slog.Logger,
) *OwnershipService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &OwnershipService{
		tx:           tx,
		carnivalRepo: carnivalRepo,
		regRepo:      regRepo,
		dir:          directory{userRepo: userRepo, clubRepo: clubRepo},
		fees:         feeRecalculator{regRepo: regRepo, assignRepo: assignRepo},
		notifier:     notifier,
		events:       nopPublisher{},
		logger:       logger,
		now:          time.Now,
	}
}

// checkClaimable enforces the provenance and ownership preconditions shared by both claim paths.
func checkClaimable(c *models.Carnival) error {
	if c.IsManuallyEntered {
		return ErrCarnivalManuallyEntered
	}
	if !c.HasExternalProvenance() {
		return ErrCarnivalNotImported
	}
	if _, claimed := c.Ownership().(models.Claimed); claimed {
		return ErrCarnivalAlreadyClaimed
	}
	return nil
}

// snapshotOriginalContact keeps the feed's contact email the first time the carnival is claimed.
func snapshotOriginalContact(c *models.Carnival) {
	if c.OriginalExternalContactEmail != nil {
		return
	}
	if c.OrganiserContactEmail != nil && *c.OrganiserContactEmail != "" {
		email := *c.OrganiserContactEmail
		c.OriginalExternalContactEmail = &email
	}
}

func lockActiveCarnival(ctx context.Context, repo repositories.CarnivalRepository, exec repositories.SQLExecutor, id int) (*models.Carnival, error) {
	carnival, err := lockCarnival(ctx, repo, exec, id)
	if err != nil {
		return nil, err
	}
	if !carnival.IsActive {
		return nil, ErrCarnivalInactive
	}
	return carnival, nil
}

// WithEvents routes post-commit carnival events to p.
func (s *OwnershipService) WithEvents(p EventPublisher) *OwnershipService {
	if p != nil {
		s.events = p
	}
	return s
}

func (s *OwnershipService) publish(ctx context.Context, carnivalID int, eventType string, payload any) {
	publishBestEffort(ctx, s.logger, s.events, carnivalID, eventType, payload)
}

func (s *OwnershipService) record(op string, o Outcome) {
	metrics.OwnershipTransitions.WithLabelValues(op, metrics.Result(o.Success, string(o.Kind))).Inc()
}

// Claim lets a delegate take ownership of an unowned imported carnival on behalf of their own club.
// Only the host club is recorded; the acting user does not become the owner.
func (s *OwnershipService) Claim(ctx context.Context, carnivalID, actingUserID int) (res OwnershipResult) {
	const op = "claim"
	defer func() { s.record(op, res.Outcome) }()

	var (
		club          *models.Club
		originalEmail string
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		carnival, err := lockActiveCarnival(ctx, s.carnivalRepo, exec, carnivalID)
		if err != nil {
			return err
		}
		user, err := s.dir.activeUser(ctx, actingUserID)
		if err != nil {
			return err
		}
		if user.ClubID == nil {
			return ErrUserNoClub
		}
		club, err = s.dir.activeClub(ctx, *user.ClubID)
		if err != nil {
			return err
		}
		if err := checkClaimable(carnival); err != nil {
			return err
		}
		if regionsConflict(carnival.State, club.State) {
			return fmt.Errorf("%w: carnival is in %s but %s is in %s",
				ErrRegionMismatch, stateLabel(carnival.State), club.Name, stateLabel(club.State))
		}

		now := s.now().UTC()
		carnival.ApplyOwnership(models.Claimed{HostClubID: &club.ID, ClaimedAt: now})
		snapshotOriginalContact(carnival)
		carnival.SetContactFromUser(user)
		if err := s.carnivalRepo.UpdateOwnership(ctx, exec, carnival); err != nil {
			return err
		}
		if err := s.exemptHost(ctx, exec, carnival, now); err != nil {
			return err
		}

		if carnival.OriginalExternalContactEmail != nil {
			originalEmail = *carnival.OriginalExternalContactEmail
		}
		carnival.HostClub = club
		res.Carnival = carnival
		res.Claimant = user
		return nil
	})
	if err != nil {
		return OwnershipResult{Outcome: failure(ctx, s.logger, op, err,
			slog.Int("carnival_id", carnivalID), slog.Int("user_id", actingUserID))}
	}

	res.Outcome = succeeded(fmt.Sprintf("%s has claimed %q", club.Name, res.Carnival.Title))
	s.logger.InfoContext(ctx, "carnival claimed",
		slog.Int("carnival_id", carnivalID), slog.Int("club_id", club.ID), slog.Int("user_id", actingUserID))
	s.publish(ctx, carnivalID, EventCarnivalClaimed, res.Carnival)

	if originalEmail != "" {
		notifyBestEffort(ctx, s.logger, op, func() {
			s.notifier.NotifyClaim(ctx, res.Carnival, res.Claimant, club, originalEmail)
		})
	}
	return res
}

// Release returns a claimed imported carnival to the unowned pool. Registrations keep their approval state;
// the former host's registration loses the hosting exemption and is charged like any other club.
func (s *OwnershipService) Release(ctx context.Context, carnivalID, actingUserID int) (res OwnershipResult) {
	const op = "release"
	defer func() { s.record(op, res.Outcome) }()

	var activeRegistrations int
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		carnival, err := lockCarnival(ctx, s.carnivalRepo, exec, carnivalID)
		if err != nil {
			return err
		}
		user, err := s.dir.activeUser(ctx, actingUserID)
		if err != nil {
			return err
		}
		if _, claimed := carnival.Ownership().(models.Claimed); !claimed {
			return ErrCarnivalNotClaimed
		}
		if !isCarnivalOwner(user, carnival) {
			return ErrNotCarnivalOwner
		}
		if carnival.IsManuallyEntered {
			return ErrCarnivalManuallyEntered
		}
		if !carnival.HasExternalProvenance() {
			return ErrCarnivalNotImported
		}

		formerHost := carnival.HostClubID
		carnival.ApplyOwnership(models.Unowned{})
		carnival.ClearContact()
		if err := s.carnivalRepo.UpdateOwnership(ctx, exec, carnival); err != nil {
			return err
		}
		if err := s.chargeFormerHost(ctx, exec, carnival, formerHost, s.now().UTC()); err != nil {
			return err
		}
		activeRegistrations, err = s.regRepo.CountActive(ctx, exec, carnival.ID)
		if err != nil {
			return err
		}
		res.Carnival = carnival
		return nil
	})
	if err != nil {
		return OwnershipResult{Outcome: failure(ctx, s.logger, op, err,
			slog.Int("carnival_id", carnivalID), slog.Int("user_id", actingUserID))}
	}

	res.Outcome = succeeded(fmt.Sprintf("%q is now available for other clubs to claim", res.Carnival.Title))
	if activeRegistrations > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"%d club registration(s) remain on this carnival", activeRegistrations))
	}
	s.logger.InfoContext(ctx, "carnival released",
		slog.Int("carnival_id", carnivalID), slog.Int("user_id", actingUserID),
		slog.Int("active_registrations", activeRegistrations))
	s.publish(ctx, carnivalID, EventCarnivalReleased, res.Carnival)
	return res
}

// AdminClaimOnBehalf assigns an unowned imported carnival to targetClubID's primary delegate.
// A region mismatch is reported as a warning rather than blocking the claim.
func (s *OwnershipService) AdminClaimOnBehalf(ctx context.Context, carnivalID, adminUserID, targetClubID int) (res OwnershipResult) {
	const op = "admin_claim"
	defer func() { s.record(op, res.Outcome) }()

	var (
		club          *models.Club
		originalEmail string
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		admin, err := s.dir.activeUser(ctx, adminUserID)
		if err != nil {
			return err
		}
		if !admin.IsAdmin() {
			return ErrAdminRequired
		}
		carnival, err := lockActiveCarnival(ctx, s.carnivalRepo, exec, carnivalID)
		if err != nil {
			return err
		}
		club, err = s.dir.activeClub(ctx, targetClubID)
		if err != nil {
			return err
		}
		delegate := club.PrimaryDelegate
		if delegate == nil || !delegate.IsActive {
			return ErrNoPrimaryDelegate
		}
		if err := checkClaimable(carnival); err != nil {
			return err
		}
		if regionsConflict(carnival.State, club.State) {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"carnival is in %s but %s is in %s", stateLabel(carnival.State), club.Name, stateLabel(club.State)))
		}

		now := s.now().UTC()
		carnival.ApplyOwnership(models.Claimed{OwnerUserID: &delegate.ID, HostClubID: &club.ID, ClaimedAt: now})
		snapshotOriginalContact(carnival)
		carnival.SetContactFromUser(delegate)
		if err := s.carnivalRepo.UpdateOwnership(ctx, exec, carnival); err != nil {
			return err
		}
		if err := s.exemptHost(ctx, exec, carnival, now); err != nil {
			return err
		}

		if carnival.OriginalExternalContactEmail != nil {
			originalEmail = *carnival.OriginalExternalContactEmail
		}
		carnival.HostClub = club
		res.Carnival = carnival
		res.Claimant = delegate
		return nil
	})
	if err != nil {
		return OwnershipResult{Outcome: failure(ctx, s.logger, op, err,
			slog.Int("carnival_id", carnivalID), slog.Int("user_id", adminUserID), slog.Int("club_id", targetClubID))}
	}

	res.Outcome = succeeded(fmt.Sprintf("%q assigned to %s (%s)", res.Carnival.Title, club.Name, res.Claimant.FullName()))
	s.logger.InfoContext(ctx, "carnival claimed on behalf of club",
		slog.Int("carnival_id", carnivalID), slog.Int("club_id", club.ID),
		slog.Int("owner_user_id", res.Claimant.ID), slog.Int("admin_user_id", adminUserID))
	s.publish(ctx, carnivalID, EventCarnivalClaimed, res.Carnival)

	if originalEmail != "" {
		notifyBestEffort(ctx, s.logger, op, func() {
			s.notifier.NotifyClaim(ctx, res.Carnival, res.Claimant, club, originalEmail)
		})
	}
	return res
}

// exemptHost brings the new host club's existing registration, if any, in line with the host exemption.
func (s *OwnershipService) exemptHost(ctx context.Context, exec repositories.SQLExecutor, c *models.Carnival, now time.Time) error {
	changed, err := exemptHostRegistration(ctx, exec, s.regRepo, c, now)
	if err != nil || !changed {
		return err
	}
	count, err := s.carnivalRepo.RecountRegistrations(ctx, exec, c.ID)
	if err != nil {
		return err
	}
	c.CurrentRegistrations = count
	return nil
}

// chargeFormerHost recalculates the released host club's registration now that it no longer hosts.
func (s *OwnershipService) chargeFormerHost(ctx context.Context, exec repositories.SQLExecutor, c *models.Carnival, formerHost *int, now time.Time) error {
	if formerHost == nil {
		return nil
	}
	reg, err := s.regRepo.FindActiveByCarnivalAndClub(ctx, exec, c.ID, *formerHost)
	if errors.Is(err, repositories.ErrRegistrationNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.fees.recalculate(ctx, exec, c, reg, now)
	return err
}
