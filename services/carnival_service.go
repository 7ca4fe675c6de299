package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/carnival-system/models"
	"github.com/Dosada05/carnival-system/repositories"
	"github.com/Dosada05/carnival-system/storage"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type CreateCarnivalInput struct {
	Title                string          `json:"title" validate:"required,max=200"`
	Date                 time.Time       `json:"date" validate:"required"`
	EndDate              *time.Time      `json:"end_date,omitempty"`
	Location             *string         `json:"location,omitempty" validate:"omitempty,max=200"`
	State                *string         `json:"state,omitempty" validate:"omitempty,max=10"`
	TeamRegistrationFee  decimal.Decimal `json:"team_registration_fee"`
	PerPlayerFee         decimal.Decimal `json:"per_player_fee"`
	MaxTeams             *int            `json:"max_teams,omitempty" validate:"omitempty,gte=1"`
	IsRegistrationOpen   bool            `json:"is_registration_open"`
	RegistrationDeadline *time.Time      `json:"registration_deadline,omitempty"`
}

// ImportedCarnival is one record of the external event feed.
type ImportedCarnival struct {
	ExternalID   string     `json:"external_id"`
	Title        string     `json:"title"`
	Date         time.Time  `json:"date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Location     *string    `json:"location,omitempty"`
	State        *string    `json:"state,omitempty"`
	ContactName  *string    `json:"contact_name,omitempty"`
	ContactEmail *string    `json:"contact_email,omitempty"`
	ContactPhone *string    `json:"contact_phone,omitempty"`
}

type UpdateFeesInput struct {
	TeamRegistrationFee decimal.Decimal `json:"team_registration_fee"`
	PerPlayerFee        decimal.Decimal `json:"per_player_fee"`
}

type CarnivalOverview struct {
	Carnival      *models.Carnival            `json:"carnival"`
	Ownership     string                      `json:"ownership"`
	HostClub      *models.Club                `json:"host_club,omitempty"`
	Registrations []models.PublicRegistration `json:"registrations"`
}

type CarnivalService struct {
	tx           repositories.Transactor
	carnivalRepo repositories.CarnivalRepository
	regRepo      repositories.RegistrationRepository
	dir          directory
	fees         feeRecalculator
	uploader     storage.FileUploader
	events       EventPublisher
	logger       *slog.Logger
	now          func() time.Time
}

func NewCarnivalService(
	tx repositories.Transactor,
	carnivalRepo repositories.CarnivalRepository,
	regRepo repositories.RegistrationRepository,
	assignRepo repositories.PlayerAssignmentRepository,
	userRepo repositories.UserRepository,
	clubRepo repositories.ClubRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) *CarnivalService {
	return &CarnivalService{
		tx:           tx,
		carnivalRepo: carnivalRepo,
		regRepo:      regRepo,
		dir:          directory{userRepo: userRepo, clubRepo: clubRepo},
		fees:         feeRecalculator{regRepo: regRepo, assignRepo: assignRepo},
		uploader:     uploader,
		events:       nopPublisher{},
		logger:       logger,
		now:          time.Now,
	}
}

func (s *CarnivalService) WithEvents(p EventPublisher) *CarnivalService {
	if p != nil {
		s.events = p
	}
	return s
}

func (s *CarnivalService) populatePromoURL(c *models.Carnival) {
	if c != nil && c.PromoImageKey != nil && *c.PromoImageKey != "" && s.uploader != nil {
		if url := s.uploader.GetPublicURL(*c.PromoImageKey); url != "" {
			c.PromoImageURL = &url
		}
	}
}

// CreateManual creates a carnival entered by hand. Its creator owns it and it never enters the claim workflow.
func (s *CarnivalService) CreateManual(ctx context.Context, actingUserID int, input CreateCarnivalInput) (*models.Carnival, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if input.TeamRegistrationFee.IsNegative() || input.PerPlayerFee.IsNegative() {
		return nil, ErrInvalidFees
	}
	if input.MaxTeams != nil && *input.MaxTeams < 1 {
		return nil, fmt.Errorf("%w: max teams must be at least 1", ErrValidationFailed)
	}

	actor, err := s.dir.activeUser(ctx, actingUserID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := &models.Carnival{
		Title:                strings.TrimSpace(input.Title),
		Date:                 input.Date.UTC(),
		EndDate:              input.EndDate,
		Location:             input.Location,
		State:                input.State,
		IsActive:             true,
		IsManuallyEntered:    true,
		TeamRegistrationFee:  input.TeamRegistrationFee.Round(2),
		PerPlayerFee:         input.PerPlayerFee.Round(2),
		MaxTeams:             input.MaxTeams,
		IsRegistrationOpen:   input.IsRegistrationOpen,
		RegistrationDeadline: input.RegistrationDeadline,
	}
	c.ApplyOwnership(models.Claimed{OwnerUserID: &actor.ID, HostClubID: actor.ClubID, ClaimedAt: now})
	c.SetContactFromUser(actor)

	if err := s.carnivalRepo.Create(ctx, nil, c); err != nil {
		if errors.Is(err, repositories.ErrCarnivalInvalidClub) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to create carnival: %w", err)
	}
	s.logger.InfoContext(ctx, "manual carnival created", slog.Int("carnival_id", c.ID), slog.Int("user_id", actor.ID))
	return c, nil
}

// UpsertImported applies one feed record. Ownership columns are never written; the outward contact
// is refreshed only while nobody owns the carnival.
func (s *CarnivalService) UpsertImported(ctx context.Context, rec ImportedCarnival) (*models.Carnival, bool, error) {
	externalID := strings.TrimSpace(rec.ExternalID)
	if externalID == "" {
		return nil, false, ErrImportMissingID
	}
	if strings.TrimSpace(rec.Title) == "" {
		return nil, false, ErrTitleRequired
	}

	var (
		carnival *models.Carnival
		created  bool
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		now := s.now().UTC()
		existing, err := s.carnivalRepo.GetByExternalImportID(ctx, exec, externalID)
		if err != nil && !errors.Is(err, repositories.ErrCarnivalNotFound) {
			return err
		}

		if existing == nil {
			carnival = &models.Carnival{
				ExternalImportID:   &externalID,
				IsActive:           true,
				IsRegistrationOpen: true,
			}
			applyFeedRecord(carnival, rec, now)
			carnival.OrganiserContactName = rec.ContactName
			carnival.OrganiserContactEmail = rec.ContactEmail
			carnival.OrganiserContactPhone = rec.ContactPhone
			created = true
			return s.carnivalRepo.Create(ctx, exec, carnival)
		}

		carnival = existing
		applyFeedRecord(carnival, rec, now)
		if _, unowned := carnival.Ownership().(models.Unowned); unowned {
			carnival.OrganiserContactName = rec.ContactName
			carnival.OrganiserContactEmail = rec.ContactEmail
			carnival.OrganiserContactPhone = rec.ContactPhone
		}
		return s.carnivalRepo.UpdateImported(ctx, exec, carnival)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to import carnival %q: %w", externalID, err)
	}
	return carnival, created, nil
}

func applyFeedRecord(c *models.Carnival, rec ImportedCarnival, now time.Time) {
	c.Title = strings.TrimSpace(rec.Title)
	c.Date = rec.Date.UTC()
	c.EndDate = rec.EndDate
	c.Location = rec.Location
	c.State = rec.State
	c.IsManuallyEntered = false
	c.ExternalSyncTimestamp = &now
}

func (s *CarnivalService) GetByID(ctx context.Context, carnivalID int) (*models.Carnival, error) {
	c, err := s.carnivalRepo.GetByID(ctx, nil, carnivalID)
	if err != nil {
		if errors.Is(err, repositories.ErrCarnivalNotFound) {
			return nil, ErrCarnivalNotFound
		}
		return nil, fmt.Errorf("failed to get carnival %d: %w", carnivalID, err)
	}
	s.populatePromoURL(c)
	return c, nil
}

func (s *CarnivalService) List(ctx context.Context, filter repositories.ListCarnivalsFilter) ([]*models.Carnival, error) {
	carnivals, err := s.carnivalRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list carnivals: %w", err)
	}
	for _, c := range carnivals {
		s.populatePromoURL(c)
	}
	return carnivals, nil
}

// GetOverview loads the carnival and its active registrations concurrently, then the host club.
func (s *CarnivalService) GetOverview(ctx context.Context, carnivalID int) (*CarnivalOverview, error) {
	overview := &CarnivalOverview{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.GetByID(gctx, carnivalID)
		if err != nil {
			return err
		}
		overview.Carnival = c
		return nil
	})
	g.Go(func() error {
		regs, err := s.regRepo.ListByCarnival(gctx, nil, carnivalID, true)
		if err != nil {
			return fmt.Errorf("failed to list registrations: %w", err)
		}
		overview.Registrations = models.PublicRegistrations(regs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	overview.Ownership = "unowned"
	if _, claimed := overview.Carnival.Ownership().(models.Claimed); claimed {
		overview.Ownership = "claimed"
	}
	if hostID := overview.Carnival.HostClubID; hostID != nil {
		club, err := s.dir.clubRepo.GetByID(ctx, *hostID)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to populate host club", slog.Int("carnival_id", carnivalID), slog.Int("club_id", *hostID), slog.Any("error", err))
		} else {
			overview.HostClub = club
		}
	}
	return overview, nil
}

// UpdateFees changes the carnival's rates and re-derives every active registration's fee in the same transaction.
func (s *CarnivalService) UpdateFees(ctx context.Context, carnivalID, actingUserID int, input UpdateFeesInput) (*models.Carnival, int, error) {
	if input.TeamRegistrationFee.IsNegative() || input.PerPlayerFee.IsNegative() {
		return nil, 0, ErrInvalidFees
	}

	var (
		carnival *models.Carnival
		changed  int
	)
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		actor, err := s.dir.activeUser(ctx, actingUserID)
		if err != nil {
			return err
		}
		carnival, err = lockCarnival(ctx, s.carnivalRepo, exec, carnivalID)
		if err != nil {
			return err
		}
		if !isCarnivalOrganizer(actor, carnival) {
			return ErrNotOrganizer
		}

		carnival.TeamRegistrationFee = input.TeamRegistrationFee.Round(2)
		carnival.PerPlayerFee = input.PerPlayerFee.Round(2)
		if err := s.carnivalRepo.UpdateFees(ctx, exec, carnival.ID, carnival.TeamRegistrationFee, carnival.PerPlayerFee); err != nil {
			if errors.Is(err, repositories.ErrCarnivalInvalidFees) {
				return ErrInvalidFees
			}
			return err
		}

		regs, err := s.regRepo.ListByCarnival(ctx, exec, carnival.ID, true)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		for _, reg := range regs {
			moved, err := s.fees.recalculate(ctx, exec, carnival, reg, now)
			if err != nil {
				return fmt.Errorf("failed to recalculate registration %d: %w", reg.ID, err)
			}
			if moved {
				changed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.logger.InfoContext(ctx, "carnival fees updated",
		slog.Int("carnival_id", carnivalID), slog.Int("user_id", actingUserID), slog.Int("registrations_changed", changed))
	publishBestEffort(ctx, s.logger, s.events, carnivalID, EventFeesChanged, carnival)
	return carnival, changed, nil
}

// Deactivate soft-deletes a carnival. Rows are never removed while registrations reference them.
func (s *CarnivalService) Deactivate(ctx context.Context, carnivalID, actingUserID int) error {
	return s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		actor, err := s.dir.activeUser(ctx, actingUserID)
		if err != nil {
			return err
		}
		carnival, err := lockCarnival(ctx, s.carnivalRepo, exec, carnivalID)
		if err != nil {
			return err
		}
		if !isCarnivalOrganizer(actor, carnival) {
			return ErrNotOrganizer
		}
		if !carnival.IsActive {
			return nil
		}
		return s.carnivalRepo.Deactivate(ctx, exec, carnivalID)
	})
}

// UploadPromoImage stores a promo image and replaces the previous one.
func (s *CarnivalService) UploadPromoImage(ctx context.Context, carnivalID, actingUserID int, contentType string, file io.Reader) (*models.Carnival, error) {
	if s.uploader == nil {
		return nil, ErrStorageDisabled
	}
	ext, err := storage.ExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}

	actor, err := s.dir.activeUser(ctx, actingUserID)
	if err != nil {
		return nil, err
	}
	carnival, err := s.GetByID(ctx, carnivalID)
	if err != nil {
		return nil, err
	}
	if !isCarnivalOrganizer(actor, carnival) {
		return nil, ErrNotOrganizer
	}

	key := storage.PromoImageKey(carnivalID, ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload promo image: %w", err)
	}
	if err := s.carnivalRepo.UpdatePromoImageKey(ctx, carnivalID, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to delete orphaned promo image", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("failed to save promo image key: %w", err)
	}

	if old := carnival.PromoImageKey; old != nil && *old != "" && *old != key {
		if err := s.uploader.Delete(ctx, *old); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete previous promo image", slog.Int("carnival_id", carnivalID), slog.String("key", *old), slog.Any("error", err))
		}
	}
	carnival.PromoImageKey = &key
	carnival.PromoImageURL = nil
	s.populatePromoURL(carnival)
	return carnival, nil
}

// RecountRegistrations repairs the cached registration counter from the stored registrations.
func (s *CarnivalService) RecountRegistrations(ctx context.Context, carnivalID int) (int, error) {
	var count int
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := lockCarnival(ctx, s.carnivalRepo, exec, carnivalID); err != nil {
			return err
		}
		var err error
		count, err = s.carnivalRepo.RecountRegistrations(ctx, exec, carnivalID)
		return err
	})
	return count, err
}

const reconcilePageSize = 100

// ReconcileCounters recounts every active carnival and returns how many cached counters were wrong.
func (s *CarnivalService) ReconcileCounters(ctx context.Context) (int, error) {
	repaired := 0
	for offset := 0; ; offset += reconcilePageSize {
		page, err := s.carnivalRepo.List(ctx, repositories.ListCarnivalsFilter{
			ActiveOnly: true,
			Limit:      reconcilePageSize,
			Offset:     offset,
		})
		if err != nil {
			return repaired, err
		}
		for _, c := range page {
			if err := ctx.Err(); err != nil {
				return repaired, err
			}
			count, err := s.RecountRegistrations(ctx, c.ID)
			if err != nil {
				return repaired, fmt.Errorf("recount carnival %d: %w", c.ID, err)
			}
			if count != c.CurrentRegistrations {
				repaired++
				s.logger.WarnContext(ctx, "registration counter drift repaired",
					slog.Int("carnival_id", c.ID),
					slog.Int("cached", c.CurrentRegistrations),
					slog.Int("actual", count))
			}
		}
		if len(page) < reconcilePageSize {
			return repaired, nil
		}
	}
}
