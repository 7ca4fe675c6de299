package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/carnival-system/models"
	"github.com/shopspring/decimal"
)

var (
	ErrCarnivalNotFound       = errors.New("carnival not found")
	ErrCarnivalImportConflict = errors.New("carnival with this external import id already exists")
	ErrCarnivalInvalidClub    = errors.New("invalid host club reference")
	ErrCarnivalInvalidOwner   = errors.New("invalid owner reference")
	ErrCarnivalInvalidFees    = errors.New("carnival fees must be non-negative")
)

type ListCarnivalsFilter struct {
	State      *string
	ActiveOnly bool
	Claimable  bool
	Limit      int
	Offset     int
}

type CarnivalRepository interface {
	Create(ctx context.Context, exec SQLExecutor, c *models.Carnival) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Carnival, error)
	// GetByIDForUpdate locks the carnival row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Carnival, error)
	GetByExternalImportID(ctx context.Context, exec SQLExecutor, externalID string) (*models.Carnival, error)
	List(ctx context.Context, filter ListCarnivalsFilter) ([]*models.Carnival, error)
	UpdateOwnership(ctx context.Context, exec SQLExecutor, c *models.Carnival) error
	UpdateImported(ctx context.Context, exec SQLExecutor, c *models.Carnival) error
	UpdateFees(ctx context.Context, exec SQLExecutor, id int, teamFee, perPlayerFee decimal.Decimal) error
	UpdatePromoImageKey(ctx context.Context, id int, key *string) error
	Deactivate(ctx context.Context, exec SQLExecutor, id int) error
	// RecountRegistrations recomputes current_registrations from active approved registrations and returns the new value.
	RecountRegistrations(ctx context.Context, exec SQLExecutor, id int) (int, error)
}

type postgresCarnivalRepository struct {
	db *sql.DB
}

func NewPostgresCarnivalRepository(db *sql.DB) CarnivalRepository {
	return &postgresCarnivalRepository{db: db}
}

func (r *postgresCarnivalRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const carnivalColumns = `
	id, title, date, end_date, location, state, is_active,
	is_manually_entered, external_import_id, external_sync_timestamp,
	host_club_id, owner_user_id, claimed_at,
	organiser_contact_name, organiser_contact_email, organiser_contact_phone, original_external_contact_email,
	team_registration_fee, per_player_fee,
	max_teams, current_registrations, is_registration_open, registration_deadline,
	promo_image_key, created_at, updated_at`

func scanCarnival(row rowScanner, c *models.Carnival) error {
	return row.Scan(
		&c.ID, &c.Title, &c.Date, &c.EndDate, &c.Location, &c.State, &c.IsActive,
		&c.IsManuallyEntered, &c.ExternalImportID, &c.ExternalSyncTimestamp,
		&c.HostClubID, &c.OwnerUserID, &c.ClaimedAt,
		&c.OrganiserContactName, &c.OrganiserContactEmail, &c.OrganiserContactPhone, &c.OriginalExternalContactEmail,
		&c.TeamRegistrationFee, &c.PerPlayerFee,
		&c.MaxTeams, &c.CurrentRegistrations, &c.IsRegistrationOpen, &c.RegistrationDeadline,
		&c.PromoImageKey, &c.CreatedAt, &c.UpdatedAt,
	)
}

func (r *postgresCarnivalRepository) Create(ctx context.Context, exec SQLExecutor, c *models.Carnival) error {
	query := `
		INSERT INTO carnivals (
			title, date, end_date, location, state, is_active,
			is_manually_entered, external_import_id, external_sync_timestamp,
			host_club_id, owner_user_id, claimed_at,
			organiser_contact_name, organiser_contact_email, organiser_contact_phone,
			team_registration_fee, per_player_fee,
			max_teams, is_registration_open, registration_deadline
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, current_registrations, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		c.Title, c.Date, c.EndDate, c.Location, c.State, c.IsActive,
		c.IsManuallyEntered, c.ExternalImportID, c.ExternalSyncTimestamp,
		c.HostClubID, c.OwnerUserID, c.ClaimedAt,
		c.OrganiserContactName, c.OrganiserContactEmail, c.OrganiserContactPhone,
		c.TeamRegistrationFee, c.PerPlayerFee,
		c.MaxTeams, c.IsRegistrationOpen, c.RegistrationDeadline,
	).Scan(&c.ID, &c.CurrentRegistrations, &c.CreatedAt, &c.UpdatedAt)

	return r.handleCarnivalError(err)
}

func (r *postgresCarnivalRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Carnival, error) {
	c := &models.Carnival{}
	err := scanCarnival(r.getExecutor(exec).QueryRowContext(ctx, query, args...), c)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCarnivalNotFound
		}
		return nil, fmt.Errorf("failed to find carnival: %w", err)
	}
	return c, nil
}

func (r *postgresCarnivalRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Carnival, error) {
	return r.findOne(ctx, exec, `SELECT `+carnivalColumns+` FROM carnivals WHERE id = $1`, id)
}

func (r *postgresCarnivalRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Carnival, error) {
	return r.findOne(ctx, exec, `SELECT `+carnivalColumns+` FROM carnivals WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresCarnivalRepository) GetByExternalImportID(ctx context.Context, exec SQLExecutor, externalID string) (*models.Carnival, error) {
	return r.findOne(ctx, exec, `SELECT `+carnivalColumns+` FROM carnivals WHERE external_import_id = $1 FOR UPDATE`, externalID)
}

func (r *postgresCarnivalRepository) List(ctx context.Context, filter ListCarnivalsFilter) ([]*models.Carnival, error) {
	query := `SELECT ` + carnivalColumns + ` FROM carnivals WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.State != nil {
		query += fmt.Sprintf(" AND state = $%d", argID)
		args = append(args, *filter.State)
		argID++
	}
	if filter.ActiveOnly {
		query += " AND is_active = TRUE"
	}
	if filter.Claimable {
		query += " AND is_manually_entered = FALSE AND external_sync_timestamp IS NOT NULL AND owner_user_id IS NULL AND host_club_id IS NULL"
	}

	query += " ORDER BY date ASC, id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list carnivals: %w", err)
	}
	defer rows.Close()

	carnivals := make([]*models.Carnival, 0)
	for rows.Next() {
		var c models.Carnival
		if err := scanCarnival(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan carnival row: %w", err)
		}
		carnivals = append(carnivals, &c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating carnival rows: %w", err)
	}
	return carnivals, nil
}

func (r *postgresCarnivalRepository) UpdateOwnership(ctx context.Context, exec SQLExecutor, c *models.Carnival) error {
	query := `
		UPDATE carnivals SET
			host_club_id = $1,
			owner_user_id = $2,
			claimed_at = $3,
			organiser_contact_name = $4,
			organiser_contact_email = $5,
			organiser_contact_phone = $6,
			original_external_contact_email = $7,
			updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		c.HostClubID, c.OwnerUserID, c.ClaimedAt,
		c.OrganiserContactName, c.OrganiserContactEmail, c.OrganiserContactPhone,
		c.OriginalExternalContactEmail,
		c.ID,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCarnivalNotFound
	}
	return r.handleCarnivalError(err)
}

// UpdateImported refreshes the feed-owned columns. Ownership columns are never written here.
func (r *postgresCarnivalRepository) UpdateImported(ctx context.Context, exec SQLExecutor, c *models.Carnival) error {
	query := `
		UPDATE carnivals SET
			title = $1,
			date = $2,
			end_date = $3,
			location = $4,
			state = $5,
			is_manually_entered = FALSE,
			external_sync_timestamp = $6,
			organiser_contact_name = $7,
			organiser_contact_email = $8,
			organiser_contact_phone = $9,
			updated_at = NOW()
		WHERE id = $10`

	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		c.Title, c.Date, c.EndDate, c.Location, c.State,
		c.ExternalSyncTimestamp,
		c.OrganiserContactName, c.OrganiserContactEmail, c.OrganiserContactPhone,
		c.ID,
	)
	if err != nil {
		return r.handleCarnivalError(err)
	}
	return checkAffectedRows(result, ErrCarnivalNotFound)
}

func (r *postgresCarnivalRepository) UpdateFees(ctx context.Context, exec SQLExecutor, id int, teamFee, perPlayerFee decimal.Decimal) error {
	query := `UPDATE carnivals SET team_registration_fee = $1, per_player_fee = $2, updated_at = NOW() WHERE id = $3`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, teamFee, perPlayerFee, id)
	if err != nil {
		return r.handleCarnivalError(err)
	}
	return checkAffectedRows(result, ErrCarnivalNotFound)
}

func (r *postgresCarnivalRepository) UpdatePromoImageKey(ctx context.Context, id int, key *string) error {
	query := `UPDATE carnivals SET promo_image_key = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, key, id)
	if err != nil {
		return fmt.Errorf("failed to update carnival promo image key: %w", err)
	}
	return checkAffectedRows(result, ErrCarnivalNotFound)
}

func (r *postgresCarnivalRepository) Deactivate(ctx context.Context, exec SQLExecutor, id int) error {
	query := `UPDATE carnivals SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate carnival: %w", err)
	}
	return checkAffectedRows(result, ErrCarnivalNotFound)
}

func (r *postgresCarnivalRepository) RecountRegistrations(ctx context.Context, exec SQLExecutor, id int) (int, error) {
	query := `
		UPDATE carnivals SET current_registrations = (
			SELECT COUNT(*) FROM carnival_clubs
			WHERE carnival_id = $1 AND is_active = TRUE AND approval_status = $2
		), updated_at = $3
		WHERE id = $1
		RETURNING current_registrations`

	var count int
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id, models.ApprovalApproved, time.Now().UTC()).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrCarnivalNotFound
		}
		return 0, fmt.Errorf("failed to recount registrations for carnival %d: %w", id, err)
	}
	return count, nil
}

func (r *postgresCarnivalRepository) handleCarnivalError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqCode(err); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "carnivals_external_import_id_key" {
				return ErrCarnivalImportConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "carnivals_host_club_id_fkey":
				return ErrCarnivalInvalidClub
			case "carnivals_owner_user_id_fkey":
				return ErrCarnivalInvalidOwner
			}
		case "23514":
			if pqErr.Constraint == "chk_carnival_fees_non_negative" {
				return ErrCarnivalInvalidFees
			}
		}
	}
	return err
}
