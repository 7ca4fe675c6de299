package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/carnival-system/models"
)

var (
	ErrRegistrationNotFound        = errors.New("attendance registration not found")
	ErrRegistrationConflict        = errors.New("club already has an active registration for this carnival")
	ErrRegistrationClubInvalid     = errors.New("registration club conflict or invalid")
	ErrRegistrationCarnivalInvalid = errors.New("registration carnival conflict or invalid")
	ErrRegistrationCheckViolation  = errors.New("registration violates a check constraint")
)

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.AttendanceRegistration) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.AttendanceRegistration, error)
	FindActiveByCarnivalAndClub(ctx context.Context, exec SQLExecutor, carnivalID, clubID int) (*models.AttendanceRegistration, error)
	ListByCarnival(ctx context.Context, exec SQLExecutor, carnivalID int, activeOnly bool) ([]*models.AttendanceRegistration, error)
	CountApproved(ctx context.Context, exec SQLExecutor, carnivalID int) (int, error)
	CountActive(ctx context.Context, exec SQLExecutor, carnivalID int) (int, error)
	MaxDisplayOrder(ctx context.Context, exec SQLExecutor, carnivalID int) (int, error)
	// Update writes participation details, approval state and the active flag.
	Update(ctx context.Context, exec SQLExecutor, reg *models.AttendanceRegistration) error
	// UpdatePayment writes only the monetary columns.
	UpdatePayment(ctx context.Context, exec SQLExecutor, reg *models.AttendanceRegistration) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const registrationColumns = `
	id, carnival_id, club_id, number_of_teams, player_count,
	contact_person, contact_email, contact_phone, notes, special_requirements,
	payment_amount, is_paid, payment_date, paid_by_exemption,
	approval_status, approved_at, approved_by_user_id, rejection_reason,
	display_order, is_active, created_at, updated_at`

func scanRegistration(row rowScanner, reg *models.AttendanceRegistration) error {
	return row.Scan(
		&reg.ID, &reg.CarnivalID, &reg.ClubID, &reg.NumberOfTeams, &reg.PlayerCount,
		&reg.ContactPerson, &reg.ContactEmail, &reg.ContactPhone, &reg.Notes, &reg.SpecialRequirements,
		&reg.PaymentAmount, &reg.IsPaid, &reg.PaymentDate, &reg.PaidByExemption,
		&reg.ApprovalStatus, &reg.ApprovedAt, &reg.ApprovedByUserID, &reg.RejectionReason,
		&reg.DisplayOrder, &reg.IsActive, &reg.CreatedAt, &reg.UpdatedAt,
	)
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.AttendanceRegistration) error {
	query := `
		INSERT INTO carnival_clubs (
			carnival_id, club_id, number_of_teams, player_count,
			contact_person, contact_email, contact_phone, notes, special_requirements,
			payment_amount, is_paid, payment_date, paid_by_exemption,
			approval_status, approved_at, approved_by_user_id, rejection_reason,
			display_order, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		reg.CarnivalID, reg.ClubID, reg.NumberOfTeams, reg.PlayerCount,
		reg.ContactPerson, reg.ContactEmail, reg.ContactPhone, reg.Notes, reg.SpecialRequirements,
		reg.PaymentAmount, reg.IsPaid, reg.PaymentDate, reg.PaidByExemption,
		reg.ApprovalStatus, reg.ApprovedAt, reg.ApprovedByUserID, reg.RejectionReason,
		reg.DisplayOrder, reg.IsActive,
	).Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)

	return r.handleRegistrationError(err)
}

func (r *postgresRegistrationRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.AttendanceRegistration, error) {
	reg := &models.AttendanceRegistration{}
	err := scanRegistration(r.getExecutor(exec).QueryRowContext(ctx, query, args...), reg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.AttendanceRegistration, error) {
	return r.findOne(ctx, exec, `SELECT `+registrationColumns+` FROM carnival_clubs WHERE id = $1`, id)
}

func (r *postgresRegistrationRepository) FindActiveByCarnivalAndClub(ctx context.Context, exec SQLExecutor, carnivalID, clubID int) (*models.AttendanceRegistration, error) {
	query := `SELECT ` + registrationColumns + ` FROM carnival_clubs WHERE carnival_id = $1 AND club_id = $2 AND is_active = TRUE`
	return r.findOne(ctx, exec, query, carnivalID, clubID)
}

func (r *postgresRegistrationRepository) ListByCarnival(ctx context.Context, exec SQLExecutor, carnivalID int, activeOnly bool) ([]*models.AttendanceRegistration, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + registrationColumns + ` FROM carnival_clubs WHERE carnival_id = $1`)
	if activeOnly {
		queryBuilder.WriteString(" AND is_active = TRUE")
	}
	queryBuilder.WriteString(" ORDER BY display_order ASC, id ASC")

	rows, err := r.getExecutor(exec).QueryContext(ctx, queryBuilder.String(), carnivalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations by carnival: %w", err)
	}
	defer rows.Close()

	registrations := make([]*models.AttendanceRegistration, 0)
	for rows.Next() {
		var reg models.AttendanceRegistration
		if err := scanRegistration(rows, &reg); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		registrations = append(registrations, &reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return registrations, nil
}

func (r *postgresRegistrationRepository) count(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return n, nil
}

func (r *postgresRegistrationRepository) CountApproved(ctx context.Context, exec SQLExecutor, carnivalID int) (int, error) {
	query := `SELECT COUNT(*) FROM carnival_clubs WHERE carnival_id = $1 AND is_active = TRUE AND approval_status = $2`
	return r.count(ctx, exec, query, carnivalID, models.ApprovalApproved)
}

func (r *postgresRegistrationRepository) CountActive(ctx context.Context, exec SQLExecutor, carnivalID int) (int, error) {
	return r.count(ctx, exec, `SELECT COUNT(*) FROM carnival_clubs WHERE carnival_id = $1 AND is_active = TRUE`, carnivalID)
}

func (r *postgresRegistrationRepository) MaxDisplayOrder(ctx context.Context, exec SQLExecutor, carnivalID int) (int, error) {
	return r.count(ctx, exec, `SELECT COALESCE(MAX(display_order), 0) FROM carnival_clubs WHERE carnival_id = $1`, carnivalID)
}

func (r *postgresRegistrationRepository) Update(ctx context.Context, exec SQLExecutor, reg *models.AttendanceRegistration) error {
	query := `
		UPDATE carnival_clubs SET
			number_of_teams = $1,
			player_count = $2,
			contact_person = $3,
			contact_email = $4,
			contact_phone = $5,
			notes = $6,
			special_requirements = $7,
			approval_status = $8,
			approved_at = $9,
			approved_by_user_id = $10,
			rejection_reason = $11,
			is_active = $12,
			updated_at = NOW()
		WHERE id = $13
		RETURNING updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		reg.NumberOfTeams, reg.PlayerCount,
		reg.ContactPerson, reg.ContactEmail, reg.ContactPhone, reg.Notes, reg.SpecialRequirements,
		reg.ApprovalStatus, reg.ApprovedAt, reg.ApprovedByUserID, reg.RejectionReason,
		reg.IsActive,
		reg.ID,
	).Scan(&reg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRegistrationNotFound
	}
	return r.handleRegistrationError(err)
}

func (r *postgresRegistrationRepository) UpdatePayment(ctx context.Context, exec SQLExecutor, reg *models.AttendanceRegistration) error {
	query := `
		UPDATE carnival_clubs
		SET payment_amount = $1, is_paid = $2, payment_date = $3, paid_by_exemption = $4, updated_at = NOW()
		WHERE id = $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		reg.PaymentAmount, reg.IsPaid, reg.PaymentDate, reg.PaidByExemption, reg.ID)
	if err != nil {
		return r.handleRegistrationError(err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) handleRegistrationError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := pqCode(err); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "carnival_clubs_active_pair_key" {
				return ErrRegistrationConflict
			}
		case "23503": // foreign_key_violation
			switch pqErr.Constraint {
			case "carnival_clubs_club_id_fkey":
				return ErrRegistrationClubInvalid
			case "carnival_clubs_carnival_id_fkey":
				return ErrRegistrationCarnivalInvalid
			}
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", ErrRegistrationCheckViolation, pqErr.Constraint)
		}
	}
	return err
}
