package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/carnival-system/models"
)

var (
	ErrAssignmentNotFound      = errors.New("player assignment not found")
	ErrAssignmentConflict      = errors.New("player is already assigned to this registration")
	ErrAssignmentPlayerInvalid = errors.New("assignment player conflict or invalid")
)

type PlayerAssignmentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, a *models.PlayerAssignment) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.PlayerAssignment, error)
	ListByRegistration(ctx context.Context, exec SQLExecutor, registrationID int) ([]*models.PlayerAssignment, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.AttendanceStatus) error
	Deactivate(ctx context.Context, exec SQLExecutor, id int) error
	// CountConfirmed counts active assignments whose attendance status is confirmed.
	CountConfirmed(ctx context.Context, exec SQLExecutor, registrationID int) (int, error)
}

type postgresPlayerAssignmentRepository struct {
	db *sql.DB
}

func NewPostgresPlayerAssignmentRepository(db *sql.DB) PlayerAssignmentRepository {
	return &postgresPlayerAssignmentRepository{db: db}
}

func (r *postgresPlayerAssignmentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerAssignmentRepository) Create(ctx context.Context, exec SQLExecutor, a *models.PlayerAssignment) error {
	query := `
		INSERT INTO carnival_club_players (registration_id, player_id, attendance_status, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query, a.RegistrationID, a.PlayerID, a.AttendanceStatus, a.IsActive).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if pqErr, ok := pqCode(err); ok {
			switch pqErr.Code {
			case "23505":
				return ErrAssignmentConflict
			case "23503":
				return ErrAssignmentPlayerInvalid
			}
		}
		return fmt.Errorf("failed to create player assignment: %w", err)
	}
	return nil
}

func (r *postgresPlayerAssignmentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.PlayerAssignment, error) {
	query := `SELECT id, registration_id, player_id, attendance_status, is_active, created_at FROM carnival_club_players WHERE id = $1`
	a := &models.PlayerAssignment{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).
		Scan(&a.ID, &a.RegistrationID, &a.PlayerID, &a.AttendanceStatus, &a.IsActive, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get player assignment: %w", err)
	}
	return a, nil
}

func (r *postgresPlayerAssignmentRepository) ListByRegistration(ctx context.Context, exec SQLExecutor, registrationID int) ([]*models.PlayerAssignment, error) {
	query := `
		SELECT a.id, a.registration_id, a.player_id, a.attendance_status, a.is_active, a.created_at,
		       p.id, p.club_id, p.first_name, p.last_name, p.is_active
		FROM carnival_club_players a
		JOIN club_players p ON p.id = a.player_id
		WHERE a.registration_id = $1 AND a.is_active = TRUE
		ORDER BY p.last_name, p.first_name`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list player assignments for registration %d: %w", registrationID, err)
	}
	defer rows.Close()

	assignments := make([]*models.PlayerAssignment, 0)
	for rows.Next() {
		var a models.PlayerAssignment
		var p models.ClubPlayer
		if err := rows.Scan(&a.ID, &a.RegistrationID, &a.PlayerID, &a.AttendanceStatus, &a.IsActive, &a.CreatedAt,
			&p.ID, &p.ClubID, &p.FirstName, &p.LastName, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan player assignment: %w", err)
		}
		a.Player = &p
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}

func (r *postgresPlayerAssignmentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.AttendanceStatus) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE carnival_club_players SET attendance_status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update player assignment status: %w", err)
	}
	return checkAffectedRows(result, ErrAssignmentNotFound)
}

func (r *postgresPlayerAssignmentRepository) Deactivate(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx, `UPDATE carnival_club_players SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate player assignment: %w", err)
	}
	return checkAffectedRows(result, ErrAssignmentNotFound)
}

func (r *postgresPlayerAssignmentRepository) CountConfirmed(ctx context.Context, exec SQLExecutor, registrationID int) (int, error) {
	query := `SELECT COUNT(*) FROM carnival_club_players WHERE registration_id = $1 AND is_active = TRUE AND attendance_status = $2`
	var n int
	if err := r.getExecutor(exec).QueryRowContext(ctx, query, registrationID, models.AttendanceConfirmed).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count confirmed players for registration %d: %w", registrationID, err)
	}
	return n, nil
}
