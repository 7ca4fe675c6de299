package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/carnival-system/models"
)

var (
	ErrClubNotFound   = errors.New("club not found")
	ErrPlayerNotFound = errors.New("club player not found")
)

// ClubRepository is a read-only view of the club directory.
type ClubRepository interface {
	// GetByID loads the club together with its active primary delegate, if any.
	GetByID(ctx context.Context, id int) (*models.Club, error)
	GetPlayer(ctx context.Context, playerID int) (*models.ClubPlayer, error)
}

type postgresClubRepository struct {
	db *sql.DB
}

func NewPostgresClubRepository(db *sql.DB) ClubRepository {
	return &postgresClubRepository{db: db}
}

func (r *postgresClubRepository) GetByID(ctx context.Context, id int) (*models.Club, error) {
	query := `
		SELECT
			c.id, c.name, c.state, c.is_active, c.contact_person, c.contact_email, c.contact_phone, c.created_at,
			COALESCE(u.id, 0), COALESCE(u.first_name, ''), COALESCE(u.last_name, ''), COALESCE(u.email, ''), u.phone,
			COALESCE(u.is_active, FALSE)
		FROM clubs c
		LEFT JOIN LATERAL (
			SELECT id, first_name, last_name, email, phone, is_active
			FROM users
			WHERE club_id = c.id AND role = $2 AND is_active = TRUE
			ORDER BY id
			LIMIT 1
		) u ON TRUE
		WHERE c.id = $1`

	var c models.Club
	var d models.User
	err := r.db.QueryRowContext(ctx, query, id, models.RolePrimaryDelegate).Scan(
		&c.ID, &c.Name, &c.State, &c.IsActive, &c.ContactPerson, &c.ContactEmail, &c.ContactPhone, &c.CreatedAt,
		&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClubNotFound
		}
		return nil, fmt.Errorf("failed to get club %d: %w", id, err)
	}
	if d.ID > 0 {
		clubID := c.ID
		d.ClubID = &clubID
		d.Role = models.RolePrimaryDelegate
		c.PrimaryDelegate = &d
	}
	return &c, nil
}

func (r *postgresClubRepository) GetPlayer(ctx context.Context, playerID int) (*models.ClubPlayer, error) {
	query := `SELECT id, club_id, first_name, last_name, is_active FROM club_players WHERE id = $1`
	p := &models.ClubPlayer{}
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(&p.ID, &p.ClubID, &p.FirstName, &p.LastName, &p.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get club player %d: %w", playerID, err)
	}
	return p, nil
}
