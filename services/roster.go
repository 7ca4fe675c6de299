package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Dosada05/carnival-system/models"
	"github.com/Dosada05/carnival-system/repositories"
)

func normalizeAttendance(status models.AttendanceStatus) (models.AttendanceStatus, error) {
	if status == "" {
		return models.AttendancePending, nil
	}
	if !status.Valid() {
		return "", ErrInvalidAttendanceStatus
	}
	return status, nil
}

// lockAssignment loads an active assignment and locks its registration's carnival.
func (s *RegistrationService) lockAssignment(ctx context.Context, exec repositories.SQLExecutor, assignmentID int) (*models.Carnival, *models.AttendanceRegistration, *models.PlayerAssignment, error) {
	a, err := s.assignRepo.GetByID(ctx, exec, assignmentID)
	if err != nil {
		if errors.Is(err, repositories.ErrAssignmentNotFound) {
			return nil, nil, nil, ErrAssignmentNotFound
		}
		return nil, nil, nil, err
	}
	if !a.IsActive {
		return nil, nil, nil, ErrAssignmentInactive
	}
	carnival, reg, err := s.lockRegistration(ctx, exec, a.RegistrationID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !reg.IsActive {
		return nil, nil, nil, ErrRegistrationInactive
	}
	return carnival, reg, a, nil
}

// AssignPlayer adds a club roster player to a registration and recalculates the fee.
func (s *RegistrationService) AssignPlayer(ctx context.Context, registrationID, playerID int, status models.AttendanceStatus, actingUserID int) (res AssignmentResult) {
	const op = "assign_player"
	defer func() { s.record(op, res.Outcome) }()
	attrs := []slog.Attr{slog.Int("registration_id", registrationID), slog.Int("player_id", playerID), slog.Int("user_id", actingUserID)}

	status, err := normalizeAttendance(status)
	if err != nil {
		return AssignmentResult{Outcome: failure(ctx, s.logger, op, err, attrs...)}
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
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
		player, err := s.dir.clubRepo.GetPlayer(ctx, playerID)
		if err != nil {
			if errors.Is(err, repositories.ErrPlayerNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}
		if player.ClubID != reg.ClubID || !player.IsActive {
			return ErrPlayerNotInClub
		}

		a := &models.PlayerAssignment{RegistrationID: reg.ID, PlayerID: playerID, AttendanceStatus: status, IsActive: true}
		if err := s.assignRepo.Create(ctx, exec, a); err != nil {
			switch {
			case errors.Is(err, repositories.ErrAssignmentConflict):
				return ErrAssignmentConflict
			case errors.Is(err, repositories.ErrAssignmentPlayerInvalid):
				return ErrPlayerNotFound
			}
			return err
		}
		if _, err := s.fees.recalculate(ctx, exec, carnival, reg, s.now().UTC()); err != nil {
			return err
		}
		a.Player = player
		res.Assignment = a
		res.Registration = reg
		return nil
	})
	if err != nil {
		return AssignmentResult{Outcome: failure(ctx, s.logger, op, err, attrs...)}
	}
	res.Outcome = succeeded("player added to the registration")
	s.publish(ctx, res.Registration.CarnivalID, EventRosterChanged, res.Assignment)
	return res
}

// SetPlayerAttendance changes an assigned player's attendance status and recalculates the fee.
func (s *RegistrationService) SetPlayerAttendance(ctx context.Context, assignmentID int, status models.AttendanceStatus, actingUserID int) (res AssignmentResult) {
	const op = "set_player_attendance"
	defer func() { s.record(op, res.Outcome) }()
	attrs := []slog.Attr{slog.Int("assignment_id", assignmentID), slog.Int("user_id", actingUserID)}

	if !status.Valid() {
		return AssignmentResult{Outcome: failure(ctx, s.logger, op, ErrInvalidAttendanceStatus, attrs...)}
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		actor, err := s.dir.activeUser(ctx, actingUserID)
		if err != nil {
			return err
		}
		carnival, reg, a, err := s.lockAssignment(ctx, exec, assignmentID)
		if err != nil {
			return err
		}
		if !canEditRegistration(actor, carnival, reg) {
			return ErrNotClubDelegate
		}
		if err := s.assignRepo.UpdateStatus(ctx, exec, a.ID, status); err != nil {
			return err
		}
		a.AttendanceStatus = status
		if _, err := s.fees.recalculate(ctx, exec, carnival, reg, s.now().UTC()); err != nil {
			return err
		}
		res.Assignment = a
		res.Registration = reg
		return nil
	})
	if err != nil {
		return AssignmentResult{Outcome: failure(ctx, s.logger, op, err, attrs...)}
	}
	res.Outcome = succeeded("attendance updated")
	s.publish(ctx, res.Registration.CarnivalID, EventRosterChanged, res.Assignment)
	return res
}

// RemovePlayer soft-deletes an assignment and recalculates the fee.
func (s *RegistrationService) RemovePlayer(ctx context.Context, assignmentID, actingUserID int) (res AssignmentResult) {
	const op = "remove_player"
	defer func() { s.record(op, res.Outcome) }()

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		actor, err := s.dir.activeUser(ctx, actingUserID)
		if err != nil {
			return err
		}
		carnival, reg, a, err := s.lockAssignment(ctx, exec, assignmentID)
		if err != nil {
			return err
		}
		if !canEditRegistration(actor, carnival, reg) {
			return ErrNotClubDelegate
		}
		if err := s.assignRepo.Deactivate(ctx, exec, a.ID); err != nil {
			return err
		}
		a.IsActive = false
		if _, err := s.fees.recalculate(ctx, exec, carnival, reg, s.now().UTC()); err != nil {
			return err
		}
		res.Assignment = a
		res.Registration = reg
		return nil
	})
	if err != nil {
		return AssignmentResult{Outcome: failure(ctx, s.logger, op, err,
			slog.Int("assignment_id", assignmentID), slog.Int("user_id", actingUserID))}
	}
	res.Outcome = succeeded("player removed from the registration")
	s.publish(ctx, res.Registration.CarnivalID, EventRosterChanged, res.Assignment)
	return res
}

func (s *RegistrationService) ListAssignments(ctx context.Context, registrationID int) ([]*models.PlayerAssignment, error) {
	if _, err := loadRegistration(ctx, s.regRepo, nil, registrationID); err != nil {
		return nil, err
	}
	return s.assignRepo.ListByRegistration(ctx, nil, registrationID)
}
