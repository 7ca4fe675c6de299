package services

import "errors"

// ErrorKind classifies a failed operation so every caller (HTTP, CLI, batch job) maps it the same way.
type ErrorKind string

const (
	KindNone         ErrorKind = ""
	KindNotFound     ErrorKind = "not_found"
	KindInvalidState ErrorKind = "invalid_state"
	KindUnauthorized ErrorKind = "unauthorized"
	KindValidation   ErrorKind = "validation_failure"
	KindInternal     ErrorKind = "internal_error"
)

var (
	// Not found
	ErrCarnivalNotFound     = errors.New("carnival not found")
	ErrClubNotFound         = errors.New("club not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrRegistrationNotFound = errors.New("attendance registration not found")
	ErrPlayerNotFound       = errors.New("club player not found")
	ErrAssignmentNotFound   = errors.New("player assignment not found")

	// Invalid state
	ErrCarnivalInactive        = errors.New("carnival is not active")
	ErrClubInactive            = errors.New("club is not active")
	ErrCarnivalManuallyEntered = errors.New("manually entered carnivals cannot be claimed or released")
	ErrCarnivalNotImported     = errors.New("carnival was not imported from the external feed")
	ErrCarnivalAlreadyClaimed  = errors.New("carnival already has an owner")
	ErrCarnivalNotClaimed      = errors.New("carnival does not have an owner")
	ErrRegionMismatch          = errors.New("carnival and club are in different states")
	ErrNoPrimaryDelegate       = errors.New("club has no active primary delegate")
	ErrRegistrationConflict    = errors.New("club already has an active registration for this carnival")
	ErrCarnivalFull            = errors.New("carnival has reached its maximum number of teams")
	ErrRegistrationNotOpen     = errors.New("carnival registration is closed")
	ErrRegistrationInactive    = errors.New("attendance registration has been removed")
	ErrPaidWithdrawal          = errors.New("registration has already been paid; contact the carnival organiser to withdraw")
	ErrHostRegistrationLocked  = errors.New("the host club's own registration is always approved")
	ErrAssignmentConflict      = errors.New("player is already assigned to this registration")
	ErrAssignmentInactive      = errors.New("player assignment has been removed")
	ErrImportMissingID         = errors.New("imported carnival requires an external import id")

	// Unauthorized
	ErrUserInactive           = errors.New("user account is not active")
	ErrUserNoClub             = errors.New("user does not belong to a club")
	ErrNotCarnivalOwner       = errors.New("only the current owner can release this carnival")
	ErrAdminRequired          = errors.New("administrator role required")
	ErrNotOrganizer           = errors.New("only the carnival organiser or an administrator can perform this action")
	ErrNotClubDelegate        = errors.New("only a delegate of the registering club can perform this action")
	ErrAuthInvalidCredentials = errors.New("invalid email or password")

	// Validation
	ErrValidationFailed        = errors.New("validation failed")
	ErrRejectionReasonRequired = errors.New("a rejection reason is required")
	ErrInvalidTeamCount        = errors.New("number of teams must be at least 1")
	ErrInvalidPlayerCount      = errors.New("player count cannot be negative")
	ErrInvalidAttendanceStatus = errors.New("attendance status must be confirmed, pending or declined")
	ErrInvalidFees             = errors.New("fees must be non-negative")
	ErrInvalidMode             = errors.New("unknown registration mode")
	ErrPlayerNotInClub         = errors.New("player does not belong to the registering club")
	ErrTitleRequired           = errors.New("carnival title is required")
	ErrStorageDisabled         = errors.New("file storage is not configured")
	ErrUnsupportedImage        = errors.New("unsupported image content type")
)

var errorKinds = map[ErrorKind][]error{
	KindNotFound: {
		ErrCarnivalNotFound, ErrClubNotFound, ErrUserNotFound, ErrRegistrationNotFound,
		ErrPlayerNotFound, ErrAssignmentNotFound,
	},
	KindInvalidState: {
		ErrCarnivalInactive, ErrClubInactive, ErrCarnivalManuallyEntered, ErrCarnivalNotImported,
		ErrCarnivalAlreadyClaimed, ErrCarnivalNotClaimed, ErrRegionMismatch, ErrNoPrimaryDelegate,
		ErrRegistrationConflict, ErrCarnivalFull, ErrRegistrationNotOpen, ErrRegistrationInactive,
		ErrPaidWithdrawal, ErrHostRegistrationLocked, ErrAssignmentConflict, ErrAssignmentInactive,
		ErrImportMissingID,
	},
	KindUnauthorized: {
		ErrUserInactive, ErrUserNoClub, ErrNotCarnivalOwner, ErrAdminRequired, ErrNotOrganizer,
		ErrNotClubDelegate, ErrAuthInvalidCredentials,
	},
	KindValidation: {
		ErrValidationFailed, ErrRejectionReasonRequired, ErrInvalidTeamCount, ErrInvalidPlayerCount,
		ErrInvalidAttendanceStatus, ErrInvalidFees, ErrInvalidMode, ErrPlayerNotInClub, ErrTitleRequired,
		ErrStorageDisabled, ErrUnsupportedImage,
	},
}

// KindOf classifies err. Anything not in the taxonomy is an internal error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for kind, sentinels := range errorKinds {
		for _, sentinel := range sentinels {
			if errors.Is(err, sentinel) {
				return kind
			}
		}
	}
	return KindInternal
}
