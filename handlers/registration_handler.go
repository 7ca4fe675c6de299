package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Dosada05/carnival-system/models"
	"github.com/Dosada05/carnival-system/services"
)

type RegistrationManager interface {
	Register(ctx context.Context, carnivalID, clubID int, details services.RegistrationDetails, actingUserID int, mode services.RegistrationMode) services.RegistrationResult
	Approve(ctx context.Context, registrationID, actingUserID int) services.RegistrationResult
	Reject(ctx context.Context, registrationID, actingUserID int, reason string) services.RegistrationResult
	Update(ctx context.Context, registrationID int, changes services.RegistrationChanges, actingUserID int) services.RegistrationResult
	Unregister(ctx context.Context, registrationID, actingUserID int) services.RegistrationResult
	RecalculateFees(ctx context.Context, registrationID int) services.FeeResult
	MarkPaid(ctx context.Context, registrationID, actingUserID int) services.FeeResult
	AssignPlayer(ctx context.Context, registrationID, playerID int, status models.AttendanceStatus, actingUserID int) services.AssignmentResult
	SetPlayerAttendance(ctx context.Context, assignmentID int, status models.AttendanceStatus, actingUserID int) services.AssignmentResult
	RemovePlayer(ctx context.Context, assignmentID, actingUserID int) services.AssignmentResult
	ListByCarnival(ctx context.Context, carnivalID int, activeOnly bool) ([]*models.AttendanceRegistration, error)
	ListAssignments(ctx context.Context, registrationID int) ([]*models.PlayerAssignment, error)
}

type RegistrationHandler struct {
	registrations RegistrationManager
}

func NewRegistrationHandler(registrations RegistrationManager) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

type registerRequest struct {
	ClubID int `json:"club_id" validate:"required,gt=0"`
	services.RegistrationDetails
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type assignPlayerRequest struct {
	PlayerID         int                     `json:"player_id" validate:"required,gt=0"`
	AttendanceStatus models.AttendanceStatus `json:"attendance_status,omitempty" validate:"omitempty,oneof=confirmed pending declined"`
}

type attendanceRequest struct {
	AttendanceStatus models.AttendanceStatus `json:"attendance_status" validate:"required,oneof=confirmed pending declined"`
}

// ListRegistrations godoc
// @Summary List a carnival's attendance registrations
// @Tags registrations
// @Produce json
// @Param carnivalID path int true "Carnival ID"
// @Param include_inactive query bool false "Include withdrawn registrations"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Carnival not found"
// @Security BearerAuth
// @Router /carnivals/{carnivalID}/registrations [get]
func (h *RegistrationHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	carnivalID, err := getIDFromURL(r, "carnivalID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

	regs, err := h.registrations.ListByCarnival(r.Context(), carnivalID, !includeInactive)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) register(w http.ResponseWriter, r *http.Request, mode services.RegistrationMode) {
	carnivalID, err := getIDFromURL(r, "carnivalID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input registerRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	res := h.registrations.Register(r.Context(), carnivalID, input.ClubID, input.RegistrationDetails, userID, mode)
	writeOutcome(w, r, http.StatusCreated, res.Outcome, res)
}

// AddRegistration godoc
// @Summary Organiser adds a club to the carnival (approved immediately)
// @Tags registrations
// @Accept json
// @Produce json
// @Param carnivalID path int true "Carnival ID"
// @Param input body registerRequest true "Club and participation details"
// @Success 201 {object} services.RegistrationResult
// @Failure 403 {object} map[string]string "Not the carnival organiser"
// @Failure 409 {object} map[string]string "Duplicate registration / carnival full"
// @Failure 422 {object} map[string]string "Validation failed"
// @Security BearerAuth
// @Router /carnivals/{carnivalID}/registrations [post]
func (h *RegistrationHandler) AddRegistration(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, services.ModeOrganizerAdds)
}

// SelfRegister godoc
// @Summary A club delegate registers their club (pending approval)
// @Tags registrations
// @Accept json
// @Produce json
// @Param carnivalID path int true "Carnival ID"
// @Param input body registerRequest true "Club and participation details"
// @Success 201 {object} services.RegistrationResult
// @Failure 403 {object} map[string]string "Not a delegate of the club"
// @Failure 409 {object} map[string]string "Duplicate / full / registration closed"
// @Security BearerAuth
// @Router /carnivals/{carnivalID}/register [post]
func (h *RegistrationHandler) SelfRegister(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, services.ModeSelfService)
}

// UpdateRegistration godoc
// @Summary Update participation details
// @Description Partial update: omitted fields keep their stored values.
// @Tags registrations
// @Accept json
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Param input body services.RegistrationChanges true "Changed fields"
// @Success 200 {object} services.RegistrationResult
// @Security BearerAuth
// @Router /registrations/{registrationID} [patch]
func (h *RegistrationHandler) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.RegistrationChanges
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	res := h.registrations.Update(r.Context(), registrationID, input, userID)
	writeOutcome(w, r, http.StatusOK, res.Outcome, res)
}

// Approve godoc
// @Summary Approve a registration
// @Tags registrations
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Success 200 {object} services.RegistrationResult
// @Failure 409 {object} map[string]string "Carnival full"
// @Security BearerAuth
// @Router /registrations/{registrationID}/approve [post]
func (h *RegistrationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	res := h.registrations.Approve(r.Context(), registrationID, userID)
	writeOutcome(w, r, http.StatusOK, res.Outcome, res)
}

// Reject godoc
// @Summary Reject a registration with a reason
// @Tags registrations
// @Accept json
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Param input body rejectRequest true "Reason"
// @Success 200 {object} services.RegistrationResult
// @Failure 422 {object} map[string]string "Reason missing"
// @Security BearerAuth
// @Router /registrations/{registrationID}/reject [post]
func (h *RegistrationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input rejectRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	res := h.registrations.Reject(r.Context(), registrationID, userID, input.Reason)
	writeOutcome(w, r, http.StatusOK, res.Outcome, res)
}

// Unregister godoc
// @Summary Withdraw a registration
// @Tags registrations
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Success 200 {object} services.RegistrationResult
// @Failure 409 {object} map[string]string "Paid registrations must be withdrawn by the organiser"
// @Security BearerAuth
// @Router /registrations/{registrationID} [delete]
func (h *RegistrationHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	res := h.registrations.Unregister(r.Context(), registrationID, userID)
	writeOutcome(w, r, http.StatusOK, res.Outcome, res)
}

// RecalculateFees godoc
// @Summary Re-derive a registration's fee
// @Tags registrations
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Success 200 {object} services.FeeResult
// @Security BearerAuth
// @Router /registrations/{registrationID}/recalculate [post]
func (h *RegistrationHandler) RecalculateFees(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	res := h.registrations.RecalculateFees(r.Context(), registrationID)
	writeOutcome(w, r, http.StatusOK, res.Outcome, res)
}

// MarkPaid godoc
// @Summary Record payment for a registration
// @Tags registrations
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Success 200 {object} services.FeeResult
// @Security BearerAuth
// @Router /registrations/{registrationID}/mark-paid [post]
func (h *RegistrationHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	res := h.registrations.MarkPaid(r.Context(), registrationID, userID)
	writeOutcome(w, r, http.StatusOK, res.Outcome, res)
}

// ListPlayers godoc
// @Summary List players assigned to a registration
// @Tags roster
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Success 200 {object} map[string]interface{}
// @Router /registrations/{registrationID}/players [get]
func (h *RegistrationHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	assignments, err := h.registrations.ListAssignments(r.Context(), registrationID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": assignments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AssignPlayer godoc
// @Summary Add a club player to a registration
// @Tags roster
// @Accept json
// @Produce json
// @Param registrationID path int true "Registration ID"
// @Param input body assignPlayerRequest true "Player"
// @Success 201 {object} services.AssignmentResult
// @Security BearerAuth
// @Router /registrations/{registrationID}/players [post]
func (h *RegistrationHandler) AssignPlayer(w http.ResponseWriter, r *http.Request) {
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input assignPlayerRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	res := h.registrations.AssignPlayer(r.Context(), registrationID, input.PlayerID, input.AttendanceStatus, userID)
	writeOutcome(w, r, http.StatusCreated, res.Outcome, res)
}

// SetAttendance godoc
// @Summary Change an assigned player's attendance status
// @Tags roster
// @Accept json
// @Produce json
// @Param assignmentID path int true "Assignment ID"
// @Param input body attendanceRequest true "Status"
// @Success 200 {object} services.AssignmentResult
// @Security BearerAuth
// @Router /assignments/{assignmentID} [patch]
func (h *RegistrationHandler) SetAttendance(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := getIDFromURL(r, "assignmentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input attendanceRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	res := h.registrations.SetPlayerAttendance(r.Context(), assignmentID, input.AttendanceStatus, userID)
	writeOutcome(w, r, http.StatusOK, res.Outcome, res)
}

// RemovePlayer godoc
// @Summary Remove a player from a registration
// @Tags roster
// @Produce json
// @Param assignmentID path int true "Assignment ID"
// @Success 200 {object} services.AssignmentResult
// @Security BearerAuth
// @Router /assignments/{assignmentID} [delete]
func (h *RegistrationHandler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := getIDFromURL(r, "assignmentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	res := h.registrations.RemovePlayer(r.Context(), assignmentID, userID)
	writeOutcome(w, r, http.StatusOK, res.Outcome, res)
}
