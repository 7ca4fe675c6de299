package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/carnival-system/services"
)

type OwnershipManager interface {
	Claim(ctx context.Context, carnivalID, actingUserID int) services.OwnershipResult
	Release(ctx context.Context, carnivalID, actingUserID int) services.OwnershipResult
	AdminClaimOnBehalf(ctx context.Context, carnivalID, adminUserID, targetClubID int) services.OwnershipResult
}

type OwnershipHandler struct {
	ownership OwnershipManager
}

func NewOwnershipHandler(ownership OwnershipManager) *OwnershipHandler {
	return &OwnershipHandler{ownership: ownership}
}

// Claim godoc
// @Summary Claim an imported carnival for the current user's club
// @Tags ownership
// @Produce json
// @Param carnivalID path int true "Carnival ID"
// @Success 200 {object} services.OwnershipResult
// @Failure 403 {object} map[string]string "Not eligible to claim"
// @Failure 404 {object} map[string]string "Carnival or user not found"
// @Failure 409 {object} map[string]string "Already claimed / manual carnival / region mismatch"
// @Security BearerAuth
// @Router /carnivals/{carnivalID}/claim [post]
func (h *OwnershipHandler) Claim(w http.ResponseWriter, r *http.Request) {
	carnivalID, err := getIDFromURL(r, "carnivalID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	res := h.ownership.Claim(r.Context(), carnivalID, userID)
	writeOutcome(w, r, http.StatusOK, res.Outcome, res)
}

// Release godoc
// @Summary Release a claimed imported carnival
// @Tags ownership
// @Produce json
// @Param carnivalID path int true "Carnival ID"
// @Success 200 {object} services.OwnershipResult
// @Failure 403 {object} map[string]string "Not the owner"
// @Failure 409 {object} map[string]string "Carnival has no owner"
// @Security BearerAuth
// @Router /carnivals/{carnivalID}/release [post]
func (h *OwnershipHandler) Release(w http.ResponseWriter, r *http.Request) {
	carnivalID, err := getIDFromURL(r, "carnivalID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	res := h.ownership.Release(r.Context(), carnivalID, userID)
	writeOutcome(w, r, http.StatusOK, res.Outcome, res)
}

type adminClaimRequest struct {
	ClubID int `json:"club_id" validate:"required,gt=0"`
}

// AdminClaim godoc
// @Summary Assign an imported carnival to a club's primary delegate
// @Tags ownership
// @Accept json
// @Produce json
// @Param carnivalID path int true "Carnival ID"
// @Param input body adminClaimRequest true "Target club"
// @Success 200 {object} services.OwnershipResult
// @Failure 403 {object} map[string]string "Administrator role required"
// @Failure 409 {object} map[string]string "Already claimed / club has no primary delegate"
// @Security BearerAuth
// @Router /admin/carnivals/{carnivalID}/claim [post]
func (h *OwnershipHandler) AdminClaim(w http.ResponseWriter, r *http.Request) {
	carnivalID, err := getIDFromURL(r, "carnivalID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input adminClaimRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	res := h.ownership.AdminClaimOnBehalf(r.Context(), carnivalID, userID, input.ClubID)
	writeOutcome(w, r, http.StatusOK, res.Outcome, res)
}
