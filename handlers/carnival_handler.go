package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/carnival-system/models"
	"github.com/Dosada05/carnival-system/repositories"
	"github.com/Dosada05/carnival-system/services"
)

const maxPromoUploadBytes = 10 << 20

type CarnivalManager interface {
	CreateManual(ctx context.Context, actingUserID int, input services.CreateCarnivalInput) (*models.Carnival, error)
	GetByID(ctx context.Context, carnivalID int) (*models.Carnival, error)
	List(ctx context.Context, filter repositories.ListCarnivalsFilter) ([]*models.Carnival, error)
	GetOverview(ctx context.Context, carnivalID int) (*services.CarnivalOverview, error)
	UpdateFees(ctx context.Context, carnivalID, actingUserID int, input services.UpdateFeesInput) (*models.Carnival, int, error)
	Deactivate(ctx context.Context, carnivalID, actingUserID int) error
	UploadPromoImage(ctx context.Context, carnivalID, actingUserID int, contentType string, file io.Reader) (*models.Carnival, error)
}

type CarnivalHandler struct {
	carnivals CarnivalManager
}

func NewCarnivalHandler(carnivals CarnivalManager) *CarnivalHandler {
	return &CarnivalHandler{carnivals: carnivals}
}

func parseListFilter(r *http.Request) (repositories.ListCarnivalsFilter, error) {
	q := r.URL.Query()
	filter := repositories.ListCarnivalsFilter{ActiveOnly: true, Limit: 50}

	if state := strings.TrimSpace(q.Get("state")); state != "" {
		filter.State = &state
	}
	if v := q.Get("claimable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, fmt.Errorf("invalid claimable value: %q", v)
		}
		filter.Claimable = b
	}
	if v := q.Get("include_inactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, fmt.Errorf("invalid include_inactive value: %q", v)
		}
		filter.ActiveOnly = !b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			return filter, fmt.Errorf("limit must be between 1 and 200")
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, fmt.Errorf("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}

// ListCarnivals godoc
// @Summary List carnivals
// @Tags carnivals
// @Produce json
// @Param state query string false "State code"
// @Param claimable query bool false "Only imported carnivals with no owner"
// @Param include_inactive query bool false "Include deactivated carnivals"
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Bad query"
// @Router /carnivals [get]
func (h *CarnivalHandler) ListCarnivals(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	carnivals, err := h.carnivals.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"carnivals": carnivals}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetCarnival godoc
// @Summary Get a carnival
// @Tags carnivals
// @Produce json
// @Param carnivalID path int true "Carnival ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Carnival not found"
// @Router /carnivals/{carnivalID} [get]
func (h *CarnivalHandler) GetCarnival(w http.ResponseWriter, r *http.Request) {
	carnivalID, err := getIDFromURL(r, "carnivalID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	carnival, err := h.carnivals.GetByID(r.Context(), carnivalID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"carnival": carnival}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetOverview godoc
// @Summary Carnival with ownership, host club and registrations
// @Tags carnivals
// @Produce json
// @Param carnivalID path int true "Carnival ID"
// @Success 200 {object} services.CarnivalOverview
// @Failure 404 {object} map[string]string "Carnival not found"
// @Router /carnivals/{carnivalID}/overview [get]
func (h *CarnivalHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	carnivalID, err := getIDFromURL(r, "carnivalID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	overview, err := h.carnivals.GetOverview(r.Context(), carnivalID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, overview, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateCarnival godoc
// @Summary Create a manually entered carnival
// @Tags carnivals
// @Accept json
// @Produce json
// @Param input body services.CreateCarnivalInput true "Carnival"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} map[string]string "Validation failed"
// @Security BearerAuth
// @Router /carnivals [post]
func (h *CarnivalHandler) CreateCarnival(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.CreateCarnivalInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if fields := validateInput(input); fields != nil {
		failedValidationResponse(w, r, fields)
		return
	}

	carnival, err := h.carnivals.CreateManual(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/api/v1/carnivals/%d", carnival.ID))
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"carnival": carnival}, headers); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateFees godoc
// @Summary Change carnival fees and re-derive every active registration's fee
// @Tags carnivals
// @Accept json
// @Produce json
// @Param carnivalID path int true "Carnival ID"
// @Param input body services.UpdateFeesInput true "Fees"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Not the carnival organiser"
// @Security BearerAuth
// @Router /carnivals/{carnivalID}/fees [patch]
func (h *CarnivalHandler) UpdateFees(w http.ResponseWriter, r *http.Request) {
	carnivalID, err := getIDFromURL(r, "carnivalID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input services.UpdateFeesInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	carnival, changed, err := h.carnivals.UpdateFees(r.Context(), carnivalID, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	response := jsonResponse{"carnival": carnival, "registrations_changed": changed}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeactivateCarnival godoc
// @Summary Deactivate a carnival
// @Tags carnivals
// @Param carnivalID path int true "Carnival ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string "Not the carnival organiser"
// @Security BearerAuth
// @Router /carnivals/{carnivalID} [delete]
func (h *CarnivalHandler) DeactivateCarnival(w http.ResponseWriter, r *http.Request) {
	carnivalID, err := getIDFromURL(r, "carnivalID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.carnivals.Deactivate(r.Context(), carnivalID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPromoImage godoc
// @Summary Upload the carnival's promotional image
// @Tags carnivals
// @Accept multipart/form-data
// @Produce json
// @Param carnivalID path int true "Carnival ID"
// @Param image formData file true "Image file (jpeg, png, webp)"
// @Success 200 {object} map[string]interface{}
// @Failure 422 {object} map[string]string "Unsupported image / storage disabled"
// @Security BearerAuth
// @Router /carnivals/{carnivalID}/promo-image [post]
func (h *CarnivalHandler) UploadPromoImage(w http.ResponseWriter, r *http.Request) {
	carnivalID, err := getIDFromURL(r, "carnivalID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPromoUploadBytes)
	if err := r.ParseMultipartForm(maxPromoUploadBytes); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get image file from form: %w", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content-type header is required for image"))
		return
	}

	carnival, err := h.carnivals.UploadPromoImage(r.Context(), carnivalID, userID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"carnival": carnival}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
