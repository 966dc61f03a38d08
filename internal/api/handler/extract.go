package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/parcoursmaker/parcoursmaker/internal/api/response"
	"github.com/parcoursmaker/parcoursmaker/internal/extraction"
	"github.com/parcoursmaker/parcoursmaker/internal/store"
	"github.com/parcoursmaker/parcoursmaker/pkg/models"
)

// ExtractionService defines the interface the extraction handlers depend on.
type ExtractionService interface {
	StartExtraction(ctx context.Context, listingURL string) (*models.ExtractionRun, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*models.ExtractionRun, *models.PropertyExtract, error)
}

type runResponse struct {
	ID           string                  `json:"id"`
	ListingURL   string                  `json:"listing_url"`
	Status       string                  `json:"status"`
	Degraded     bool                    `json:"degraded"`
	RoomCount    int                     `json:"room_count"`
	ImageCount   int                     `json:"image_count"`
	ErrorMessage *string                 `json:"error_message,omitempty"`
	CreatedAt    string                  `json:"created_at"`
	CompletedAt  *string                 `json:"completed_at,omitempty"`
	Extract      *models.PropertyExtract `json:"extract,omitempty"`
}

func toRunResponse(run *models.ExtractionRun, extract *models.PropertyExtract) runResponse {
	resp := runResponse{
		ID:           run.ID.String(),
		ListingURL:   run.ListingURL,
		Status:       run.Status,
		Degraded:     run.Degraded,
		RoomCount:    run.RoomCount,
		ImageCount:   run.ImageCount,
		ErrorMessage: run.ErrorMessage,
		CreatedAt:    run.CreatedAt.UTC().Format(time.RFC3339),
		Extract:      extract,
	}
	if run.CompletedAt != nil {
		s := run.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

// NewStartExtractionHandler returns an http.HandlerFunc for POST /api/v1/extractions.
func NewStartExtractionHandler(svc ExtractionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ListingURL string `json:"listing_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.ListingURL == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "listing_url is required", nil)
			return
		}

		run, err := svc.StartExtraction(r.Context(), req.ListingURL)
		if err != nil {
			switch {
			case errors.Is(err, extraction.ErrInvalidInput):
				response.Error(w, http.StatusBadRequest, "INVALID_LISTING_URL", err.Error(), nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.Accepted(w, toRunResponse(run, nil))
	}
}

// NewGetRunHandler returns an http.HandlerFunc for GET /api/v1/extractions/{runID}.
func NewGetRunHandler(svc ExtractionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := uuid.Parse(chi.URLParam(r, "runID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "runID must be a valid UUID", nil)
			return
		}

		run, extract, err := svc.GetRun(r.Context(), runID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RUN_NOT_FOUND", "No extraction run with that id", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, toRunResponse(run, extract))
	}
}
