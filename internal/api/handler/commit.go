package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/parcoursmaker/parcoursmaker/internal/api/response"
	"github.com/parcoursmaker/parcoursmaker/internal/recordstore"
	"github.com/parcoursmaker/parcoursmaker/pkg/models"
)

// Committer defines the interface the commit handler depends on.
type Committer interface {
	Commit(ctx context.Context, req models.CommitRequest) (models.CommitResult, error)
}

// NewCommitHandler returns an http.HandlerFunc for POST /api/v1/parcours.
func NewCommitHandler(svc Committer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CommitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Parent.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "parent.name is required", nil)
			return
		}
		if req.Parent.ParcoursType == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "parent.parcours_type is required", nil)
			return
		}

		result, err := svc.Commit(r.Context(), req)
		if err != nil {
			switch {
			case errors.Is(err, recordstore.ErrEnvironmentNotConfigured):
				response.Error(w, http.StatusServiceUnavailable, "ENVIRONMENT_NOT_CONFIGURED",
					"The requested record store environment is not configured", nil)
			case errors.Is(err, recordstore.ErrParentCreationFailed):
				response.Error(w, http.StatusBadGateway, "PARENT_CREATION_FAILED",
					"The record store did not create the parent record", nil)
			case errors.Is(err, recordstore.ErrAllChildrenFailed):
				response.Error(w, http.StatusBadGateway, "ALL_ROOMS_FAILED",
					"Every room record failed to create", result)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.Created(w, result)
	}
}

// Historian defines the interface the commit history handler depends on.
type Historian interface {
	History(ctx context.Context, limit int) ([]*models.ParcoursCommit, error)
}

// NewCommitHistoryHandler returns an http.HandlerFunc for GET /api/v1/parcours/commits.
func NewCommitHistoryHandler(svc Historian) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
				return
			}
			limit = parsed
		}

		commits, err := svc.History(r.Context(), limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}
		if commits == nil {
			commits = []*models.ParcoursCommit{}
		}

		response.Collection(w, commits, response.Meta{Count: len(commits), Limit: limit})
	}
}
