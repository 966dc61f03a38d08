package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parcoursmaker/parcoursmaker/internal/api/response"
	"github.com/parcoursmaker/parcoursmaker/internal/recordstore"
)

// TemplateClient defines the record store operations the template handlers use.
type TemplateClient interface {
	CreateTemplate(ctx context.Context, env recordstore.Environment, tpl recordstore.Template) (string, error)
	UpdateTemplate(ctx context.Context, env recordstore.Environment, id string, tpl recordstore.Template) error
	DeleteTemplate(ctx context.Context, env recordstore.Environment, id string) error
}

type templateRequest struct {
	Name         string   `json:"name"`
	ParcoursType string   `json:"parcours_type"`
	Questions    []string `json:"questions"`
	Rooms        []struct {
		Name  string   `json:"name"`
		Tasks []string `json:"tasks"`
	} `json:"rooms"`
	Production bool `json:"production"`
}

func (req templateRequest) environment() recordstore.Environment {
	if req.Production {
		return recordstore.EnvProduction
	}
	return recordstore.EnvTest
}

func (req templateRequest) template() recordstore.Template {
	tpl := recordstore.Template{
		Name:         req.Name,
		ParcoursType: req.ParcoursType,
		Questions:    req.Questions,
	}
	for _, room := range req.Rooms {
		tpl.Rooms = append(tpl.Rooms, recordstore.TemplateRoom{Name: room.Name, Tasks: room.Tasks})
	}
	return tpl
}

func templateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recordstore.ErrEnvironmentNotConfigured):
		response.Error(w, http.StatusServiceUnavailable, "ENVIRONMENT_NOT_CONFIGURED",
			"The requested record store environment is not configured", nil)
	case errors.Is(err, recordstore.ErrTemplateCallFailed):
		response.Error(w, http.StatusBadGateway, "TEMPLATE_CALL_FAILED",
			"The record store rejected the template operation", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

// NewCreateTemplateHandler returns an http.HandlerFunc for POST /api/v1/templates.
func NewCreateTemplateHandler(client TemplateClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req templateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
			return
		}

		id, err := client.CreateTemplate(r.Context(), req.environment(), req.template())
		if err != nil {
			templateError(w, err)
			return
		}

		response.Created(w, map[string]string{"id": id})
	}
}

// NewUpdateTemplateHandler returns an http.HandlerFunc for PUT /api/v1/templates/{templateID}.
func NewUpdateTemplateHandler(client TemplateClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "templateID")
		if id == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "templateID is required", nil)
			return
		}

		var req templateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Name == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
			return
		}

		if err := client.UpdateTemplate(r.Context(), req.environment(), id, req.template()); err != nil {
			templateError(w, err)
			return
		}

		response.JSON(w, map[string]string{"id": id})
	}
}

// NewDeleteTemplateHandler returns an http.HandlerFunc for DELETE /api/v1/templates/{templateID}.
func NewDeleteTemplateHandler(client TemplateClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "templateID")
		if id == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "templateID is required", nil)
			return
		}

		// Environment comes from the query string since DELETE has no body.
		env := recordstore.EnvTest
		if r.URL.Query().Get("production") == "true" {
			env = recordstore.EnvProduction
		}

		if err := client.DeleteTemplate(r.Context(), env, id); err != nil {
			templateError(w, err)
			return
		}

		response.NoContent(w)
	}
}
