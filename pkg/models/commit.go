package models

import (
	"time"

	"github.com/google/uuid"
)

// ParentFields map 1:1 to the logement+parcours parent record in the
// external store.
type ParentFields struct {
	Name               string   `json:"name"`
	Address            string   `json:"address,omitempty"`
	SourceLink         string   `json:"source_link,omitempty"`
	ParcoursType       string   `json:"parcours_type"`
	ModelReference     string   `json:"model_reference,omitempty"`
	InventoryTiming    string   `json:"inventory_timing,omitempty"`
	ChecklistQuestions []string `json:"checklist_questions,omitempty"`
}

// CommitRoom is one reviewed room headed for the record store. A quantity of
// N expands into N independently submitted child records.
type CommitRoom struct {
	Name     string              `json:"name"`
	Quantity int                 `json:"quantity"`
	Tasks    []string            `json:"tasks"`
	Photos   []MaterializedImage `json:"photos"`
}

// CommitRequest is the input of the two-phase create against the record store.
type CommitRequest struct {
	Parent ParentFields `json:"parent"`
	Rooms  []CommitRoom `json:"rooms"`
	// Production selects the production endpoint set; the default is the
	// test environment.
	Production bool `json:"production"`
}

// CommitResult aggregates the outcome of the two-phase create. Success is
// false only when phase 1 failed or every child failed; partial child failure
// still counts as success with ErrorCount > 0.
type CommitResult struct {
	Success      bool   `json:"success"`
	LogementID   string `json:"logement_id"`
	ParcourID    string `json:"parcour_id"`
	SuccessCount int    `json:"success_count"`
	ErrorCount   int    `json:"error_count"`
	TotalCount   int    `json:"total_count"`
}

// ParcoursCommit is the audit record of one commit outcome.
type ParcoursCommit struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	LogementID   string    `db:"logement_id"   json:"logement_id"`
	ParcourID    string    `db:"parcour_id"    json:"parcour_id"`
	Environment  string    `db:"environment"   json:"environment"`
	SuccessCount int       `db:"success_count" json:"success_count"`
	ErrorCount   int       `db:"error_count"   json:"error_count"`
	TotalCount   int       `db:"total_count"   json:"total_count"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}
