package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/parcoursmaker/parcoursmaker/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Store is the data access interface for the local audit records. All
// database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateRun(ctx context.Context, run *models.ExtractionRun) error
	GetRun(ctx context.Context, id uuid.UUID) (*models.ExtractionRun, error)
	UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error

	CreateCommit(ctx context.Context, commit *models.ParcoursCommit) error
	ListCommits(ctx context.Context, limit int) ([]*models.ParcoursCommit, error)
}

type runUpdateParams struct {
	ErrorMessage *string
	RoomCount    *int
	ImageCount   *int
	Degraded     *bool
}

type RunUpdateOption func(*runUpdateParams)

func WithErrorMessage(msg string) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithCounts(rooms, images int) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.RoomCount = &rooms
		p.ImageCount = &images
	}
}

func WithDegraded(degraded bool) RunUpdateOption {
	return func(p *runUpdateParams) {
		p.Degraded = &degraded
	}
}
