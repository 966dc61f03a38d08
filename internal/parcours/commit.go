package parcours

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parcoursmaker/parcoursmaker/internal/recordstore"
	"github.com/parcoursmaker/parcoursmaker/internal/store"
	"github.com/parcoursmaker/parcoursmaker/pkg/models"
)

// CommitDispatcher performs the two-phase create against the record store.
type CommitDispatcher interface {
	Commit(ctx context.Context, req models.CommitRequest) (models.CommitResult, error)
}

// CommitService runs commits through the dispatcher and records each outcome
// in the local audit table.
type CommitService struct {
	dispatcher CommitDispatcher
	store      store.Store
}

// NewCommitService creates a new CommitService.
func NewCommitService(dispatcher CommitDispatcher, st store.Store) *CommitService {
	return &CommitService{dispatcher: dispatcher, store: st}
}

// Commit dispatches the request and audits the outcome. The audit write is
// best effort: a failed insert never fails a commit that already reached the
// record store.
func (s *CommitService) Commit(ctx context.Context, req models.CommitRequest) (models.CommitResult, error) {
	result, err := s.dispatcher.Commit(ctx, req)

	if result.LogementID != "" {
		env := recordstore.EnvTest
		if req.Production {
			env = recordstore.EnvProduction
		}
		audit := &models.ParcoursCommit{
			ID:           uuid.New(),
			LogementID:   result.LogementID,
			ParcourID:    result.ParcourID,
			Environment:  string(env),
			SuccessCount: result.SuccessCount,
			ErrorCount:   result.ErrorCount,
			TotalCount:   result.TotalCount,
			CreatedAt:    time.Now().UTC(),
		}
		if auditErr := s.store.CreateCommit(ctx, audit); auditErr != nil {
			slog.Warn("recording commit audit", "logement_id", result.LogementID, "error", auditErr)
		}
	}

	return result, err
}

// History returns the most recent commit outcomes, newest first.
func (s *CommitService) History(ctx context.Context, limit int) ([]*models.ParcoursCommit, error) {
	return s.store.ListCommits(ctx, limit)
}
