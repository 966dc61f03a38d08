package recordstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parcoursmaker/parcoursmaker/pkg/models"
)

// Dispatcher implements the two-phase create against the record store: one
// parent record, then N independent child records. The parent is never
// rolled back on partial child failure; the store's own UI reconciles that
// window.
type Dispatcher struct {
	client Client
}

// NewDispatcher creates a Dispatcher over the given client.
func NewDispatcher(client Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// Commit runs both phases and aggregates the result.
//
// Phase 1 failure, or a phase 1 response missing either reference, fails the
// whole commit with ErrParentCreationFailed. In phase 2 a per-child failure
// is absorbed and counted; every remaining child is still attempted. Only
// when every child fails is the commit reported as failed.
//
// Child records are created sequentially in extract order. The store
// misbehaves under parallel child writes in this workflow, so sequencing is
// a hard requirement here.
func (d *Dispatcher) Commit(ctx context.Context, req models.CommitRequest) (models.CommitResult, error) {
	env := EnvTest
	if req.Production {
		env = EnvProduction
	}

	refs, err := d.client.CreateParent(ctx, env, req.Parent)
	if err != nil {
		return models.CommitResult{}, fmt.Errorf("%w: %v", ErrParentCreationFailed, err)
	}
	if !refs.Complete() {
		return models.CommitResult{}, fmt.Errorf(
			"%w: response missing references (logementID=%q, parcourID=%q)",
			ErrParentCreationFailed, refs.LogementID, refs.ParcourID)
	}
	slog.Info("parent record created", "logement_id", refs.LogementID, "parcour_id", refs.ParcourID, "environment", env)

	result := models.CommitResult{
		LogementID: refs.LogementID,
		ParcourID:  refs.ParcourID,
	}

	for _, room := range req.Rooms {
		quantity := room.Quantity
		if quantity < 1 {
			quantity = 1
		}
		for instance := 1; instance <= quantity; instance++ {
			result.TotalCount++
			name := room.Name
			if quantity > 1 {
				name = fmt.Sprintf("%s %d", room.Name, instance)
			}

			err := d.client.CreateChild(ctx, env, ChildRecord{
				LogementID: refs.LogementID,
				ParcourID:  refs.ParcourID,
				Name:       name,
				Tasks:      room.Tasks,
				Photos:     room.Photos,
			})
			if err != nil {
				result.ErrorCount++
				slog.Error("child record creation failed", "room", name, "logement_id", refs.LogementID, "error", err)
				continue
			}
			result.SuccessCount++
		}
	}

	if result.TotalCount > 0 && result.ErrorCount == result.TotalCount {
		return result, fmt.Errorf("%w: %d of %d", ErrAllChildrenFailed, result.ErrorCount, result.TotalCount)
	}

	result.Success = true
	if result.ErrorCount > 0 {
		slog.Warn("commit succeeded with partial failure",
			"success_count", result.SuccessCount, "error_count", result.ErrorCount, "total_count", result.TotalCount)
	}
	return result, nil
}
