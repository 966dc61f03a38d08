package parcours

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parcoursmaker/parcoursmaker/internal/cache"
	"github.com/parcoursmaker/parcoursmaker/internal/extraction"
	"github.com/parcoursmaker/parcoursmaker/internal/store"
	"github.com/parcoursmaker/parcoursmaker/internal/taxonomy"
	"github.com/parcoursmaker/parcoursmaker/pkg/models"
)

const (
	statusTTL = 30 * time.Minute
	resultTTL = time.Hour
)

// Extractor runs one full extraction against the upstream service.
type Extractor interface {
	ValidateListingURL(raw string) error
	Extract(ctx context.Context, listingURL string) (extraction.Result, error)
}

// Materializer resolves raw image URLs into embeddable images.
type Materializer interface {
	MaterializeAll(ctx context.Context, urls []string) []models.MaterializedImage
}

// ExtractionService owns the listing-to-extract pipeline: it validates and
// submits the upstream job, classifies rooms, materializes images, and keeps
// the run's audit row and cache entries in sync.
type ExtractionService struct {
	extractor Extractor
	images    Materializer
	store     store.Store
	cache     cache.Cache
}

// NewExtractionService creates a new ExtractionService.
func NewExtractionService(extractor Extractor, images Materializer, st store.Store, ca cache.Cache) *ExtractionService {
	return &ExtractionService{
		extractor: extractor,
		images:    images,
		store:     st,
		cache:     ca,
	}
}

// StartExtraction creates a pending run and dispatches the pipeline in a
// background goroutine. Returns the run immediately without waiting for the
// extraction to complete.
func (s *ExtractionService) StartExtraction(ctx context.Context, listingURL string) (*models.ExtractionRun, error) {
	if err := s.extractor.ValidateListingURL(listingURL); err != nil {
		return nil, err
	}

	run := &models.ExtractionRun{
		ID:         uuid.New(),
		ListingURL: listingURL,
		Status:     models.RunStatusPending,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	_ = s.cache.SetRunStatus(ctx, run.ID, models.RunStatusPending, statusTTL)

	go s.runExtraction(run.ID, listingURL)

	return run, nil
}

// runExtraction drives the pipeline for one run in a goroutine. It recovers
// from panics and always marks the run as completed or failed.
func (s *ExtractionService) runExtraction(runID uuid.UUID, listingURL string) {
	ctx := context.Background()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in runExtraction", "error", r, "run_id", runID)
			s.failRun(ctx, runID, fmt.Sprintf("panic: %v", r))
		}
	}()

	_ = s.store.UpdateRunStatus(ctx, runID, models.RunStatusRunning)
	_ = s.cache.SetRunStatus(ctx, runID, models.RunStatusRunning, statusTTL)

	// A recent extract for the same listing skips the whole upstream job.
	if cached, ok, _ := s.cache.Get(ctx, cache.ListingResultKey(listingURL)); ok {
		var extract models.PropertyExtract
		if err := json.Unmarshal(cached, &extract); err == nil {
			slog.Info("serving extract from listing cache", "run_id", runID, "listing_url", listingURL)
			s.completeRun(ctx, runID, listingURL, &extract, false)
			return
		}
		_ = s.cache.Delete(ctx, cache.ListingResultKey(listingURL))
	}

	result, err := s.extractor.Extract(ctx, listingURL)
	if err != nil {
		slog.Error("extraction failed", "run_id", runID, "listing_url", listingURL, "error", err)
		s.failRun(ctx, runID, err.Error())
		return
	}

	classified := taxonomy.Classify(result.Payload)
	extract := s.materialize(ctx, classified, result.Degraded)

	s.completeRun(ctx, runID, listingURL, extract, true)
}

// materialize fetches every room's images and assembles the final extract.
// TotalImageCount is counted after materialization so it always matches what
// the rooms actually carry.
func (s *ExtractionService) materialize(ctx context.Context, classified taxonomy.ClassifiedProperty, degraded bool) *models.PropertyExtract {
	extract := &models.PropertyExtract{
		Title:    classified.Title,
		Rooms:    make([]models.CanonicalRoom, 0, len(classified.Rooms)),
		Degraded: degraded,
	}

	for _, room := range classified.Rooms {
		urls := make([]string, 0, len(room.Images))
		for _, img := range room.Images {
			if img.URL != "" {
				urls = append(urls, img.URL)
			}
		}

		photos := s.images.MaterializeAll(ctx, urls)
		extract.Rooms = append(extract.Rooms, models.CanonicalRoom{
			Name:     room.Name,
			Photos:   photos,
			Quantity: room.Quantity,
			Tasks:    room.Tasks,
		})
		extract.TotalImageCount += len(photos)
	}

	return extract
}

// completeRun stores the extract in the cache and closes out the run. When
// cacheListing is set the extract is also cached under the listing URL.
func (s *ExtractionService) completeRun(ctx context.Context, runID uuid.UUID, listingURL string, extract *models.PropertyExtract, cacheListing bool) {
	payload, err := json.Marshal(extract)
	if err != nil {
		s.failRun(ctx, runID, fmt.Sprintf("encoding extract: %v", err))
		return
	}

	_ = s.cache.Set(ctx, cache.RunResultKey(runID), payload, resultTTL)
	if cacheListing {
		_ = s.cache.Set(ctx, cache.ListingResultKey(listingURL), payload, resultTTL)
	}

	if err := s.store.UpdateRunStatus(ctx, runID, models.RunStatusCompleted,
		store.WithCounts(len(extract.Rooms), extract.TotalImageCount),
		store.WithDegraded(extract.Degraded)); err != nil {
		slog.Error("marking run completed", "run_id", runID, "error", err)
	}
	_ = s.cache.SetRunStatus(ctx, runID, models.RunStatusCompleted, statusTTL)

	slog.Info("extraction run completed",
		"run_id", runID,
		"rooms", len(extract.Rooms),
		"images", extract.TotalImageCount,
		"degraded", extract.Degraded)
}

func (s *ExtractionService) failRun(ctx context.Context, runID uuid.UUID, msg string) {
	if err := s.store.UpdateRunStatus(ctx, runID, models.RunStatusFailed,
		store.WithErrorMessage(msg)); err != nil {
		slog.Error("marking run failed", "run_id", runID, "error", err)
	}
	_ = s.cache.Set(ctx, cache.RunErrorKey(runID), []byte(msg), resultTTL)
	_ = s.cache.SetRunStatus(ctx, runID, models.RunStatusFailed, statusTTL)
}

// GetRun returns the run's audit row plus, for completed runs, the cached
// extract. A completed run whose extract has expired from the cache returns a
// nil extract.
func (s *ExtractionService) GetRun(ctx context.Context, runID uuid.UUID) (*models.ExtractionRun, *models.PropertyExtract, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}

	if run.Status != models.RunStatusCompleted {
		return run, nil, nil
	}

	payload, ok, err := s.cache.Get(ctx, cache.RunResultKey(runID))
	if err != nil || !ok {
		return run, nil, nil
	}

	var extract models.PropertyExtract
	if err := json.Unmarshal(payload, &extract); err != nil {
		slog.Warn("decoding cached extract", "run_id", runID, "error", err)
		return run, nil, nil
	}
	return run, &extract, nil
}
