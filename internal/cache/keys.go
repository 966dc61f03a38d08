package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

func RunStatusKey(runID uuid.UUID) string {
	return fmt.Sprintf("extraction:status:%s", runID)
}

func RunResultKey(runID uuid.UUID) string {
	return fmt.Sprintf("extraction:result:%s", runID)
}

func RunErrorKey(runID uuid.UUID) string {
	return fmt.Sprintf("extraction:error:%s", runID)
}

// ListingResultKey caches a completed extract by listing URL so resubmitting
// the same listing within the TTL skips the whole upstream job.
func ListingResultKey(listingURL string) string {
	sum := sha256.Sum256([]byte(listingURL))
	return fmt.Sprintf("extraction:listing:%s", hex.EncodeToString(sum[:16]))
}

func RateLimitKey(clientKey string) string {
	return fmt.Sprintf("ratelimit:%s", clientKey)
}
