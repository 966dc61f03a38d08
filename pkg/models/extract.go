package models

// RoomUnclassified is the synthetic bucket used when the extraction service
// detects no rooms but photos exist somewhere in the payload.
const RoomUnclassified = "unclassified"

// CanonicalRoom is one room of the product taxonomy with its materialized
// photos. Quantity is the instance count the UI duplicates the room into;
// Tasks start empty and are filled in by the wizard before commit.
type CanonicalRoom struct {
	Name     string              `json:"name"`
	Photos   []MaterializedImage `json:"photos"`
	Quantity int                 `json:"quantity"`
	Tasks    []string            `json:"tasks"`
}

// PropertyExtract is the structured result of one extraction, handed to the
// UI for human review. TotalImageCount always equals the sum of per-room
// photo counts at the point the extract is produced.
type PropertyExtract struct {
	Title           string          `json:"title"`
	Rooms           []CanonicalRoom `json:"rooms"`
	TotalImageCount int             `json:"total_image_count"`
	// Degraded is set when the extract was recovered through the salvage
	// path after a terminal upstream error.
	Degraded bool `json:"degraded,omitempty"`
}
