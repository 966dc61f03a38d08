// Package taxonomy maps the extraction service's freeform room labels onto
// the product's fixed room taxonomy.
package taxonomy

import "strings"

// canonicalNames maps the extraction service's room_type tags to the
// product room names used by the task catalogs and the wizard UI.
var canonicalNames = map[string]string{
	"bedroom":     "Chambre",
	"bathroom":    "Salle de bain",
	"kitchen":     "Cuisine",
	"living_room": "Salon",
	"dining_room": "Salle à manger",
	"toilet":      "WC",
	"entrance":    "Entrée",
	"hallway":     "Couloir",
	"office":      "Bureau",
	"laundry":     "Buanderie",
	"balcony":     "Balcon",
	"terrace":     "Terrasse",
	"garden":      "Jardin",
	"garage":      "Garage",
	"pool":        "Piscine",
	"exterior":    "Extérieur",
}

// CanonicalName resolves a room_type tag to its canonical product name.
// Returns ok=false for tags outside the taxonomy; those pass through using
// the service's own room name as an ad hoc category.
func CanonicalName(roomType string) (string, bool) {
	name, ok := canonicalNames[strings.ToLower(strings.TrimSpace(roomType))]
	return name, ok
}
