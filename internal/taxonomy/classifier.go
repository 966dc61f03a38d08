package taxonomy

import (
	"github.com/parcoursmaker/parcoursmaker/internal/extraction"
	"github.com/parcoursmaker/parcoursmaker/pkg/models"
)

// ClassifiedRoom is one canonical room before image materialization: its
// photos are still raw references to the remote host.
type ClassifiedRoom struct {
	Name     string
	Images   []extraction.RawImage
	Quantity int
	Tasks    []string
}

// ClassifiedProperty is the classifier's output, handed to the image fetcher.
type ClassifiedProperty struct {
	Title string
	Rooms []ClassifiedRoom
}

// Classify turns an extraction payload into canonical rooms. It is a pure
// renaming pass: one source room maps to exactly one canonical room, and two
// source rooms that resolve to the same canonical name are intentionally not
// merged. When the service detected no usable rooms, all images recoverable
// from the payload's fallback sources land in a single "unclassified" bucket,
// so the pipeline never returns zero photos when photos exist somewhere.
func Classify(p *extraction.Payload) ClassifiedProperty {
	out := ClassifiedProperty{}
	if p == nil {
		return out
	}
	out.Title = p.Title

	if p.HasRoomImages() {
		for _, room := range p.Rooms {
			out.Rooms = append(out.Rooms, ClassifiedRoom{
				Name:     classifyRoom(room),
				Images:   room.Images,
				Quantity: 1,
				Tasks:    []string{},
			})
		}
		return out
	}

	fallback := p.FallbackImages()
	if len(fallback) == 0 {
		return out
	}
	out.Rooms = []ClassifiedRoom{{
		Name:     models.RoomUnclassified,
		Images:   fallback,
		Quantity: 1,
		Tasks:    []string{},
	}}
	return out
}

func classifyRoom(room extraction.RawRoom) string {
	if name, ok := CanonicalName(room.RoomType); ok {
		return name
	}
	if room.RoomName != "" {
		return room.RoomName
	}
	if room.RoomType != "" {
		return room.RoomType
	}
	return models.RoomUnclassified
}
