package extraction

import (
	"encoding/json"
	"strings"
)

// RawImage is one image reference as reported by the extraction service.
// The service usually returns an object, but malformed room entries carry
// bare URL strings; both forms are accepted.
type RawImage struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

func (i *RawImage) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var u string
		if err := json.Unmarshal(data, &u); err != nil {
			return err
		}
		*i = RawImage{URL: u}
		return nil
	}
	type alias RawImage
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*i = RawImage(a)
	return nil
}

// RawRoom is one room entry as reported by the extraction service. RoomName
// is free text; RoomType is the service's own classification tag.
// TotalImages is the service's declared count, which may disagree with
// len(Images) for malformed entries.
type RawRoom struct {
	RoomName    string     `json:"room_name"`
	RoomType    string     `json:"room_type"`
	TotalImages int        `json:"total_images"`
	Images      []RawImage `json:"images"`
}

// HasImages reports whether the entry carries at least one actual image
// reference. The declared TotalImages count is deliberately ignored: a room
// claiming images it does not carry must not pass the primary-path check.
func (r RawRoom) HasImages() bool { return len(r.Images) > 0 }

// Payload is the freeform room/photo data of a completed (or salvaged)
// extraction job. When Rooms is unusable, one of the flat image lists may
// substitute for it, chosen in priority order by FallbackImages.
type Payload struct {
	Title         string     `json:"title"`
	Rooms         []RawRoom  `json:"rooms"`
	AllImages     []RawImage `json:"all_images"`
	GalleryImages []RawImage `json:"gallery_images"`
	PreviewImages []RawImage `json:"preview_images"`
}

// HasRoomImages reports whether the primary room list is usable: present,
// with at least one room carrying at least one image.
func (p *Payload) HasRoomImages() bool {
	if p == nil {
		return false
	}
	for _, r := range p.Rooms {
		if r.HasImages() {
			return true
		}
	}
	return false
}

// FallbackImages returns the first non-empty fallback image source, in
// priority order: the flat all-images list, the gallery list, the preview
// list, then images recovered by flattening the room entries themselves.
// Returns nil when the payload holds no images anywhere.
func (p *Payload) FallbackImages() []RawImage {
	if p == nil {
		return nil
	}
	if len(p.AllImages) > 0 {
		return p.AllImages
	}
	if len(p.GalleryImages) > 0 {
		return p.GalleryImages
	}
	if len(p.PreviewImages) > 0 {
		return p.PreviewImages
	}
	var flattened []RawImage
	for _, r := range p.Rooms {
		flattened = append(flattened, r.Images...)
	}
	return flattened
}

// HasAnyImages reports whether any image source in the payload is non-empty.
func (p *Payload) HasAnyImages() bool {
	return p.HasRoomImages() || len(p.FallbackImages()) > 0
}
