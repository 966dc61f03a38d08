package models

import "fmt"

// ImageKind discriminates the two forms a materialized image can take.
type ImageKind string

const (
	// ImageEncoded means the image bytes were fetched and inlined.
	ImageEncoded ImageKind = "encoded"
	// ImageURL means the fetch failed and the original remote URL is
	// passed through verbatim.
	ImageURL ImageKind = "url"
)

// DefaultImageMIME is assumed when the remote host omits Content-Type.
const DefaultImageMIME = "image/jpeg"

// MaterializedImage is a photo reference resolved to either inline encoded
// bytes or a passthrough URL. The Kind tag keeps the two forms distinguishable
// so downstream consumers never mistake a degraded image for encoded data.
type MaterializedImage struct {
	Kind ImageKind `json:"kind"`
	MIME string    `json:"mime,omitempty"`
	Data []byte    `json:"data,omitempty"`
	URL  string    `json:"url,omitempty"`
}

// EncodedImage builds an inline image payload. An empty mime defaults to
// DefaultImageMIME.
func EncodedImage(mime string, data []byte) MaterializedImage {
	if mime == "" {
		mime = DefaultImageMIME
	}
	return MaterializedImage{Kind: ImageEncoded, MIME: mime, Data: data}
}

// PassthroughImage builds the degraded form carrying the original URL.
func PassthroughImage(url string) MaterializedImage {
	return MaterializedImage{Kind: ImageURL, URL: url}
}

// Encoded reports whether the image carries inline bytes.
func (m MaterializedImage) Encoded() bool { return m.Kind == ImageEncoded }

func (m MaterializedImage) String() string {
	if m.Encoded() {
		return fmt.Sprintf("encoded image (%s, %d bytes)", m.MIME, len(m.Data))
	}
	return m.URL
}
