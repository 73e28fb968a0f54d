// Package mediainfo implements the tagged-variant representation called for
// by the "Dynamic metadata map" redesign note: instead of an untyped
// map[string]any whose shape depends on the media kind, callers build one of
// Image, Video, or Audio and marshal the wrapping Info to JSON for storage in
// MetadataRow.
package mediainfo

import "encoding/json"

// Kind identifies which variant an Info holds.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Image describes image-specific metadata.
type Image struct {
	Width  int            `json:"width,omitempty"`
	Height int            `json:"height,omitempty"`
	Mode   string         `json:"mode,omitempty"`
	Format string         `json:"format,omitempty"`
	EXIF   map[string]any `json:"exif,omitempty"`
}

// Video describes video-specific metadata.
type Video struct {
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	BitrateKbps     int     `json:"bitrate_kbps,omitempty"`
	Codec           string  `json:"codec,omitempty"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
}

// Audio describes audio-specific metadata.
type Audio struct {
	DurationSeconds float64           `json:"duration_seconds,omitempty"`
	BitrateKbps     int               `json:"bitrate_kbps,omitempty"`
	Channels        int               `json:"channels,omitempty"`
	Tags            map[string]string `json:"tags,omitempty"`
}

// Info wraps exactly one of Image, Video, or Audio and is what gets
// marshaled into MetadataRow.Metadata.
type Info struct {
	Kind  Kind   `json:"kind"`
	Image *Image `json:"image,omitempty"`
	Video *Video `json:"video,omitempty"`
	Audio *Audio `json:"audio,omitempty"`
}

// NewImage builds an Info wrapping an Image variant.
func NewImage(i Image) Info { return Info{Kind: KindImage, Image: &i} }

// NewVideo builds an Info wrapping a Video variant.
func NewVideo(v Video) Info { return Info{Kind: KindVideo, Video: &v} }

// NewAudio builds an Info wrapping an Audio variant.
func NewAudio(a Audio) Info { return Info{Kind: KindAudio, Audio: &a} }

// Marshal serializes Info to the JSON document stored in MetadataRow.
func (i Info) Marshal() ([]byte, error) {
	return json.Marshal(i)
}

// Unmarshal parses a stored metadata document back into an Info.
func Unmarshal(data []byte) (Info, error) {
	var i Info
	err := json.Unmarshal(data, &i)
	return i, err
}
