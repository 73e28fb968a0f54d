// Package extract declares the collaborator contracts the scanner depends
// on for the format-specific work the specification places out of scope:
// PDF/DOCX/XLSX text extraction, image EXIF, video ffprobe, and audio tag
// reading. The scanner only ever sees these two interfaces; a deployment
// wires in real implementations. NoopExtractor satisfies both and is used
// wherever this repo needs a concrete value, exercising the contract
// boundary without reimplementing any of the out-of-scope extractors.
package extract

import "github.com/nasindex/nasindex/internal/mediainfo"

// TextExtractor pulls searchable text out of a downloaded local file.
// It returns a nil string when the format is unsupported or yields no text.
type TextExtractor interface {
	ExtractText(localPath, mimeType string) (*string, error)
}

// MetadataExtractor pulls media metadata out of a downloaded local file.
// It returns a nil Info when the format is unsupported.
type MetadataExtractor interface {
	ExtractMetadata(localPath, mimeType string) (*mediainfo.Info, error)
}

// NoopExtractor implements both TextExtractor and MetadataExtractor by
// always reporting "nothing extracted", the pass-through stub SPEC_FULL.md
// describes for the collaborator boundary.
type NoopExtractor struct{}

func (NoopExtractor) ExtractText(string, string) (*string, error) { return nil, nil }

func (NoopExtractor) ExtractMetadata(string, string) (*mediainfo.Info, error) { return nil, nil }

var (
	_ TextExtractor     = NoopExtractor{}
	_ MetadataExtractor = NoopExtractor{}
)
