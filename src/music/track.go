package music

import (
	"fmt"
	"path/filepath"
	"strings"
)

// StagedTrack represents one uploaded file sitting in the temp store waiting to be finalized.
type StagedTrack struct {
	TempFileID       string `json:"tempFileId"`
	OriginalFilename string `json:"originalFilename"` // display only, never used to build paths
	Title            string `json:"title"`
	DurationSeconds  int    `json:"durationSeconds"`
	TrackNumber      int    `json:"trackNumber"`
}

// TrackDescriptor is what the client sends back for each staged track on finalize.
type TrackDescriptor struct {
	TempFileID      string `json:"tempFileId" validate:"required"`
	Title           string `json:"title" validate:"required"`
	DurationSeconds int    `json:"durationSeconds" validate:"gte=0"`
	TrackNumber     int    `json:"trackNumber" validate:"gte=0"`
}

// ExtractedTags holds whatever could be read from a file's tags. Zero values mean absent.
type ExtractedTags struct {
	Title           string
	Artist          string
	Album           string
	Genre           string
	ReleaseDate     string
	DurationSeconds int
	TrackNumber     int
	CoverImage      []byte
	CoverMIMEType   string
}

// TrackFields is the merged set of tags written into a file on finalize.
type TrackFields struct {
	Title           string
	Artist          string
	Album           string
	Genre           string
	ReleaseDate     string
	DurationSeconds int
	TrackNumber     int
}

// Validate validates the track fields.
func (f *TrackFields) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return fmt.Errorf("%w: track title cannot be empty", ErrValidation)
	}
	if len(f.Title) > 500 {
		return fmt.Errorf("%w: title cannot exceed 500 characters, got %d", ErrValidation, len(f.Title))
	}
	if f.DurationSeconds < 0 {
		return fmt.Errorf("%w: duration cannot be negative, got %d", ErrValidation, f.DurationSeconds)
	}
	if f.TrackNumber < 0 {
		return fmt.Errorf("%w: track number cannot be negative, got %d", ErrValidation, f.TrackNumber)
	}
	return nil
}

// MergeFields combines the shared album metadata with one track's own fields.
func MergeFields(album AlbumMetadata, d TrackDescriptor) TrackFields {
	return TrackFields{
		Title:           strings.TrimSpace(d.Title),
		Artist:          album.Artist,
		Album:           album.Album,
		Genre:           album.Genre,
		ReleaseDate:     album.ReleaseDate,
		DurationSeconds: d.DurationSeconds,
		TrackNumber:     d.TrackNumber,
	}
}

// FilenameStem returns the client filename without directories or extension.
func FilenameStem(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
