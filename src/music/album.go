package music

import (
	"fmt"
	"strings"
)

// AlbumMetadata holds the fields shared by every track of a batch.
type AlbumMetadata struct {
	Artist          string `json:"artist"`
	Album           string `json:"album"`
	Genre           string `json:"genre"`
	ReleaseDate     string `json:"releaseDate"`
	CoverImageBytes []byte `json:"coverImageBytes,omitempty"`
	CoverMIMEType   string `json:"coverMimeType,omitempty"`
}

// AlbumFromTags builds the shared album candidate out of a file's extracted tags.
func AlbumFromTags(tags *ExtractedTags) *AlbumMetadata {
	return &AlbumMetadata{
		Artist:          tags.Artist,
		Album:           tags.Album,
		Genre:           tags.Genre,
		ReleaseDate:     tags.ReleaseDate,
		CoverImageBytes: tags.CoverImage,
		CoverMIMEType:   tags.CoverMIMEType,
	}
}

// Validate validates the album fields.
func (a *AlbumMetadata) Validate() error {
	if strings.TrimSpace(a.Artist) == "" {
		return fmt.Errorf("%w: artist cannot be empty", ErrValidation)
	}
	if len(a.Artist) > 500 {
		return fmt.Errorf("%w: artist cannot exceed 500 characters", ErrValidation)
	}
	if len(a.Album) > 500 {
		return fmt.Errorf("%w: album title cannot exceed 500 characters", ErrValidation)
	}
	if len(a.Genre) > 100 {
		return fmt.Errorf("%w: genre cannot exceed 100 characters", ErrValidation)
	}
	return nil
}
