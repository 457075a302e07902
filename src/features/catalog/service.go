package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/contre95/navidrop/src/music"
)

const (
	fallbackUnavailable = "unavailable"
	fallbackError       = "error"
)

// Service exposes the catalog for browsing and duplicate detection.
type Service struct {
	client  Client
	metrics FallbackRecorder
}

// NewService creates a new catalog service. metrics may be nil.
func NewService(client Client, metrics FallbackRecorder) *Service {
	return &Service{client: client, metrics: metrics}
}

// SearchDuplicates returns catalog songs by artist that may clash with title.
// It is advisory: when the catalog fails the answer is an empty list, never an error.
func (s *Service) SearchDuplicates(ctx context.Context, artist, title string) []music.DuplicateCandidate {
	artist = strings.TrimSpace(artist)
	title = strings.TrimSpace(title)
	duplicates := []music.DuplicateCandidate{}
	if artist == "" {
		return duplicates
	}

	query := strings.TrimSpace(artist + " " + title)
	songs, err := s.client.SearchSongs(ctx, query)
	switch {
	case errors.Is(err, music.ErrCatalogUnavailable):
		slog.Warn("Catalog unavailable, skipping duplicate check", "artist", artist, "title", title, "error", err)
		s.fallback(fallbackUnavailable)
		return duplicates
	case err != nil:
		slog.Warn("Catalog error, skipping duplicate check", "artist", artist, "title", title, "error", err)
		s.fallback(fallbackError)
		return duplicates
	}

	for _, song := range songs {
		if strings.EqualFold(strings.TrimSpace(song.Artist), artist) {
			duplicates = append(duplicates, song)
		}
	}
	slog.Debug("Duplicate check done", "query", query, "candidates", len(songs), "duplicates", len(duplicates))
	return duplicates
}

func (s *Service) fallback(reason string) {
	if s.metrics != nil {
		s.metrics.RecordCatalogFallback(reason)
	}
}

func (s *Service) Artists(ctx context.Context) ([]music.CatalogArtist, error) {
	return s.client.ListArtists(ctx)
}

func (s *Service) ArtistAlbums(ctx context.Context, artistID string) ([]music.CatalogAlbum, error) {
	return s.client.ListAlbumsForArtist(ctx, artistID)
}

// AlbumNames returns the names of every album, for autocompletion.
func (s *Service) AlbumNames(ctx context.Context) ([]string, error) {
	albums, err := s.client.ListAlbums(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(albums))
	for _, a := range albums {
		names = append(names, a.Name)
	}
	return names, nil
}

func (s *Service) Genres(ctx context.Context) ([]string, error) {
	return s.client.ListGenres(ctx)
}

func (s *Service) Cover(ctx context.Context, coverID string, size int) ([]byte, error) {
	return s.client.FetchCoverImage(ctx, coverID, size)
}
