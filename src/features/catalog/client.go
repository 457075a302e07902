package catalog

import (
	"context"

	"github.com/contre95/navidrop/src/music"
)

// Client is the catalog backend. Errors wrap music.ErrCatalogUnavailable,
// music.ErrCatalog or music.ErrCatalogNotFound.
type Client interface {
	SearchSongs(ctx context.Context, query string) ([]music.DuplicateCandidate, error)
	ListArtists(ctx context.Context) ([]music.CatalogArtist, error)
	ListAlbumsForArtist(ctx context.Context, artistID string) ([]music.CatalogAlbum, error)
	ListAlbums(ctx context.Context) ([]music.CatalogAlbum, error)
	ListGenres(ctx context.Context) ([]string, error)
	FetchCoverImage(ctx context.Context, coverID string, size int) ([]byte, error)
}

// FallbackRecorder counts duplicate checks that fell back to an empty answer.
type FallbackRecorder interface {
	RecordCatalogFallback(reason string)
}
