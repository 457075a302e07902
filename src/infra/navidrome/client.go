package navidrome

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/contre95/navidrop/src/music"
	subsonic "github.com/delucks/go-subsonic"
	"golang.org/x/time/rate"
)

const (
	listSize           = "500"
	notFoundErrorCode  = "Error #70"
	defaultClientName  = "navidrop"
	defaultTimeout     = 5 * time.Second
	defaultRatePerSecs = 5
)

// api is the subset of *subsonic.Client used here.
type api interface {
	Authenticate(password string) error
	Search3(query string, parameters map[string]string) (*subsonic.SearchResult3, error)
	GetArtists(parameters map[string]string) (*subsonic.ArtistsID3, error)
	GetArtist(id string) (*subsonic.ArtistID3, error)
	GetAlbumList2(listType string, parameters map[string]string) ([]*subsonic.AlbumID3, error)
	GetGenres() ([]*subsonic.Genre, error)
	GetCoverArt(id string, parameters map[string]string) (image.Image, error)
}

// JPEGEncoder turns a decoded cover into bytes the browser can show.
type JPEGEncoder interface {
	EncodeJPEG(img image.Image) ([]byte, error)
}

// Options configures a Client.
type Options struct {
	URL               string
	Username          string
	Password          string
	ClientName        string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client talks to a Navidrome (Subsonic API) server.
type Client struct {
	api      api
	password string
	limiter  *rate.Limiter
	encoder  JPEGEncoder

	authMu sync.Mutex
	authed bool
}

// NewClient creates a catalog client. Authentication is deferred to the first call
// so the app can start while Navidrome is down.
func NewClient(opts Options, encoder JPEGEncoder) *Client {
	if opts.ClientName == "" {
		opts.ClientName = defaultClientName
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRatePerSecs
	}
	return newClient(&subsonic.Client{
		Client:       &http.Client{Timeout: opts.Timeout},
		BaseUrl:      strings.TrimRight(opts.URL, "/"),
		User:         opts.Username,
		ClientName:   opts.ClientName,
		PasswordAuth: false,
	}, opts.Password, opts.RequestsPerSecond, encoder)
}

func newClient(a api, password string, rps float64, encoder JPEGEncoder) *Client {
	return &Client{
		api:      a,
		password: password,
		limiter:  rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		encoder:  encoder,
	}
}

// ready waits for a rate limit token and makes sure the client is authenticated.
func (c *Client) ready(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", music.ErrCatalogUnavailable, err)
	}
	c.authMu.Lock()
	defer c.authMu.Unlock()
	if c.authed {
		return nil
	}
	if err := c.api.Authenticate(c.password); err != nil {
		return fmt.Errorf("%w: authentication failed: %v", music.ErrCatalogUnavailable, err)
	}
	c.authed = true
	slog.Debug("Authenticated against catalog")
	return nil
}

// classify maps transport and protocol failures onto the catalog sentinels.
func classify(op string, err error) error {
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return fmt.Errorf("%w: %s: %v", music.ErrCatalogUnavailable, op, err)
	case strings.Contains(err.Error(), notFoundErrorCode):
		return fmt.Errorf("%w: %s: %v", music.ErrCatalogNotFound, op, err)
	default:
		return fmt.Errorf("%w: %s: %v", music.ErrCatalog, op, err)
	}
}

// SearchSongs runs a search3 query and returns the matching songs.
func (c *Client) SearchSongs(ctx context.Context, query string) ([]music.DuplicateCandidate, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	result, err := c.api.Search3(query, map[string]string{
		"songCount":   "50",
		"albumCount":  "0",
		"artistCount": "0",
	})
	if err != nil {
		return nil, classify("search3", err)
	}
	if result == nil {
		return []music.DuplicateCandidate{}, nil
	}
	songs := make([]music.DuplicateCandidate, 0, len(result.Song))
	for _, s := range result.Song {
		if s == nil {
			continue
		}
		songs = append(songs, music.DuplicateCandidate{
			Title:  s.Title,
			Artist: s.Artist,
			Album:  s.Album,
			Year:   s.Year,
			Genre:  s.Genre,
		})
	}
	return songs, nil
}

// ListArtists returns every artist of the library index.
func (c *Client) ListArtists(ctx context.Context) ([]music.CatalogArtist, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	result, err := c.api.GetArtists(nil)
	if err != nil {
		return nil, classify("getArtists", err)
	}
	artists := []music.CatalogArtist{}
	if result == nil {
		return artists, nil
	}
	for _, index := range result.Index {
		if index == nil {
			continue
		}
		for _, a := range index.Artist {
			if a == nil {
				continue
			}
			artists = append(artists, music.CatalogArtist{ID: a.ID, Name: a.Name})
		}
	}
	return artists, nil
}

// ListAlbumsForArtist returns the albums of one artist.
func (c *Client) ListAlbumsForArtist(ctx context.Context, artistID string) ([]music.CatalogAlbum, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	artist, err := c.api.GetArtist(artistID)
	if err != nil {
		return nil, classify("getArtist", err)
	}
	if artist == nil {
		return nil, fmt.Errorf("%w: artist %s", music.ErrCatalogNotFound, artistID)
	}
	return toAlbums(artist.Album), nil
}

// ListAlbums returns the album list sorted by name.
func (c *Client) ListAlbums(ctx context.Context) ([]music.CatalogAlbum, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	albums, err := c.api.GetAlbumList2("alphabeticalByName", map[string]string{"size": listSize})
	if err != nil {
		return nil, classify("getAlbumList2", err)
	}
	return toAlbums(albums), nil
}

// ListGenres returns the genre names known to the catalog.
func (c *Client) ListGenres(ctx context.Context) ([]string, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	genres, err := c.api.GetGenres()
	if err != nil {
		return nil, classify("getGenres", err)
	}
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		if g != nil && g.Name != "" {
			names = append(names, g.Name)
		}
	}
	return names, nil
}

// FetchCoverImage downloads a cover scaled server side to size pixels, as JPEG.
func (c *Client) FetchCoverImage(ctx context.Context, coverID string, size int) ([]byte, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	params := map[string]string{}
	if size > 0 {
		params["size"] = strconv.Itoa(size)
	}
	img, err := c.api.GetCoverArt(coverID, params)
	if err != nil {
		return nil, classify("getCoverArt", err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: cover %s", music.ErrCatalogNotFound, coverID)
	}
	data, err := c.encoder.EncodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", music.ErrCatalog, err)
	}
	return data, nil
}

func toAlbums(in []*subsonic.AlbumID3) []music.CatalogAlbum {
	albums := make([]music.CatalogAlbum, 0, len(in))
	for _, a := range in {
		if a == nil {
			continue
		}
		albums = append(albums, music.CatalogAlbum{
			ID:      a.ID,
			Name:    a.Name,
			Year:    a.Year,
			Genre:   a.Genre,
			CoverID: a.CoverArt,
		})
	}
	return albums
}
