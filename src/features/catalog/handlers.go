package catalog

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/contre95/navidrop/src/music"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultCoverSize = 250
	maxCoverSize     = 2000
)

// Handler is the handler for the catalog feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the catalog feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// catalogStatus maps catalog failures onto HTTP statuses.
func catalogStatus(err error) int {
	switch {
	case errors.Is(err, music.ErrCatalogUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, music.ErrCatalogNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, music.ErrCatalog):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func catalogError(c *fiber.Ctx, op string, err error) error {
	status := catalogStatus(err)
	slog.Error("Catalog request failed", "op", op, "status", status, "error", err)
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// SearchDuplicates always answers 200; an unreachable catalog yields no duplicates.
func (h *Handler) SearchDuplicates(c *fiber.Ctx) error {
	duplicates := h.service.SearchDuplicates(c.UserContext(), c.Query("artist"), c.Query("title"))
	return c.JSON(fiber.Map{"duplicates": duplicates})
}

func (h *Handler) GetArtists(c *fiber.Ctx) error {
	artists, err := h.service.Artists(c.UserContext())
	if err != nil {
		return catalogError(c, "artists", err)
	}
	return c.JSON(artists)
}

func (h *Handler) GetAlbums(c *fiber.Ctx) error {
	albums, err := h.service.AlbumNames(c.UserContext())
	if err != nil {
		return catalogError(c, "albums", err)
	}
	return c.JSON(albums)
}

func (h *Handler) GetArtistAlbums(c *fiber.Ctx) error {
	albums, err := h.service.ArtistAlbums(c.UserContext(), c.Params("id"))
	if err != nil {
		return catalogError(c, "artist albums", err)
	}
	return c.JSON(albums)
}

func (h *Handler) GetGenres(c *fiber.Ctx) error {
	genres, err := h.service.Genres(c.UserContext())
	if err != nil {
		return catalogError(c, "genres", err)
	}
	return c.JSON(genres)
}

// GetCover proxies a catalog cover so the browser never sees catalog credentials.
func (h *Handler) GetCover(c *fiber.Ctx) error {
	size := defaultCoverSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxCoverSize {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid size"})
		}
		size = n
	}
	data, err := h.service.Cover(c.UserContext(), c.Params("id"), size)
	if err != nil {
		return catalogError(c, "cover", err)
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.Send(data)
}
