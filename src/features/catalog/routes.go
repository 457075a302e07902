package catalog

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the catalog routes on the authenticated api group.
func RegisterRoutes(api fiber.Router, service *Service) {
	handler := NewHandler(service)

	api.Get("/search-duplicates", handler.SearchDuplicates)
	api.Get("/artists", handler.GetArtists)
	api.Get("/albums", handler.GetAlbums)
	api.Get("/albums/artist/:id", handler.GetArtistAlbums)
	api.Get("/albums/cover/:id", handler.GetCover)
	api.Get("/genres", handler.GetGenres)
}
