package uploading

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the upload routes on the authenticated api group.
func RegisterRoutes(api fiber.Router, service *Service, maxCoverBytes int64) {
	handler := NewHandler(service, maxCoverBytes)

	api.Post("/upload-temp", handler.UploadTemp)
	api.Post("/upload-final-batch", handler.UploadFinalBatch)
}
