package uploading

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/contre95/navidrop/src/music"
	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the uploading feature.
type Handler struct {
	service       *Service
	maxCoverBytes int64
}

// NewHandler creates a new handler for the uploading feature.
func NewHandler(service *Service, maxCoverBytes int64) *Handler {
	return &Handler{service: service, maxCoverBytes: maxCoverBytes}
}

// trackPayload accepts both camelCase and the snake_case names older clients send.
type trackPayload struct {
	TempFileID      string `json:"tempFileId"`
	TempFile        string `json:"temp_file"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"durationSeconds"`
	Duration        int    `json:"duration"`
	TrackNumber     int    `json:"trackNumber"`
	TrackNumberAlt  int    `json:"track_number"`
}

func (p trackPayload) descriptor() music.TrackDescriptor {
	d := music.TrackDescriptor{
		TempFileID:      p.TempFileID,
		Title:           p.Title,
		DurationSeconds: p.DurationSeconds,
		TrackNumber:     p.TrackNumber,
	}
	if d.TempFileID == "" {
		d.TempFileID = p.TempFile
	}
	if d.DurationSeconds == 0 {
		d.DurationSeconds = p.Duration
	}
	if d.TrackNumber == 0 {
		d.TrackNumber = p.TrackNumberAlt
	}
	return d
}

type finalizeResponse struct {
	*music.BatchResult
	Message string `json:"message"`
}

// finalizeStatus maps a batch outcome onto an HTTP status.
func finalizeStatus(result *music.BatchResult) int {
	switch result.Status {
	case music.BatchSuccess:
		return fiber.StatusOK
	case music.BatchPartial:
		return fiber.StatusMultiStatus
	default:
		if result.HasKind(music.KindDelivery) {
			return fiber.StatusBadGateway
		}
		return fiber.StatusUnprocessableEntity
	}
}

func finalizeMessage(status music.BatchStatus) string {
	switch status {
	case music.BatchSuccess:
		return "Upload completed successfully"
	case music.BatchPartial:
		return "Upload completed with errors"
	default:
		return "Upload failed"
	}
}

func structuralFailure(c *fiber.Ctx, err error) error {
	slog.Warn("Rejected finalize request", "error", err)
	result := &music.BatchResult{Errors: []music.TrackError{{Reason: err.Error(), Kind: music.KindStructural}}}
	result.Finish()
	return c.Status(fiber.StatusBadRequest).JSON(finalizeResponse{BatchResult: result, Message: err.Error()})
}

// UploadTemp stages every "file" part of the request.
func (h *Handler) UploadTemp(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "expected multipart form with one or more files"})
	}
	headers := form.File["file"]
	if len(headers) == 0 {
		headers = form.File["files"]
	}

	uploads := make([]UploadFile, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, UploadFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	result, err := h.service.StageBatch(c.UserContext(), uploads)
	if errors.Is(err, music.ErrStructural) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// UploadFinalBatch tags and delivers a staged batch.
func (h *Handler) UploadFinalBatch(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return structuralFailure(c, fmt.Errorf("%w: expected multipart form", music.ErrStructural))
	}

	var payload []trackPayload
	if err := json.Unmarshal([]byte(formValue(form, "tracks")), &payload); err != nil {
		return structuralFailure(c, fmt.Errorf("%w: tracks is not a valid JSON list: %v", music.ErrStructural, err))
	}
	tracks := make([]music.TrackDescriptor, 0, len(payload))
	for _, p := range payload {
		tracks = append(tracks, p.descriptor())
	}

	releaseDate := formValue(form, "releaseDate")
	if releaseDate == "" {
		releaseDate = formValue(form, "release_date")
	}
	req := FinalizeRequest{
		Album: music.AlbumMetadata{
			Artist:      formValue(form, "artist"),
			Album:       formValue(form, "album"),
			Genre:       formValue(form, "genre"),
			ReleaseDate: releaseDate,
		},
		Tracks: tracks,
	}
	// The staged cover comes back base64 encoded, the same way upload-temp returned it.
	if staged := formValue(form, "coverImageBytes"); staged != "" {
		req.Album.CoverImageBytes, err = h.decodeStagedCover(staged)
		if err != nil {
			return structuralFailure(c, err)
		}
		req.Album.CoverMIMEType = formValue(form, "coverMimeType")
	}
	if covers := form.File["cover"]; len(covers) > 0 && covers[0].Size > 0 {
		req.Cover, err = h.readCover(covers[0])
		if err != nil {
			return structuralFailure(c, err)
		}
		req.CoverMIMEType = covers[0].Header.Get(fiber.HeaderContentType)
	}

	result, err := h.service.FinalizeBatch(c.UserContext(), req)
	if errors.Is(err, music.ErrStructural) {
		return structuralFailure(c, err)
	}
	if err != nil {
		return err
	}
	return c.Status(finalizeStatus(result)).JSON(finalizeResponse{BatchResult: result, Message: finalizeMessage(result.Status)})
}

// readCover reads the cover once; every track shares these bytes.
func (h *Handler) readCover(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > h.maxCoverBytes {
		return nil, fmt.Errorf("%w: cover image too large", music.ErrStructural)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read cover: %v", music.ErrStructural, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxCoverBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read cover: %v", music.ErrStructural, err)
	}
	if int64(len(data)) > h.maxCoverBytes {
		return nil, fmt.Errorf("%w: cover image too large", music.ErrStructural)
	}
	return data, nil
}

func (h *Handler) decodeStagedCover(encoded string) ([]byte, error) {
	if int64(base64.StdEncoding.DecodedLen(len(encoded))) > h.maxCoverBytes+2 {
		return nil, fmt.Errorf("%w: cover image too large", music.ErrStructural)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: coverImageBytes is not valid base64: %v", music.ErrStructural, err)
	}
	if int64(len(data)) > h.maxCoverBytes {
		return nil, fmt.Errorf("%w: cover image too large", music.ErrStructural)
	}
	return data, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}
