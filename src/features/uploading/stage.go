package uploading

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"

	"github.com/contre95/navidrop/src/music"
	"golang.org/x/sync/errgroup"
)

const (
	allowedContentType = "audio/mpeg"
	allowedExtension   = ".mp3"
)

// UploadFile is one file of a multipart submission.
type UploadFile struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// StageResult is what the client needs to build the edit form.
type StageResult struct {
	Album  *music.AlbumMetadata `json:"album"`
	Tracks []music.StagedTrack  `json:"tracks"`
	Errors []music.Rejection    `json:"errors"`
}

type stageSlot struct {
	track     *music.StagedTrack
	tags      *music.ExtractedTags
	rejection *music.Rejection
}

// StageBatch stores every acceptable file and extracts its tags. Per-file
// problems are reported inline; only an empty submission fails the call.
func (s *Service) StageBatch(ctx context.Context, uploads []UploadFile) (*StageResult, error) {
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no files submitted", music.ErrStructural)
	}

	slots := make([]stageSlot, len(uploads))
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i := range uploads {
		g.Go(func() error {
			slots[i] = s.stageOne(ctx, uploads[i])
			return nil
		})
	}
	_ = g.Wait()

	result := &StageResult{
		Tracks: []music.StagedTrack{},
		Errors: []music.Rejection{},
	}
	for _, slot := range slots {
		if slot.rejection != nil {
			result.Errors = append(result.Errors, *slot.rejection)
			continue
		}
		if result.Album == nil {
			result.Album = music.AlbumFromTags(slot.tags)
		}
		result.Tracks = append(result.Tracks, *slot.track)
	}

	slog.Info("Staged upload batch", "files", len(uploads), "tracks", len(result.Tracks), "rejected", len(result.Errors))
	return result, nil
}

func (s *Service) stageOne(ctx context.Context, upload UploadFile) stageSlot {
	reject := func(result, reason string) stageSlot {
		slog.Warn("Rejected upload", "filename", upload.Filename, "reason", reason)
		s.record(result)
		return stageSlot{rejection: &music.Rejection{Filename: upload.Filename, Reason: reason}}
	}

	if err := s.checkType(upload); err != nil {
		return reject("rejected", err.Error())
	}
	if upload.Size > s.opts.MaxSize {
		return reject("rejected", s.tooLarge())
	}

	rc, err := upload.Open()
	if err != nil {
		return reject("rejected", fmt.Sprintf("could not read upload: %v", err))
	}
	id, err := s.store.Stage(ctx, rc)
	rc.Close()
	switch {
	case errors.Is(err, music.ErrTooLarge):
		return reject("rejected", s.tooLarge())
	case err != nil:
		return reject("store_error", fmt.Sprintf("failed to save file: %v", err))
	}
	if !s.store.Exists(id) {
		return reject("store_error", "file was not saved correctly")
	}

	path, err := s.store.Resolve(id)
	if err != nil {
		return reject("store_error", err.Error())
	}
	tags, err := s.reader.ReadFileTags(ctx, path)
	if err != nil {
		// The file stays staged; the sweeper collects it.
		return reject("codec_error", fmt.Sprintf("could not read metadata: %v", err))
	}

	title := strings.TrimSpace(tags.Title)
	if title == "" {
		title = music.FilenameStem(upload.Filename)
	}
	s.record("ok")
	return stageSlot{
		tags: tags,
		track: &music.StagedTrack{
			TempFileID:       id,
			OriginalFilename: upload.Filename,
			Title:            title,
			DurationSeconds:  tags.DurationSeconds,
			TrackNumber:      tags.TrackNumber,
		},
	}
}

func (s *Service) checkType(upload UploadFile) error {
	mediaType, _, err := mime.ParseMediaType(upload.ContentType)
	if err != nil || mediaType != allowedContentType {
		return fmt.Errorf("%w: only MP3 files are allowed (got %q)", music.ErrValidation, upload.ContentType)
	}
	if strings.ToLower(filepath.Ext(upload.Filename)) != allowedExtension {
		return fmt.Errorf("%w: invalid extension, only .mp3 is allowed", music.ErrValidation)
	}
	return nil
}

func (s *Service) tooLarge() string {
	return fmt.Sprintf("file too large (max %d MB)", s.opts.MaxSize/(1024*1024))
}

func (s *Service) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordStaged(result)
	}
}
