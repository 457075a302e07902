package uploading

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/contre95/navidrop/src/music"
)

// FinalizeRequest carries the edited batch. Cover is read once by the caller
// and overrides Album.CoverImageBytes. With neither set the files keep their pictures.
type FinalizeRequest struct {
	Album         music.AlbumMetadata
	Tracks        []music.TrackDescriptor
	Cover         []byte
	CoverMIMEType string
}

// FinalizeBatch tags every track, delivers the good ones in one session and
// reports the rest. Structural problems fail the call before any file is touched.
func (s *Service) FinalizeBatch(ctx context.Context, req FinalizeRequest) (*music.BatchResult, error) {
	if len(req.Tracks) == 0 {
		return nil, fmt.Errorf("%w: track list is empty", music.ErrStructural)
	}
	album := req.Album
	album.Artist = strings.TrimSpace(album.Artist)
	album.Album = strings.TrimSpace(album.Album)
	album.Genre = strings.TrimSpace(album.Genre)
	album.ReleaseDate = strings.TrimSpace(album.ReleaseDate)
	if err := album.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", music.ErrStructural, err)
	}

	cover, coverMIME := req.Cover, req.CoverMIMEType
	if len(cover) == 0 {
		cover, coverMIME = album.CoverImageBytes, album.CoverMIMEType
	}
	if len(cover) == 0 {
		cover = nil
	}

	start := time.Now()
	defer s.Sweep()

	result := &music.BatchResult{}
	var batch []music.DeliveryItem
	idByPath := make(map[string]string, len(req.Tracks))
	seen := make(map[string]bool, len(req.Tracks))

	for _, desc := range req.Tracks {
		path, trackErr := s.prepareTrack(ctx, album, desc, cover, coverMIME, seen)
		if trackErr != nil {
			slog.Warn("Track excluded from delivery", "tempFileId", desc.TempFileID, "title", desc.Title, "kind", trackErr.Kind, "reason", trackErr.Reason)
			result.Errors = append(result.Errors, *trackErr)
			continue
		}
		idByPath[path] = desc.TempFileID
		batch = append(batch, music.DeliveryItem{Path: path, Artist: album.Artist, Title: strings.TrimSpace(desc.Title)})
	}

	if len(batch) > 0 {
		failures := s.deliverer.Deliver(ctx, batch)
		failed := make(map[string]bool, len(failures))
		for _, f := range failures {
			failed[f.Path] = true
			slog.Warn("Track not delivered", "title", f.Title, "connect", f.Connect, "error", f.Err)
			reason := fmt.Sprintf("upload failed: %s", f.Reason)
			if f.Connect {
				reason = fmt.Sprintf("not attempted, %s", f.Reason)
			}
			result.Errors = append(result.Errors, music.TrackError{
				TempFileID: idByPath[f.Path],
				Title:      f.Title,
				Reason:     reason,
				Kind:       music.KindDelivery,
			})
		}
		for _, item := range batch {
			if failed[item.Path] {
				continue
			}
			result.Delivered++
			if err := s.store.Remove(idByPath[item.Path]); err != nil {
				slog.Warn("Failed to remove delivered temp file", "path", item.Path, "error", err)
			}
		}
	}

	result.Finish()
	if s.metrics != nil {
		s.metrics.RecordBatch(string(result.Status), time.Since(start).Seconds())
	}
	slog.Info("Finalized upload batch", "artist", album.Artist, "album", album.Album, "tracks", len(req.Tracks), "delivered", result.Delivered, "errors", len(result.Errors), "status", result.Status)
	return result, nil
}

// prepareTrack validates one descriptor and writes its tags, returning the local path ready for delivery.
func (s *Service) prepareTrack(ctx context.Context, album music.AlbumMetadata, desc music.TrackDescriptor, cover []byte, coverMIME string, seen map[string]bool) (string, *music.TrackError) {
	fail := func(kind music.ErrorKind, reason string) (string, *music.TrackError) {
		return "", &music.TrackError{TempFileID: desc.TempFileID, Title: desc.Title, Reason: reason, Kind: kind}
	}

	desc.Title = strings.TrimSpace(desc.Title)
	if err := s.validate.Struct(desc); err != nil {
		return fail(music.KindValidation, fmt.Sprintf("invalid track: %v", err))
	}
	if seen[desc.TempFileID] {
		return fail(music.KindValidation, "track submitted more than once")
	}
	seen[desc.TempFileID] = true

	path, err := s.store.Resolve(desc.TempFileID)
	if err != nil {
		return fail(music.KindValidation, "invalid file path")
	}
	if !s.store.Exists(desc.TempFileID) {
		return fail(music.KindValidation, "file not found")
	}

	fields := music.MergeFields(album, desc)
	if err := fields.Validate(); err != nil {
		return fail(music.KindValidation, err.Error())
	}
	if err := s.writer.WriteFileTags(ctx, path, fields, cover, coverMIME); err != nil {
		return fail(music.KindCodec, fmt.Sprintf("tag write failed: %v", err))
	}
	return path, nil
}
