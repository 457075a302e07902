package tag

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bogem/id3v2/v2"
	"github.com/contre95/navidrop/src/music"
)

// CoverPreparer normalizes cover bytes before embedding.
type CoverPreparer interface {
	Prepare(data []byte, declaredMIME string) ([]byte, string, error)
}

// TagWriter writes ID3v2.4 tags into MP3 files in place.
type TagWriter struct {
	artwork CoverPreparer
}

// NewTagWriter creates a new TagWriter. artwork may be nil to embed covers untouched.
func NewTagWriter(artwork CoverPreparer) *TagWriter {
	return &TagWriter{artwork: artwork}
}

// WriteFileTags replaces the text tags with fields. The front cover is replaced
// only when cover is non-nil; otherwise any existing picture is kept.
func (t *TagWriter) WriteFileTags(ctx context.Context, filePath string, fields music.TrackFields, cover []byte, coverMIME string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tag, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: failed to open MP3 file for tagging: %v", music.ErrCodec, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetVersion(4)

	tag.SetTitle(fields.Title)
	tag.SetArtist(fields.Artist)
	tag.SetAlbum(fields.Album)
	tag.SetGenre(fields.Genre)
	setOrDelete(tag, tag.CommonID("Band/Orchestra/Accompaniment"), fields.Artist)
	setOrDelete(tag, tag.CommonID("Recording time"), fields.ReleaseDate)
	setOrDelete(tag, tag.CommonID("Track number/Position in set"), positive(fields.TrackNumber))
	setOrDelete(tag, tag.CommonID("Length"), positive(fields.DurationSeconds*1000))

	if cover != nil {
		data, mime := cover, coverMIME
		if t.artwork != nil {
			data, mime, err = t.artwork.Prepare(cover, coverMIME)
			if err != nil {
				return fmt.Errorf("%w: %v", music.ErrCodec, err)
			}
		}
		if mime == "" {
			mime = "image/jpeg"
		}
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    mime,
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     data,
		})
		slog.Debug("Embedded artwork in MP3", "filePath", filePath, "size", len(data), "type", mime)
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("%w: failed to save MP3 tags: %v", music.ErrCodec, err)
	}

	slog.Info("Tagged MP3 file", "filePath", filePath, "title", fields.Title, "artist", fields.Artist)
	return nil
}

func setOrDelete(tag *id3v2.Tag, id, value string) {
	tag.DeleteFrames(id)
	if value != "" {
		tag.AddTextFrame(id, id3v2.EncodingUTF8, value)
	}
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
