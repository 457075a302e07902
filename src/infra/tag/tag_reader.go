package tag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/contre95/navidrop/src/music"
	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// TagReader reads ID3 tags with dhowden/tag and measures duration by walking MPEG frames.
type TagReader struct{}

// NewTagReader creates a new TagReader
func NewTagReader() *TagReader {
	return &TagReader{}
}

// ReadFileTags extracts tags and duration. Missing tags are fine; a file with
// no decodable MPEG audio is a codec error.
func (r *TagReader) ReadFileTags(ctx context.Context, filePath string) (*music.ExtractedTags, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open file: %v", music.ErrCodec, err)
	}
	defer file.Close()

	extracted := &music.ExtractedTags{}
	meta, err := tag.ReadFrom(file)
	switch {
	case errors.Is(err, tag.ErrNoTagsFound):
		slog.Debug("No tags found", "path", filePath)
	case err != nil:
		return nil, fmt.Errorf("%w: failed to read tags: %v", music.ErrCodec, err)
	default:
		fillFromMetadata(extracted, meta)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	duration, err := measureDuration(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", music.ErrCodec, err)
	}
	extracted.DurationSeconds = int(math.Round(duration.Seconds()))
	return extracted, nil
}

func fillFromMetadata(extracted *music.ExtractedTags, meta tag.Metadata) {
	extracted.Title = strings.TrimSpace(meta.Title())
	extracted.Artist = strings.TrimSpace(meta.Artist())
	if extracted.Artist == "" {
		extracted.Artist = strings.TrimSpace(meta.AlbumArtist())
	}
	extracted.Album = strings.TrimSpace(meta.Album())
	extracted.Genre = strings.TrimSpace(meta.Genre())
	extracted.TrackNumber, _ = meta.Track()
	extracted.ReleaseDate = releaseDate(meta)
	if pic := meta.Picture(); pic != nil && len(pic.Data) > 0 {
		extracted.CoverImage = pic.Data
		extracted.CoverMIMEType = pic.MIMEType
	}
}

// releaseDate prefers the full recording date over the bare year.
func releaseDate(meta tag.Metadata) string {
	if raw := meta.Raw(); raw != nil {
		for _, key := range []string{"TDRC", "TDRL", "TYER", "TYE"} {
			if v, ok := raw[key].(string); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	if year := meta.Year(); year > 0 {
		return strconv.Itoa(year)
	}
	return ""
}

// measureDuration sums the duration of every MPEG frame after the ID3v2 header.
func measureDuration(file io.ReadSeeker) (time.Duration, error) {
	offset, err := id3v2Size(file)
	if err != nil {
		return 0, err
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek past tags: %w", err)
	}

	decoder := mp3.NewDecoder(file)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
		frames  int
	)
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			if frames > 0 {
				// Trailing junk (ID3v1, APE) after valid audio.
				break
			}
			return 0, fmt.Errorf("failed to decode mpeg frame: %w", err)
		}
		total += frame.Duration()
		frames++
	}
	if frames == 0 {
		return 0, errors.New("no mpeg audio frames found")
	}
	return total, nil
}

// id3v2Size returns how many bytes the leading ID3v2 tag occupies, 0 when absent.
func id3v2Size(file io.ReadSeeker) (int64, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	header := make([]byte, 10)
	if _, err := io.ReadFull(file, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, nil
		}
		return 0, err
	}
	if string(header[:3]) != "ID3" {
		return 0, nil
	}
	size := int64(header[6]&0x7f)<<21 | int64(header[7]&0x7f)<<14 | int64(header[8]&0x7f)<<7 | int64(header[9]&0x7f)
	size += 10
	if header[5]&0x10 != 0 {
		size += 10 // footer
	}
	return size, nil
}
