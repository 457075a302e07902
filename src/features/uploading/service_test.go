package uploading

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/contre95/navidrop/src/features/delivery"
	"github.com/contre95/navidrop/src/infra/files"
	"github.com/contre95/navidrop/src/music"
)

// fakeReader parses "artist|album|title|track" file contents; "corrupt" fails.
type fakeReader struct{}

func (fakeReader) ReadFileTags(_ context.Context, path string) (*music.ExtractedTags, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", music.ErrCodec, err)
	}
	if string(data) == "corrupt" {
		return nil, fmt.Errorf("%w: no mpeg frames", music.ErrCodec)
	}
	parts := strings.Split(string(data), "|")
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	track, _ := strconv.Atoi(parts[3])
	return &music.ExtractedTags{Artist: parts[0], Album: parts[1], Title: parts[2], TrackNumber: track, DurationSeconds: 180}, nil
}

type writeCall struct {
	path      string
	fields    music.TrackFields
	cover     []byte
	coverMIME string
}

type fakeWriter struct {
	failTitles map[string]bool
	calls      []writeCall
}

func (w *fakeWriter) WriteFileTags(_ context.Context, path string, fields music.TrackFields, cover []byte, coverMIME string) error {
	w.calls = append(w.calls, writeCall{path: path, fields: fields, cover: cover, coverMIME: coverMIME})
	if w.failTitles[fields.Title] {
		return fmt.Errorf("%w: save failed", music.ErrCodec)
	}
	return nil
}

type fakeDeliverer struct {
	connectErr error
	failTitles map[string]bool
	batches    [][]music.DeliveryItem
}

func (d *fakeDeliverer) Deliver(_ context.Context, items []music.DeliveryItem) []music.DeliveryFailure {
	d.batches = append(d.batches, items)
	var failures []music.DeliveryFailure
	for _, item := range items {
		switch {
		case d.connectErr != nil:
			failures = append(failures, music.DeliveryFailure{Path: item.Path, Title: item.Title, Reason: d.connectErr.Error(), Connect: true})
		case d.failTitles[item.Title]:
			failures = append(failures, music.DeliveryFailure{Path: item.Path, Title: item.Title, Reason: "permission denied"})
		}
	}
	return failures
}

type fixture struct {
	service   *Service
	store     *files.TempStore
	writer    *fakeWriter
	deliverer *fakeDeliverer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := files.NewTempStore(filepath.Join(t.TempDir(), "uploads"), 1024)
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{store: store, writer: &fakeWriter{}, deliverer: &fakeDeliverer{}}
	f.service = NewService(store, fakeReader{}, f.writer, f.deliverer, nil, Options{MaxSize: 1024, Workers: 3, StaleAfter: 10 * time.Minute})
	return f
}

func upload(name, contentType, body string) UploadFile {
	return UploadFile{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

// stage puts raw content in the store and returns its id.
func (f *fixture) stage(t *testing.T, body string) string {
	t.Helper()
	id, err := f.store.Stage(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestStageBatch_SingleTaggedFile(t *testing.T) {
	f := newFixture(t)
	result, err := f.service.StageBatch(context.Background(), []UploadFile{upload("t1.mp3", "audio/mpeg", "A|X|T1|1")})
	if err != nil {
		t.Fatalf("StageBatch() error = %v", err)
	}
	if len(result.Tracks) != 1 || result.Tracks[0].Title != "T1" {
		t.Fatalf("expected one track titled T1, got %+v", result.Tracks)
	}
	if result.Album == nil || result.Album.Artist != "A" || result.Album.Album != "X" {
		t.Fatalf("expected album artist A, got %+v", result.Album)
	}
	if !f.store.Exists(result.Tracks[0].TempFileID) {
		t.Error("staged file should persist after the call")
	}
	if strings.Contains(result.Tracks[0].TempFileID, "t1") {
		t.Error("temp id must not derive from the client filename")
	}
}

func TestStageBatch_MixedBatchRejectsOnlyOffenders(t *testing.T) {
	f := newFixture(t)
	result, err := f.service.StageBatch(context.Background(), []UploadFile{
		upload("one.mp3", "audio/mpeg", "A|X|One|1"),
		upload("two.mp3", "text/plain", "A|X|Two|2"),
		upload("three.mp3", "audio/mpeg", "A|X|Three|3"),
		upload("four.wav", "audio/mpeg", "A|X|Four|4"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Tracks) != 2 {
		t.Fatalf("expected 2 staged tracks, got %+v", result.Tracks)
	}
	if result.Tracks[0].Title != "One" || result.Tracks[1].Title != "Three" {
		t.Errorf("expected submission order preserved, got %+v", result.Tracks)
	}
	if len(result.Errors) != 2 || result.Errors[0].Filename != "two.mp3" || result.Errors[1].Filename != "four.wav" {
		t.Errorf("expected one rejection per offending file, got %+v", result.Errors)
	}
	if got := countFiles(t, f.store.Root()); got != 2 {
		t.Errorf("rejected files must not be staged, found %d files", got)
	}
}

func TestStageBatch_AlbumComesFromFirstSuccessfullyExtractedFile(t *testing.T) {
	f := newFixture(t)
	result, err := f.service.StageBatch(context.Background(), []UploadFile{
		upload("bad.mp3", "audio/mpeg", "corrupt"),
		upload("good.mp3", "audio/mpeg", "Second|Album2|Song|1"),
		upload("later.mp3", "audio/mpeg", "Third|Album3|Other|2"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Album == nil || result.Album.Artist != "Second" {
		t.Fatalf("expected album from first extracted file, got %+v", result.Album)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Reason, "metadata") {
		t.Errorf("expected codec rejection, got %+v", result.Errors)
	}
	if got := countFiles(t, f.store.Root()); got != 3 {
		t.Errorf("unreadable file stays staged for the sweeper, found %d files", got)
	}
}

func TestStageBatch_TitleFallsBackToFilenameAndSizeLimit(t *testing.T) {
	f := newFixture(t)
	result, err := f.service.StageBatch(context.Background(), []UploadFile{
		upload(`C:\music\Untitled Track.MP3`, "audio/mpeg", "A|X||"),
		upload("huge.mp3", "audio/mpeg", strings.Repeat("x", 2048)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Tracks) != 1 || result.Tracks[0].Title != "Untitled Track" {
		t.Errorf("expected filename stem as title, got %+v", result.Tracks)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0].Reason, "too large") {
		t.Errorf("expected size rejection, got %+v", result.Errors)
	}
}

func TestStageBatch_EmptySubmissionIsStructural(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.StageBatch(context.Background(), nil); !errors.Is(err, music.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
}

func TestFinalizeBatch_AllDelivered(t *testing.T) {
	f := newFixture(t)
	id1, id2 := f.stage(t, "a"), f.stage(t, "b")
	cover := []byte{0xFF, 0xD8, 0x01}

	result, err := f.service.FinalizeBatch(context.Background(), FinalizeRequest{
		Album:  music.AlbumMetadata{Artist: "Band", Album: "LP", Genre: "Rock", ReleaseDate: "2020"},
		Tracks: []music.TrackDescriptor{{TempFileID: id1, Title: "One", TrackNumber: 1}, {TempFileID: id2, Title: "Two", TrackNumber: 2}},
		Cover:  cover,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != music.BatchSuccess || result.Delivered != 2 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(f.deliverer.batches) != 1 {
		t.Fatalf("expected a single delivery call, got %d", len(f.deliverer.batches))
	}
	for _, call := range f.writer.calls {
		if &call.cover[0] != &cover[0] {
			t.Error("every track must share the same cover bytes")
		}
		if call.fields.Artist != "Band" || call.fields.Album != "LP" {
			t.Errorf("album fields not merged: %+v", call.fields)
		}
	}
	if f.store.Exists(id1) || f.store.Exists(id2) {
		t.Error("delivered temp files should be removed")
	}
}

func TestFinalizeBatch_TagWriteFailuresAreExcludedFromDelivery(t *testing.T) {
	for _, e := range []int{0, 1, 2, 3} {
		t.Run(fmt.Sprintf("E=%d", e), func(t *testing.T) {
			f := newFixture(t)
			f.writer.failTitles = map[string]bool{}
			var tracks []music.TrackDescriptor
			for i := range 3 {
				title := fmt.Sprintf("T%d", i)
				if i < e {
					f.writer.failTitles[title] = true
				}
				tracks = append(tracks, music.TrackDescriptor{TempFileID: f.stage(t, title), Title: title})
			}

			result, err := f.service.FinalizeBatch(context.Background(), FinalizeRequest{Album: music.AlbumMetadata{Artist: "A"}, Tracks: tracks})
			if err != nil {
				t.Fatal(err)
			}
			if len(result.Errors) < e {
				t.Errorf("expected at least %d errors, got %d", e, len(result.Errors))
			}
			delivered := 0
			for _, b := range f.deliverer.batches {
				delivered += len(b)
				for _, item := range b {
					if f.writer.failTitles[item.Title] {
						t.Errorf("track %s failed tagging but was delivered", item.Title)
					}
				}
			}
			if delivered != 3-e {
				t.Errorf("expected delivery of %d tracks, got %d", 3-e, delivered)
			}
			if e == 3 && len(f.deliverer.batches) != 0 {
				t.Error("no delivery call expected when nothing survived")
			}
			if want := music.ComputeStatus(len(result.Errors), result.Delivered); result.Status != want {
				t.Errorf("status %s violates invariant, want %s", result.Status, want)
			}
		})
	}
}

func TestFinalizeBatch_ConnectFailureFailsEveryTrackWithSameCause(t *testing.T) {
	f := newFixture(t)
	f.deliverer.connectErr = errors.New("dial tcp 10.0.0.1:22: connect: connection refused")
	id1, id2 := f.stage(t, "a"), f.stage(t, "b")

	result, err := f.service.FinalizeBatch(context.Background(), FinalizeRequest{
		Album:  music.AlbumMetadata{Artist: "A"},
		Tracks: []music.TrackDescriptor{{TempFileID: id1, Title: "One"}, {TempFileID: id2, Title: "Two"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != music.BatchFailed || len(result.Errors) != 2 {
		t.Fatalf("expected failed with 2 errors, got %+v", result)
	}
	for _, e := range result.Errors {
		if !strings.Contains(e.Reason, "connection refused") || e.Kind != music.KindDelivery {
			t.Errorf("expected shared connect cause, got %+v", e)
		}
	}
	if !f.store.Exists(id1) || !f.store.Exists(id2) {
		t.Error("undelivered temp files must be kept")
	}
}

func TestFinalizeBatch_EscapingIDIsIsolated(t *testing.T) {
	f := newFixture(t)
	good := f.stage(t, "a")

	result, err := f.service.FinalizeBatch(context.Background(), FinalizeRequest{
		Album: music.AlbumMetadata{Artist: "A"},
		Tracks: []music.TrackDescriptor{
			{TempFileID: "../../etc/passwd", Title: "Evil"},
			{TempFileID: good, Title: "Good"},
			{TempFileID: "missing.mp3", Title: "Gone"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != music.BatchPartial || result.Delivered != 1 || len(result.Errors) != 2 {
		t.Fatalf("expected partial with 1 delivered and 2 errors, got %+v", result)
	}
	if result.Errors[0].Title != "Evil" || result.Errors[0].Kind != music.KindValidation {
		t.Errorf("expected validation error for escaping id, got %+v", result.Errors[0])
	}
	for _, call := range f.writer.calls {
		if call.fields.Title != "Good" {
			t.Errorf("writer must not touch rejected tracks, saw %s", call.fields.Title)
		}
	}
	if len(f.deliverer.batches) != 1 || len(f.deliverer.batches[0]) != 1 {
		t.Errorf("expected only the good track delivered, got %+v", f.deliverer.batches)
	}
}

func TestFinalizeBatch_PerFileDeliveryFailureIsPartial(t *testing.T) {
	f := newFixture(t)
	f.deliverer.failTitles = map[string]bool{"Two": true}
	id1, id2 := f.stage(t, "a"), f.stage(t, "b")

	result, err := f.service.FinalizeBatch(context.Background(), FinalizeRequest{
		Album:  music.AlbumMetadata{Artist: "A"},
		Tracks: []music.TrackDescriptor{{TempFileID: id1, Title: "One"}, {TempFileID: id2, Title: "Two"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != music.BatchPartial || result.Errors[0].TempFileID != id2 {
		t.Fatalf("expected partial naming track Two, got %+v", result)
	}
	if f.store.Exists(id1) || !f.store.Exists(id2) {
		t.Error("only the delivered file should be removed")
	}
}

func TestFinalizeBatch_StructuralFailuresTouchNothing(t *testing.T) {
	f := newFixture(t)
	id := f.stage(t, "a")
	cases := map[string]FinalizeRequest{
		"no tracks": {Album: music.AlbumMetadata{Artist: "A"}},
		"no artist": {Album: music.AlbumMetadata{Artist: "  "}, Tracks: []music.TrackDescriptor{{TempFileID: id, Title: "x"}}},
	}
	for name, req := range cases {
		if _, err := f.service.FinalizeBatch(context.Background(), req); !errors.Is(err, music.ErrStructural) {
			t.Errorf("%s: expected structural error, got %v", name, err)
		}
	}
	if len(f.writer.calls) != 0 || len(f.deliverer.batches) != 0 {
		t.Error("structural failures must not write or deliver")
	}
}

func TestFinalizeBatch_DuplicateAndBlankDescriptors(t *testing.T) {
	f := newFixture(t)
	id := f.stage(t, "a")
	result, err := f.service.FinalizeBatch(context.Background(), FinalizeRequest{
		Album: music.AlbumMetadata{Artist: "A"},
		Tracks: []music.TrackDescriptor{
			{TempFileID: id, Title: "One"},
			{TempFileID: id, Title: "One again"},
			{TempFileID: "other.mp3", Title: "   "},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Delivered != 1 || len(result.Errors) != 2 {
		t.Fatalf("expected 1 delivered and 2 validation errors, got %+v", result)
	}
}

func TestFinalizeBatch_SweepsStaleFiles(t *testing.T) {
	f := newFixture(t)
	stale := f.stage(t, "old")
	path, _ := f.store.Resolve(stale)
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}
	fresh := f.stage(t, "new")

	if _, err := f.service.FinalizeBatch(context.Background(), FinalizeRequest{
		Album:  music.AlbumMetadata{Artist: "A"},
		Tracks: []music.TrackDescriptor{{TempFileID: fresh, Title: "New"}},
	}); err != nil {
		t.Fatal(err)
	}
	if f.store.Exists(stale) {
		t.Error("expected stale file swept after finalize")
	}
}

func TestSweeper_StopWithoutStart(t *testing.T) {
	f := newFixture(t)
	s := NewSweeper(f.service, time.Hour)
	s.Stop()
	s.Stop()
}

func TestSweeper_RunsPeriodically(t *testing.T) {
	f := newFixture(t)
	stale := f.stage(t, "old")
	path, _ := f.store.Resolve(stale)
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	s := NewSweeper(f.service, 10*time.Millisecond)
	s.Start()
	defer s.Stop()
	deadline := time.Now().Add(2 * time.Second)
	for f.store.Exists(stale) {
		if time.Now().After(deadline) {
			t.Fatal("sweeper never removed the stale file")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFinalizeBatch_StagedAlbumCoverAppliedToEveryTrack(t *testing.T) {
	f := newFixture(t)
	albumCover := []byte{0x89, 'P', 'N'}
	tracks := []music.TrackDescriptor{{TempFileID: f.stage(t, "a"), Title: "One"}, {TempFileID: f.stage(t, "b"), Title: "Two"}}

	result, err := f.service.FinalizeBatch(context.Background(), FinalizeRequest{
		Album:  music.AlbumMetadata{Artist: "A", CoverImageBytes: albumCover, CoverMIMEType: "image/png"},
		Tracks: tracks,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != music.BatchSuccess || len(f.writer.calls) != 2 {
		t.Fatalf("unexpected result %+v with %d writes", result, len(f.writer.calls))
	}
	for _, call := range f.writer.calls {
		if string(call.cover) != string(albumCover) || call.coverMIME != "image/png" {
			t.Errorf("track %s got cover %v (%s), want the album cover", call.fields.Title, call.cover, call.coverMIME)
		}
	}
}

func TestFinalizeBatch_UploadedCoverOverridesAlbumCover(t *testing.T) {
	f := newFixture(t)
	override := []byte{0xFF, 0xD8, 0xFF}
	_, err := f.service.FinalizeBatch(context.Background(), FinalizeRequest{
		Album:         music.AlbumMetadata{Artist: "A", CoverImageBytes: []byte{1, 2, 3}, CoverMIMEType: "image/png"},
		Tracks:        []music.TrackDescriptor{{TempFileID: f.stage(t, "a"), Title: "One"}},
		Cover:         override,
		CoverMIMEType: "image/jpeg",
	})
	if err != nil {
		t.Fatal(err)
	}
	call := f.writer.calls[0]
	if string(call.cover) != string(override) || call.coverMIME != "image/jpeg" {
		t.Errorf("expected uploaded cover to win, got %v (%s)", call.cover, call.coverMIME)
	}
}

func TestFinalizeBatch_NoCoverKeepsExistingPictures(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.FinalizeBatch(context.Background(), FinalizeRequest{
		Album:  music.AlbumMetadata{Artist: "A"},
		Tracks: []music.TrackDescriptor{{TempFileID: f.stage(t, "a"), Title: "One"}},
	}); err != nil {
		t.Fatal(err)
	}
	if f.writer.calls[0].cover != nil {
		t.Errorf("expected nil cover, got %v", f.writer.calls[0].cover)
	}
}

type recordingSession struct {
	remotes []string
}

func (s *recordingSession) Upload(_ context.Context, _, remotePath string) error {
	s.remotes = append(s.remotes, remotePath)
	return nil
}

func (s *recordingSession) Close() error { return nil }

type recordingDialer struct {
	session *recordingSession
}

func (d recordingDialer) Dial(context.Context) (delivery.Session, error) {
	return d.session, nil
}

func TestFinalizeBatch_SameTitleIsNotDeliveredTwice(t *testing.T) {
	store, err := files.NewTempStore(filepath.Join(t.TempDir(), "uploads"), 1024)
	if err != nil {
		t.Fatal(err)
	}
	session := &recordingSession{}
	deliverer := delivery.NewClient(recordingDialer{session: session}, "/music", false, nil)
	service := NewService(store, fakeReader{}, &fakeWriter{}, deliverer, nil, Options{MaxSize: 1024, Workers: 1, StaleAfter: time.Hour})

	first, _ := store.Stage(context.Background(), strings.NewReader("a"))
	second, _ := store.Stage(context.Background(), strings.NewReader("b"))
	result, err := service.FinalizeBatch(context.Background(), FinalizeRequest{
		Album:  music.AlbumMetadata{Artist: "Band"},
		Tracks: []music.TrackDescriptor{{TempFileID: first, Title: "Intro"}, {TempFileID: second, Title: "Intro "}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(session.remotes) != 1 || session.remotes[0] != "/music/Band - Intro.mp3" {
		t.Fatalf("expected a single upload of the remote name, got %v", session.remotes)
	}
	if result.Status != music.BatchPartial || result.Delivered != 1 || len(result.Errors) != 1 {
		t.Fatalf("expected partial with one collision error, got %+v", result)
	}
	if e := result.Errors[0]; e.TempFileID != second || e.Kind != music.KindDelivery || !strings.Contains(e.Reason, "duplicate remote name") {
		t.Errorf("unexpected collision error %+v", e)
	}
	if !store.Exists(second) {
		t.Error("the refused track must stay staged")
	}
}
