package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/contre95/navidrop/src/music"
	"github.com/gosimple/unidecode"
)

// Client delivers a finalized batch to the remote library over one session.
type Client struct {
	dialer    Dialer
	remoteDir string
	asciify   bool
	metrics   Recorder
}

// Recorder receives delivery outcomes. It may be nil.
type Recorder interface {
	RecordDelivery(outcome string, n int)
}

// NewClient creates a delivery client writing into remoteDir.
func NewClient(dialer Dialer, remoteDir string, asciify bool, metrics Recorder) *Client {
	return &Client{dialer: dialer, remoteDir: remoteDir, asciify: asciify, metrics: metrics}
}

var sanitizer = strings.NewReplacer("/", "_", `\`, "_", "\x00", "")

// Sanitize makes a tag value safe to use as one remote path segment.
func Sanitize(value string, asciify bool) string {
	if asciify {
		value = unidecode.Unidecode(value)
	}
	return sanitizer.Replace(value)
}

// RemotePath is "<remoteDir>/<artist> - <title>.mp3".
func (c *Client) RemotePath(artist, title string) string {
	name := fmt.Sprintf("%s - %s.mp3", Sanitize(artist, c.asciify), Sanitize(title, c.asciify))
	return path.Join(c.remoteDir, name)
}

// Deliver uploads items in order over a single session and reports the ones
// that did not make it. An empty result means everything was delivered.
// Items mapping to a remote name already taken by an earlier item are refused
// before the session opens.
func (c *Client) Deliver(ctx context.Context, items []music.DeliveryItem) []music.DeliveryFailure {
	if len(items) == 0 {
		return nil
	}

	var failures []music.DeliveryFailure
	pending := make([]music.DeliveryItem, 0, len(items))
	remotes := make([]string, 0, len(items))
	taken := make(map[string]bool, len(items))
	for _, item := range items {
		remote := c.RemotePath(item.Artist, item.Title)
		if taken[remote] {
			slog.Warn("Duplicate remote name in batch", "title", item.Title, "remote", remote)
			failures = append(failures, failure(item, fmt.Errorf("%w: duplicate remote name %s", music.ErrDelivery, remote), false))
			continue
		}
		taken[remote] = true
		pending = append(pending, item)
		remotes = append(remotes, remote)
	}
	c.record("duplicate", len(failures))

	session, err := c.dialer.Dial(ctx)
	if err != nil {
		slog.Error("Failed to open delivery session", "items", len(pending), "error", err)
		for _, item := range pending {
			failures = append(failures, failure(item, fmt.Errorf("%w: connection failed: %v", music.ErrDelivery, err), true))
		}
		c.record("connect_error", len(pending))
		return failures
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("Failed to close delivery session", "error", err)
		}
	}()

	failed := 0
	for i, item := range pending {
		remote := remotes[i]
		if err := session.Upload(ctx, item.Path, remote); err != nil {
			slog.Error("Upload failed", "title", item.Title, "remote", remote, "error", err)
			failures = append(failures, failure(item, fmt.Errorf("%w: %v", music.ErrDelivery, err), false))
			failed++
			continue
		}
		slog.Info("Delivered track", "title", item.Title, "remote", remote)
	}
	c.record("delivered", len(pending)-failed)
	c.record("failed", failed)
	return failures
}

// failure builds the report for one item. Reason drops the sentinel prefix for display.
func failure(item music.DeliveryItem, err error, connect bool) music.DeliveryFailure {
	return music.DeliveryFailure{
		Path:    item.Path,
		Title:   item.Title,
		Reason:  strings.TrimPrefix(err.Error(), music.ErrDelivery.Error()+": "),
		Err:     err,
		Connect: connect,
	}
}

func (c *Client) record(outcome string, n int) {
	if c.metrics != nil && n > 0 {
		c.metrics.RecordDelivery(outcome, n)
	}
}
