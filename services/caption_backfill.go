package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/AlexLuu1/Memento/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/m-mizutani/goerr/v2"
)

// CaptionBackfill completes records whose photo is on disk but whose image
// summary was never stored.
type CaptionBackfill struct {
	store    MemoryStore
	memories MemoryService
	uploads  *Uploads
}

func NewCaptionBackfill(store MemoryStore, memories MemoryService, uploads *Uploads) *CaptionBackfill {
	return &CaptionBackfill{
		store:    store,
		memories: memories,
		uploads:  uploads,
	}
}

// ScanAndCaption captions every pending record that has a photo and returns
// how many were completed. Failures on single records are logged and skipped.
func (b *CaptionBackfill) ScanAndCaption(ctx context.Context) (int, error) {
	logger := logging.From(ctx)
	logger.Info("scanning for uncaptioned memories", "dir", b.uploads.Dir)

	docs, err := b.store.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	var done int
	for _, doc := range docs {
		if ctx.Err() != nil {
			return done, goerr.Wrap(ctx.Err(), "backfill interrupted", goerr.V("captioned", done))
		}
		if _, err := DecodeRecord(doc.Text); err == nil {
			continue
		}
		if !b.uploads.Exists(imageFilename(doc.ID)) {
			logger.Debug("pending memory has no photo yet", "id", doc.ID)
			continue
		}

		_, ok, err := b.memories.CaptionExisting(ctx, doc.ID)
		if err != nil {
			logger.Warn("failed to caption memory", "id", doc.ID, "error", err)
			continue
		}
		if ok {
			done++
		}
	}

	logger.Info("backfill finished", "records", len(docs), "captioned", done)
	return done, nil
}

// WatchDirectory captions pending records as their photos appear in the
// uploads directory. It blocks until ctx is cancelled.
func (b *CaptionBackfill) WatchDirectory(ctx context.Context) error {
	logger := logging.From(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return goerr.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(b.uploads.Dir); err != nil {
		return goerr.Wrap(err, "failed to watch uploads directory", goerr.V("dir", b.uploads.Dir))
	}
	logger.Info("watching uploads directory", "dir", b.uploads.Dir)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			id, ok := photoID(event.Name)
			if !ok {
				continue
			}
			b.handlePhoto(ctx, id)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)

		case <-ctx.Done():
			logger.Info("stopping uploads watcher")
			return nil
		}
	}
}

func (b *CaptionBackfill) handlePhoto(ctx context.Context, id string) {
	logger := logging.From(ctx).With("id", id)

	_, ok, err := b.memories.CaptionExisting(ctx, id)
	switch {
	case errors.Is(err, ErrCaptionInProgress):
		logger.Debug("photo is being captioned by an upload")
	case errors.Is(err, ErrNotFound):
		logger.Debug("photo has no memory record")
	case err != nil:
		logger.Warn("failed to caption new photo", "error", err)
	case ok:
		logger.Info("captioned new photo")
	}
}

// photoID returns the record id of a memory photo path such as
// "uploads/abc.jpg". Temporary files and synthesized replies are ignored.
func photoID(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".jpg") {
		return "", false
	}
	id := strings.TrimSuffix(base, ".jpg")
	if id == "" || strings.HasPrefix(id, ".") {
		return "", false
	}
	return id, true
}
