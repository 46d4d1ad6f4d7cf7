package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/AlexLuu1/Memento/logging"
	"github.com/AlexLuu1/Memento/models"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

const filenameKey = "filename"

// MemoryService manages the memories shown on the family page and used to
// ground conversations.
type MemoryService interface {
	CreateMemory(ctx context.Context, req models.NewMemoryRequest) (*models.NewMemoryResponse, error)
	AttachPhoto(ctx context.Context, id string, photo []byte) (*models.Memory, error)
	// CaptionExisting captions the already uploaded photo of a record that has
	// no summary yet. It reports false when nothing had to be done.
	CaptionExisting(ctx context.Context, id string) (*models.Memory, bool, error)
	ListMemories(ctx context.Context) (*models.ListMemoriesResponse, error)
	GetMemory(ctx context.Context, id string) (*models.Memory, error)
}

type memoryServiceImpl struct {
	store     MemoryStore
	captioner Captioner
	uploads   *Uploads
	timeout   time.Duration

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewMemoryService(store MemoryStore, captioner Captioner, uploads *Uploads, timeout time.Duration) MemoryService {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &memoryServiceImpl{
		store:     store,
		captioner: captioner,
		uploads:   uploads,
		timeout:   timeout,
		inflight:  make(map[string]struct{}),
	}
}

// CreateMemory stores the two-field record. The photo and its caption follow
// through AttachPhoto.
func (s *memoryServiceImpl) CreateMemory(ctx context.Context, req models.NewMemoryRequest) (*models.NewMemoryResponse, error) {
	date := strings.TrimSpace(req.Date)
	desc := strings.TrimSpace(req.Description)
	if err := validateFields(date, desc); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	if err := s.upsert(ctx, id, EncodeRecord(date, desc)); err != nil {
		return nil, err
	}

	logging.From(ctx).Info("memory created", "id", id, "date", date)
	return &models.NewMemoryResponse{ID: id, Filename: imageFilename(id)}, nil
}

func validateFields(date, desc string) error {
	if date == "" || desc == "" {
		return goerr.Wrap(ErrInvalidMemory, "date and description are required")
	}
	if strings.Contains(date, fieldSeparator) || strings.Contains(desc, fieldSeparator) {
		return goerr.Wrap(ErrInvalidMemory, "fields must not contain the record separator",
			goerr.V("separator", fieldSeparator))
	}
	if _, err := NormalizeDate(date); err != nil {
		return err
	}
	return nil
}

// AttachPhoto saves the photo as {id}.jpg and completes the record with its
// caption. A failed caption leaves the summary empty.
func (s *memoryServiceImpl) AttachPhoto(ctx context.Context, id string, photo []byte) (*models.Memory, error) {
	release, err := s.begin(id)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	jpeg, err := NormalizeImage(photo)
	if err != nil {
		return nil, err
	}
	if err := s.uploads.Write(imageFilename(id), jpeg); err != nil {
		return nil, err
	}
	logging.From(ctx).Info("photo saved", "id", id, "bytes", len(jpeg))

	return s.caption(ctx, doc, jpeg)
}

func (s *memoryServiceImpl) CaptionExisting(ctx context.Context, id string) (*models.Memory, bool, error) {
	release, err := s.begin(id)
	if err != nil {
		return nil, false, err
	}
	defer release()

	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if _, err := DecodeRecord(doc.Text); err == nil {
		return nil, false, nil
	}

	jpeg, err := s.uploads.Read(imageFilename(id))
	if err != nil {
		return nil, false, err
	}
	mem, err := s.caption(ctx, doc, jpeg)
	if err != nil {
		return nil, false, err
	}
	return mem, true, nil
}

// caption rewrites doc in the three-field form using a caption of jpeg.
func (s *memoryServiceImpl) caption(ctx context.Context, doc *models.StoredDocument, jpeg []byte) (*models.Memory, error) {
	date, desc, ok := splitHead(doc.Text)
	if !ok {
		return nil, goerr.Wrap(ErrDecode, "stored record has no date and description", goerr.V("id", doc.ID))
	}

	summary, err := withTimeout(ctx, s.timeout, func(ctx context.Context) (string, error) {
		return s.captioner.Caption(ctx, jpeg)
	})
	if err != nil {
		logging.From(ctx).Warn("storing memory without image summary", "id", doc.ID, "error", err)
		summary = ""
	}

	text := EncodeCaptionedRecord(date, desc, summary)
	if err := s.upsert(ctx, doc.ID, text); err != nil {
		return nil, err
	}
	logging.From(ctx).Info("memory captioned", "id", doc.ID, "summary_length", len(summary))

	return s.toMemory(models.StoredDocument{ID: doc.ID, Text: text, Metadata: doc.Metadata})
}

func (s *memoryServiceImpl) upsert(ctx context.Context, id, text string) error {
	_, err := withTimeout(ctx, s.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.Upsert(ctx, id, text, map[string]string{filenameKey: id})
	})
	return err
}

// begin marks id as being captioned until the returned func is called.
func (s *memoryServiceImpl) begin(id string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[id]; ok {
		return nil, goerr.Wrap(ErrCaptionInProgress, "photo is already being captioned", goerr.V("id", id))
	}
	s.inflight[id] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
	}, nil
}

// ListMemories returns every complete memory. Records that fail to decode are
// logged and left out.
func (s *memoryServiceImpl) ListMemories(ctx context.Context) (*models.ListMemoriesResponse, error) {
	docs, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	memories := make([]models.Memory, 0, len(docs))
	for _, doc := range docs {
		if _, err := DecodeRecord(doc.Text); err != nil {
			logging.From(ctx).Warn("skipping memory", "id", doc.ID, "error", err)
			continue
		}
		mem, err := s.toMemory(doc)
		if err != nil {
			logging.From(ctx).Warn("skipping memory", "id", doc.ID, "error", err)
			continue
		}
		memories = append(memories, *mem)
	}

	return &models.ListMemoriesResponse{Count: len(memories), Memories: memories}, nil
}

func (s *memoryServiceImpl) GetMemory(ctx context.Context, id string) (*models.Memory, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toMemory(*doc)
}

// toMemory renders a stored document. Two-field records are returned with
// CaptionPending set.
func (s *memoryServiceImpl) toMemory(doc models.StoredDocument) (*models.Memory, error) {
	mem := &models.Memory{ID: doc.ID}

	if rec, err := DecodeRecord(doc.Text); err == nil {
		mem.Date, mem.Description, mem.ImageSummary = rec.Date, rec.Description, rec.ImageSummary
	} else {
		date, desc, ok := splitHead(doc.Text)
		if !ok {
			return nil, err
		}
		mem.Date, mem.Description, mem.CaptionPending = date, desc, true
	}

	display, err := NormalizeDate(mem.Date)
	if err != nil {
		return nil, err
	}
	mem.DisplayDate = display

	name := doc.Filename()
	if name == "" {
		name = doc.ID
	}
	mem.ImageFilename = imageFilename(name)
	mem.ImageURL = s.uploads.URL(mem.ImageFilename)
	return mem, nil
}
