// Package attachments stores uploaded document content in blob storage and
// records the matching Document entity.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"gcms/internal/blob"
	"gcms/pkg/domain"
)

// Records is the document collection the service writes to.
type Records interface {
	Add(ctx context.Context, d domain.Document) (domain.Document, error)
	Get(id string) (domain.Document, bool)
	Remove(ctx context.Context, id string) error
}

// Upload describes one file to attach to an opportunity.
type Upload struct {
	OpportunityID string
	Name          string
	Type          domain.DocumentType
	Description   *string
	ContentType   string
	Body          io.Reader
}

// Service couples a blob store with the document records.
type Service struct {
	blobs   blob.Store
	records Records
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// New builds a Service. A nil logger discards.
func New(blobs blob.Store, records Records, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{blobs: blobs, records: records, logger: logger, now: time.Now, newID: domain.NewID}
}

// objectPrefix depends on the document id only: the opportunity a document
// belongs to can be patched after upload.
func objectPrefix(documentID string) string {
	return "documents/" + documentID + "/"
}

func cleanName(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return base, nil
}

// Upload writes the content first and only then adds the Document, so a blob
// failure never touches the store. If the record cannot be added the blob is
// removed again.
func (s *Service) Upload(ctx context.Context, up Upload) (domain.Document, error) {
	if up.OpportunityID == "" {
		return domain.Document{}, errors.New("opportunity id required")
	}
	name, err := cleanName(up.Name)
	if err != nil {
		return domain.Document{}, err
	}
	if up.Type == "" {
		up.Type = domain.DocumentAttachment
	}
	id := s.newID()
	key := objectPrefix(id) + name
	info, err := s.blobs.Put(ctx, key, up.Body, blob.PutOptions{
		ContentType: up.ContentType,
		Metadata:    map[string]string{"opportunity-id": up.OpportunityID, "document-id": id},
	})
	if err != nil {
		return domain.Document{}, fmt.Errorf("store %s: %w", name, err)
	}
	size := info.Size
	doc, err := s.records.Add(ctx, domain.Document{
		ID:            id,
		OpportunityID: up.OpportunityID,
		Name:          name,
		Type:          up.Type,
		Description:   up.Description,
		URL:           info.URL,
		UploadedAt:    s.now().UTC().Format(time.RFC3339),
		Size:          &size,
	})
	if err != nil {
		if _, derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Warn("orphaned attachment blob", "key", key, "error", derr)
		}
		return domain.Document{}, fmt.Errorf("record %s: %w", name, err)
	}
	s.logger.Debug("attachment uploaded", "document", id, "opportunity", up.OpportunityID, "bytes", size)
	return doc, nil
}

func (s *Service) objectKey(ctx context.Context, doc domain.Document) (string, error) {
	infos, err := s.blobs.List(ctx, objectPrefix(doc.ID))
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", blob.ErrNotFound
	}
	return infos[0].Key, nil
}

// Open streams the stored content of a document. The caller closes the reader.
func (s *Service) Open(ctx context.Context, documentID string) (blob.Info, io.ReadCloser, error) {
	doc, ok := s.records.Get(documentID)
	if !ok {
		return blob.Info{}, nil, fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	key, err := s.objectKey(ctx, doc)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Info{}, nil, fmt.Errorf("content of %s: %w", documentID, domain.ErrNotFound)
	}
	if err != nil {
		return blob.Info{}, nil, err
	}
	return s.blobs.Get(ctx, key)
}

// Link returns a time-limited download URL when the blob driver can sign one,
// otherwise the document's stored URL.
func (s *Service) Link(ctx context.Context, documentID string, expiry time.Duration) (string, error) {
	doc, ok := s.records.Get(documentID)
	if !ok {
		return "", fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	key, err := s.objectKey(ctx, doc)
	if err != nil {
		return doc.URL, nil //nolint:nilerr // externally hosted documents keep their own URL
	}
	u, err := s.blobs.PresignURL(ctx, key, blob.SignedURLOptions{Expiry: expiry})
	if errors.Is(err, blob.ErrUnsupported) {
		return doc.URL, nil
	}
	return u, err
}

// Delete removes the stored content and then the record. When the blob
// delete fails the record is kept.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	doc, ok := s.records.Get(documentID)
	if !ok {
		return nil
	}
	infos, err := s.blobs.List(ctx, objectPrefix(doc.ID))
	if err != nil {
		return fmt.Errorf("list content of %s: %w", documentID, err)
	}
	for _, info := range infos {
		if _, err := s.blobs.Delete(ctx, info.Key); err != nil {
			return fmt.Errorf("delete content of %s: %w", documentID, err)
		}
	}
	return s.records.Remove(ctx, documentID)
}
