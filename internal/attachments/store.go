// Package attachments keeps attachment metadata in memory for files that
// live in an external object store. The engine consults it for attachment
// ids the database has not recorded. The CLI fills it from a YAML index.
package attachments

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// MemoryStore is a concurrent in-memory attachment index.
type MemoryStore struct {
	items *xsync.MapOf[string, types.Attachment]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: xsync.NewMapOf[string, types.Attachment]()}
}

// Put records a. An empty id is replaced by a generated one. The kind
// defaults to the kind derived from the content type.
func (s *MemoryStore) Put(_ context.Context, a *types.Attachment) error {
	if err := Check(a); err != nil {
		return err
	}
	if a.AttachmentID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		a.AttachmentID = id.String()
	}
	s.items.Store(a.AttachmentID, *a)
	return nil
}

// Check requires a name and fills in or validates the kind.
func Check(a *types.Attachment) error {
	if strings.TrimSpace(a.Name) == "" {
		return types.NewValidationError("name", "name is required")
	}
	if a.Kind == "" {
		a.Kind = KindOf(a.ContentType)
	}
	switch a.Kind {
	case types.FileKindImage, types.FileKindVideo, types.FileKindAudio, types.FileKindDocument:
		return nil
	}
	return types.Validationf("kind", "%q is not a valid choice", a.Kind)
}

// Attachment returns a copy of the attachment stored under id.
func (s *MemoryStore) Attachment(_ context.Context, id string) (*types.Attachment, error) {
	a, ok := s.items.Load(id)
	if !ok {
		return nil, types.NotFound("attachment", id)
	}
	return &a, nil
}

// Delete forgets id. Deleting an unknown id is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) {
	s.items.Delete(id)
}

// Len returns the number of stored attachments.
func (s *MemoryStore) Len() int { return s.items.Size() }

// KindOf maps a MIME content type to a file kind.
func KindOf(contentType string) string {
	major, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), "/")
	switch major {
	case "image":
		return types.FileKindImage
	case "video":
		return types.FileKindVideo
	case "audio":
		return types.FileKindAudio
	}
	return types.FileKindDocument
}
