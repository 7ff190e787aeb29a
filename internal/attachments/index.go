package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// indexFile is the YAML manifest of attachments held by an object store.
//
//	attachments:
//	  - id: 0190c0de-...
//	    name: brief.pdf
//	    content_type: application/pdf
//	    size: 1024
type indexFile struct {
	Attachments []indexEntry `yaml:"attachments"`
}

type indexEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	ContentType string `yaml:"content_type"`
	Kind        string `yaml:"kind"`
	Size        int64  `yaml:"size"`
}

// LoadIndex records every attachment listed in the YAML manifest read from
// r and returns how many were loaded. Entries need a stable id. A bad entry
// rejects the whole manifest and leaves s unchanged.
func (s *MemoryStore) LoadIndex(ctx context.Context, r io.Reader) (int, error) {
	var f indexFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("decoding attachment index: %w", err)
	}

	staged := make([]*types.Attachment, 0, len(f.Attachments))
	seen := make(map[string]bool, len(f.Attachments))
	for i, e := range f.Attachments {
		a := &types.Attachment{
			AttachmentID: strings.TrimSpace(e.ID),
			Name:         e.Name,
			ContentType:  e.ContentType,
			Kind:         e.Kind,
			Size:         e.Size,
		}
		path := fmt.Sprintf("attachments[%d]", i)
		switch {
		case a.AttachmentID == "":
			return 0, types.NewValidationError(path+".id", "id is required")
		case seen[a.AttachmentID]:
			return 0, types.Validationf(path+".id", "id %s is listed more than once", a.AttachmentID)
		}
		seen[a.AttachmentID] = true
		if err := Check(a); err != nil {
			var ve *types.ValidationError
			if errors.As(err, &ve) {
				return 0, ve.Prefix(path)
			}
			return 0, err
		}
		staged = append(staged, a)
	}
	for _, a := range staged {
		if err := s.Put(ctx, a); err != nil {
			return 0, err
		}
	}
	return len(staged), nil
}
