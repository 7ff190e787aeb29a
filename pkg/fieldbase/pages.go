package fieldbase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/fieldbase/internal/attachments"
	"github.com/mesh-intelligence/fieldbase/internal/sqlite"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// PageInput holds the editable columns of a page.
type PageInput struct {
	Title       string   `json:"title"`
	Content     string   `json:"content,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// CreatePage adds a page to a table. Attachment references must resolve.
func (e *Engine) CreatePage(ctx context.Context, tableID string, in PageInput) (*types.Page, error) {
	var p *types.Page
	err := e.update(ctx, "create_page", func(tx *sqlite.Tx) error {
		if _, err := tx.GetTable(tableID); err != nil {
			return err
		}
		p = &types.Page{TableID: tableID}
		if err := e.applyPageInput(tx, p, in); err != nil {
			return err
		}
		return tx.InsertPage(p)
	})
	if err != nil {
		return nil, e.rejected("save_page", err)
	}
	e.log.Debugw("created page", "page", p.PageID, "table", tableID)
	return p, nil
}

// UpdatePage replaces the title, content and attachments of a page.
func (e *Engine) UpdatePage(ctx context.Context, pageID string, in PageInput) (*types.Page, error) {
	var p *types.Page
	err := e.update(ctx, "update_page", func(tx *sqlite.Tx) error {
		var err error
		if p, err = tx.GetPage(pageID); err != nil {
			return err
		}
		if err := e.applyPageInput(tx, p, in); err != nil {
			return err
		}
		return tx.UpdatePage(p)
	})
	if err != nil {
		return nil, e.rejected("save_page", err)
	}
	return p, nil
}

func (e *Engine) applyPageInput(tx *sqlite.Tx, p *types.Page, in PageInput) error {
	lookup := e.responses.Lookup(tx)
	ve := &types.ValidationError{}
	seen := make(map[string]bool, len(in.Attachments))
	for i, id := range in.Attachments {
		path := fmt.Sprintf("attachments[%d]", i)
		if seen[id] {
			ve.Add(path, fmt.Sprintf("attachment %s is listed more than once", id))
			continue
		}
		seen[id] = true
		_, err := lookup.Attachment(tx.Context(), id)
		if errors.Is(err, types.ErrNotFound) {
			ve.Add(path, fmt.Sprintf("attachment %s does not exist", id))
			continue
		}
		if err != nil {
			return err
		}
	}
	if err := ve.OrNil(); err != nil {
		return err
	}
	p.Title = strings.TrimSpace(in.Title)
	p.Content = in.Content
	p.Attachments = append([]string{}, in.Attachments...)
	return nil
}

// DeletePage removes a page with its responses.
func (e *Engine) DeletePage(ctx context.Context, pageID string) error {
	return e.update(ctx, "delete_page", func(tx *sqlite.Tx) error {
		return tx.DeletePage(pageID)
	})
}

// GetPageRecord returns the stored page without responses.
func (e *Engine) GetPageRecord(ctx context.Context, pageID string) (*types.Page, error) {
	var p *types.Page
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		var err error
		p, err = tx.GetPage(pageID)
		return err
	})
	return p, err
}

// GetPage renders a page through a view. An empty viewID uses the default
// view of the page's table.
func (e *Engine) GetPage(ctx context.Context, pageID, viewID string) (*PageDocument, error) {
	var doc *PageDocument
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		var err error
		doc, err = e.projector.GetPage(tx, pageID, viewID)
		return err
	})
	return doc, err
}

// RegisterAttachment records attachment metadata. The kind defaults to the
// one implied by the content type.
func (e *Engine) RegisterAttachment(ctx context.Context, a *types.Attachment) (*types.Attachment, error) {
	if err := attachments.Check(a); err != nil {
		return nil, e.rejected("register_attachment", err)
	}
	err := e.update(ctx, "register_attachment", func(tx *sqlite.Tx) error {
		return tx.InsertAttachment(a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAttachment returns attachment metadata from the database or the
// external attachment store.
func (e *Engine) GetAttachment(ctx context.Context, attachmentID string) (*types.Attachment, error) {
	var a *types.Attachment
	err := e.view(ctx, func(tx *sqlite.Tx) error {
		var err error
		a, err = e.responses.Lookup(tx).Attachment(ctx, attachmentID)
		return err
	})
	return a, err
}
