package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

const pageCols = "page_id, table_id, title, content, " + auditCols

// InsertPage creates a page and its attachment references.
func (t *Tx) InsertPage(p *types.Page) error {
	if p.PageID == "" {
		p.PageID = newID()
	}
	t.stamp(&p.Audit, true)
	args := append([]any{p.PageID, p.TableID, p.Title, p.Content}, auditArgs(p.Audit)...)
	if _, err := t.exec("inserting page",
		"INSERT INTO pages ("+pageCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)", args...); err != nil {
		return err
	}
	return t.setPageAttachments(p)
}

// UpdatePage rewrites title, content and attachment references.
func (t *Tx) UpdatePage(p *types.Page) error {
	t.stamp(&p.Audit, false)
	if err := t.execOne("updating page", "page", p.PageID,
		"UPDATE pages SET title = ?, content = ?, updated_at = ?, updated_by = ? WHERE page_id = ?",
		p.Title, p.Content, formatTime(p.UpdatedAt), p.UpdatedBy, p.PageID); err != nil {
		return err
	}
	return t.setPageAttachments(p)
}

// GetPage returns the page with its attachment references.
func (t *Tx) GetPage(id string) (*types.Page, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	p, err := hydratePage(t.queryRow("SELECT "+pageCols+" FROM pages WHERE page_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("page", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting page %s: %w", id, err)
	}
	if p.Attachments, err = t.pageAttachments(id); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPages returns the pages of a table in creation order.
func (t *Tx) ListPages(tableID string) ([]*types.Page, error) {
	rows, err := t.query("SELECT "+pageCols+" FROM pages WHERE table_id = ? ORDER BY rowid", tableID)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	var out []*types.Page
	for rows.Next() {
		p, err := hydratePage(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	rows.Close()

	for _, p := range out {
		if p.Attachments, err = t.pageAttachments(p.PageID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeletePage removes a page and its responses. Relation responses that
// point at the page lose that reference.
func (t *Tx) DeletePage(id string) error {
	if err := t.execOne("deleting page", "page", id, "DELETE FROM pages WHERE page_id = ?", id); err != nil {
		return err
	}
	return t.dropReferences([]string{id},
		"field_id IN (SELECT field_id FROM fields WHERE field_type = ?)", types.FieldTypeRelation)
}

func (t *Tx) setPageAttachments(p *types.Page) error {
	if _, err := t.exec("clearing page attachments",
		"DELETE FROM page_attachments WHERE page_id = ?", p.PageID); err != nil {
		return err
	}
	if p.Attachments == nil {
		p.Attachments = []string{}
	}
	for i, id := range p.Attachments {
		if _, err := t.exec("inserting page attachment",
			"INSERT INTO page_attachments (page_id, attachment_id, ordinal) VALUES (?, ?, ?)",
			p.PageID, id, i); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) pageAttachments(pageID string) ([]string, error) {
	rows, err := t.query("SELECT attachment_id FROM page_attachments WHERE page_id = ? ORDER BY ordinal", pageID)
	if err != nil {
		return nil, fmt.Errorf("listing page attachments: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning page attachment: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func hydratePage(row scanner) (*types.Page, error) {
	p := &types.Page{}
	audit := scanAuditInto(&p.Audit)
	dest := append([]any{&p.PageID, &p.TableID, &p.Title, &p.Content}, audit.dest()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return p, audit.finish()
}

const attachmentCols = "attachment_id, name, content_type, kind, size, " + auditCols

// InsertAttachment records attachment metadata.
func (t *Tx) InsertAttachment(a *types.Attachment) error {
	if a.AttachmentID == "" {
		a.AttachmentID = newID()
	}
	t.stamp(&a.Audit, true)
	args := append([]any{a.AttachmentID, a.Name, a.ContentType, a.Kind, a.Size}, auditArgs(a.Audit)...)
	_, err := t.exec("inserting attachment",
		"INSERT INTO attachments ("+attachmentCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", args...)
	return err
}

// GetAttachment returns attachment metadata.
func (t *Tx) GetAttachment(id string) (*types.Attachment, error) {
	a := &types.Attachment{}
	audit := scanAuditInto(&a.Audit)
	dest := append([]any{&a.AttachmentID, &a.Name, &a.ContentType, &a.Kind, &a.Size}, audit.dest()...)
	err := t.queryRow("SELECT "+attachmentCols+" FROM attachments WHERE attachment_id = ?", id).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("attachment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting attachment %s: %w", id, err)
	}
	return a, audit.finish()
}

// DeleteAttachment removes attachment metadata together with the page
// references and file responses that point at it.
func (t *Tx) DeleteAttachment(id string) error {
	if err := t.execOne("deleting attachment", "attachment", id,
		"DELETE FROM attachments WHERE attachment_id = ?", id); err != nil {
		return err
	}
	if _, err := t.exec("deleting page attachment refs",
		"DELETE FROM page_attachments WHERE attachment_id = ?", id); err != nil {
		return err
	}
	return t.dropReferences([]string{id},
		"field_id IN (SELECT field_id FROM fields WHERE field_type = ?)", types.FieldTypeFile)
}
