package types

import "time"

// Audit carries the bookkeeping columns every entity has. CreatedBy and
// UpdatedBy hold the opaque actor identifier from the request context.
type Audit struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}

// Table (a "database" in the UI) is a workspace-scoped container of fields,
// views and pages. A table always has at least one default view.
type Table struct {
	TableID     string `json:"id"`
	WorkspaceID string `json:"workspace"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Audit
}

// TableFilter narrows a table listing. Empty members match every table.
// Name matches any table whose name contains it, ignoring case.
type TableFilter struct {
	WorkspaceID string
	Name        string
}
