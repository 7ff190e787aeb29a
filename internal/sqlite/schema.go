package sqlite

import (
	"database/sql"
	"fmt"
)

// Schema DDL. Every statement is idempotent so Attach can run it against an
// existing database.
const (
	createTables = `CREATE TABLE IF NOT EXISTS tables (
    table_id TEXT PRIMARY KEY,
    workspace_id TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    updated_by TEXT NOT NULL DEFAULT ''
);`

	createFields = `CREATE TABLE IF NOT EXISTS fields (
    field_id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    label TEXT NOT NULL,
    field_type TEXT NOT NULL,
    config_id TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    updated_by TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (table_id) REFERENCES tables(table_id) ON DELETE CASCADE
);`

	createFieldConfigs = `CREATE TABLE IF NOT EXISTS field_configs (
    config_id TEXT PRIMARY KEY,
    field_id TEXT NOT NULL UNIQUE,
    field_type TEXT NOT NULL,
    settings TEXT NOT NULL,
    related_field_id TEXT,
    related_table_id TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    updated_by TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (field_id) REFERENCES fields(field_id) ON DELETE CASCADE
);`

	createChoiceOptions = `CREATE TABLE IF NOT EXISTS choice_options (
    option_id TEXT PRIMARY KEY,
    config_id TEXT NOT NULL,
    label TEXT NOT NULL,
    value TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    FOREIGN KEY (config_id) REFERENCES field_configs(config_id) ON DELETE CASCADE
);`

	createViews = `CREATE TABLE IF NOT EXISTS views (
    view_id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    label TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    view_type INTEGER NOT NULL,
    is_default INTEGER NOT NULL DEFAULT 0,
    field_ids TEXT NOT NULL DEFAULT '[]',
    fields_order TEXT NOT NULL DEFAULT '[]',
    sort_by TEXT NOT NULL DEFAULT '[]',
    filter_by TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    updated_by TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (table_id) REFERENCES tables(table_id) ON DELETE CASCADE
);`

	createFolders = `CREATE TABLE IF NOT EXISTS folders (
    folder_id TEXT PRIMARY KEY,
    workspace_id TEXT NOT NULL DEFAULT '',
    parent_id TEXT,
    label TEXT NOT NULL,
    view_ids TEXT NOT NULL DEFAULT '[]',
    view_order TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    updated_by TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (parent_id) REFERENCES folders(folder_id) ON DELETE CASCADE
);`

	createPages = `CREATE TABLE IF NOT EXISTS pages (
    page_id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    updated_by TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (table_id) REFERENCES tables(table_id) ON DELETE CASCADE
);`

	createPageAttachments = `CREATE TABLE IF NOT EXISTS page_attachments (
    page_id TEXT NOT NULL,
    attachment_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    PRIMARY KEY (page_id, attachment_id),
    FOREIGN KEY (page_id) REFERENCES pages(page_id) ON DELETE CASCADE
);`

	createAttachments = `CREATE TABLE IF NOT EXISTS attachments (
    attachment_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    content_type TEXT NOT NULL DEFAULT '',
    kind TEXT NOT NULL,
    size INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    updated_by TEXT NOT NULL DEFAULT ''
);`

	createFieldResponses = `CREATE TABLE IF NOT EXISTS field_responses (
    response_id TEXT PRIMARY KEY,
    page_id TEXT NOT NULL,
    field_id TEXT NOT NULL,
    data TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    updated_by TEXT NOT NULL DEFAULT '',
    UNIQUE (page_id, field_id),
    FOREIGN KEY (page_id) REFERENCES pages(page_id) ON DELETE CASCADE,
    FOREIGN KEY (field_id) REFERENCES fields(field_id) ON DELETE CASCADE
);`
)

// Index DDL. idxFieldConfigsMirror allows a field to be the mirror of at
// most one other field; idxViewsDefault allows one default view per table.
const (
	idxFieldsTable        = `CREATE INDEX IF NOT EXISTS idx_fields_table ON fields(table_id);`
	idxFieldConfigsMirror = `CREATE UNIQUE INDEX IF NOT EXISTS idx_field_configs_mirror
    ON field_configs(related_field_id)
    WHERE related_field_id IS NOT NULL AND related_field_id != field_id;`
	idxChoiceOptionsConfig = `CREATE INDEX IF NOT EXISTS idx_choice_options_config ON choice_options(config_id);`
	idxViewsTable          = `CREATE INDEX IF NOT EXISTS idx_views_table ON views(table_id);`
	idxViewsDefault        = `CREATE UNIQUE INDEX IF NOT EXISTS idx_views_default ON views(table_id) WHERE is_default = 1;`
	idxPagesTable          = `CREATE INDEX IF NOT EXISTS idx_pages_table ON pages(table_id);`
	idxFoldersWorkspace    = `CREATE INDEX IF NOT EXISTS idx_folders_workspace ON folders(workspace_id);`
	idxFoldersParent       = `CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(parent_id);`
	idxResponsesField      = `CREATE INDEX IF NOT EXISTS idx_field_responses_field ON field_responses(field_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createTables,
	createFields,
	createFieldConfigs,
	createChoiceOptions,
	createViews,
	createFolders,
	createPages,
	createPageAttachments,
	createAttachments,
	createFieldResponses,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxFieldsTable,
	idxFieldConfigsMirror,
	idxChoiceOptionsConfig,
	idxViewsTable,
	idxViewsDefault,
	idxPagesTable,
	idxFoldersWorkspace,
	idxFoldersParent,
	idxResponsesField,
}

func applySchema(db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, stmt := range indexDDL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}
