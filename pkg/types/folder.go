package types

// Folder groups views of one workspace. Folders nest through ParentID.
// ViewOrder is the display order of ViewIDs and always lists exactly the
// same views.
type Folder struct {
	FolderID    string   `json:"id"`
	WorkspaceID string   `json:"workspace"`
	ParentID    string   `json:"parent,omitempty"`
	Label       string   `json:"label"`
	ViewIDs     []string `json:"views"`
	ViewOrder   []string `json:"view_order"`
	Audit
}
