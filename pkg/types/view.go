package types

// ViewType is the presentation kind of a view.
type ViewType int

const (
	ViewTypeTable    ViewType = 0
	ViewTypeGrid     ViewType = 10
	ViewTypeList     ViewType = 20
	ViewTypeKanban   ViewType = 30
	ViewTypeCalendar ViewType = 40
	ViewTypePage     ViewType = 100
)

var viewTypeNames = map[ViewType]string{
	ViewTypeTable:    "table",
	ViewTypeGrid:     "grid",
	ViewTypeList:     "list",
	ViewTypeKanban:   "kanban",
	ViewTypeCalendar: "calendar",
	ViewTypePage:     "page",
}

// Valid reports whether v is a known view type.
func (v ViewType) Valid() bool {
	_, ok := viewTypeNames[v]
	return ok
}

func (v ViewType) String() string {
	if n, ok := viewTypeNames[v]; ok {
		return n
	}
	return "unknown"
}

// ParseViewType maps a view type name back to its value.
func ParseViewType(name string) (ViewType, bool) {
	for v, n := range viewTypeNames {
		if n == name {
			return v, true
		}
	}
	return 0, false
}

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// SortSpec orders pages by one field.
type SortSpec struct {
	FieldID   string `json:"field"`
	Direction string `json:"direction"`
}

// View is a saved presentation over a table. FieldIDs is the declared field
// set (empty means every field of the table) and FieldsOrder the advisory
// ordering over it. At most one view per table has IsDefault set.
type View struct {
	ViewID      string     `json:"id"`
	TableID     string     `json:"database"`
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	ViewType    ViewType   `json:"view_type"`
	IsDefault   bool       `json:"is_default"`
	FieldIDs    []string   `json:"fields"`
	FieldsOrder []string   `json:"fields_order"`
	SortBy      []SortSpec `json:"sort_by"`
	FilterBy    string     `json:"filter_by,omitempty"`
	Audit
}
