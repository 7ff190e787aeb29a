package types

import (
	"sort"
	"strconv"
	"strings"
)

// Page is a row of a table.
type Page struct {
	PageID      string   `json:"id"`
	TableID     string   `json:"database"`
	Title       string   `json:"title"`
	Content     string   `json:"content,omitempty"`
	Attachments []string `json:"attachments"`
	Audit
}

// Attachment is the metadata fieldbase needs about an uploaded file. The
// bytes live in an external store.
type Attachment struct {
	AttachmentID string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"content_type,omitempty"`
	Kind         string `json:"kind"`
	Size         int64  `json:"size"`
	Audit
}

// ResponseValueKey is the only key a response envelope may contain.
const ResponseValueKey = "value"

// FieldResponse is the stored value of one field for one page. Data is the
// envelope {"value": <type specific>}. (PageID, FieldID) is unique.
type FieldResponse struct {
	ResponseID string         `json:"id"`
	PageID     string         `json:"page"`
	FieldID    string         `json:"field"`
	Data       map[string]any `json:"data"`
	Audit
}

// Value returns the payload held by the envelope.
func (r *FieldResponse) Value() any {
	if r == nil || r.Data == nil {
		return nil
	}
	return r.Data[ResponseValueKey]
}

// CheckEnvelope verifies that data holds exactly the key "value".
func CheckEnvelope(data map[string]any) error {
	if data == nil {
		return NewValidationError("data", `must be an object with the key "value"`)
	}
	if _, ok := data[ResponseValueKey]; !ok {
		return NewValidationError("data", `missing key "value"`)
	}
	if len(data) != 1 {
		extra := make([]string, 0, len(data)-1)
		for k := range data {
			if k != ResponseValueKey {
				extra = append(extra, strconv.Quote(k))
			}
		}
		sort.Strings(extra)
		return NewValidationError("data", "unexpected keys "+strings.Join(extra, ", "))
	}
	return nil
}
