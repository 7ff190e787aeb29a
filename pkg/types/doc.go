// Package types defines the entities, field-type tags, configuration
// variants and standard errors shared by every fieldbase component.
//
// Tables own fields, views and pages. Each field has exactly one active
// configuration whose variant matches its field type, and each page holds at
// most one response per field, stored as the envelope {"value": ...}.
package types
