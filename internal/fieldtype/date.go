package fieldtype

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

type dateHandler struct{}

func (dateHandler) Type() types.FieldType { return types.FieldTypeDate }

func (dateHandler) DefaultConfig(f *types.Field) types.FieldConfig {
	return &types.DateConfig{
		ConfigBase:    types.ConfigBase{FieldID: f.FieldID},
		DisplayFormat: types.DateDate,
	}
}

func (dateHandler) CleanConfig(cfg types.FieldConfig) error {
	c, err := configAs[*types.DateConfig](cfg)
	if err != nil {
		return err
	}
	if ve := checkFormat("display_format", &c.DisplayFormat, types.DateDate,
		types.DateDate, types.DateDateTime, types.DateTime); ve != nil {
		return ve
	}
	return nil
}

// Deserialize accepts any date string cast understands (RFC 3339,
// "2006-01-02", RFC 1123 and friends), the dateLayouts fallbacks, Unix
// seconds and time.Time. The stored form is RFC 3339 in UTC.
func (dateHandler) Deserialize(_ types.FieldConfig, raw any) (any, error) {
	t, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return t.UTC().Format(time.RFC3339), nil
}

func parseDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, errData("a date is required")
	case bool:
		return time.Time{}, errData("expected a date, got a boolean")
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return time.Time{}, errData("a date is required")
		}
		raw = v
	}
	t, err := cast.ToTimeE(raw)
	if err == nil {
		return t, nil
	}
	if s, ok := raw.(string); ok {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, errData("%v is not a valid date", raw)
}

// dateLayouts are tried in order when cast cannot read a string. Month and
// weekday names match case-insensitively. Time-only layouts yield a time on
// 0000-01-01.
var dateLayouts = []string{
	"2006/01/02",
	"2006/01/02 15:04",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"01/02/2006",
	"01/02/2006 15:04",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04:05 PM",
	"3 PM",
	"3PM",
}

func (dateHandler) Validate(_ context.Context, _ types.FieldConfig, value any, _ Lookup) error {
	s, ok := value.(string)
	if !ok {
		return errData("date value must be a string, got %T", value)
	}
	if _, err := parseDate(s); err != nil {
		return err
	}
	return nil
}

// Serialize renders the stored date as RFC 3339. Values that no longer
// parse are returned unchanged.
func (dateHandler) Serialize(_ types.FieldConfig, value any) (any, error) {
	t, err := parseDate(value)
	if err != nil {
		return value, nil
	}
	return t.UTC().Format(time.RFC3339), nil
}
