package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]any
		wantErr string
	}{
		{name: "value only", data: map[string]any{"value": "x"}},
		{name: "null value allowed", data: map[string]any{"value": nil}},
		{name: "nil envelope", data: nil, wantErr: `data: must be an object with the key "value"`},
		{name: "missing value", data: map[string]any{"values": 1}, wantErr: `data: missing key "value"`},
		{name: "extra key", data: map[string]any{"value": "x", "extra": 1}, wantErr: `data: unexpected keys "extra"`},
		{
			name:    "several extra keys sorted",
			data:    map[string]any{"value": "x", "zeta": 1, "alpha": 2},
			wantErr: `data: unexpected keys "alpha", "zeta"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckEnvelope(tt.data)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFieldResponseValue(t *testing.T) {
	var nilResp *FieldResponse
	assert.Nil(t, nilResp.Value())
	r := &FieldResponse{Data: map[string]any{"value": []any{"a"}}}
	assert.Equal(t, []any{"a"}, r.Value())
}

func TestFieldTypeValid(t *testing.T) {
	for _, ft := range FieldTypes {
		assert.True(t, ft.Valid(), string(ft))
	}
	assert.False(t, FieldType("formula").Valid())
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := DecodeConfig(FieldTypeChoice, []byte(`{"is_multi_select":true,"options":[{"label":"Open","value":"open"}]}`))
	assert.NoError(t, err)
	choice, ok := cfg.(*ChoiceConfig)
	if assert.True(t, ok) {
		assert.True(t, choice.IsMultiSelect)
		assert.Len(t, choice.Options, 1)
		assert.Equal(t, FieldTypeChoice, choice.FieldType())
	}

	_, err = DecodeConfig(FieldTypeNumber, []byte(`{"display_format":`))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = DecodeConfig("formula", nil)
	assert.ErrorIs(t, err, ErrInvalidFieldType)
}

func TestRelationConfigUnpaired(t *testing.T) {
	assert.True(t, (&RelationConfig{SourceFieldID: "a", RelatedFieldID: "a"}).Unpaired())
	assert.True(t, (&RelationConfig{SourceFieldID: "a"}).Unpaired())
	assert.False(t, (&RelationConfig{SourceFieldID: "a", RelatedFieldID: "b"}).Unpaired())
}

func TestViewTypeNames(t *testing.T) {
	v, ok := ParseViewType("kanban")
	assert.True(t, ok)
	assert.Equal(t, ViewTypeKanban, v)
	assert.Equal(t, "page", ViewTypePage.String())
	assert.False(t, ViewType(7).Valid())
}

func TestCloneConfig(t *testing.T) {
	in := &ChoiceConfig{
		ConfigBase: ConfigBase{ConfigID: "c"},
		Options:    []ChoiceOption{{OptionID: "o", Label: "Open", Value: "open"}},
	}
	out, err := CloneConfig(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	out.(*ChoiceConfig).Options[0].Label = "changed"
	assert.Equal(t, "Open", in.Options[0].Label)

	none, err := CloneConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}
