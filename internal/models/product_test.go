package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDimensionsFill(t *testing.T) {
	base := Dimensions{X: Float(10), Y: Float(20), Z: Float(30)}

	tests := []struct {
		name     string
		own      Dimensions
		expected Dimensions
	}{
		{
			name:     "only x set inherits y and z",
			own:      Dimensions{X: Float(5)},
			expected: Dimensions{X: Float(5), Y: Float(20), Z: Float(30)},
		},
		{
			name:     "zero axis is treated as missing",
			own:      Dimensions{X: Float(0), Y: Float(7)},
			expected: Dimensions{X: Float(10), Y: Float(7), Z: Float(30)},
		},
		{
			name:     "empty inherits everything",
			own:      Dimensions{},
			expected: base,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.own.Fill(base))
		})
	}
}

func TestDimensionsJSONKeepsNulls(t *testing.T) {
	data, err := json.Marshal(Dimensions{Y: Float(12)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":null,"y":12,"z":null}`, string(data))
}

func TestAttributesFirstKeyWins(t *testing.T) {
	a := NewAttributes("Color", "Red", "Size", "L")
	b := a.Add("Color", "Blue").Add("Finish", "Matte")

	v, ok := b.Get("Color")
	require.True(t, ok)
	assert.Equal(t, "Red", v)
	assert.Equal(t, []string{"Color", "Size", "Finish"}, b.Keys())

	// the original is untouched
	assert.Equal(t, 2, a.Len())
	assert.False(t, a.Has("Finish"))

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, `{"Color":"Red","Size":"L","Finish":"Matte"}`, string(data))
}

func TestAttributesJSONKeepsOrder(t *testing.T) {
	var a Attributes
	require.NoError(t, json.Unmarshal([]byte(`{"Width":"48 in","Color":"Red","Width":"60 in"}`), &a))
	assert.Equal(t, []string{"Width", "Color"}, a.Keys())
	v, _ := a.Get("Width")
	assert.Equal(t, "60 in", v)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `{"Width":"60 in","Color":"Red"}`, string(data))

	// decoded attributes still keep the first value on Add
	b := a.Add("Color", "Blue").Add("Finish", "Oak")
	assert.Equal(t, []string{"Width", "Color", "Finish"}, b.Keys())
	assert.Equal(t, map[string]string{"Width": "60 in", "Color": "Red", "Finish": "Oak"}, b.Map())
	assert.Equal(t, 2, a.Len())

	empty, err := json.Marshal(Attributes{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(empty))

	var p ProductDraft
	require.NoError(t, json.Unmarshal([]byte(`{"external_id":"T1","attributes":null}`), &p))
	assert.Zero(t, p.Attributes.Len())

	assert.Error(t, json.Unmarshal([]byte(`["Color"]`), &a))
	assert.Error(t, json.Unmarshal([]byte(`{"Count": 3}`), &a))
}

func TestCombinationName(t *testing.T) {
	combo := Combination{
		{Group: "Color", Value: OptionValue{ID: "1", Label: "Red"}},
		{Group: "Size", Value: OptionValue{ID: "22", Label: "X-Large."}},
	}

	assert.Equal(t, "Color: Red. Size: X-Large. ", combo.Name())
	assert.Equal(t, "1-22", combo.Key())
}

func TestProductDraftWithChildrenDoesNotAlias(t *testing.T) {
	base := ProductDraft{
		Name:       "Chair",
		ExternalID: "CH-1",
		Images:     []string{"a.jpg"},
		Attributes: NewAttributes("Material", "Oak"),
	}

	final := base.WithChildren([]ChildProductDraft{{Name: "Color: Red. ", ExternalID: "CH-1-r"}})
	final.Images[0] = "changed.jpg"

	assert.True(t, final.IsGroup)
	assert.False(t, base.IsGroup)
	assert.Equal(t, "a.jpg", base.Images[0])
	assert.Empty(t, base.Children)

	assert.Empty(t, base.WithChildren(nil).Children)
	assert.False(t, base.WithChildren(nil).IsGroup)
}

func TestProductDraftValidate(t *testing.T) {
	p := ProductDraft{IsGroup: true, Price: -1}
	problems := p.Validate()

	assert.Contains(t, problems, "external id is required")
	assert.Contains(t, problems, "name is required")
	assert.Contains(t, problems, "price must not be negative")
	assert.Contains(t, problems, "group product has no children")
}
