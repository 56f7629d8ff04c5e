package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomas/mayhem-terminal-go/internal/catalog"
)

func TestParseFormKinds(t *testing.T) {
	entity, ok := Lookup(catalog.TableProducts)
	require.True(t, ok)

	payload, err := ParseForm(entity, map[string]string{
		"name":           " Sacred Tee ",
		"description":    "",
		"price":          "45.50",
		"stock_quantity": "12",
		"sizes":          "S, M ,,L",
		"active":         "true",
		"sold_out":       "no",
		"unknown":        "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "Sacred Tee", payload["name"])
	assert.Equal(t, "", payload["description"])
	assert.Equal(t, 45.5, payload["price"])
	assert.Equal(t, 12, payload["stock_quantity"])
	assert.Equal(t, []string{"S", "M", "L"}, payload["sizes"])
	assert.Equal(t, true, payload["active"])
	assert.Equal(t, false, payload["sold_out"])
	assert.NotContains(t, payload, "unknown")
	assert.NotContains(t, payload, "colors", "absent optional fields are left out")
}

func TestParseFormErrors(t *testing.T) {
	entity, _ := Lookup(catalog.TableCurrencies)

	_, err := ParseForm(entity, map[string]string{"code": "EUR", "rate": "abc", "is_default": "maybe"})
	require.Error(t, err)

	formErr, ok := err.(FormErrors)
	require.True(t, ok)
	assert.Len(t, formErr, 3)
	assert.Equal(t, "Symbol is required", formErr["symbol"])
	assert.Equal(t, "Rate must be a number", formErr["rate"])
	assert.Contains(t, err.Error(), "is_default")
}

func TestFormValuesRoundTrip(t *testing.T) {
	entity, _ := Lookup(catalog.TableCollections)
	row := Row{"id": float64(4), "name": "Drop 01", "price": 80.0, "images": []any{"a.jpg", "b.jpg"}, "active": true}

	values := FormValues(entity, row)
	assert.Equal(t, "80", values["price"])
	assert.Equal(t, "a.jpg, b.jpg", values["images"])
	assert.Equal(t, "yes", values["active"])
	assert.Equal(t, "", values["sold_out"])

	values["stock_quantity"] = "1"
	payload, err := ParseForm(entity, values)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, payload["images"])
	assert.Equal(t, true, payload["active"])
}

func TestRegistry(t *testing.T) {
	names := map[string]bool{}
	for _, e := range Entities {
		assert.False(t, names[e.Name], "duplicate entity %s", e.Name)
		names[e.Name] = true
		assert.NotEmpty(t, e.Columns, e.Name)
		_, ok := e.Field(e.SearchColumn)
		assert.True(t, ok, "%s search column %q must be a field", e.Name, e.SearchColumn)
	}
	assert.Len(t, Entities, 10)
}
