package factory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/costing-engine/costing"
)

func TestParseCatalog_DefaultMatchesBuiltIn(t *testing.T) {
	ops, err := NewCatalogFactory().ParseCatalog(DefaultCatalogJSON)
	require.NoError(t, err)
	assert.Equal(t, costing.DefaultOperations().All(), ops.All())
}

func TestParseCatalog_AliasesAndDerivedCodes(t *testing.T) {
	// GIVEN: A custom catalog using short direction names and no codes
	catalogJSON := `{
		"operations": [
			{"id": 1, "type": "in",  "name": "Purchase"},
			{"id": 2, "type": "out", "name": "Staff Meal"},
			{"id": 3, "type": "Remove", "name": "Breakage", "code": "breakage_loss"}
		]
	}`

	ops, err := NewCatalogFactory().ParseCatalog(catalogJSON)
	require.NoError(t, err)

	staff, ok := ops.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, costing.OpRemoveStock, staff.Type)
	assert.Equal(t, "staff_meal", staff.Code)

	_, ok = ops.ByCode(costing.CodePurchase)
	assert.True(t, ok, "derived code still feeds purchase percentages")

	breakage, _ := ops.Lookup(3)
	assert.Equal(t, costing.OpRemoveStock, breakage.Type)
	assert.Equal(t, "breakage_loss", breakage.Code)
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"operations": [`},
		{"empty", `{"operations": []}`},
		{"zero id", `{"operations": [{"id": 0, "type": "add_stock", "name": "X"}]}`},
		{"no name", `{"operations": [{"id": 1, "type": "add_stock", "name": "  "}]}`},
		{"bad type", `{"operations": [{"id": 1, "type": "sideways", "name": "X"}]}`},
		{"duplicate id", `{"operations": [
			{"id": 1, "type": "add_stock", "name": "A"},
			{"id": 1, "type": "remove_stock", "name": "B"}]}`},
	}

	f := NewCatalogFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseCatalog(tt.json)
			assert.ErrorIs(t, err, costing.ErrInvalidCatalog)
		})
	}
}

func TestLoadFile(t *testing.T) {
	f := NewCatalogFactory()

	// Empty path: built-in catalog
	ops, err := f.LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, 10, ops.Len())

	// A file written from ToJSON loads back to the same catalog
	custom, err := costing.NewOperationRegistry(
		costing.Operation{ID: 1, Type: costing.OpAddStock, Name: "Purchase", Code: "purchase"},
		costing.Operation{ID: 11, Type: costing.OpRemoveStock, Name: "Staff Meal", Code: "staff_meal"},
	)
	require.NoError(t, err)
	data, err := json.Marshal(f.ToJSON(custom))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := f.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, custom.All(), loaded.All())

	_, err = f.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
