package schema_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dbwarden/warden/pkg/schema"
	"github.com/dbwarden/warden/pkg/utils"
	"github.com/stretchr/testify/require"
)

func TestContentHashDeterministic(t *testing.T) {
	db := testDatabase()

	first, err := db.ContentHash()
	require.NoError(t, err)
	require.Len(t, first, 64)
	require.Equal(t, strings.ToLower(first), first)

	for range 5 {
		again, err := db.ContentHash()
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestContentHashIndependentOfCollectionOrder(t *testing.T) {
	db := testDatabase()
	db.Tables = append(db.Tables, schema.Table{Schema: "sales", Name: "Orders", Columns: []schema.Column{
		{Name: "Id", DataType: "bigint", Type: schema.TypeBigInt, Position: 1},
	}})

	scrambled := testDatabase()
	scrambled.Tables = append([]schema.Table{{Schema: "sales", Name: "Orders", Columns: []schema.Column{
		{Name: "Id", DataType: "bigint", Type: schema.TypeBigInt, Position: 1},
	}}}, scrambled.Tables...)

	a, err := db.ContentHash()
	require.NoError(t, err)
	b, err := scrambled.ContentHash()
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestContentHashIgnoresVolatileFields(t *testing.T) {
	db := testDatabase()
	base, err := db.ContentHash()
	require.NoError(t, err)

	db.ExtractedAt = time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	db.Tables[0].RowCount = utils.Ptr(int64(123456))

	again, err := db.ContentHash()
	require.NoError(t, err)
	require.Equal(t, base, again)
}

func TestContentHashDetectsStructuralChange(t *testing.T) {
	db := testDatabase()
	base, err := db.ContentHash()
	require.NoError(t, err)

	db.Tables[0].Columns[1].IsNullable = true

	changed, err := db.ContentHash()
	require.NoError(t, err)
	require.NotEqual(t, base, changed)
}

func TestCanonicalJSONMaxLengthSentinel(t *testing.T) {
	db := testDatabase()

	data, err := schema.CanonicalJSON(db)
	require.NoError(t, err)
	require.Contains(t, string(data), `"max_length":"MAX"`)
	require.NotContains(t, string(data), `"max_length":-1`)
	require.NotContains(t, string(data), `"extracted_at"`)
	require.NotContains(t, string(data), `"row_count"`)
}

func TestContentHashNormalizesDefinitions(t *testing.T) {
	crlf := testDatabase()
	crlf.Views[0].Definition = "CREATE VIEW dbo.ActiveUsers AS \r\nSELECT Id FROM dbo.Users\t"

	lf := testDatabase()
	lf.Views[0].Definition = "CREATE VIEW dbo.ActiveUsers AS\nSELECT Id FROM dbo.Users"

	a, err := crlf.ContentHash()
	require.NoError(t, err)
	b, err := lf.ContentHash()
	require.NoError(t, err)
	require.Equal(t, a, b)
}
