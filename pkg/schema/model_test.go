package schema_test

import (
	"testing"
	"time"

	"github.com/dbwarden/warden/pkg/schema"
	"github.com/dbwarden/warden/pkg/utils"
	"github.com/stretchr/testify/require"
)

// usersTable builds the canonical test table used across the schema tests.
func usersTable() schema.Table {
	return schema.Table{
		Schema: "dbo",
		Name:   "Users",
		Columns: []schema.Column{
			{
				Name:         "Id",
				DataType:     "int",
				Type:         schema.TypeInt,
				Precision:    10,
				IsIdentity:   true,
				IsPrimaryKey: true,
				Position:     1,
			},
			{
				Name:      "Email",
				DataType:  "nvarchar(255)",
				Type:      schema.TypeNVarChar,
				MaxLength: 255,
				Position:  2,
			},
			{
				Name:       "DisplayName",
				DataType:   "nvarchar(max)",
				Type:       schema.TypeNVarChar,
				MaxLength:  -1,
				IsNullable: true,
				Position:   3,
			},
		},
		Indexes: []schema.Index{
			{
				Name:         "PK_Users",
				Type:         schema.IndexClustered,
				IsUnique:     true,
				IsPrimaryKey: true,
				KeyColumns:   []string{"Id"},
			},
			{
				Name:       "IX_Users_Email",
				Type:       schema.IndexNonClustered,
				IsUnique:   true,
				KeyColumns: []string{"Email"},
			},
		},
		PrimaryKeyColumns: []string{"Id"},
	}
}

func testDatabase() *schema.Database {
	return &schema.Database{
		Name:          "appdb",
		ServerVersion: "16.0.1000.6",
		Collation:     "SQL_Latin1_General_CP1_CI_AS",
		ExtractedAt:   time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Tables:        []schema.Table{usersTable()},
		Views: []schema.View{
			{Schema: "dbo", Name: "ActiveUsers", Definition: "CREATE VIEW dbo.ActiveUsers AS\nSELECT Id FROM dbo.Users"},
		},
		Procedures: []schema.Procedure{
			{
				Schema:     "dbo",
				Name:       "usp_DeactivateUser",
				Definition: "CREATE PROCEDURE dbo.usp_DeactivateUser @UserId INT AS\nBEGIN\n  SET NOCOUNT ON\nEND",
				Parameters: []schema.Parameter{
					{Name: "@UserId", DataType: "int", Position: 1},
				},
			},
		},
		Functions: []schema.Function{
			{
				Schema:     "dbo",
				Name:       "fn_UserCount",
				Definition: "CREATE FUNCTION dbo.fn_UserCount() RETURNS INT AS\nBEGIN\n  RETURN 0\nEND",
				ReturnType: "int",
				Kind:       schema.FunctionScalar,
			},
		},
	}
}

func TestObjectKey(t *testing.T) {
	require.Equal(t, "dbo.users", schema.ObjectKey("dbo", "Users"))
	require.Equal(t, schema.ObjectKey("DBO", "USERS"), schema.ObjectKey("dbo", "users"))
}

func TestDatabaseSort(t *testing.T) {
	db := &schema.Database{
		Tables: []schema.Table{
			{Schema: "sales", Name: "Orders"},
			{
				Schema: "dbo",
				Name:   "Users",
				Columns: []schema.Column{
					{Name: "Email", Position: 2},
					{Name: "Id", Position: 1},
				},
				Indexes: []schema.Index{
					{Name: "PK_Users"},
					{Name: "IX_Users_Email"},
				},
			},
			{Schema: "dbo", Name: "Accounts"},
		},
		Views: []schema.View{
			{Schema: "dbo", Name: "zeta"},
			{Schema: "dbo", Name: "Alpha"},
		},
	}

	db.Sort()

	require.Equal(t, "Accounts", db.Tables[0].Name)
	require.Equal(t, "Users", db.Tables[1].Name)
	require.Equal(t, "Orders", db.Tables[2].Name)

	users := db.Tables[1]
	require.Equal(t, "Id", users.Columns[0].Name)
	require.Equal(t, "Email", users.Columns[1].Name)
	require.Equal(t, "IX_Users_Email", users.Indexes[0].Name)
	require.Equal(t, "PK_Users", users.Indexes[1].Name)

	require.Equal(t, "Alpha", db.Views[0].Name)
	require.Equal(t, "zeta", db.Views[1].Name)
}

func TestTableColumnLookup(t *testing.T) {
	table := usersTable()

	require.NotNil(t, table.Column("email"))
	require.Equal(t, "Email", table.Column("EMAIL").Name)
	require.Nil(t, table.Column("missing"))
}

func TestColumnEqual(t *testing.T) {
	base := schema.Column{
		Name:      "Amount",
		DataType:  "bigint",
		Type:      schema.TypeBigInt,
		Precision: 19,
		Position:  4,
		Default:   utils.Ptr("((0))"),
	}

	tests := []struct {
		name     string
		mutate   func(c *schema.Column)
		expected bool
	}{
		{
			name:     "identical",
			mutate:   func(c *schema.Column) {},
			expected: true,
		},
		{
			name:     "name case insensitive",
			mutate:   func(c *schema.Column) { c.Name = "AMOUNT" },
			expected: true,
		},
		{
			name:     "type change",
			mutate:   func(c *schema.Column) { c.DataType, c.Type = "int", schema.TypeInt },
			expected: false,
		},
		{
			name:     "default dropped",
			mutate:   func(c *schema.Column) { c.Default = nil },
			expected: false,
		},
		{
			name:     "nullability change",
			mutate:   func(c *schema.Column) { c.IsNullable = true },
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			tt.mutate(&other)
			require.Equal(t, tt.expected, base.Equal(&other))
		})
	}
}

func TestIndexEqual(t *testing.T) {
	base := schema.Index{
		Name:       "IX_Orders_Customer",
		Type:       schema.IndexNonClustered,
		KeyColumns: []string{"CustomerId", "CreatedAt"},
	}

	same := base
	require.True(t, base.Equal(&same))

	reordered := base
	reordered.KeyColumns = []string{"CreatedAt", "CustomerId"}
	require.False(t, base.Equal(&reordered))

	filtered := base
	filtered.FilterPredicate = "([Status]=(1))"
	require.False(t, base.Equal(&filtered))
}

func TestForeignKeyEqual(t *testing.T) {
	base := schema.ForeignKey{
		Name:              "FK_Orders_Users",
		Columns:           []string{"UserId"},
		ReferencedSchema:  "dbo",
		ReferencedTable:   "Users",
		ReferencedColumns: []string{"Id"},
		OnDelete:          schema.RefCascade,
		OnUpdate:          schema.RefNoAction,
	}

	same := base
	same.ReferencedTable = "users"
	require.True(t, base.Equal(&same))

	action := base
	action.OnDelete = schema.RefSetNull
	require.False(t, base.Equal(&action))
}
