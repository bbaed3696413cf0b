package diff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbwarden/warden/pkg/diff"
	"github.com/dbwarden/warden/pkg/schema"
	"github.com/dbwarden/warden/pkg/utils"
)

func usersTable() schema.Table {
	return schema.Table{
		Schema: "dbo",
		Name:   "Users",
		Columns: []schema.Column{
			{Name: "Id", DataType: "int", Type: schema.TypeInt, IsIdentity: true, IsPrimaryKey: true, Position: 1},
			{Name: "Email", DataType: "nvarchar(255)", Type: schema.TypeNVarChar, MaxLength: 255, Position: 2},
		},
		PrimaryKeyColumns: []string{"Id"},
	}
}

func dbWith(tables ...schema.Table) *schema.Database {
	return &schema.Database{Name: "appdb", Tables: tables}
}

func TestDiffNullLaw(t *testing.T) {
	db := dbWith(usersTable())
	db.Views = []schema.View{{Schema: "dbo", Name: "ActiveUsers", Definition: "SELECT Id FROM Users"}}
	db.Procedures = []schema.Procedure{{Schema: "dbo", Name: "usp_Cleanup", Definition: "BEGIN END"}}

	d := diff.Compute(db, db)
	require.True(t, d.Empty())
	require.False(t, d.HasBreaking())
}

// Canonicalized definitions mean a CRLF-only difference is not a change.
func TestDiffIgnoresLineEndings(t *testing.T) {
	source := dbWith()
	source.Views = []schema.View{{Schema: "dbo", Name: "V", Definition: "SELECT 1\r\nFROM T  "}}
	target := dbWith()
	target.Views = []schema.View{{Schema: "dbo", Name: "V", Definition: "SELECT 1\nFROM T"}}

	require.True(t, diff.Compute(source, target).Empty())
}

func TestAddedAndRemovedCounts(t *testing.T) {
	source := dbWith(
		schema.Table{Schema: "dbo", Name: "A"},
		schema.Table{Schema: "dbo", Name: "B"},
	)
	target := dbWith(
		schema.Table{Schema: "dbo", Name: "B"},
		schema.Table{Schema: "dbo", Name: "C"},
		schema.Table{Schema: "dbo", Name: "D"},
	)

	d := diff.Compute(source, target)
	require.Equal(t, 2, d.Summary.TablesAdded)
	require.Equal(t, 1, d.Summary.TablesRemoved)

	var added, removed int
	for _, item := range d.Items {
		switch item.ChangeType {
		case diff.ChangeAdded:
			added++
		case diff.ChangeRemoved:
			removed++
		}
	}
	require.Equal(t, 2, added)
	require.Equal(t, 1, removed)
}

// S1: adding a nullable column is a single non-breaking item.
func TestAddNullableColumn(t *testing.T) {
	source := dbWith(usersTable())

	modified := usersTable()
	modified.Columns = append(modified.Columns, schema.Column{
		Name: "LastLogin", DataType: "datetime2(7)", Type: schema.TypeDateTime2, Scale: 7, IsNullable: true, Position: 3,
	})
	target := dbWith(modified)

	d := diff.Compute(source, target)
	require.Len(t, d.Items, 1)
	require.Equal(t, diff.ObjectColumn, d.Items[0].ObjectType)
	require.Equal(t, "dbo.Users.LastLogin", d.Items[0].ObjectName)
	require.Equal(t, diff.ChangeAdded, d.Items[0].ChangeType)
	require.False(t, d.Items[0].Breaking)
	require.False(t, d.HasBreaking())
}

func TestAddNotNullColumnWithoutDefaultIsBreaking(t *testing.T) {
	source := dbWith(usersTable())

	modified := usersTable()
	modified.Columns = append(modified.Columns, schema.Column{
		Name: "TenantId", DataType: "int", Type: schema.TypeInt, Position: 3,
	})
	target := dbWith(modified)

	d := diff.Compute(source, target)
	require.Len(t, d.Items, 1)
	require.True(t, d.Items[0].Breaking)
	require.Len(t, d.Breaking, 1)
	require.Equal(t, diff.SeverityHigh, d.Breaking[0].Severity)

	// With a default the same change is safe.
	modified.Columns[2].Default = utils.Ptr("0")
	d = diff.Compute(source, dbWith(modified))
	require.False(t, d.HasBreaking())
}

// S2: dropping a table is breaking with data-loss risk.
func TestDropTableIsBreaking(t *testing.T) {
	source := dbWith(usersTable(), schema.Table{
		Schema:            "dbo",
		Name:              "Legacy",
		Columns:           []schema.Column{{Name: "Id", DataType: "int", Type: schema.TypeInt, IsPrimaryKey: true, Position: 1}},
		PrimaryKeyColumns: []string{"Id"},
	})
	target := dbWith(usersTable())

	d := diff.Compute(source, target)
	require.Len(t, d.Items, 1)
	require.Equal(t, diff.ObjectTable, d.Items[0].ObjectType)
	require.Equal(t, "dbo.Legacy", d.Items[0].ObjectName)
	require.Equal(t, diff.ChangeRemoved, d.Items[0].ChangeType)
	require.True(t, d.Items[0].Breaking)

	require.Len(t, d.Breaking, 1)
	require.Equal(t, diff.SeverityCritical, d.Breaking[0].Severity)
	require.True(t, d.Breaking[0].DataLossRisk)
}

// S3: a narrowing type change carries per-attribute details and is breaking.
func TestNarrowingTypeChange(t *testing.T) {
	wide := usersTable()
	wide.Columns = append(wide.Columns, schema.Column{
		Name: "Amount", DataType: "bigint", Type: schema.TypeBigInt, Position: 3,
	})
	narrow := usersTable()
	narrow.Columns = append(narrow.Columns, schema.Column{
		Name: "Amount", DataType: "int", Type: schema.TypeInt, Position: 3,
	})

	d := diff.Compute(dbWith(wide), dbWith(narrow))
	require.Len(t, d.Items, 1)
	item := d.Items[0]
	require.Equal(t, diff.ChangeModified, item.ChangeType)
	require.Equal(t, "dbo.Users.Amount", item.ObjectName)
	require.True(t, item.Breaking)
	require.Equal(t, diff.Change{From: "bigint", To: "int"}, item.Details["data_type"])

	require.Len(t, d.Breaking, 1)
	require.True(t, d.Breaking[0].DataLossRisk)
}

func TestWideningTypeChangeIsNotBreaking(t *testing.T) {
	narrow := usersTable()
	narrow.Columns = append(narrow.Columns, schema.Column{
		Name: "Amount", DataType: "int", Type: schema.TypeInt, Position: 3,
	})
	wide := usersTable()
	wide.Columns = append(wide.Columns, schema.Column{
		Name: "Amount", DataType: "bigint", Type: schema.TypeBigInt, Position: 3,
	})

	d := diff.Compute(dbWith(narrow), dbWith(wide))
	require.Len(t, d.Items, 1)
	require.False(t, d.Items[0].Breaking)
	require.False(t, d.HasBreaking())
}

func TestMaxLengthShrinkIsBreaking(t *testing.T) {
	source := dbWith(usersTable())
	modified := usersTable()
	modified.Columns[1].DataType = "nvarchar(100)"
	modified.Columns[1].MaxLength = 100
	target := dbWith(modified)

	d := diff.Compute(source, target)
	require.Len(t, d.Items, 1)
	require.True(t, d.Items[0].Breaking)
	require.Equal(t, diff.Change{From: 255, To: 100}, d.Items[0].Details["max_length"])

	// Growing to MAX is safe.
	modified.Columns[1].DataType = "nvarchar(max)"
	modified.Columns[1].MaxLength = -1
	d = diff.Compute(source, dbWith(modified))
	require.False(t, d.HasBreaking())
}

func TestNullableToNotNullableIsBreaking(t *testing.T) {
	withNullable := usersTable()
	withNullable.Columns = append(withNullable.Columns, schema.Column{
		Name: "Bio", DataType: "nvarchar(max)", Type: schema.TypeNVarChar, MaxLength: -1, IsNullable: true, Position: 3,
	})
	tightened := usersTable()
	tightened.Columns = append(tightened.Columns, schema.Column{
		Name: "Bio", DataType: "nvarchar(max)", Type: schema.TypeNVarChar, MaxLength: -1, Position: 3,
	})

	d := diff.Compute(dbWith(withNullable), dbWith(tightened))
	require.Len(t, d.Items, 1)
	require.True(t, d.Items[0].Breaking)
	require.Equal(t, diff.Change{From: true, To: false}, d.Items[0].Details["is_nullable"])
}

func TestPrimaryKeyChangeIsBreaking(t *testing.T) {
	source := dbWith(usersTable())
	modified := usersTable()
	modified.PrimaryKeyColumns = []string{"Id", "Email"}
	target := dbWith(modified)

	d := diff.Compute(source, target)
	require.True(t, d.HasBreaking())
	require.Equal(t, diff.SeverityCritical, d.Breaking[0].Severity)
}

func TestProcedureSignatureChange(t *testing.T) {
	source := dbWith()
	source.Procedures = []schema.Procedure{{
		Schema: "dbo", Name: "usp_Report", Definition: "BEGIN SELECT 1 END",
		Parameters: []schema.Parameter{{Name: "@From", DataType: "datetime2", Position: 1}},
	}}

	// Body-only change: modified but not breaking.
	bodyOnly := dbWith()
	bodyOnly.Procedures = []schema.Procedure{{
		Schema: "dbo", Name: "usp_Report", Definition: "BEGIN SELECT 2 END",
		Parameters: []schema.Parameter{{Name: "@From", DataType: "datetime2", Position: 1}},
	}}
	d := diff.Compute(source, bodyOnly)
	require.Len(t, d.Items, 1)
	require.Equal(t, true, d.Items[0].Details["definition_changed"])
	require.False(t, d.Items[0].Breaking)

	// Required parameter added: breaking.
	newParam := dbWith()
	newParam.Procedures = []schema.Procedure{{
		Schema: "dbo", Name: "usp_Report", Definition: "BEGIN SELECT 1 END",
		Parameters: []schema.Parameter{
			{Name: "@From", DataType: "datetime2", Position: 1},
			{Name: "@To", DataType: "datetime2", Position: 2},
		},
	}}
	d = diff.Compute(source, newParam)
	require.Len(t, d.Items, 1)
	require.True(t, d.Items[0].Breaking)

	// Defaulted parameter added: not breaking.
	defaulted := dbWith()
	defaulted.Procedures = []schema.Procedure{{
		Schema: "dbo", Name: "usp_Report", Definition: "BEGIN SELECT 1 END",
		Parameters: []schema.Parameter{
			{Name: "@From", DataType: "datetime2", Position: 1},
			{Name: "@To", DataType: "datetime2", Position: 2, HasDefault: true},
		},
	}}
	d = diff.Compute(source, defaulted)
	require.False(t, d.HasBreaking())
}

func TestItemOrderingIsStable(t *testing.T) {
	source := dbWith(schema.Table{Schema: "dbo", Name: "Zebra"}, schema.Table{Schema: "dbo", Name: "Alpha"})
	source.Views = []schema.View{{Schema: "dbo", Name: "V2"}, {Schema: "dbo", Name: "V1"}}
	target := dbWith()

	d := diff.Compute(source, target)
	require.Len(t, d.Items, 4)
	require.Equal(t, "dbo.Alpha", d.Items[0].ObjectName)
	require.Equal(t, "dbo.Zebra", d.Items[1].ObjectName)
	require.Equal(t, "dbo.V1", d.Items[2].ObjectName)
	require.Equal(t, "dbo.V2", d.Items[3].ObjectName)
}

func TestIndexAndForeignKeyChanges(t *testing.T) {
	base := usersTable()
	base.Indexes = []schema.Index{{Name: "IX_Users_Email", Type: schema.IndexNonClustered, KeyColumns: []string{"Email"}}}

	modified := usersTable()
	modified.Indexes = []schema.Index{{Name: "IX_Users_Email", Type: schema.IndexNonClustered, IsUnique: true, KeyColumns: []string{"Email"}}}
	modified.ForeignKeys = []schema.ForeignKey{{
		Name: "FK_Users_Tenants", Columns: []string{"TenantId"},
		ReferencedSchema: "dbo", ReferencedTable: "Tenants", ReferencedColumns: []string{"Id"},
		OnDelete: schema.RefNoAction, OnUpdate: schema.RefNoAction,
	}}

	d := diff.Compute(dbWith(base), dbWith(modified))
	require.Len(t, d.Items, 2)
	require.False(t, d.HasBreaking())
	require.Equal(t, 1, d.Summary.TablesModified)

	byType := map[diff.ObjectType]diff.Item{}
	for _, item := range d.Items {
		byType[item.ObjectType] = item
	}
	require.Equal(t, diff.ChangeAdded, byType[diff.ObjectForeignKey].ChangeType)
	require.Equal(t, diff.ChangeModified, byType[diff.ObjectIndex].ChangeType)
}
