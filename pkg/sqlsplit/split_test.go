package sqlsplit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbwarden/warden/pkg/sqlsplit"
)

func TestSplitTSQLBatches(t *testing.T) {
	sql := "CREATE TABLE dbo.T (Id INT);\nGO\nALTER TABLE dbo.T ADD Name NVARCHAR(50);\ngo\nDROP TABLE dbo.T;"

	stmts, err := sqlsplit.Split(sql, sqlsplit.TSQL)
	require.NoError(t, err)
	require.Equal(t, []string{
		"CREATE TABLE dbo.T (Id INT);",
		"ALTER TABLE dbo.T ADD Name NVARCHAR(50);",
		"DROP TABLE dbo.T;",
	}, stmts)
}

func TestSplitTSQLGoInsideLiteralIsNotASeparator(t *testing.T) {
	sql := "INSERT INTO t (msg) VALUES ('first\nGO\nsecond');\nGO\nSELECT 1"

	stmts, err := sqlsplit.Split(sql, sqlsplit.TSQL)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	require.Contains(t, stmts[0], "GO\nsecond")
}

// GO mid-line is an identifier, not a batch separator.
func TestSplitTSQLGoMustStartALine(t *testing.T) {
	sql := "SELECT * FROM dbo.Go WHERE go = 1\nGO"

	stmts, err := sqlsplit.Split(sql, sqlsplit.TSQL)
	require.NoError(t, err)
	require.Equal(t, []string{"SELECT * FROM dbo.Go WHERE go = 1"}, stmts)
}

func TestSplitTSQLGoWithRepeatCount(t *testing.T) {
	stmts, err := sqlsplit.Split("SELECT 1\nGO 5\nSELECT 2", sqlsplit.TSQL)
	require.NoError(t, err)
	require.Equal(t, []string{"SELECT 1", "SELECT 2"}, stmts)
}

func TestSplitStandard(t *testing.T) {
	sql := "CREATE TABLE t (id INT); INSERT INTO t VALUES (1);\nSELECT * FROM t"

	stmts, err := sqlsplit.Split(sql, sqlsplit.Standard)
	require.NoError(t, err)
	require.Equal(t, []string{
		"CREATE TABLE t (id INT)",
		"INSERT INTO t VALUES (1)",
		"SELECT * FROM t",
	}, stmts)
}

func TestSplitStandardSemicolonInsideLiteral(t *testing.T) {
	sql := `INSERT INTO t (v) VALUES ('a;b'); UPDATE t SET v = 'it''s; fine'`

	stmts, err := sqlsplit.Split(sql, sqlsplit.Standard)
	require.NoError(t, err)
	require.Equal(t, []string{
		`INSERT INTO t (v) VALUES ('a;b')`,
		`UPDATE t SET v = 'it''s; fine'`,
	}, stmts)
}

func TestSplitStandardDollarQuotedBody(t *testing.T) {
	sql := "CREATE FUNCTION f() RETURNS int AS $$ SELECT 1; $$ LANGUAGE sql; SELECT f()"

	stmts, err := sqlsplit.Split(sql, sqlsplit.Standard)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	require.Contains(t, stmts[0], "SELECT 1;")
}

func TestSplitSkipsCommentOnlyFragments(t *testing.T) {
	sql := "-- header comment\n/* block */\nSELECT 1;\n-- trailing\n"

	stmts, err := sqlsplit.Split(sql, sqlsplit.Standard)
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	stmts, err = sqlsplit.Split("-- nothing here\nGO\n/* or here */", sqlsplit.TSQL)
	require.NoError(t, err)
	require.Empty(t, stmts)
}

func TestSplitSeparatorInsideComment(t *testing.T) {
	sql := "SELECT 1 /* ; not a boundary */; SELECT 2 -- ; neither\n"

	stmts, err := sqlsplit.Split(sql, sqlsplit.Standard)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
}

func TestWords(t *testing.T) {
	words, err := sqlsplit.Words(`TRUNCATE TABLE t; SELECT 'DROP DATABASE x' FROM "DROP"`)
	require.NoError(t, err)
	require.Equal(t, []string{"truncate", "table", "t", "select", "from"}, words)
}
