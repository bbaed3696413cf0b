package extract_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/dbwarden/warden/pkg/conn"
	"github.com/dbwarden/warden/pkg/extract"
	"github.com/dbwarden/warden/pkg/schema"
)

func expectClickHouseCatalog(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`currentDatabase\(\)`).WillReturnRows(
		sqlmock.NewRows([]string{"db", "version"}).
			AddRow("analytics", "24.8.1"))

	mock.ExpectQuery(`engine NOT IN`).WillReturnRows(
		sqlmock.NewRows([]string{"db", "table", "pk", "rows"}).
			AddRow("analytics", "events", "tenant_id, event_time", 120000).
			AddRow("analytics", "sessions", "", -1))

	mock.ExpectQuery(`FROM system\.columns`).WillReturnRows(
		sqlmock.NewRows([]string{"db", "table", "column", "type", "pos", "kind", "expr", "pk"}).
			AddRow("analytics", "events", "tenant_id", "String", 1, "", "", 1).
			AddRow("analytics", "events", "event_time", "DateTime64(3)", 2, "", "", 1).
			AddRow("analytics", "events", "payload", "Nullable(String)", 3, "", "", 0).
			AddRow("analytics", "events", "amount", "Decimal(18, 4)", 4, "", "", 0).
			AddRow("analytics", "events", "country", "LowCardinality(String)", 5, "", "", 0).
			AddRow("analytics", "events", "fingerprint", "FixedString(16)", 6, "", "", 0).
			AddRow("analytics", "events", "day", "Date", 7, "MATERIALIZED", "toDate(event_time)", 0).
			AddRow("analytics", "sessions", "id", "UUID", 1, "", "", 0).
			AddRow("analytics", "sessions", "started_at", "DateTime", 2, "DEFAULT", "now()", 0))

	mock.ExpectQuery(`engine IN`).WillReturnRows(
		sqlmock.NewRows([]string{"db", "view", "definition"}).
			AddRow("analytics", "daily_events", "CREATE VIEW analytics.daily_events AS SELECT day, count() FROM analytics.events GROUP BY day"))

	mock.ExpectQuery(`FROM system\.functions`).WillReturnRows(
		sqlmock.NewRows([]string{"name", "create_query"}).
			AddRow("normalize_country", "CREATE FUNCTION normalize_country AS (c) -> upperUTF8(c)"))
}

func TestClickHouseExtract(t *testing.T) {
	ex, mock := newMockExtractor(t, conn.EngineClickHouse)
	expectClickHouseCatalog(mock)

	db, err := ex.Extract(context.Background(), extract.Options{IncludeDefinitions: true, IncludeRowCounts: true})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Equal(t, "analytics", db.Name)
	require.Equal(t, "24.8.1", db.ServerVersion)
	require.Empty(t, db.Collation)

	require.Len(t, db.Tables, 2)
	events, sessions := db.Tables[0], db.Tables[1]

	// Primary key order comes from the engine definition, not column order.
	require.Equal(t, []string{"tenant_id", "event_time"}, events.PrimaryKeyColumns)
	require.True(t, events.Column("tenant_id").IsPrimaryKey)
	require.True(t, events.Column("event_time").IsPrimaryKey)

	require.NotNil(t, events.RowCount)
	require.EqualValues(t, 120000, *events.RowCount)
	require.Nil(t, sessions.RowCount)

	payload := events.Column("payload")
	require.True(t, payload.IsNullable)
	require.Equal(t, "Nullable(String)", payload.DataType)
	require.Equal(t, schema.TypeText, payload.Type)
	require.Equal(t, -1, payload.MaxLength)

	amount := events.Column("amount")
	require.Equal(t, schema.TypeDecimal, amount.Type)
	require.Equal(t, 18, amount.Precision)
	require.Equal(t, 4, amount.Scale)

	country := events.Column("country")
	require.Equal(t, "LowCardinality(String)", country.DataType)
	require.Equal(t, schema.TypeText, country.Type)

	fingerprint := events.Column("fingerprint")
	require.Equal(t, schema.TypeChar, fingerprint.Type)
	require.Equal(t, 16, fingerprint.MaxLength)

	eventTime := events.Column("event_time")
	require.Equal(t, schema.TypeDateTime, eventTime.Type)
	require.Equal(t, 3, eventTime.Scale)

	day := events.Column("day")
	require.True(t, day.IsComputed)
	require.Equal(t, "toDate(event_time)", day.Expression)
	require.Nil(t, day.Default)

	startedAt := sessions.Column("started_at")
	require.NotNil(t, startedAt.Default)
	require.Equal(t, "now()", *startedAt.Default)
	require.False(t, startedAt.IsComputed)

	require.Len(t, db.Views, 1)
	require.Equal(t, "daily_events", db.Views[0].Name)

	// ClickHouse UDFs are global to the server, so the schema stays empty.
	require.Len(t, db.Functions, 1)
	require.Equal(t, "normalize_country", db.Functions[0].Name)
	require.Empty(t, db.Functions[0].Schema)
	require.Equal(t, schema.FunctionScalar, db.Functions[0].Kind)

	require.Empty(t, db.Procedures)
	require.Empty(t, db.Triggers)
	for _, tbl := range db.Tables {
		require.Empty(t, tbl.ForeignKeys)
	}
}

func TestClickHouseExtractWithoutRowCounts(t *testing.T) {
	ex, mock := newMockExtractor(t, conn.EngineClickHouse)
	expectClickHouseCatalog(mock)

	db, err := ex.Extract(context.Background(), extract.DefaultOptions())
	require.NoError(t, err)

	for _, tbl := range db.Tables {
		require.Nil(t, tbl.RowCount)
	}
}
