package extract_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/dbwarden/warden/pkg/cmd/testutil"
	"github.com/dbwarden/warden/pkg/conn"
	"github.com/dbwarden/warden/pkg/extract"
	"github.com/dbwarden/warden/pkg/schema"
)

const liveSchema = `
CREATE TABLE public.users (
    id bigint GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    email varchar(320) NOT NULL,
    created_at timestamptz NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX ux_users_email ON public.users (email);

CREATE TABLE public.orders (
    id bigint GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    user_id bigint NOT NULL REFERENCES public.users (id) ON DELETE CASCADE,
    total numeric(12,2) NOT NULL
);

CREATE VIEW public.active_users AS
SELECT id, email FROM public.users WHERE created_at > now() - interval '30 days';
`

// End-to-end extraction against a real postgres instance. Skipped when
// docker is unavailable.
func TestPostgresLiveExtraction(t *testing.T) {
	testutil.SkipIfNoDocker(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("warden"),
		postgres.WithUsername("warden"),
		postgres.WithPassword("warden"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(ctx, liveSchema)
	require.NoError(t, err)

	registry := conn.NewRegistry(zap.NewNop(), conn.NewStaticCredential(),
		conn.Config{ID: "it-pg", TenantID: "it", Engine: conn.EnginePostgres, DSN: dsn})

	ex := extract.NewPostgres(registry, "it-pg", zap.NewNop())

	status, err := ex.TestConnection(ctx)
	require.NoError(t, err)
	require.True(t, status.OK)

	model, err := ex.Extract(ctx, extract.DefaultOptions())
	require.NoError(t, err)

	users := findTable(t, model, "public", "users")
	require.Equal(t, []string{"id"}, users.PrimaryKeyColumns)

	email := users.Column("email")
	require.NotNil(t, email)
	require.Equal(t, schema.TypeVarChar, email.Type)
	require.Equal(t, 320, email.MaxLength)
	require.False(t, email.IsNullable)

	orders := findTable(t, model, "public", "orders")
	require.Len(t, orders.ForeignKeys, 1)
	require.Equal(t, schema.RefCascade, orders.ForeignKeys[0].OnDelete)

	require.Len(t, model.Views, 1)
	require.Equal(t, "active_users", model.Views[0].Name)

	// Content hashing is stable across repeated extractions.
	first, err := model.ContentHash()
	require.NoError(t, err)

	again, err := ex.Extract(ctx, extract.DefaultOptions())
	require.NoError(t, err)
	second, err := again.ContentHash()
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func findTable(t *testing.T, db *schema.Database, schemaName, name string) *schema.Table {
	t.Helper()

	for i := range db.Tables {
		if db.Tables[i].Schema == schemaName && db.Tables[i].Name == name {
			return &db.Tables[i]
		}
	}
	t.Fatalf("table %s.%s not extracted", schemaName, name)
	return nil
}
