package utils_test

import (
	"testing"

	. "github.com/dbwarden/warden/pkg/utils"
	"github.com/stretchr/testify/require"
)

func TestSQLBuilder(t *testing.T) {
	tests := []struct {
		name     string
		build    func() string
		expected string
	}{
		{
			name: "drop table tsql",
			build: func() string {
				return NewSQLBuilder(QuoteBracket).
					Drop("TABLE").
					QualifiedName("dbo", "orders").
					String()
			},
			expected: "DROP TABLE [dbo].[orders]",
		},
		{
			name: "drop table if exists postgres",
			build: func() string {
				return NewSQLBuilder(QuoteDouble).
					Drop("TABLE").
					IfExists().
					QualifiedName("public", "orders").
					String()
			},
			expected: `DROP TABLE IF EXISTS "public"."orders"`,
		},
		{
			name: "drop index tsql",
			build: func() string {
				return NewSQLBuilder(QuoteBracket).
					Drop("INDEX").
					Name("ix_orders_customer").
					On("dbo", "orders").
					String()
			},
			expected: "DROP INDEX [ix_orders_customer] ON [dbo].[orders]",
		},
		{
			name: "create index with columns",
			build: func() string {
				return NewSQLBuilder(QuoteDouble).
					Keyword("CREATE", "UNIQUE", "INDEX").
					Name("ux_users_email").
					On("public", "users").
					Columns("tenant_id", "email").
					String()
			},
			expected: `CREATE UNIQUE INDEX "ux_users_email" ON "public"."users" ("tenant_id", "email")`,
		},
		{
			name: "alter table drop column",
			build: func() string {
				return NewSQLBuilder(QuoteBracket).
					Alter("TABLE").
					QualifiedName("dbo", "orders").
					Keyword("DROP", "COLUMN").
					Name("legacy_flag").
					String()
			},
			expected: "ALTER TABLE [dbo].[orders] DROP COLUMN [legacy_flag]",
		},
		{
			name: "alter table add column with raw definition",
			build: func() string {
				return NewSQLBuilder(QuoteDouble).
					Alter("TABLE").
					QualifiedName("public", "orders").
					Keyword("ADD", "COLUMN").
					Name("notes").
					Raw("text NULL").
					String()
			},
			expected: `ALTER TABLE "public"."orders" ADD COLUMN "notes" text NULL`,
		},
		{
			name: "create or replace view postgres",
			build: func() string {
				return NewSQLBuilder(QuoteDouble).
					CreateOrReplace("VIEW").
					QualifiedName("public", "active_users").
					Keyword("AS").
					Raw("SELECT id FROM users WHERE active").
					String()
			},
			expected: `CREATE OR REPLACE VIEW "public"."active_users" AS SELECT id FROM users WHERE active`,
		},
		{
			name: "create or alter procedure tsql",
			build: func() string {
				return NewSQLBuilder(QuoteBracket).
					CreateOrAlter("PROCEDURE").
					QualifiedName("dbo", "usp_close_orders").
					Keyword("AS").
					Raw("BEGIN SET NOCOUNT ON END").
					String()
			},
			expected: "CREATE OR ALTER PROCEDURE [dbo].[usp_close_orders] AS BEGIN SET NOCOUNT ON END",
		},
		{
			name: "raw empty fragment skipped",
			build: func() string {
				return NewSQLBuilder(QuoteDouble).
					Drop("VIEW").
					Name("v").
					Raw("").
					String()
			},
			expected: `DROP VIEW "v"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.build())
		})
	}
}
