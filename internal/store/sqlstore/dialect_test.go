package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	tests := []struct {
		name      string
		driver    string
		goose     string
		expectErr bool
	}{
		{name: "sqlite", driver: "sqlite", goose: "sqlite3"},
		{name: "postgres", driver: "pgx", goose: "postgres"},
		{name: "DuckDB", driver: "duckdb"},
		{name: "oracle", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DialectFor(tt.name)
			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unsupported SQL dialect")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, d.Driver)
			assert.Equal(t, tt.goose, d.Goose)
		})
	}
}

func TestDialect_Placeholders(t *testing.T) {
	sqlite, _ := DialectFor("sqlite")
	postgres, _ := DialectFor("postgres")

	assert.Equal(t, "?", sqlite.Placeholder(3))
	assert.Equal(t, "?, ?, ?", sqlite.Placeholders(1, 3))
	assert.Equal(t, "$3", postgres.Placeholder(3))
	assert.Equal(t, "$4, $5", postgres.Placeholders(4, 2))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"customer_summary"`, QuoteIdent("customer_summary"))
	assert.Equal(t, `"we""ird"`, QuoteIdent(`we"ird`))
}

func TestMigrate_UnsupportedDialect(t *testing.T) {
	duck, _ := DialectFor("duckdb")
	err := Migrate(context.Background(), nil, duck)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported for duckdb")
}
