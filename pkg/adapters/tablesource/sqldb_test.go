package tablesource

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

func newSQLiteFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE customers (customer_id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE orders (order_id INTEGER, customer_id INTEGER, amount REAL, "odd ""name""" TEXT)`,
		`INSERT INTO customers VALUES (10, 'Ada'), (20, 'Grace')`,
		`INSERT INTO orders VALUES (1, 10, 9.5, NULL), (2, 10, 12.0, 'x'), (3, 20, 9.5, NULL)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return path
}

func TestSQLiteSource_LoadTables(t *testing.T) {
	path := newSQLiteFile(t)

	tables, err := Load(context.Background(), "sqlite", Options{Location: path}, zap.NewNop())
	require.NoError(t, err)

	require.Equal(t, []string{"customers", "orders"}, tables.Names())

	orders := tables[1]
	assert.Equal(t, []string{"order_id", "customer_id", "amount", `odd "name"`}, orders.ColumnNames())
	assert.Equal(t, 3, orders.RowCount())
	assert.Equal(t, models.NumberValue(1), orders.Columns[0].Values[0])
	assert.Equal(t, models.NumberValue(12), orders.Columns[2].Values[1])
	assert.True(t, orders.Columns[3].Values[0].IsNull())
	assert.Equal(t, 2, orders.Columns[3].DistinctCount())

	assert.Equal(t, models.TextValue("Ada"), tables[0].Columns[1].Values[0])
}

func TestSQLiteSource_MaxRowsAndTableFilter(t *testing.T) {
	path := newSQLiteFile(t)

	tables, err := Load(context.Background(), "sqlite", Options{
		Location: path,
		Tables:   []string{"orders"},
		MaxRows:  2,
	}, zap.NewNop())
	require.NoError(t, err)

	require.Len(t, tables, 1)
	assert.Equal(t, "orders", tables[0].Name)
	assert.Equal(t, 2, tables[0].RowCount())
	assert.Equal(t, 2, tables[0].SampleLimit)
}

func TestSQLiteSource_SampleLimitOnlyWhenCapped(t *testing.T) {
	path := newSQLiteFile(t)

	tables, err := Load(context.Background(), "sqlite", Options{Location: path, MaxRows: 10}, zap.NewNop())
	require.NoError(t, err)

	require.Len(t, tables, 2)
	for _, table := range tables {
		assert.Zero(t, table.SampleLimit, table.Name)
	}
}

func TestSQLSource_RequiresLocation(t *testing.T) {
	_, err := Open(context.Background(), "sqlite", Options{}, zap.NewNop())
	assert.Error(t, err)
}

func TestDialectQuoting(t *testing.T) {
	assert.Equal(t, `"a""b"`, sqliteDialect.quote(`a"b`))
	assert.Equal(t, "`a``b`", mysqlDialect.quote("a`b"))
	assert.Equal(t, "[a]]b]", sqlserverDialect.quote("a]b"))

	assert.Equal(t, "[dbo].[orders]", sqlserverDialect.qualify("dbo", "orders", sqlserverDialect.quote))
	assert.Equal(t, "`orders`", mysqlDialect.qualify("", "orders", mysqlDialect.quote))
	assert.Equal(t, `"orders"`, sqliteDialect.qualify("main", "orders", sqliteDialect.quote))

	assert.Equal(t, "SELECT TOP (5) * FROM [t]", sqlserverDialect.sample("[t]", 5))
	assert.Equal(t, "SELECT * FROM `t` LIMIT 5", mysqlDialect.sample("`t`", 5))
	assert.Equal(t, `SELECT * FROM "t"`, sqliteDialect.sample(`"t"`, 0))
}

func TestRegisteredSources(t *testing.T) {
	var types []string
	for _, info := range RegisteredSources() {
		types = append(types, info.Type)
	}
	assert.Equal(t, []string{"csv", "mysql", "postgres", "sqlite", "sqlserver"}, types)

	_, err := Open(context.Background(), "oracle", Options{}, zap.NewNop())
	assert.Error(t, err)
}
