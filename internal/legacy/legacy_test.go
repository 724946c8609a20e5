package legacy

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/topolina/flipbook-orders/internal/inventory"
	"github.com/topolina/flipbook-orders/internal/orders"
)

const chemiseBlob = `{"displayName":"CHEMISE","consumption":{"entire":2.2},
	"patterns":[{"id":"CH1","name":"CH 1","fabricId":"f-1","availableMeters":"12.50"},
	            {"id":"BLACK","stockType":"quantity","availableQuantity":4}]}`

func newSource(t *testing.T) (*Source, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Source{DB: db, ProductsTable: "products_old"}, mock
}

func TestSourceProducts(t *testing.T) {
	src, mock := newSource(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, data FROM products_old")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow("CHEMISE", chemiseBlob).
			AddRow("EMPTY", nil))

	c, err := src.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, c, 2)

	ch := c["CHEMISE"]
	require.Len(t, ch.Patterns, 2)
	assert.Equal(t, "f-1", ch.Patterns[0].FabricID)
	assert.True(t, decimal.RequireFromString("12.5").Equal(ch.Patterns[0].AvailableMeters))
	assert.Equal(t, inventory.StockQuantity, ch.Patterns[1].StockType)
	assert.NotNil(t, c["EMPTY"].Patterns)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceRejectsOddTableNames(t *testing.T) {
	src, _ := newSource(t)
	src.ProductsTable = "products; DROP TABLE orders"
	_, err := src.Products(context.Background())
	assert.Error(t, err)
}

func TestSourceOrdersDefaults(t *testing.T) {
	src, mock := newSource(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, data, status, created_at FROM orders")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "status", "created_at"}).
			AddRow("ORD-1", `{"id":"ORD-1","timestamp":1700000000000}`, nil, nil).
			AddRow("ORD-2", `{"id":"ORD-2"}`, "confirmed", int64(1700000000500)))

	recs, err := src.Orders(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, orders.StatusPending, recs[0].Status)
	assert.Equal(t, int64(1700000000000), recs[0].CreatedAt)
	assert.Equal(t, orders.StatusConfirmed, recs[1].Status)
	assert.Equal(t, int64(1700000000500), recs[1].CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImporterRun(t *testing.T) {
	src, smock := newSource(t)
	smock.ExpectQuery(regexp.QuoteMeta("SELECT id, data FROM products_old")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).AddRow("CHEMISE", chemiseBlob))
	smock.ExpectQuery(regexp.QuoteMeta("FROM orders")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "data", "status", "created_at"}).
			AddRow("ORD-1", `{"id":"ORD-1"}`, "pending", int64(1)).
			AddRow("ORD-2", `{"id":"ORD-2"}`, "pending", int64(2)))

	pg, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pg.Close()

	pg.ExpectBegin()
	pg.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("CHEMISE", "CHEMISE", "2.2", pgxmock.AnyArg(), pgxmock.AnyArg(),
			"", "", "", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pg.ExpectExec(regexp.QuoteMeta("INSERT INTO patterns")).
		WithArgs("CHEMISE", "CH1", "CH 1", "", "meters", "12.5", 0, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pg.ExpectExec(regexp.QuoteMeta("INSERT INTO patterns")).
		WithArgs("CHEMISE", "BLACK", "", "", "quantity", "0", 4, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pg.ExpectExec(regexp.QuoteMeta("DELETE FROM patterns")).
		WithArgs("CHEMISE", []string{"CH1", "BLACK"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	pg.ExpectExec(regexp.QuoteMeta("UPDATE patterns SET fabric_id=$3")).WithArgs("CHEMISE", "CH1", "f-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pg.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WithArgs("ORD-1", pgxmock.AnyArg(), "pending", int64(1)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pg.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).WithArgs("ORD-2", pgxmock.AnyArg(), "pending", int64(2)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	pg.ExpectCommit()

	im := &Importer{Source: src, Target: pg, Orders: &orders.Repo{DB: pg}}
	rep, err := im.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Products: 1, Patterns: 2, Links: 1, Orders: 1, SkippedOrders: 1}, rep)
	require.NoError(t, pg.ExpectationsWereMet())
	require.NoError(t, smock.ExpectationsWereMet())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(&mysql.MySQLError{Number: 1213}))
	assert.True(t, isTransient(&mysql.MySQLError{Number: 2006}))
	assert.False(t, isTransient(&mysql.MySQLError{Number: 1062}))
	assert.True(t, isTransient(mysql.ErrInvalidConn))
}
