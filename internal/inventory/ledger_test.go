package inventory

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLedger(t *testing.T) (pgxmock.PgxPoolIface, *TxLedger) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)
	return mock, &TxLedger{Tx: tx}
}

var (
	lockPatternSQL = regexp.QuoteMeta("FROM patterns WHERE product_id=$1 AND id=$2 FOR UPDATE")
	lockFabricSQL  = regexp.QuoteMeta("FROM fabrics WHERE id=$1 FOR UPDATE")
	consumptionSQL = regexp.QuoteMeta("FROM products WHERE id=$1")
)

func TestTxLedgerLockPattern(t *testing.T) {
	mock, l := newMockLedger(t)
	ctx := context.Background()

	mock.ExpectQuery(lockPatternSQL).WithArgs("CHEMISE", "CH1").
		WillReturnRows(pgxmock.NewRows([]string{"stock_type", "available_meters", "available_quantity", "fabric_id"}).
			AddRow("meters", "4.40", 0, "f-1"))

	ps, err := l.LockPattern(ctx, "CHEMISE", "CH1")
	require.NoError(t, err)
	assert.Equal(t, StockMeters, ps.StockType)
	assert.True(t, dec("4.4").Equal(ps.AvailableMeters))
	assert.True(t, ps.Linked())
	assert.Equal(t, "f-1", ps.FabricID)

	mock.ExpectQuery(lockPatternSQL).WithArgs("CHEMISE", "NOPE").WillReturnError(pgx.ErrNoRows)
	_, err = l.LockPattern(ctx, "CHEMISE", "NOPE")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxLedgerLockFabric(t *testing.T) {
	mock, l := newMockLedger(t)
	ctx := context.Background()

	mock.ExpectQuery(lockFabricSQL).WithArgs("f-1").
		WillReturnRows(pgxmock.NewRows([]string{"name", "available_meters"}).AddRow("Wool", "10.00"))
	fs, err := l.LockFabric(ctx, "f-1")
	require.NoError(t, err)
	assert.Equal(t, "Wool", fs.Name)
	assert.True(t, dec("10").Equal(fs.AvailableMeters))

	mock.ExpectQuery(lockFabricSQL).WithArgs("gone").WillReturnError(pgx.ErrNoRows)
	_, err = l.LockFabric(ctx, "gone")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxLedgerConsumption(t *testing.T) {
	mock, l := newMockLedger(t)

	mock.ExpectQuery(consumptionSQL).WithArgs("VEST").
		WillReturnRows(pgxmock.NewRows([]string{"entire", "outside", "inside"}).AddRow("", "2.10", "1.50"))
	c, err := l.Consumption(context.Background(), "VEST")
	require.NoError(t, err)
	assert.False(t, c.Entire.Valid)
	per, ok := c.PerUnit()
	assert.True(t, ok)
	assert.True(t, dec("2.1").Equal(per))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxLedgerReserveEndToEnd(t *testing.T) {
	mock, l := newMockLedger(t)

	mock.ExpectQuery(lockPatternSQL).WithArgs("CHEMISE", "BLACK").
		WillReturnRows(pgxmock.NewRows([]string{"stock_type", "available_meters", "available_quantity", "fabric_id"}).
			AddRow("quantity", "0.00", 5, ""))
	mock.ExpectQuery(consumptionSQL).WithArgs("CHEMISE").
		WillReturnRows(pgxmock.NewRows([]string{"entire", "outside", "inside"}).AddRow("2.20", "", ""))
	mock.ExpectQuery(lockPatternSQL).WithArgs("JUPE", "J1").
		WillReturnRows(pgxmock.NewRows([]string{"stock_type", "available_meters", "available_quantity", "fabric_id"}).
			AddRow("meters", "0.00", 0, "f-1"))
	mock.ExpectQuery(consumptionSQL).WithArgs("JUPE").
		WillReturnRows(pgxmock.NewRows([]string{"entire", "outside", "inside"}).AddRow("2.30", "", ""))
	mock.ExpectQuery(lockFabricSQL).WithArgs("f-1").
		WillReturnRows(pgxmock.NewRows([]string{"name", "available_meters"}).AddRow("Wool", "10.00"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE patterns SET available_quantity")).
		WithArgs("CHEMISE", "BLACK", 2).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE fabrics SET available_meters")).
		WithArgs("f-1", "4.6").WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	res, err := Reserve(context.Background(), l, []Line{
		{Key: "CHEMISE - BLACK", Quantity: 2},
		{Key: "JUPE - J1", Quantity: 2},
	})
	require.NoError(t, err)
	assert.True(t, res.OK())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTxLedgerDecrementMissingRow(t *testing.T) {
	mock, l := newMockLedger(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE patterns SET available_meters")).
		WithArgs("CHEMISE", "CH1", "2.2").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := l.DecrementMeters(context.Background(), "CHEMISE", "CH1", dec("2.20"))
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
