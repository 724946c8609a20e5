package orders

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderCols = []string{"id", "data", "status", "created_at"}

func newRepo(t *testing.T) (pgxmock.PgxPoolIface, *Repo) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, &Repo{DB: mock}
}

func TestRepoList(t *testing.T) {
	mock, repo := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders ORDER BY created_at DESC")).
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow("ORD-2", []byte(`{"id":"ORD-2","status":"pending"}`), "confirmed", int64(2)).
			AddRow("ORD-1", []byte(`{"id":"ORD-1","status":"pending"}`), "pending", int64(1)))

	recs, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "ORD-2", recs[0].ID)
	assert.Equal(t, StatusConfirmed, recs[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoGetNotFound(t *testing.T) {
	mock, repo := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id=$1")).WithArgs("ORD-404").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), "ORD-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepoSetStatus(t *testing.T) {
	mock, repo := newRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE id=$1 FOR UPDATE")).WithArgs("ORD-1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status=$2")).WithArgs("ORD-1", "confirmed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetStatus(context.Background(), "ORD-1", StatusConfirmed))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoSetStatusMissingOrder(t *testing.T) {
	mock, repo := newRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("ORD-9").WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.SetStatus(context.Background(), "ORD-9", StatusConfirmed), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepoDeleteAndReplaceReportMissing(t *testing.T) {
	mock, repo := newRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders")).WithArgs("ORD-9").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET data=$2")).WithArgs("ORD-9", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "ORD-9"), ErrNotFound)
	assert.ErrorIs(t, repo.Replace(context.Background(), "ORD-9", Payload{}), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
