package repository

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"Aktiemotor/internal/domain/models"
	pkgch "Aktiemotor/pkg/clickhouse"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// passthrough lets Array and Nullable arguments reach the mock untouched,
// as the ClickHouse driver accepts them natively.
type passthrough struct{}

func (passthrough) ConvertValue(v interface{}) (driver.Value, error) { return v, nil }

func newMockArchive(t *testing.T) (*CHArchive, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthrough{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewCHArchive(pkgch.NewClientFromDB(db, "aktiemotor")), mock
}

func TestArchiveInitCreatesTables(t *testing.T) {
	a, mock := newMockArchive(t)
	for _, table := range []string{"bars_daily", "indicator_snapshots", "recommendations"} {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS aktiemotor." + table)).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, a.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveStoreBarsBatches(t *testing.T) {
	a, mock := newMockArchive(t)
	bars := someBars(2)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO aktiemotor.bars_daily"))
	for _, b := range bars {
		prep.ExpectExec().
			WithArgs("EVO", b.Date, b.Open, b.High, b.Low, b.Close, b.Volume).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, a.StoreBars(context.Background(), "EVO", bars))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveStoreRecommendationsSkipsBlankIDs(t *testing.T) {
	a, mock := newMockArchive(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := &models.Recommendation{
		ID: "r1", Ticker: "EVO", Side: models.SideBuy, Kind: models.KindRoutine, Status: models.StatusPending,
		Score: 70, Threshold: 55, Confidence: 70, Price: 1000, Quantity: 2, Value: 2000,
		Regime: models.RegimeBull, Reasons: []string{"RSI"}, CreatedAt: at,
	}

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO aktiemotor.recommendations")).
		ExpectExec().
		WithArgs("r1", at, at, "EVO", "BUY", "routine", "pending",
			int32(70), int32(55), int32(70), 1000.0, int32(2), 2000.0,
			0.0, 0.0, "BULL", "", []string{"RSI"}, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, a.StoreRecommendations(context.Background(), []*models.Recommendation{r, {Ticker: "X"}, nil}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveDailyBarsReadsBack(t *testing.T) {
	a, mock := newMockArchive(t)
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"date", "open", "high", "low", "close", "volume"}).
		AddRow(d, 1.0, 2.0, 0.5, 1.5, 100.0).
		AddRow(d.AddDate(0, 0, 1), 1.5, 2.5, 1.0, 2.0, 120.0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM aktiemotor.bars_daily FINAL")).
		WithArgs("EVO", sqlmock.AnyArg()).
		WillReturnRows(rows)

	bars, err := a.DailyBars(context.Background(), "evo", "1y")
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 2.0, bars[1].Close)
	require.NoError(t, mock.ExpectationsWereMet())
}
