package audit

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertQuery = "INSERT INTO forward_log (id, source_id, target_id, outcome, value_type, value, error, created_at)"

func TestSQLiteRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLiteRepository(db)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
		WithArgs("fwd-1", "frequency", "frequency_iec104", "converted", "INTEGER", "1", nil,
			created.Format("2006-01-02T15:04:05.000000000Z07:00")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &Entry{
		ID:        "fwd-1",
		SourceID:  "frequency",
		TargetID:  "frequency_iec104",
		Outcome:   "converted",
		ValueType: "INTEGER",
		Value:     "1",
		CreatedAt: created,
	}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRepository_CreateGeneratesIDAndTime(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLiteRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(insertQuery)).
		WithArgs(sqlmock.AnyArg(), "healthStatus", nil, "missing_target", "NULL", "null", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &Entry{SourceID: "healthStatus", Outcome: "missing_target", ValueType: "NULL", Value: "null"}
	require.NoError(t, repo.Create(context.Background(), entry))

	assert.True(t, strings.HasPrefix(entry.ID, "fwd-"))
	assert.Len(t, entry.ID, len("fwd-")+36, "ID must carry a full UUID")
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRepository_CreateRequiresSource(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = NewSQLiteRepository(db).Create(context.Background(), &Entry{})
	assert.Error(t, err)
}

func TestSQLiteRepository_CreateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertQuery)).WillReturnError(errors.New("disk full"))

	err = NewSQLiteRepository(db).Create(context.Background(), &Entry{SourceID: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting forward log")
}

func TestSQLiteRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLiteRepository(db)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM forward_log WHERE source_id = ? AND outcome = ?")).
		WithArgs("frequency", "failed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, source_id, target_id, outcome, value_type, value, error, created_at FROM forward_log WHERE source_id = ? AND outcome = ? ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?")).
		WithArgs("frequency", "failed", maxListLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "source_id", "target_id", "outcome", "value_type", "value", "error", "created_at"}).
			AddRow("fwd-1", "frequency", "frequency_iec104", "failed", "STRING", "open", "iec104: unsupported conversion", ts.Format("2006-01-02T15:04:05.000000000Z07:00")))

	result, err := repo.List(context.Background(), Filter{SourceID: "frequency", Outcome: "failed", Limit: 1000, Offset: -3})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Total)
	assert.Equal(t, maxListLimit, result.Limit)
	assert.Equal(t, 0, result.Offset)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "frequency_iec104", result.Entries[0].TargetID)
	assert.Equal(t, "iec104: unsupported conversion", result.Entries[0].Error)
	assert.True(t, ts.Equal(result.Entries[0].CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRepository_ListEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM forward_log")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, source_id")).
		WithArgs(defaultListLimit, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "source_id", "target_id", "outcome", "value_type", "value", "error", "created_at"}))

	result, err := NewSQLiteRepository(db).List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.NotNil(t, result.Entries)
	assert.Empty(t, result.Entries)
	assert.Equal(t, defaultListLimit, result.Limit)
}
