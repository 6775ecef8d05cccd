package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/musicclub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLX(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func strPtr(s string) *string { return &s }

func TestBandRepositoryCreateWithMembers(t *testing.T) {
	db, mock := setupSQLX(t)
	repo := NewBandRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bands")).
		WithArgs("The Chords", 2024, nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM members WHERE id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO band_members")).
		WithArgs(7, 1, "vocal", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO band_members")).
		WithArgs(7, 2, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	band, err := repo.Create(context.Background(), types.Band{Name: "The Chords", Year: 2024}, []types.BandMemberInput{
		{MemberID: 1, RoleInBand: strPtr("vocal")},
		{MemberID: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, band.ID)
	assert.Equal(t, 2, band.MemberCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBandRepositoryCreateUnknownMemberRollsBack(t *testing.T) {
	db, mock := setupSQLX(t)
	repo := NewBandRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bands")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("FROM members WHERE id = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), types.Band{Name: "The Chords", Year: 2024}, []types.BandMemberInput{
		{MemberID: 1}, {MemberID: 99},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBandRepositoryCreateDuplicateName(t *testing.T) {
	db, mock := setupSQLX(t)
	repo := NewBandRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bands")).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), types.Band{Name: "Dup", Year: 2020}, nil)
	assert.ErrorIs(t, err, ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBandRepositoryDeleteRefusedWhileScheduled(t *testing.T) {
	db, mock := setupSQLX(t)
	repo := NewBandRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schedules WHERE band_id = $1")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 3)
	assert.ErrorIs(t, err, ErrInUse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBandRepositoryDelete(t *testing.T) {
	db, mock := setupSQLX(t)
	repo := NewBandRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE band_id = $1")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM band_members WHERE band_id = $1")).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bands WHERE id = $1")).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBandRepositoryReplaceMembersMissingBand(t *testing.T) {
	db, mock := setupSQLX(t)
	repo := NewBandRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM bands WHERE id = $1 FOR UPDATE")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.ReplaceMembers(context.Background(), 5, []types.BandMemberInput{{MemberID: 1}})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBandRepositoryDetail(t *testing.T) {
	db, mock := setupSQLX(t)
	repo := NewBandRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM bands b WHERE b.id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "year", "description", "created_at", "updated_at", "member_count"}).
			AddRow(1, "The Chords", 2024, nil, now, now, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "activity", "date", "time", "location"}).
			AddRow(4, "rehearsal", "2025-01-10", "18:00", "Room A"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM band_members bm")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"member_id", "user_id", "name", "email", "faculty", "user_role", "member_status", "role_in_band", "joined_at"}).
			AddRow(2, 5, "Ms. Ada L", "a@example.org", "Engineering", "member", "active", "guitar", now))

	detail, err := repo.Detail(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "The Chords", detail.Name)
	require.Len(t, detail.Schedules, 1)
	assert.Equal(t, types.ActivityRehearsal, detail.Schedules[0].Activity)
	require.Len(t, detail.Members, 1)
	assert.Equal(t, "guitar", *detail.Members[0].RoleInBand)
	require.NoError(t, mock.ExpectationsWereMet())
}
