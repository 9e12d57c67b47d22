package repository

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-enrollment/internal/models"
	"github.com/noah-isme/sma-enrollment/pkg/config"
	"github.com/noah-isme/sma-enrollment/pkg/database"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func newSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "enrollment.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.EnsureSchema(context.Background(), db))
	return db
}

func sampleRecords() []models.StudentRecord {
	return []models.StudentRecord{
		{
			StudentID:   "SID-0002",
			FirstName:   "Ana",
			LastName:    "Cruz",
			DateOfBirth: "2008-01-02",
			Gender:      "Female",
			Email:       "ana@x.com",
			Phone:       "0917",
			Guardian:    &models.Guardian{Name: "Rosa Cruz", Phone: "0918", Relation: "Mother"},
			Academic:    &models.Academic{PreviousSchool: "Rizal HS", Strand: "STEM", Semester: "1st", SchoolYear: "2024-2025"},
			Status:      models.StatusApproved,
			SubmittedBy: "staff", SubmittedRole: "staff",
		},
		{
			StudentID:   "SID-0001",
			FirstName:   "Ben",
			LastName:    "Diaz",
			DateOfBirth: "2007-05-06",
			Gender:      "Male",
			Email:       "ben@x.com",
			Phone:       "0919",
			Guardian:    &models.Guardian{},
		},
	}
}

var studentColumns = []string{"student_id", "position", "first_name", "last_name", "date_of_birth", "gender", "email", "phone",
	"guardian_name", "guardian_phone", "guardian_relation", "previous_school", "strand", "semester", "school_year",
	"status", "submitted_by", "submitted_role"}

func TestStudentRepositoryLoadAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db, nil)

	rows := sqlmock.NewRows(studentColumns).
		AddRow("SID-0001", 0, "Ana", "Cruz", "2008-01-02", "Female", "ana@x.com", "0917", "Rosa", "0918", "Mother", nil, nil, nil, nil, "pending", "admin", "admin").
		AddRow("SID-0002", 1, "Ben", "Diaz", "2007-05-06", "Male", "ben@x.com", "0919", nil, nil, nil, "Rizal HS", "STEM", "1st", "2024-2025", "", "staff", "staff")
	mock.ExpectQuery(regexp.QuoteMeta("FROM students ORDER BY position ASC")).WillReturnRows(rows)

	records := repo.LoadAll(context.Background())
	require.Len(t, records, 2)
	assert.Equal(t, "SID-0001", records[0].StudentID)
	require.NotNil(t, records[0].Guardian)
	assert.Equal(t, "Rosa", records[0].Guardian.Name)
	assert.Nil(t, records[0].Academic)
	assert.Nil(t, records[1].Guardian)
	require.NotNil(t, records[1].Academic)
	assert.Equal(t, "STEM", records[1].Academic.Strand)
	assert.Equal(t, models.StatusPending, records[1].EffectiveStatus())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryLoadAllDegradesToEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db, nil)

	mock.ExpectQuery("SELECT student_id").WillReturnError(errors.New("no such table: students"))

	records := repo.LoadAll(context.Background())
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySaveAllReplacesTable(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO students").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveAll(context.Background(), sampleRecords()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySaveAllRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO students").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SaveAll(context.Background(), sampleRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SID-0002")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySQLiteRoundTrip(t *testing.T) {
	repo := NewStudentRepository(newSQLite(t), nil)
	ctx := context.Background()

	assert.Empty(t, repo.LoadAll(ctx))

	records := sampleRecords()
	require.NoError(t, repo.SaveAll(ctx, records))
	assert.Equal(t, records, repo.LoadAll(ctx))

	require.NoError(t, repo.SaveAll(ctx, records[:1]))
	loaded := repo.LoadAll(ctx)
	require.Len(t, loaded, 1)
	assert.Equal(t, "SID-0002", loaded[0].StudentID)

	require.NoError(t, repo.SaveAll(ctx, nil))
	assert.Empty(t, repo.LoadAll(ctx))
}
