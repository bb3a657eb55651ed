package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/studyhub-api/internal/models"
)

func newCollegeMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCollegeRepositoryListOrderedByName(t *testing.T) {
	db, mock, cleanup := newCollegeMock(t)
	defer cleanup()
	repo := NewCollegeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "location", "departments", "created_at"}).
		AddRow("c1", "Central College", "Boston, MA", pq.StringArray{"Physics", "Mathematics"}, time.Now()).
		AddRow("c2", "Tech University", "New York, NY", pq.StringArray{"Computer Science"}, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, location, departments, created_at FROM colleges WHERE 1=1 ORDER BY name ASC")).
		WillReturnRows(rows)

	colleges, err := repo.List(context.Background(), models.CollegeFilter{})
	require.NoError(t, err)
	require.Len(t, colleges, 2)
	assert.Equal(t, "Central College", colleges[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollegeRepositoryFindByNameMiss(t *testing.T) {
	db, mock, cleanup := newCollegeMock(t)
	defer cleanup()
	repo := NewCollegeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, location, departments, created_at FROM colleges WHERE name = $1 LIMIT 1")).
		WithArgs("Unknown College").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByName(context.Background(), "Unknown College")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
