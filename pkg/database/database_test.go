package database

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

func TestOpenPostgres_UsesExistingConnection(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := OpenPostgres(postgres.New(postgres.Config{Conn: sqlDB}))
	require.NoError(t, err)

	mock.ExpectClose()
	p := &Postgres{DB: db}
	require.NoError(t, p.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPostgres_BadURL(t *testing.T) {
	_, err := NewPostgres("postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1", nil)
	assert.Error(t, err)
}
