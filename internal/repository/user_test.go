package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"fedisync/pkg/log"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	conf := viper.New()
	conf.Set("log.log_level", "error")
	conf.Set("log.log_file_name", "/tmp/fedisync-test.log")
	return NewRepository(gdb, nil, log.NewLog(conf)), mock
}

func TestUserGetByUsernameAndHostNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	userRepo := NewUserRepository(repo)

	mock.ExpectQuery("SELECT \\* FROM `user`").
		WithArgs("alice", "lemmy.example.org", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "host"}))

	user, err := userRepo.GetByUsernameAndHost(context.Background(), "alice", "lemmy.example.org")
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByUsernameAndHostFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	userRepo := NewUserRepository(repo)

	mock.ExpectQuery("SELECT \\* FROM `user`").
		WithArgs("alice", "lemmy.example.org", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "host"}).
			AddRow(7, "alice", "lemmy.example.org"))

	user, err := userRepo.GetByUsernameAndHost(context.Background(), "alice", "lemmy.example.org")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "lemmy.example.org", user.Host)
	assert.NoError(t, mock.ExpectationsWereMet())
}
