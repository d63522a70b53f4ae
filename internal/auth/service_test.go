package auth

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/2beens/liftlog/internal/users"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	testUsername = "testuser"
	testEmail    = "testuser@example.com"
	testPassword = "testpass"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func newTestUsersStore(t *testing.T) *users.Store {
	t.Helper()
	usersStore, err := users.NewStore(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)
	_, err = usersStore.Register(testUsername, testEmail, testPassword)
	require.NoError(t, err)
	return usersStore
}

func TestService_Register(t *testing.T) {
	db, _ := redismock.NewClientMock()
	defer db.Close()

	usersStore, err := users.NewStore(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)

	authService := NewService(usersStore, time.Hour, db)
	require.NotNil(t, authService)

	err = authService.Register(testUsername, testEmail, testPassword, "other-pass")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Zero(t, usersStore.Count())

	require.NoError(t, authService.Register(testUsername, testEmail, testPassword, testPassword))
	assert.Equal(t, 1, usersStore.Count())

	err = authService.Register(testUsername, "other@example.com", testPassword, testPassword)
	assert.ErrorIs(t, err, users.ErrUsernameTaken)
}

func TestService_Login(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(newTestUsersStore(t), time.Hour, db)
	require.NotNil(t, authService)
	assert.Equal(t, time.Hour, authService.ttl)

	testToken := "test_token"
	authService.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	now := time.Now()
	mock.ExpectSet(SessionKey(testToken), now.Unix(), 0).SetVal(fmt.Sprintf("%d", now.Unix()))
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	session, err := authService.Login(context.Background(), testUsername, testPassword, now)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, testToken, session.Token)
	assert.Equal(t, testUsername, session.Username)
	assert.Equal(t, testEmail, session.Email)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Login_byEmail(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(newTestUsersStore(t), time.Hour, db)

	testToken := "test_token"
	authService.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	now := time.Now()
	mock.ExpectSet(SessionKey(testToken), now.Unix(), 0).SetVal(fmt.Sprintf("%d", now.Unix()))
	mock.ExpectSAdd(tokensSetKey, testToken).SetVal(1)

	session, err := authService.Login(context.Background(), testEmail, testPassword, now)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, testUsername, session.Username)
}

func TestService_Login_failures(t *testing.T) {
	db, _ := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(newTestUsersStore(t), time.Hour, db)

	session, err := authService.Login(context.Background(), "unknown-user", testPassword, time.Now())
	assert.Nil(t, session)
	assert.ErrorIs(t, err, users.ErrUserNotFound)

	session, err = authService.Login(context.Background(), testUsername, "invalid_pass", time.Now())
	assert.Nil(t, session)
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestService_Logout(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(newTestUsersStore(t), time.Hour, db)

	testToken := "test_token"
	createdAt := time.Now()

	mock.ExpectGet(SessionKey(testToken)).SetVal(fmt.Sprintf("%d", createdAt.Unix()))
	mock.ExpectSet(SessionKey(testToken), 0, 0).SetVal("0")
	mock.ExpectSRem(tokensSetKey, testToken).SetVal(1)

	loggedOut, err := authService.Logout(context.Background(), testToken)
	require.NoError(t, err)
	assert.True(t, loggedOut)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_ScanAndClean(t *testing.T) {
	ttl := time.Hour
	now := time.Now()
	then := now.Add(-2 * time.Hour)

	db, mock := redismock.NewClientMock()
	defer db.Close()

	authService := NewService(newTestUsersStore(t), ttl, db)
	require.NotNil(t, authService)

	t1, t2 := "token1", "token2"
	mock.ExpectSMembers(tokensSetKey).SetVal([]string{t1, t2})
	mock.ExpectGet(SessionKey(t1)).SetVal(fmt.Sprintf("%d", then.Unix()))
	mock.ExpectGet(SessionKey(t2)).SetVal(fmt.Sprintf("%d", now.Unix()))
	// only t1 is past its ttl and gets cleaned
	mock.ExpectDel(SessionKey(t1)).SetVal(1)
	mock.ExpectSRem(tokensSetKey, t1).SetVal(1)

	authService.ScanAndClean(context.Background())

	assert.NoError(t, mock.ExpectationsWereMet())
}
