package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/vitacoach/coach-backend/internal/config"
	"github.com/vitacoach/coach-backend/internal/store"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAuthFixture(t *testing.T) (*AuthService, sqlmock.Sqlmock, *store.Memory) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	st := store.NewMemory()
	cfg := &config.Config{JWTSecret: "test-secret", JWTAccessExpiry: time.Hour}
	return NewAuthService(gdb, st, cfg), mock, st
}

func TestRegisterCreatesCredentialAndProfile(t *testing.T) {
	svc, mock, st := newAuthFixture(t)

	// email uniqueness probe finds nothing
	mock.ExpectQuery(".*").WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	// gorm wraps the insert in its default transaction
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO \"credentials\"").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	userID, token, err := svc.Register("a@b.com", "longenough", "Ada", "")
	require.NoError(t, err)
	require.NotEmpty(t, userID)
	require.NotEmpty(t, token)

	profile, err := st.GetUser(userID)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", profile["email"])
	require.Equal(t, "Ada", profile["display_name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, _, err := svc.Register("a@b.com", "short", "", "")
	require.Error(t, err)
}

func TestLoginVerifiesPassword(t *testing.T) {
	svc, mock, st := newAuthFixture(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"user_id", "email", "password_hash"}).
		AddRow("u1", "a@b.com", string(hash))
	mock.ExpectQuery(".*").WillReturnRows(rows)

	userID, token, err := svc.Login("a@b.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "u1", userID)
	require.NotEmpty(t, token)

	// login stamps the profile
	profile, err := st.GetUser("u1")
	require.NoError(t, err)
	require.Contains(t, profile, "last_login")
}

func TestLoginWrongPassword(t *testing.T) {
	svc, mock, _ := newAuthFixture(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"user_id", "email", "password_hash"}).
		AddRow("u1", "a@b.com", string(hash))
	mock.ExpectQuery(".*").WillReturnRows(rows)

	_, _, err = svc.Login("a@b.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, mock, _ := newAuthFixture(t)

	mock.ExpectQuery(".*").WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, _, err := svc.Login("nobody@b.com", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGenerateTokenRoundTrip(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	signed, err := svc.GenerateToken("u1")
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	require.Equal(t, "u1", claims["sub"])
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))
}
