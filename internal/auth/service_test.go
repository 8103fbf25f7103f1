package auth

import (
	"errors"
	"testing"
	"time"

	"tradejournal/internal/apperr"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDuplicateEmailIsCleanValidationError(t *testing.T) {
	err := registerInsertError(&pgconn.PgError{
		Code:    pgUniqueViolation,
		Message: `duplicate key value violates unique constraint "users_email_key"`,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.EqualError(t, err, "email already registered")
}

func TestRegisterInsertErrorPassesThroughOthers(t *testing.T) {
	boom := errors.New("connection reset")
	assert.Equal(t, boom, registerInsertError(boom))

	other := &pgconn.PgError{Code: "23503"}
	assert.Equal(t, error(other), registerInsertError(other))
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService(nil, "tradejournal", []byte("secret"), time.Hour)

	token, err := svc.signToken("user-1")
	require.NoError(t, err)

	userID, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	svc := NewService(nil, "tradejournal", []byte("secret"), time.Hour)
	other := NewService(nil, "tradejournal", []byte("other"), time.Hour)

	token, err := svc.signToken("user-1")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongIssuer(t *testing.T) {
	svc := NewService(nil, "tradejournal", []byte("secret"), time.Hour)
	other := NewService(nil, "someone-else", []byte("secret"), time.Hour)

	token, err := other.signToken("user-1")
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := NewService(nil, "tradejournal", []byte("secret"), -time.Minute)

	token, err := svc.signToken("user-1")
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.Error(t, err)
}
