package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/users"
	pkgauth "github.com/forkline/forkline-backend/pkg/auth"
	"github.com/forkline/forkline-backend/pkg/config"
	"github.com/forkline/forkline-backend/pkg/db/models"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/security"
)

type stubUsersRepo struct {
	byEmail map[string]*models.User
}

func (s *stubUsersRepo) WithTx(tx *gorm.DB) users.Repository { return s }

func (s *stubUsersRepo) Create(ctx context.Context, user *models.User) error { return nil }

func (s *stubUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

var testJWT = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "forkline-test",
	ExpirationMinutes: 30,
}

func newAuthFixture(t *testing.T) (Service, *models.User) {
	t.Helper()

	hash, err := security.HashPassword("correct horse battery", config.PasswordConfig{})
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Email:        "casey@example.com",
		DisplayName:  "Casey",
		PasswordHash: hash,
	}
	svc, err := NewService(&stubUsersRepo{byEmail: map[string]*models.User{user.Email: user}}, testJWT)
	require.NoError(t, err)
	return svc, user
}

func TestLoginIssuesParseableToken(t *testing.T) {
	svc, user := newAuthFixture(t)

	result, err := svc.Login(context.Background(), LoginRequest{
		Email:    "casey@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.UserID)
	assert.Equal(t, "Casey", result.DisplayName)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), result.ExpiresAt, 5*time.Second)

	claims, err := pkgauth.ParseAccessToken(testJWT, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "casey@example.com",
		Password: "not the password",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLoginUnknownEmailLooksLikeWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct horse battery",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLoginValidation(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "casey@example.com"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Login(context.Background(), LoginRequest{Password: "correct horse battery"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
