package services

import (
	"context"
	"testing"

	"biblio-reserve/internal/adapters/persistence/models"
	"biblio-reserve/internal/adapters/persistence/repositories"
	"biblio-reserve/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthService(db *gorm.DB) *AuthService {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:           "test-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
	}
	return NewAuthService(
		repositories.NewUserRepository(db),
		repositories.NewRefreshTokenRepository(db),
		cfg,
	)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db)
	ctx := context.Background()

	registered, err := svc.Register(ctx, &RegisterInput{
		Name:     "Alice",
		Email:    "alice@test.local",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, registered.AccessToken)
	assert.NotEmpty(t, registered.RefreshToken)

	// Fresh accounts start without permissions
	var user models.User
	require.NoError(t, db.First(&user, registered.User.ID).Error)
	assert.Empty(t, user.Permissions)

	loggedIn, err := svc.Login(ctx, &LoginInput{Email: "alice@test.local", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	_, err = svc.Login(ctx, &LoginInput{Email: "alice@test.local", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginInput{Email: "nobody@test.local", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthRegisterDuplicate(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterInput{Name: "Alice", Email: "alice@test.local", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &RegisterInput{Name: "Other", Email: "alice@test.local", Password: "password456"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestAuthRefreshRotation(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db)
	ctx := context.Background()

	registered, err := svc.Register(ctx, &RegisterInput{Name: "Alice", Email: "alice@test.local", Password: "password123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, registered.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)

	// The old token was revoked by the rotation
	_, err = svc.RefreshToken(ctx, registered.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// The new one still works
	_, err = svc.RefreshToken(ctx, refreshed.RefreshToken)
	require.NoError(t, err)
}

func TestAuthLogout(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db)
	ctx := context.Background()

	registered, err := svc.Register(ctx, &RegisterInput{Name: "Alice", Email: "alice@test.local", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, registered.RefreshToken))

	_, err = svc.RefreshToken(ctx, registered.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthLoginInactiveUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newAuthService(db)
	ctx := context.Background()

	registered, err := svc.Register(ctx, &RegisterInput{Name: "Alice", Email: "alice@test.local", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", registered.User.ID).Update("is_active", false).Error)

	_, err = svc.Login(ctx, &LoginInput{Email: "alice@test.local", Password: "password123"})
	assert.ErrorIs(t, err, ErrUserInactive)
}
