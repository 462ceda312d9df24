package services

import (
	"context"
	"testing"

	"biblio-reserve/internal/adapters/persistence/models"
	"biblio-reserve/internal/adapters/persistence/repositories"
	"biblio-reserve/internal/core/domain"
	"biblio-reserve/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserService(db *gorm.DB) *UserService {
	return NewUserService(
		repositories.NewUserRepository(db),
		repositories.NewReservationRepository(db),
	)
}

func TestUserCreate(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateUserInput{
		Name:        "Alice",
		Email:       "alice@test.local",
		Password:    "password123",
		Permissions: []string{domain.PermReadReservations},
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", created.Name)

	// Credential is stored hashed
	var user models.User
	require.NoError(t, db.First(&user, created.ID).Error)
	assert.NotEqual(t, "password123", user.Password)
	assert.True(t, password.Verify("password123", user.Password))
	assert.True(t, user.Permissions.Has(domain.PermReadReservations))
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)
	ctx := context.Background()

	_, err := svc.Create(ctx, &CreateUserInput{Name: "Alice", Email: "alice@test.local", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, &CreateUserInput{Name: "Other", Email: "alice@test.local", Password: "password456"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestUserCreateWeakPassword(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)

	_, err := svc.Create(context.Background(), &CreateUserInput{Name: "Alice", Email: "a@test.local", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestUserGetWithHistory(t *testing.T) {
	db := setupTestDB(t)
	userSvc := newUserService(db)
	reservationSvc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	book := seedBook(t, db, "Dune")

	created, err := reservationSvc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	got, err := userSvc.Get(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, got.ReservationHistory, 1)
	assert.Equal(t, created.ID, got.ReservationHistory[0].ID)
	assert.Equal(t, "Dune", got.ReservationHistory[0].BookName)
}

func TestUserUpdate(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")

	newName := "Alice Smith"
	updated, err := svc.Update(ctx, user.ID, &UpdateUserInput{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)

	// Updating to a taken email conflicts
	seedUser(t, db, "bob")
	takenEmail := "bob@test.local"
	_, err = svc.Update(ctx, user.ID, &UpdateUserInput{Email: &takenEmail})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)
}

func TestUserSetPermissions(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")

	_, err := svc.SetPermissions(ctx, user.ID, []string{domain.PermCreateBooks, domain.PermDeleteBooks})
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.True(t, reloaded.Permissions.Has(domain.PermCreateBooks))
	assert.False(t, reloaded.Permissions.Has(domain.PermReadUsers))
}

func TestUserSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	admin := seedUser(t, db, "admin")

	// Self-delete is blocked
	assert.ErrorIs(t, svc.SoftDelete(ctx, user.ID, user.ID), ErrCannotDeleteSelf)

	require.NoError(t, svc.SoftDelete(ctx, user.ID, admin.ID))

	_, err := svc.Get(ctx, user.ID, false)
	assert.ErrorIs(t, err, ErrUserNotFoundSvc)

	// Row stays in storage
	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.False(t, reloaded.IsActive)
}

func TestUserChangePassword(t *testing.T) {
	db := setupTestDB(t)
	svc := newUserService(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateUserInput{Name: "Alice", Email: "alice@test.local", Password: "password123"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, created.ID, &ChangePasswordInput{
		OldPassword: "wrong",
		NewPassword: "newpassword123",
	})
	assert.ErrorIs(t, err, ErrOldPasswordWrong)

	err = svc.ChangePassword(ctx, created.ID, &ChangePasswordInput{
		OldPassword: "password123",
		NewPassword: "newpassword123",
	})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.First(&user, created.ID).Error)
	assert.True(t, password.Verify("newpassword123", user.Password))
}
