package services

import (
	"context"
	"testing"
	"time"

	"biblio-reserve/internal/adapters/persistence/models"
	"biblio-reserve/internal/adapters/persistence/repositories"
	"biblio-reserve/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A pooled second connection would see a different in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func newReservationService(db *gorm.DB) *ReservationService {
	return NewReservationService(
		db,
		repositories.NewReservationRepository(db),
		repositories.NewBookRepository(db),
		repositories.NewUserRepository(db),
	)
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{
		Name:     name,
		Email:    name + "@test.local",
		Password: "hashed",
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedBook(t *testing.T, db *gorm.DB, title string) *models.Book {
	t.Helper()
	book := &models.Book{
		Title:       title,
		Author:      "Author",
		IsAvailable: true,
		IsActive:    true,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

func TestReservationCreate(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	book := seedBook(t, db, "Dune")

	reservation, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	assert.Equal(t, user.ID, reservation.UserID)
	assert.Equal(t, "alice", reservation.UserName)
	assert.Equal(t, book.ID, reservation.BookID)
	assert.Equal(t, "Dune", reservation.BookName)
	assert.Nil(t, reservation.ReturnDate)
	assert.True(t, reservation.IsActive)

	// Book is claimed
	var reloaded models.Book
	require.NoError(t, db.First(&reloaded, book.ID).Error)
	assert.False(t, reloaded.IsAvailable)

	// One history entry per owning side
	var snapshots []models.ReservationSnapshot
	require.NoError(t, db.Where("reservation_id = ?", reservation.ID).Find(&snapshots).Error)
	require.Len(t, snapshots, 2)

	kinds := map[string]uint{}
	for _, s := range snapshots {
		kinds[s.OwnerKind] = s.OwnerID
		assert.Equal(t, reservation.UserName, s.UserName)
		assert.Equal(t, reservation.BookName, s.BookName)
		assert.Nil(t, s.ReturnDate)
		assert.True(t, s.IsActive)
	}
	assert.Equal(t, book.ID, kinds[models.OwnerBook])
	assert.Equal(t, user.ID, kinds[models.OwnerUser])
}

func TestReservationCreateBookUnavailable(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	book := seedBook(t, db, "Dune")

	_, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	// Same book again: the claim fails before anything is written
	bob := seedUser(t, db, "bob")
	_, err = svc.Create(ctx, &CreateReservationInput{UserID: bob.ID, BookID: book.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	assert.EqualValues(t, 1, countRows(t, db, &models.Reservation{}))
	assert.EqualValues(t, 2, countRows(t, db, &models.ReservationSnapshot{}))
}

func TestReservationCreateMissingBook(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")

	_, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: 999})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	assert.EqualValues(t, 0, countRows(t, db, &models.Reservation{}))
}

func TestReservationCreateMissingUserRollsBack(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	book := seedBook(t, db, "Dune")

	_, err := svc.Create(ctx, &CreateReservationInput{UserID: 999, BookID: book.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	// The availability claim must roll back with the transaction
	var reloaded models.Book
	require.NoError(t, db.First(&reloaded, book.ID).Error)
	assert.True(t, reloaded.IsAvailable)

	assert.EqualValues(t, 0, countRows(t, db, &models.Reservation{}))
	assert.EqualValues(t, 0, countRows(t, db, &models.ReservationSnapshot{}))
}

func TestReservationCreateInactiveUser(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)
	book := seedBook(t, db, "Dune")

	_, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestReservationReturn(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	book := seedBook(t, db, "Dune")

	created, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	returned, err := svc.Return(ctx, created.ID, false)
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnDate)
	assert.True(t, returned.IsReturned())

	// Book is freed
	var reloaded models.Book
	require.NoError(t, db.First(&reloaded, book.ID).Error)
	assert.True(t, reloaded.IsAvailable)

	// Both history entries carry the return date
	var snapshots []models.ReservationSnapshot
	require.NoError(t, db.Where("reservation_id = ?", created.ID).Find(&snapshots).Error)
	require.Len(t, snapshots, 2)
	for _, s := range snapshots {
		assert.NotNil(t, s.ReturnDate)
	}

	// Book can be reserved again
	_, err = svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)
}

func TestReservationReturnTwice(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	book := seedBook(t, db, "Dune")

	created, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	_, err = svc.Return(ctx, created.ID, false)
	require.NoError(t, err)

	// A second return finds no open loan
	_, err = svc.Return(ctx, created.ID, false)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestReservationReturnUnknown(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)

	_, err := svc.Return(context.Background(), 42, false)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestReservationUpdatePropagatesToHistory(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	book := seedBook(t, db, "Dune")

	created, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	newName := "Alice Smith"
	newDate := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	updated, err := svc.Update(ctx, created.ID, &UpdateReservationInput{
		UserName:        &newName,
		ReservationDate: &newDate,
	}, false)
	require.NoError(t, err)
	assert.Equal(t, newName, updated.UserName)

	var snapshots []models.ReservationSnapshot
	require.NoError(t, db.Where("reservation_id = ?", created.ID).Find(&snapshots).Error)
	require.Len(t, snapshots, 2)
	for _, s := range snapshots {
		assert.Equal(t, newName, s.UserName)
		assert.Equal(t, newDate.Unix(), s.ReservationDate.Unix())
	}
}

func TestReservationUpdateMissingSnapshotsFails(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	book := seedBook(t, db, "Dune")

	created, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	// Break the projection behind the service's back
	require.NoError(t, db.Where("reservation_id = ? AND owner_kind = ?", created.ID, models.OwnerUser).
		Delete(&models.ReservationSnapshot{}).Error)

	newName := "Alice Smith"
	_, err = svc.Update(ctx, created.ID, &UpdateReservationInput{UserName: &newName}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIntegrityFault)

	// The canonical write rolled back with the failed projection write
	var reloaded models.Reservation
	require.NoError(t, db.First(&reloaded, created.ID).Error)
	assert.Equal(t, "alice", reloaded.UserName)
}

func TestReservationUpdateMissingUserFails(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	book := seedBook(t, db, "Dune")

	created, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	// Hard-delete the user so the integrity check trips
	require.NoError(t, db.Unscoped().Delete(&models.User{}, user.ID).Error)

	newName := "ghost"
	_, err = svc.Update(ctx, created.ID, &UpdateReservationInput{UserName: &newName}, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIntegrityFault)
}

func TestReservationSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	book := seedBook(t, db, "Dune")

	created, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	deleted, err := svc.SoftDelete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted.IsActive)

	// Hidden from normal reads, still in storage
	_, err = svc.Get(ctx, created.ID, false)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	kept, err := svc.Get(ctx, created.ID, true)
	require.NoError(t, err)
	assert.Equal(t, created.ID, kept.ID)

	// History entries follow the flag, rows stay
	var snapshots []models.ReservationSnapshot
	require.NoError(t, db.Where("reservation_id = ?", created.ID).Find(&snapshots).Error)
	require.Len(t, snapshots, 2)
	for _, s := range snapshots {
		assert.False(t, s.IsActive)
	}

	// Deleting the record does not return the book
	var reloaded models.Book
	require.NoError(t, db.First(&reloaded, book.ID).Error)
	assert.False(t, reloaded.IsAvailable)
}

func TestReservationSoftDeleteTwice(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	book := seedBook(t, db, "Dune")

	created, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	_, err = svc.SoftDelete(ctx, created.ID)
	require.NoError(t, err)

	_, err = svc.SoftDelete(ctx, created.ID)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestReservationSoftDeleteMissingSnapshotsFails(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	book := seedBook(t, db, "Dune")

	created, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	// Break the projection behind the service's back
	require.NoError(t, db.Where("reservation_id = ? AND owner_kind = ?", created.ID, models.OwnerBook).
		Delete(&models.ReservationSnapshot{}).Error)

	_, err = svc.SoftDelete(ctx, created.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIntegrityFault)

	// The deactivation rolled back, the record is still readable
	kept, err := svc.Get(ctx, created.ID, false)
	require.NoError(t, err)
	assert.True(t, kept.IsActive)
}

func TestReservationList(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	book1 := seedBook(t, db, "Dune")
	book2 := seedBook(t, db, "Hyperion")

	r1, err := svc.Create(ctx, &CreateReservationInput{UserID: alice.ID, BookID: book1.ID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &CreateReservationInput{UserID: bob.ID, BookID: book2.ID})
	require.NoError(t, err)

	_, err = svc.Return(ctx, r1.ID, false)
	require.NoError(t, err)

	all, err := svc.List(ctx, &ListReservationsInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)

	open := true
	openOnly, err := svc.List(ctx, &ListReservationsInput{Open: &open})
	require.NoError(t, err)
	assert.EqualValues(t, 1, openOnly.Total)

	byUser, err := svc.List(ctx, &ListReservationsInput{UserID: &alice.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, byUser.Total)
	assert.Equal(t, alice.ID, byUser.Reservations[0].UserID)
}

func TestReservationListPagination(t *testing.T) {
	db := setupTestDB(t)
	svc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	for i := 0; i < 5; i++ {
		book := seedBook(t, db, "Book")
		_, err := svc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, &ListReservationsInput{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	assert.Len(t, page.Reservations, 2)
	assert.Equal(t, 3, page.TotalPages)
}
