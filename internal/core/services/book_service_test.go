package services

import (
	"context"
	"testing"
	"time"

	"biblio-reserve/internal/adapters/persistence/models"
	"biblio-reserve/internal/adapters/persistence/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newBookService(db *gorm.DB) *BookService {
	return NewBookService(
		repositories.NewBookRepository(db),
		repositories.NewReservationRepository(db),
	)
}

func TestBookCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	svc := newBookService(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateBookInput{
		Title:       "Dune",
		Author:      "Frank Herbert",
		Genre:       "Science Fiction",
		PublishDate: time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC),
		Publisher:   "Chilton Books",
	})
	require.NoError(t, err)
	assert.True(t, created.IsAvailable)

	got, err := svc.Get(ctx, created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, "Frank Herbert", got.Author)
	assert.Empty(t, got.ReservationHistory)
}

func TestBookGetNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := newBookService(db)

	_, err := svc.Get(context.Background(), 42, false)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestBookGetWithHistory(t *testing.T) {
	db := setupTestDB(t)
	bookSvc := newBookService(db)
	reservationSvc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	book := seedBook(t, db, "Dune")

	created, err := reservationSvc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: book.ID})
	require.NoError(t, err)

	got, err := bookSvc.Get(ctx, book.ID, false)
	require.NoError(t, err)
	require.Len(t, got.ReservationHistory, 1)
	assert.Equal(t, created.ID, got.ReservationHistory[0].ID)
	assert.Equal(t, "alice", got.ReservationHistory[0].UserName)

	// Soft-deleted reservations drop out of the history
	_, err = reservationSvc.SoftDelete(ctx, created.ID)
	require.NoError(t, err)

	got, err = bookSvc.Get(ctx, book.ID, false)
	require.NoError(t, err)
	assert.Empty(t, got.ReservationHistory)
}

func TestBookList(t *testing.T) {
	db := setupTestDB(t)
	svc := newBookService(db)
	ctx := context.Background()

	for _, title := range []string{"Dune", "Dune Messiah", "Hyperion"} {
		_, err := svc.Create(ctx, &CreateBookInput{Title: title, Author: "Author"})
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, &ListBooksInput{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)

	filtered, err := svc.List(ctx, &ListBooksInput{Title: "Dune"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, filtered.Total)
}

func TestBookUpdate(t *testing.T) {
	db := setupTestDB(t)
	svc := newBookService(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateBookInput{Title: "Dune", Author: "Author"})
	require.NoError(t, err)

	newTitle := "Dune (Revised)"
	updated, err := svc.Update(ctx, created.ID, &UpdateBookInput{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)
	assert.Equal(t, "Author", updated.Author)
}

func TestBookSoftDelete(t *testing.T) {
	db := setupTestDB(t)
	svc := newBookService(db)
	ctx := context.Background()

	created, err := svc.Create(ctx, &CreateBookInput{Title: "Dune", Author: "Author"})
	require.NoError(t, err)

	require.NoError(t, svc.SoftDelete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID, false)
	assert.ErrorIs(t, err, ErrBookNotFound)

	// Row stays in storage
	var book models.Book
	require.NoError(t, db.First(&book, created.ID).Error)
	assert.False(t, book.IsActive)

	// Deleting twice is a not-found
	assert.ErrorIs(t, svc.SoftDelete(ctx, created.ID), ErrBookNotFound)
}

func TestBookSoftDeleteBlocksReservation(t *testing.T) {
	db := setupTestDB(t)
	bookSvc := newBookService(db)
	reservationSvc := newReservationService(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	created, err := bookSvc.Create(ctx, &CreateBookInput{Title: "Dune", Author: "Author"})
	require.NoError(t, err)

	require.NoError(t, bookSvc.SoftDelete(ctx, created.ID))

	_, err = reservationSvc.Create(ctx, &CreateReservationInput{UserID: user.ID, BookID: created.ID})
	assert.ErrorIs(t, err, ErrBookNotAvailable)
}
