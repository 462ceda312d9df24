package services

import (
	"context"
	"errors"
	"time"

	"biblio-reserve/internal/adapters/persistence/models"
	"biblio-reserve/internal/adapters/persistence/repositories"

	"gorm.io/gorm"
)

// Book service errors
var (
	ErrBookNotFound = errors.New("book not found")
)

// BookService handles catalog business logic
type BookService struct {
	bookRepo        *repositories.BookRepository
	reservationRepo *repositories.ReservationRepository
}

// NewBookService creates a new book service
func NewBookService(bookRepo *repositories.BookRepository, reservationRepo *repositories.ReservationRepository) *BookService {
	return &BookService{
		bookRepo:        bookRepo,
		reservationRepo: reservationRepo,
	}
}

// CreateBookInput represents create book input
type CreateBookInput struct {
	Title       string    `json:"title" validate:"required"`
	Author      string    `json:"author" validate:"required"`
	Genre       string    `json:"genre,omitempty"`
	PublishDate time.Time `json:"publish_date"`
	Publisher   string    `json:"publisher,omitempty"`
}

// Create creates a new book, available and active
func (s *BookService) Create(ctx context.Context, input *CreateBookInput) (*models.BookResponse, error) {
	book := &models.Book{
		Title:       input.Title,
		Author:      input.Author,
		Genre:       input.Genre,
		PublishDate: input.PublishDate,
		Publisher:   input.Publisher,
		IsAvailable: true,
		IsActive:    true,
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	return book.ToResponse(), nil
}

// Get gets a book by ID with its reservation history attached
func (s *BookService) Get(ctx context.Context, id uint, includeInactive bool) (*models.BookResponse, error) {
	book, err := s.bookRepo.GetByID(ctx, id, includeInactive)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	response := book.ToResponse()
	if err := s.attachHistory(ctx, response); err != nil {
		return nil, err
	}
	return response, nil
}

// ListBooksInput represents list input
type ListBooksInput struct {
	Page            int
	Limit           int
	Title           string
	Author          string
	Genre           string
	IncludeInactive bool
}

// ListBooksOutput represents list output
type ListBooksOutput struct {
	Books      []*models.BookResponse `json:"books"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}

// List lists books
func (s *BookService) List(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.Limit < 1 {
		input.Limit = 10
	}
	if input.Limit > 100 {
		input.Limit = 100
	}

	offset := (input.Page - 1) * input.Limit
	filter := &repositories.BookFilter{
		Title:  input.Title,
		Author: input.Author,
		Genre:  input.Genre,
	}

	books, total, err := s.bookRepo.List(ctx, filter, input.IncludeInactive, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.BookResponse, len(books))
	for i, book := range books {
		responses[i] = book.ToResponse()
		if err := s.attachHistory(ctx, responses[i]); err != nil {
			return nil, err
		}
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &ListBooksOutput{
		Books:      responses,
		Total:      total,
		Page:       input.Page,
		Limit:      input.Limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateBookInput represents update book input
type UpdateBookInput struct {
	Title       *string    `json:"title"`
	Author      *string    `json:"author"`
	Genre       *string    `json:"genre"`
	PublishDate *time.Time `json:"publish_date"`
	Publisher   *string    `json:"publisher"`
}

// Update updates an active book's catalog fields. Availability is owned by
// the reservation lifecycle and cannot be set here.
func (s *BookService) Update(ctx context.Context, id uint, input *UpdateBookInput) (*models.BookResponse, error) {
	book, err := s.bookRepo.GetByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Author != nil {
		book.Author = *input.Author
	}
	if input.Genre != nil {
		book.Genre = *input.Genre
	}
	if input.PublishDate != nil {
		book.PublishDate = *input.PublishDate
	}
	if input.Publisher != nil {
		book.Publisher = *input.Publisher
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, err
	}

	response := book.ToResponse()
	if err := s.attachHistory(ctx, response); err != nil {
		return nil, err
	}
	return response, nil
}

// SoftDelete marks an active book inactive
func (s *BookService) SoftDelete(ctx context.Context, id uint) error {
	affected, err := s.bookRepo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// attachHistory loads the book's active history entries into the response
func (s *BookService) attachHistory(ctx context.Context, response *models.BookResponse) error {
	snapshots, err := s.reservationRepo.HistoryByOwner(ctx, models.OwnerBook, response.ID)
	if err != nil {
		return err
	}

	for _, snapshot := range snapshots {
		response.ReservationHistory = append(response.ReservationHistory, snapshot.ToResponse())
	}
	return nil
}
