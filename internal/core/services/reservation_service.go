package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"biblio-reserve/internal/adapters/persistence/models"
	"biblio-reserve/internal/adapters/persistence/repositories"
	"biblio-reserve/internal/core/domain"

	"gorm.io/gorm"
)

// Reservation service errors
var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrBookNotAvailable    = fmt.Errorf("%w: book not found or not available", domain.ErrPreconditionFailed)
	ErrUserNotEligible     = fmt.Errorf("%w: user not found or inactive", domain.ErrPreconditionFailed)
	ErrBookRecordMissing   = fmt.Errorf("%w: associated book not found", domain.ErrIntegrityFault)
	ErrUserRecordMissing   = fmt.Errorf("%w: associated user not found", domain.ErrIntegrityFault)
	ErrProjectionLost      = fmt.Errorf("%w: reservation history entries missing", domain.ErrIntegrityFault)
)

// snapshotCount is the number of history entries kept per reservation:
// one in the book's history, one in the user's.
const snapshotCount = 2

// ReservationService orchestrates the loan lifecycle. Every mutation runs the
// canonical reservation write and both history writes inside one database
// transaction; a failure anywhere aborts the whole unit.
type ReservationService struct {
	db              *gorm.DB
	reservationRepo *repositories.ReservationRepository
	bookRepo        *repositories.BookRepository
	userRepo        repositories.UserRepository
}

// NewReservationService creates a new reservation service
func NewReservationService(
	db *gorm.DB,
	reservationRepo *repositories.ReservationRepository,
	bookRepo *repositories.BookRepository,
	userRepo repositories.UserRepository,
) *ReservationService {
	return &ReservationService{
		db:              db,
		reservationRepo: reservationRepo,
		bookRepo:        bookRepo,
		userRepo:        userRepo,
	}
}

// CreateReservationInput represents create reservation input
type CreateReservationInput struct {
	UserID uint `json:"user_id"`
	BookID uint `json:"book_id" validate:"required"`
}

// Create loans a book to a user. The availability flip is a conditional
// update, so two concurrent creates against the same book cannot both
// succeed: the second sees zero affected rows and fails the precondition.
func (s *ReservationService) Create(ctx context.Context, input *CreateReservationInput) (*models.Reservation, error) {
	var reservation *models.Reservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := s.bookRepo.WithTx(tx)
		users := s.userRepo.WithTx(tx)
		reservations := s.reservationRepo.WithTx(tx)

		claimed, err := books.Reserve(ctx, input.BookID)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrBookNotAvailable
		}

		book, err := books.GetByID(ctx, input.BookID, false)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookRecordMissing
			}
			return err
		}

		user, err := users.GetByID(ctx, input.UserID, false)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotEligible
			}
			return err
		}

		reservation = &models.Reservation{
			UserID:          user.ID,
			UserName:        user.Name,
			BookID:          book.ID,
			BookName:        book.Title,
			ReservationDate: time.Now(),
			IsActive:        true,
		}

		if err := reservations.Create(ctx, reservation); err != nil {
			return err
		}

		return reservations.InsertSnapshots(ctx, reservation)
	})
	if err != nil {
		return nil, err
	}

	return reservation, nil
}

// Get gets a reservation by ID
func (s *ReservationService) Get(ctx context.Context, id uint, includeInactive bool) (*models.Reservation, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, id, includeInactive)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return reservation, nil
}

// ListReservationsInput represents list input
type ListReservationsInput struct {
	Page            int
	Limit           int
	UserID          *uint
	BookID          *uint
	Open            *bool
	IncludeInactive bool
}

// ListReservationsOutput represents list output
type ListReservationsOutput struct {
	Reservations []*models.ReservationResponse `json:"reservations"`
	Total        int64                         `json:"total"`
	Page         int                           `json:"page"`
	Limit        int                           `json:"limit"`
	TotalPages   int                           `json:"total_pages"`
}

// List lists reservations
func (s *ReservationService) List(ctx context.Context, input *ListReservationsInput) (*ListReservationsOutput, error) {
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
	filter := &repositories.ReservationFilter{
		UserID: input.UserID,
		BookID: input.BookID,
		Open:   input.Open,
	}

	reservations, total, err := s.reservationRepo.List(ctx, filter, input.IncludeInactive, offset, input.Limit)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.ReservationResponse, len(reservations))
	for i, reservation := range reservations {
		responses[i] = reservation.ToResponse()
	}

	totalPages := int(total) / input.Limit
	if int(total)%input.Limit > 0 {
		totalPages++
	}

	return &ListReservationsOutput{
		Reservations: responses,
		Total:        total,
		Page:         input.Page,
		Limit:        input.Limit,
		TotalPages:   totalPages,
	}, nil
}

// UpdateReservationInput represents a field patch on the canonical record.
// returnDate and isActive have dedicated transitions and cannot be patched.
type UpdateReservationInput struct {
	UserName        *string    `json:"user_name"`
	BookName        *string    `json:"book_name"`
	ReservationDate *time.Time `json:"reservation_date"`
}

// Update patches the canonical reservation and overwrites both history
// entries with the updated record
func (s *ReservationService) Update(ctx context.Context, id uint, input *UpdateReservationInput, includeInactive bool) (*models.Reservation, error) {
	var reservation *models.Reservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservations := s.reservationRepo.WithTx(tx)
		books := s.bookRepo.WithTx(tx)
		users := s.userRepo.WithTx(tx)

		res, err := reservations.GetByID(ctx, id, includeInactive)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}

		if input.UserName != nil {
			res.UserName = *input.UserName
		}
		if input.BookName != nil {
			res.BookName = *input.BookName
		}
		if input.ReservationDate != nil {
			res.ReservationDate = *input.ReservationDate
		}

		if err := reservations.Save(ctx, res); err != nil {
			return err
		}

		// The projection write must land on aggregates that still exist
		if exists, err := books.ExistsByID(ctx, res.BookID); err != nil {
			return err
		} else if !exists {
			return ErrBookRecordMissing
		}
		if exists, err := users.ExistsByID(ctx, res.UserID); err != nil {
			return err
		} else if !exists {
			return ErrUserRecordMissing
		}

		affected, err := reservations.ReplaceSnapshots(ctx, res)
		if err != nil {
			return err
		}
		if affected < snapshotCount {
			return ErrProjectionLost
		}

		reservation = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reservation, nil
}

// Return closes an open loan: stamps the return date, frees the book and
// patches the date into both history entries. A reservation that is unknown
// or already returned yields not-found, not a fault.
func (s *ReservationService) Return(ctx context.Context, id uint, includeInactive bool) (*models.Reservation, error) {
	var reservation *models.Reservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservations := s.reservationRepo.WithTx(tx)
		books := s.bookRepo.WithTx(tx)
		users := s.userRepo.WithTx(tx)

		res, err := reservations.FindOpen(ctx, id, includeInactive)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}

		returnedAt := time.Now()

		affected, err := reservations.MarkReturned(ctx, res.ID, returnedAt)
		if err != nil {
			return err
		}
		if affected == 0 {
			// Lost the race to a concurrent return
			return ErrReservationNotFound
		}

		released, err := books.Release(ctx, res.BookID)
		if err != nil {
			return err
		}
		if !released {
			return ErrBookRecordMissing
		}

		if exists, err := users.ExistsByID(ctx, res.UserID); err != nil {
			return err
		} else if !exists {
			return ErrUserRecordMissing
		}

		snapAffected, err := reservations.SetSnapshotReturnDate(ctx, res.ID, returnedAt)
		if err != nil {
			return err
		}
		if snapAffected < snapshotCount {
			return ErrProjectionLost
		}

		res.ReturnDate = &returnedAt
		reservation = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reservation, nil
}

// SoftDelete marks a reservation and its history entries inactive. The rows
// stay in storage; read paths filter them out. Deletion does not return the
// book: availability and deletion are independent transitions.
func (s *ReservationService) SoftDelete(ctx context.Context, id uint) (*models.Reservation, error) {
	var reservation *models.Reservation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reservations := s.reservationRepo.WithTx(tx)

		affected, err := reservations.SoftDelete(ctx, id)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrReservationNotFound
		}

		snapAffected, err := reservations.DeactivateSnapshots(ctx, id)
		if err != nil {
			return err
		}
		if snapAffected < snapshotCount {
			return ErrProjectionLost
		}

		res, err := reservations.GetByID(ctx, id, true)
		if err != nil {
			return err
		}

		reservation = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reservation, nil
}
