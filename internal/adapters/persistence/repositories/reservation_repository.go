package repositories

import (
	"context"
	"time"

	"biblio-reserve/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// ReservationRepository handles reservation data access: the canonical
// reservations table and the per-aggregate snapshot projection.
type ReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// WithTx returns a copy bound to the given transaction handle
func (r *ReservationRepository) WithTx(tx *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: tx}
}

// Create creates a new reservation
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

// GetByID gets a reservation by ID; soft-deleted ones are excluded unless requested
func (r *ReservationRepository) GetByID(ctx context.Context, id uint, includeInactive bool) (*models.Reservation, error) {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var reservation models.Reservation
	if err := query.First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// FindOpen finds the open (not yet returned) reservation with the given ID
func (r *ReservationRepository) FindOpen(ctx context.Context, id uint, includeInactive bool) (*models.Reservation, error) {
	query := r.db.WithContext(ctx).Where("id = ? AND return_date IS NULL", id)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var reservation models.Reservation
	if err := query.First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ReservationFilter represents list filter criteria
type ReservationFilter struct {
	UserID *uint
	BookID *uint
	Open   *bool // true: return_date IS NULL, false: return_date set
}

// List lists reservations with pagination
func (r *ReservationRepository) List(ctx context.Context, filter *ReservationFilter, includeInactive bool, offset, limit int) ([]*models.Reservation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Reservation{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter != nil {
		if filter.UserID != nil {
			query = query.Where("user_id = ?", *filter.UserID)
		}
		if filter.BookID != nil {
			query = query.Where("book_id = ?", *filter.BookID)
		}
		if filter.Open != nil {
			if *filter.Open {
				query = query.Where("return_date IS NULL")
			} else {
				query = query.Where("return_date IS NOT NULL")
			}
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reservations []*models.Reservation
	if err := query.Order("reservation_date ASC").Offset(offset).Limit(limit).Find(&reservations).Error; err != nil {
		return nil, 0, err
	}

	return reservations, total, nil
}

// Save persists the full reservation record
func (r *ReservationRepository) Save(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Save(reservation).Error
}

// MarkReturned stamps the return date on an open reservation. The
// return_date IS NULL condition makes a second return a no-op: the loser of a
// concurrent race sees zero affected rows.
func (r *ReservationRepository) MarkReturned(ctx context.Context, id uint, returnedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND return_date IS NULL", id).
		Update("return_date", returnedAt)
	return result.RowsAffected, result.Error
}

// SoftDelete marks an active reservation inactive. The flag is one-way; zero
// affected rows means the reservation was missing or already deleted.
func (r *ReservationRepository) SoftDelete(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

// ============================================================
// Snapshot projection
// ============================================================

// InsertSnapshots appends the reservation to both owning histories
func (r *ReservationRepository) InsertSnapshots(ctx context.Context, reservation *models.Reservation) error {
	snapshots := []*models.ReservationSnapshot{
		snapshotFor(models.OwnerBook, reservation.BookID, reservation),
		snapshotFor(models.OwnerUser, reservation.UserID, reservation),
	}
	return r.db.WithContext(ctx).Create(&snapshots).Error
}

func snapshotFor(kind string, ownerID uint, reservation *models.Reservation) *models.ReservationSnapshot {
	return &models.ReservationSnapshot{
		OwnerKind:       kind,
		OwnerID:         ownerID,
		ReservationID:   reservation.ID,
		UserID:          reservation.UserID,
		UserName:        reservation.UserName,
		BookID:          reservation.BookID,
		BookName:        reservation.BookName,
		ReservationDate: reservation.ReservationDate,
		ReturnDate:      reservation.ReturnDate,
		IsActive:        reservation.IsActive,
	}
}

// SetSnapshotReturnDate patches the return date into both history entries,
// leaving every other field untouched
func (r *ReservationRepository) SetSnapshotReturnDate(ctx context.Context, reservationID uint, returnedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReservationSnapshot{}).
		Where("reservation_id = ?", reservationID).
		Update("return_date", returnedAt)
	return result.RowsAffected, result.Error
}

// ReplaceSnapshots overwrites both history entries with the reservation's
// current canonical fields
func (r *ReservationRepository) ReplaceSnapshots(ctx context.Context, reservation *models.Reservation) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReservationSnapshot{}).
		Where("reservation_id = ?", reservation.ID).
		Updates(map[string]interface{}{
			"user_id":          reservation.UserID,
			"user_name":        reservation.UserName,
			"book_id":          reservation.BookID,
			"book_name":        reservation.BookName,
			"reservation_date": reservation.ReservationDate,
			"return_date":      reservation.ReturnDate,
			"is_active":        reservation.IsActive,
		})
	return result.RowsAffected, result.Error
}

// DeactivateSnapshots marks both history entries inactive. The rows stay in
// storage for audit; read paths filter them out.
func (r *ReservationRepository) DeactivateSnapshots(ctx context.Context, reservationID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReservationSnapshot{}).
		Where("reservation_id = ?", reservationID).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

// HistoryByOwner returns the active history entries for a book or user,
// oldest first. Soft-deleted entries never appear.
func (r *ReservationRepository) HistoryByOwner(ctx context.Context, ownerKind string, ownerID uint) ([]*models.ReservationSnapshot, error) {
	var snapshots []*models.ReservationSnapshot
	err := r.db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ? AND is_active = ?", ownerKind, ownerID, true).
		Order("id ASC").
		Find(&snapshots).Error
	return snapshots, err
}
