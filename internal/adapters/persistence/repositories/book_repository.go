package repositories

import (
	"context"

	"biblio-reserve/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// BookRepository handles book data access
type BookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

// WithTx returns a copy bound to the given transaction handle
func (r *BookRepository) WithTx(tx *gorm.DB) *BookRepository {
	return &BookRepository{db: tx}
}

// Create creates a new book
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// GetByID gets a book by ID; inactive books are excluded unless requested
func (r *BookRepository) GetByID(ctx context.Context, id uint, includeInactive bool) (*models.Book, error) {
	query := r.db.WithContext(ctx).Where("id = ?", id)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var book models.Book
	if err := query.First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// BookFilter represents list filter criteria
type BookFilter struct {
	Title  string
	Author string
	Genre  string
}

// List lists books with pagination
func (r *BookRepository) List(ctx context.Context, filter *BookFilter, includeInactive bool, offset, limit int) ([]*models.Book, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Book{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter != nil {
		if filter.Title != "" {
			query = query.Where("title LIKE ?", "%"+filter.Title+"%")
		}
		if filter.Author != "" {
			query = query.Where("author = ?", filter.Author)
		}
		if filter.Genre != "" {
			query = query.Where("genre = ?", filter.Genre)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var books []*models.Book
	if err := query.Order("created_at ASC").Offset(offset).Limit(limit).Find(&books).Error; err != nil {
		return nil, 0, err
	}

	return books, total, nil
}

// Update updates a book
func (r *BookRepository) Update(ctx context.Context, book *models.Book) error {
	return r.db.WithContext(ctx).Save(book).Error
}

// SoftDelete marks an active book inactive. Zero affected rows means the book
// was missing or already deleted.
func (r *BookRepository) SoftDelete(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

// Reserve atomically claims an available, active book. The conditional update
// is what serializes concurrent reservation attempts: only one transaction can
// flip is_available from true to false.
func (r *BookRepository) Reserve(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND is_active = ? AND is_available = ?", id, true, true).
		Update("is_available", false)
	return result.RowsAffected > 0, result.Error
}

// Release makes a book available again after a return. Zero affected rows
// means the book row no longer exists.
func (r *BookRepository) Release(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ?", id).
		Update("is_available", true)
	return result.RowsAffected > 0, result.Error
}

// ExistsByID checks whether a book row exists at all, active or not
func (r *BookRepository) ExistsByID(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Book{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
