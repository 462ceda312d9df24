package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Users & Permissions
// ============================================================

// PermissionList stores a user's permission strings as a JSON text column
type PermissionList []string

// Value implements driver.Valuer
func (p PermissionList) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (p *PermissionList) Scan(value interface{}) error {
	if value == nil {
		*p = PermissionList{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("unsupported type for PermissionList")
	}
}

// Has checks whether the list contains a permission
func (p PermissionList) Has(permission string) bool {
	for _, perm := range p {
		if perm == permission {
			return true
		}
	}
	return false
}

// User represents users table
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"size:100;not null" json:"name"`
	Email       string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password    string         `gorm:"size:255;not null" json:"-"`
	Permissions PermissionList `gorm:"type:text" json:"-"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO — password, permissions and the soft-delete flag never leave the API
type UserResponse struct {
	ID                 uint                   `json:"id"`
	Name               string                 `json:"name"`
	Email              string                 `json:"email"`
	ReservationHistory []*ReservationResponse `json:"reservation_history"`
	CreatedAt          time.Time              `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		ReservationHistory: []*ReservationResponse{},
		CreatedAt:          u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Catalog
// ============================================================

// Book represents books table
type Book struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Author      string    `gorm:"size:100;not null" json:"author"`
	Genre       string    `gorm:"size:50" json:"genre"`
	PublishDate time.Time `gorm:"type:date" json:"publish_date"`
	Publisher   string    `gorm:"size:100" json:"publisher"`
	IsAvailable bool      `gorm:"default:true" json:"is_available"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// BookResponse DTO
type BookResponse struct {
	ID                 uint                   `json:"id"`
	Title              string                 `json:"title"`
	Author             string                 `json:"author"`
	Genre              string                 `json:"genre,omitempty"`
	PublishDate        time.Time              `json:"publish_date"`
	Publisher          string                 `json:"publisher,omitempty"`
	IsAvailable        bool                   `json:"is_available"`
	ReservationHistory []*ReservationResponse `json:"reservation_history"`
	CreatedAt          time.Time              `json:"created_at"`
}

func (b *Book) ToResponse() *BookResponse {
	return &BookResponse{
		ID:                 b.ID,
		Title:              b.Title,
		Author:             b.Author,
		Genre:              b.Genre,
		PublishDate:        b.PublishDate,
		Publisher:          b.Publisher,
		IsAvailable:        b.IsAvailable,
		ReservationHistory: []*ReservationResponse{},
		CreatedAt:          b.CreatedAt,
	}
}

// ============================================================
// Reservations (canonical record)
// ============================================================

// Reservation represents reservations table — the canonical loan record
type Reservation struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	UserName        string     `gorm:"size:100;not null" json:"user_name"`
	BookID          uint       `gorm:"not null;index" json:"book_id"`
	BookName        string     `gorm:"size:200;not null" json:"book_name"`
	ReservationDate time.Time  `gorm:"not null" json:"reservation_date"`
	ReturnDate      *time.Time `json:"return_date"`
	IsActive        bool       `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"-"`
	Book *Book `gorm:"foreignKey:BookID" json:"-"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// IsReturned reports whether the loan is closed
func (r *Reservation) IsReturned() bool {
	return r.ReturnDate != nil
}

// ReservationResponse DTO — the soft-delete flag is kept internal for filtering only
type ReservationResponse struct {
	ID              uint       `json:"id"`
	UserID          uint       `json:"user_id"`
	UserName        string     `json:"user_name"`
	BookID          uint       `json:"book_id"`
	BookName        string     `json:"book_name"`
	ReservationDate time.Time  `json:"reservation_date"`
	ReturnDate      *time.Time `json:"return_date"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (r *Reservation) ToResponse() *ReservationResponse {
	return &ReservationResponse{
		ID:              r.ID,
		UserID:          r.UserID,
		UserName:        r.UserName,
		BookID:          r.BookID,
		BookName:        r.BookName,
		ReservationDate: r.ReservationDate,
		ReturnDate:      r.ReturnDate,
		CreatedAt:       r.CreatedAt,
	}
}

// ============================================================
// Reservation history projection
// ============================================================

// Snapshot owner kinds
const (
	OwnerBook = "BOOK"
	OwnerUser = "USER"
)

// ReservationSnapshot is a denormalized copy of a reservation kept per owning
// aggregate (one row for the book's history, one for the user's). Rows are
// never removed; soft-deleted entries are filtered out at read time.
type ReservationSnapshot struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	OwnerKind       string     `gorm:"size:10;not null;uniqueIndex:idx_owner_reservation;index:idx_owner" json:"owner_kind"`
	OwnerID         uint       `gorm:"not null;index:idx_owner" json:"owner_id"`
	ReservationID   uint       `gorm:"not null;uniqueIndex:idx_owner_reservation" json:"reservation_id"`
	UserID          uint       `gorm:"not null" json:"user_id"`
	UserName        string     `gorm:"size:100;not null" json:"user_name"`
	BookID          uint       `gorm:"not null" json:"book_id"`
	BookName        string     `gorm:"size:200;not null" json:"book_name"`
	ReservationDate time.Time  `gorm:"not null" json:"reservation_date"`
	ReturnDate      *time.Time `json:"return_date"`
	IsActive        bool       `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (ReservationSnapshot) TableName() string {
	return "reservation_snapshots"
}

func (s *ReservationSnapshot) ToResponse() *ReservationResponse {
	return &ReservationResponse{
		ID:              s.ReservationID,
		UserID:          s.UserID,
		UserName:        s.UserName,
		BookID:          s.BookID,
		BookName:        s.BookName,
		ReservationDate: s.ReservationDate,
		ReturnDate:      s.ReturnDate,
		CreatedAt:       s.CreatedAt,
	}
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&Book{},
		&Reservation{},
		&ReservationSnapshot{},
	)
}
