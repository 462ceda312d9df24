package config

import (
	"log"
	"time"

	"biblio-reserve/internal/adapters/persistence/models"
	"biblio-reserve/internal/core/domain"
	"biblio-reserve/internal/pkg/password"

	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}
	if err := s.seedSampleBooks(); err != nil {
		log.Printf("⚠️ Book seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds a default admin user with full permissions
// This is for development/testing only
// In production, create admin through secure process
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("email = ?", "admin@biblio.local").Count(&count)
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := password.Hash("admin123456")
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:        "Administrator",
		Email:       "admin@biblio.local",
		Password:    hashedPassword,
		Permissions: domain.AllPermissions(),
		IsActive:    true,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin user created: %s", admin.Email)
	return nil
}

// seedSampleBooks seeds a handful of books so a fresh dev DB is usable
func (s *Seeder) seedSampleBooks() error {
	var count int64
	s.db.Model(&models.Book{}).Count(&count)
	if count > 0 {
		return nil // Books already present
	}

	books := []models.Book{
		{
			Title:       "The Go Programming Language",
			Author:      "Alan A. A. Donovan",
			Genre:       "Programming",
			PublishDate: time.Date(2015, 10, 26, 0, 0, 0, 0, time.UTC),
			Publisher:   "Addison-Wesley",
			IsAvailable: true,
			IsActive:    true,
		},
		{
			Title:       "Designing Data-Intensive Applications",
			Author:      "Martin Kleppmann",
			Genre:       "Databases",
			PublishDate: time.Date(2017, 3, 16, 0, 0, 0, 0, time.UTC),
			Publisher:   "O'Reilly Media",
			IsAvailable: true,
			IsActive:    true,
		},
		{
			Title:       "Clean Architecture",
			Author:      "Robert C. Martin",
			Genre:       "Software Engineering",
			PublishDate: time.Date(2017, 9, 10, 0, 0, 0, 0, time.UTC),
			Publisher:   "Prentice Hall",
			IsAvailable: true,
			IsActive:    true,
		},
	}

	if err := s.db.Create(&books).Error; err != nil {
		return err
	}

	log.Printf("✅ Seeded %d sample books", len(books))
	return nil
}
