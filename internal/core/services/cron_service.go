package services

import (
	"context"
	"log"

	"biblio-reserve/internal/adapters/persistence/repositories"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CronService runs scheduled maintenance jobs
type CronService struct {
	cron             *cron.Cron
	refreshTokenRepo repositories.RefreshTokenRepository
}

// NewCronService creates a new cron service
func NewCronService(db *gorm.DB) *CronService {
	return &CronService{
		cron:             cron.New(),
		refreshTokenRepo: repositories.NewRefreshTokenRepository(db),
	}
}

// Start schedules and launches all jobs
func (s *CronService) Start() {
	// Purge expired refresh tokens daily at 03:30
	s.cron.AddFunc("30 3 * * *", s.purgeExpiredTokens)

	s.cron.Start()
	log.Println("🚀 CronService started")
}

// Stop stops the scheduler, waiting for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 CronService stopped")
}

func (s *CronService) purgeExpiredTokens() {
	deleted, err := s.refreshTokenRepo.DeleteExpired(context.Background())
	if err != nil {
		log.Printf("❌ Token cleanup error: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("🗑️ Purged %d expired refresh tokens", deleted)
	}
}
