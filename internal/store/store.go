// Package store holds the gorm-backed repositories for tours, bookings, blog
// posts, users and site settings.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/explorebd/explorebd-api/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("record already exists")
	ErrSeatTaken  = errors.New("seat already booked")
	ErrValidation = errors.New("validation failed")
)

// nextID returns max(id)+1 for the model's table, or 1 when it is empty.
func nextID(tx *gorm.DB, model any) (uint, error) {
	var max uint
	if err := tx.Model(model).Select("COALESCE(MAX(id), 0)").Scan(&max).Error; err != nil {
		return 0, fmt.Errorf("failed to compute next id: %w", err)
	}
	return max + 1, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func today(now func() time.Time) string {
	return now().Format(models.DateLayout)
}

// Stores bundles every repository over one database handle.
type Stores struct {
	Tours    *TourRepository
	Bookings *BookingRepository
	Blogs    *BlogRepository
	Users    *UserRepository
	Settings *SettingsRepository
}

func New(db *gorm.DB) *Stores {
	return &Stores{
		Tours:    NewTourRepository(db),
		Bookings: NewBookingRepository(db),
		Blogs:    NewBlogRepository(db),
		Users:    NewUserRepository(db),
		Settings: NewSettingsRepository(db),
	}
}
