package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/explorebd/explorebd-api/internal/models"

	"gorm.io/gorm"
)

const DefaultRecentLimit = 5

type BookingRepository struct {
	db *gorm.DB
	mu sync.Mutex
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create commits a booking. It fails with ErrSeatTaken when any selected seat
// is already sold for the same tour and date, and bumps the tour's booking
// counter when the tour still exists.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkSeatsFree(tx, b, b.Date); err != nil {
			return err
		}

		id, err := nextID(tx, &models.Booking{})
		if err != nil {
			return err
		}
		b.ID = id
		if b.Status == "" {
			b.Status = models.BookingPending
		}
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		if err := tx.Model(&models.Tour{}).Where("id = ?", b.TourID).
			UpdateColumn("bookings", gorm.Expr("bookings + ?", 1)).Error; err != nil {
			return fmt.Errorf("failed to update tour bookings: %w", err)
		}
		return nil
	})
}

// Submit lets the repository act as the wizard's booking sink.
func (r *BookingRepository) Submit(ctx context.Context, b *models.Booking) error {
	return r.Create(ctx, b)
}

// bookedSeats collects the seats of live bookings for a departure, ignoring
// the booking with id exclude (0 ignores none).
func bookedSeats(tx *gorm.DB, tourID uint, date string, exclude uint) (map[string]bool, error) {
	var bookings []models.Booking
	q := tx.Select("selected_seats").
		Where("tour_id = ? AND date = ? AND status <> ?", tourID, date, models.BookingCancelled)
	if exclude != 0 {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to load booked seats: %w", err)
	}
	taken := map[string]bool{}
	for _, b := range bookings {
		for _, seat := range b.SelectedSeats {
			taken[seat] = true
		}
	}
	return taken, nil
}

// checkSeatsFree fails with ErrSeatTaken when another live booking of the
// departure on date already sold one of b's seats.
func checkSeatsFree(tx *gorm.DB, b *models.Booking, date string) error {
	taken, err := bookedSeats(tx, b.TourID, date, b.ID)
	if err != nil {
		return err
	}
	var clash []string
	for _, seat := range b.SelectedSeats {
		if taken[seat] {
			clash = append(clash, seat)
		}
	}
	if len(clash) > 0 {
		return fmt.Errorf("%w: %s", ErrSeatTaken, strings.Join(clash, ", "))
	}
	return nil
}

// BookedSeats returns the seats held by non-cancelled bookings of a departure.
func (r *BookingRepository) BookedSeats(ctx context.Context, tourID uint, date string) (map[string]bool, error) {
	return bookedSeats(r.db.WithContext(ctx), tourID, date, 0)
}

func (r *BookingRepository) Get(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *BookingRepository) GetByReference(ctx context.Context, ref string) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.WithContext(ctx).Where("reference = ?", ref).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// List returns bookings newest first, optionally restricted to one status.
func (r *BookingRepository) List(ctx context.Context, status models.BookingStatus) ([]models.Booking, error) {
	q := r.db.WithContext(ctx).Order("booking_date DESC").Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var bookings []models.Booking
	if err := q.Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *BookingRepository) Recent(ctx context.Context, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	var bookings []models.Booking
	if err := r.db.WithContext(ctx).Order("booking_date DESC").Order("id DESC").
		Limit(limit).Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent bookings: %w", err)
	}
	return bookings, nil
}

func (r *BookingRepository) Pending(ctx context.Context) ([]models.Booking, error) {
	return r.List(ctx, models.BookingPending)
}

func (r *BookingRepository) Confirmed(ctx context.Context) ([]models.Booking, error) {
	return r.List(ctx, models.BookingConfirmed)
}

// BookingPatch is the admin-editable subset of a booking.
type BookingPatch struct {
	Status        *models.BookingStatus `json:"status"`
	Notes         *string               `json:"notes"`
	TransactionID *string               `json:"transactionId"`
	Date          *string               `json:"date"`
}

// Update applies patch. Reinstating a cancelled booking or moving it to
// another date re-checks its seats and fails with ErrSeatTaken on overlap.
func (r *BookingRepository) Update(ctx context.Context, id uint, patch BookingPatch) (*models.Booking, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown booking status %q", ErrValidation, *patch.Status)
	}
	if patch.Date != nil {
		if _, err := time.Parse(models.DateLayout, *patch.Date); err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Booking
		if err := tx.First(&b, id).Error; err != nil {
			return notFound(err)
		}

		u := map[string]any{}
		status, date := b.Status, b.Date
		if patch.Status != nil {
			status = *patch.Status
			u["status"] = status
		}
		if patch.Notes != nil {
			u["notes"] = *patch.Notes
		}
		if patch.TransactionID != nil {
			u["transaction_id"] = *patch.TransactionID
		}
		if patch.Date != nil {
			date = *patch.Date
			u["date"] = date
		}
		if len(u) == 0 {
			return nil
		}

		reinstated := b.Status == models.BookingCancelled && status != models.BookingCancelled
		moved := date != b.Date
		if status != models.BookingCancelled && (reinstated || moved) {
			if err := checkSeatsFree(tx, &b, date); err != nil {
				return err
			}
		}

		if err := tx.Model(&b).Updates(u).Error; err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id uint, status models.BookingStatus) (*models.Booking, error) {
	return r.Update(ctx, id, BookingPatch{Status: &status})
}

func (r *BookingRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Booking{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BookingRepository) CountByStatus(ctx context.Context, status models.BookingStatus) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Booking{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return n, nil
}
