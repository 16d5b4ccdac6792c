package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/explorebd/explorebd-api/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TourRepository struct {
	db  *gorm.DB
	mu  sync.Mutex
	now func() time.Time
}

func NewTourRepository(db *gorm.DB) *TourRepository {
	return &TourRepository{db: db, now: time.Now}
}

// TourPatch carries the fields of a shallow update; nil fields are left alone.
type TourPatch struct {
	Name            *string            `json:"name"`
	Location        *string            `json:"location"`
	Destination     *string            `json:"destination"`
	Duration        *string            `json:"duration"`
	MaxParticipants *int               `json:"maxParticipants"`
	Price           *int64             `json:"price"`
	Rating          *float64           `json:"rating"`
	Status          *models.TourStatus `json:"status"`
	Image           *string            `json:"image"`
	Description     *string            `json:"description"`
	Highlights      *[]string          `json:"highlights"`
	Includes        *[]string          `json:"includes"`
}

func (p TourPatch) updates() map[string]any {
	u := map[string]any{}
	if p.Name != nil {
		u["name"] = *p.Name
	}
	if p.Location != nil {
		u["location"] = *p.Location
	}
	if p.Destination != nil {
		u["destination"] = *p.Destination
	}
	if p.Duration != nil {
		u["duration"] = *p.Duration
	}
	if p.MaxParticipants != nil {
		u["max_participants"] = *p.MaxParticipants
	}
	if p.Price != nil {
		u["price"] = *p.Price
	}
	if p.Rating != nil {
		u["rating"] = *p.Rating
	}
	if p.Status != nil {
		u["status"] = *p.Status
	}
	if p.Image != nil {
		u["image"] = *p.Image
	}
	if p.Description != nil {
		u["description"] = *p.Description
	}
	if p.Highlights != nil {
		u["highlights"] = datatypes.JSONSlice[string](*p.Highlights)
	}
	if p.Includes != nil {
		u["includes"] = datatypes.JSONSlice[string](*p.Includes)
	}
	return u
}

// Create assigns the next id and resets rating, bookings and createdDate.
func (r *TourRepository) Create(ctx context.Context, tour *models.Tour) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := nextID(tx, &models.Tour{})
		if err != nil {
			return err
		}
		tour.ID = id
		tour.Rating = 0
		tour.Bookings = 0
		tour.CreatedDate = today(r.now)
		if tour.Status == "" {
			tour.Status = models.TourDraft
		}
		if err := tx.Create(tour).Error; err != nil {
			return fmt.Errorf("failed to create tour: %w", err)
		}
		return nil
	})
}

func (r *TourRepository) Get(ctx context.Context, id uint) (*models.Tour, error) {
	var tour models.Tour
	if err := r.db.WithContext(ctx).First(&tour, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &tour, nil
}

// List returns tours ordered by id, optionally restricted to one status.
func (r *TourRepository) List(ctx context.Context, status models.TourStatus) ([]models.Tour, error) {
	q := r.db.WithContext(ctx).Order("id")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var tours []models.Tour
	if err := q.Find(&tours).Error; err != nil {
		return nil, fmt.Errorf("failed to list tours: %w", err)
	}
	return tours, nil
}

func (r *TourRepository) Active(ctx context.Context) ([]models.Tour, error) {
	return r.List(ctx, models.TourActive)
}

// Search is the database fallback for free-text tour search over active tours.
func (r *TourRepository) Search(ctx context.Context, term, location string) ([]models.Tour, error) {
	q := r.db.WithContext(ctx).Where("status = ?", models.TourActive).Order("id")
	if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
		like := "%" + term + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(destination) LIKE ?", like, like, like)
	}
	if location = strings.ToLower(strings.TrimSpace(location)); location != "" {
		like := "%" + location + "%"
		q = q.Where("LOWER(location) LIKE ? OR LOWER(destination) LIKE ?", like, like)
	}
	var tours []models.Tour
	if err := q.Find(&tours).Error; err != nil {
		return nil, fmt.Errorf("failed to search tours: %w", err)
	}
	return tours, nil
}

// UpdatedSince lists tours touched after cutoff.
func (r *TourRepository) UpdatedSince(ctx context.Context, cutoff time.Time) ([]models.Tour, error) {
	var tours []models.Tour
	if err := r.db.WithContext(ctx).Where("updated_at > ?", cutoff).Order("id").Find(&tours).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch recent tours: %w", err)
	}
	return tours, nil
}

func (r *TourRepository) Update(ctx context.Context, id uint, patch TourPatch) (*models.Tour, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown tour status %q", ErrValidation, *patch.Status)
	}

	tour, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u := patch.updates(); len(u) > 0 {
		if err := r.db.WithContext(ctx).Model(tour).Updates(u).Error; err != nil {
			return nil, fmt.Errorf("failed to update tour: %w", err)
		}
	}
	return r.Get(ctx, id)
}

func (r *TourRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Tour{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete tour: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
