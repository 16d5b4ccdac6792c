package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/explorebd/explorebd-api/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db  *gorm.DB
	mu  sync.Mutex
	now func() time.Time
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create stores a new account. Emails are unique case-insensitively.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = normalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, u.Role)
	}
	if u.Status == "" {
		u.Status = models.UserPending
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", u.Email).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if n > 0 {
			return ErrDuplicate
		}
		id, err := nextID(tx, &models.User{})
		if err != nil {
			return err
		}
		u.ID = id
		if u.JoinDate == "" {
			u.JoinDate = today(r.now)
		}
		if err := tx.Create(u).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context, role models.Role) ([]models.User, error) {
	q := r.db.WithContext(ctx).Order("id")
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) set(ctx context.Context, id uint, column string, value any) (*models.User, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

// ToggleVerified flips a user between verified and pending.
func (r *UserRepository) ToggleVerified(ctx context.Context, id uint) (*models.User, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := models.UserVerified
	if u.Status == models.UserVerified {
		next = models.UserPending
	}
	return r.set(ctx, id, "status", next)
}

func (r *UserRepository) ChangeRole(ctx context.Context, id uint, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	return r.set(ctx, id, "role", role)
}

// IncrementBookings counts a booking against the account with that email, if any.
func (r *UserRepository) IncrementBookings(ctx context.Context, email string) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", normalizeEmail(email)).
		UpdateColumn("total_bookings", gorm.Expr("total_bookings + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("failed to update user bookings: %w", err)
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
