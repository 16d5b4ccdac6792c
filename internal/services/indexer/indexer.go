// Package indexer keeps the tour search index in step with the database.
// A background worker re-indexes tours changed since its previous pass and
// the HTTP routes allow forcing a full or single-tour sync.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/explorebd/explorebd-api/internal/models"
	"github.com/explorebd/explorebd-api/internal/services/respond"
	"github.com/explorebd/explorebd-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Index interface {
	IndexTour(ctx context.Context, doc *models.TourDocument) error
	DeleteTour(ctx context.Context, id uint) error
}

type Service struct {
	tours *store.TourRepository
	index Index
	log   zerolog.Logger
	now   func() time.Time

	mu       sync.Mutex
	lastSync time.Time
}

func NewService(stores *store.Stores, index Index, log zerolog.Logger) *Service {
	return &Service{
		tours: stores.Tours,
		index: index,
		log:   log,
		now:   time.Now,
	}
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	r.POST("/indexer/sync-tour/:id", s.SyncTour)
	r.POST("/indexer/sync-all", s.SyncAll)
	r.GET("/health", s.HealthCheck)
}

func (s *Service) SyncTour(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid tour ID", err)
		return
	}

	if err := s.SyncTourByID(c.Request.Context(), id); err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to sync tour", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tour synced successfully"})
}

func (s *Service) SyncAll(c *gin.Context) {
	n, err := s.SyncAllTours(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to sync tours", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All tours synced successfully", "indexed": n})
}

func (s *Service) HealthCheck(c *gin.Context) {
	s.mu.Lock()
	last := s.lastSync
	s.mu.Unlock()

	body := gin.H{"status": "healthy", "service": "indexer"}
	if !last.IsZero() {
		body["lastSync"] = last.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, body)
}

// SyncTourByID indexes one tour, or drops it from the index if it no longer exists.
func (s *Service) SyncTourByID(ctx context.Context, id uint) error {
	tour, err := s.tours.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return s.index.DeleteTour(ctx, id)
	}
	if err != nil {
		return err
	}
	return s.index.IndexTour(ctx, models.NewTourDocument(tour))
}

// SyncAllTours indexes every tour and reports how many were written.
// A tour that fails to index is logged and skipped.
func (s *Service) SyncAllTours(ctx context.Context) (int, error) {
	started := s.now()
	tours, err := s.tours.List(ctx, "")
	if err != nil {
		return 0, err
	}
	n := s.indexAll(ctx, tours)

	s.mu.Lock()
	s.lastSync = started
	s.mu.Unlock()
	return n, nil
}

func (s *Service) indexAll(ctx context.Context, tours []models.Tour) int {
	n := 0
	for i := range tours {
		if err := s.index.IndexTour(ctx, models.NewTourDocument(&tours[i])); err != nil {
			s.log.Error().Err(err).Uint("tour_id", tours[i].ID).Msg("failed to index tour")
			continue
		}
		n++
	}
	return n
}

// StartWorker syncs changed tours every interval until ctx is cancelled.
// The first pass indexes everything.
func (s *Service) StartWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Msg("index worker started")
	if err := s.syncRecentChanges(ctx); err != nil {
		s.log.Error().Err(err).Msg("index sync failed")
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("index worker stopped")
			return
		case <-ticker.C:
			if err := s.syncRecentChanges(ctx); err != nil {
				s.log.Error().Err(err).Msg("index sync failed")
			}
		}
	}
}

// syncRecentChanges re-indexes tours updated since the previous pass.
func (s *Service) syncRecentChanges(ctx context.Context) error {
	s.mu.Lock()
	cutoff := s.lastSync
	s.mu.Unlock()

	started := s.now()
	tours, err := s.tours.UpdatedSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to fetch changed tours: %w", err)
	}
	n := s.indexAll(ctx, tours)
	if n > 0 {
		s.log.Info().Int("count", n).Msg("synced changed tours")
	}

	s.mu.Lock()
	s.lastSync = started
	s.mu.Unlock()
	return nil
}
