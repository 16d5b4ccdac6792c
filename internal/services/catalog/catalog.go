package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/explorebd/explorebd-api/internal/auth"
	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/explorebd/explorebd-api/internal/models"
	"github.com/explorebd/explorebd-api/internal/services/respond"
	"github.com/explorebd/explorebd-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const MinDescriptionLen = 50

// Searcher is the full-text index. Without one, search falls back to the database.
type Searcher interface {
	Search(ctx context.Context, term, location string) ([]models.TourDocument, error)
	IndexTour(ctx context.Context, doc *models.TourDocument) error
	DeleteTour(ctx context.Context, id uint) error
}

type Service struct {
	config   *config.Config
	tours    *store.TourRepository
	users    *store.UserRepository
	searcher Searcher
	log      zerolog.Logger
}

func NewService(cfg *config.Config, stores *store.Stores, searcher Searcher, log zerolog.Logger) *Service {
	return &Service{
		config:   cfg,
		tours:    stores.Tours,
		users:    stores.Users,
		searcher: searcher,
		log:      log,
	}
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	r.GET("/tours", s.ListTours)
	r.GET("/tours/search", s.SearchTours)
	r.GET("/tours/:id", s.GetTour)

	admin := r.Group("/admin/tours", auth.Middleware(s.config), auth.RequireRole(s.users, models.RoleAdmin))
	{
		admin.GET("", s.AdminListTours)
		admin.POST("", s.CreateTour)
		admin.PUT("/:id", s.UpdateTour)
		admin.DELETE("/:id", s.DeleteTour)
	}
}

func (s *Service) ListTours(c *gin.Context) {
	tours, err := s.tours.Active(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to fetch tours", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tours": tours,
		"count": len(tours),
	})
}

// GetTour only exposes active tours publicly.
func (s *Service) GetTour(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid tour ID", err)
		return
	}
	tour, err := s.tours.Get(c.Request.Context(), id)
	if err == nil && tour.Status != models.TourActive {
		err = store.ErrNotFound
	}
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Tour not found", err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

func (s *Service) SearchTours(c *gin.Context) {
	term := c.Query("term")
	location := c.Query("location")
	ctx := c.Request.Context()

	if s.searcher != nil {
		docs, err := s.searcher.Search(ctx, term, location)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{
				"tours":  docs,
				"count":  len(docs),
				"source": "index",
			})
			return
		}
		s.log.Warn().Err(err).Msg("search index unavailable, falling back to database")
	}

	tours, err := s.tours.Search(ctx, term, location)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Search failed", err)
		return
	}
	docs := make([]models.TourDocument, len(tours))
	for i := range tours {
		docs[i] = *models.NewTourDocument(&tours[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"tours":  docs,
		"count":  len(docs),
		"source": "database",
	})
}

func (s *Service) AdminListTours(c *gin.Context) {
	status := models.TourStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		respond.Error(c, http.StatusBadRequest, "Invalid status filter", nil)
		return
	}
	tours, err := s.tours.List(c.Request.Context(), status)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to fetch tours", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tours": tours,
		"count": len(tours),
	})
}

type tourRequest struct {
	Name            string            `json:"name" binding:"required"`
	Location        string            `json:"location" binding:"required"`
	Destination     string            `json:"destination" binding:"required"`
	Duration        string            `json:"duration" binding:"required"`
	MaxParticipants int               `json:"maxParticipants" binding:"gt=0"`
	Price           int64             `json:"price" binding:"gt=0"`
	Status          models.TourStatus `json:"status"`
	Image           string            `json:"image"`
	Description     string            `json:"description" binding:"required"`
	Highlights      []string          `json:"highlights" binding:"required,min=1,dive,required"`
	Includes        []string          `json:"includes" binding:"required,min=1,dive,required"`
}

func (r *tourRequest) validate() error {
	if len([]rune(strings.TrimSpace(r.Description))) < MinDescriptionLen {
		return fmt.Errorf("%w: description must be at least %d characters", store.ErrValidation, MinDescriptionLen)
	}
	if r.Status != "" && !r.Status.Valid() {
		return fmt.Errorf("%w: unknown tour status %q", store.ErrValidation, r.Status)
	}
	return nil
}

func (s *Service) CreateTour(c *gin.Context) {
	var req tourRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	if err := req.validate(); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	tour := &models.Tour{
		Name:            strings.TrimSpace(req.Name),
		Location:        strings.TrimSpace(req.Location),
		Destination:     strings.TrimSpace(req.Destination),
		Duration:        strings.TrimSpace(req.Duration),
		MaxParticipants: req.MaxParticipants,
		Price:           req.Price,
		Status:          req.Status,
		Image:           req.Image,
		Description:     strings.TrimSpace(req.Description),
		Highlights:      req.Highlights,
		Includes:        req.Includes,
	}
	if err := s.tours.Create(c.Request.Context(), tour); err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to create tour", err)
		return
	}

	s.reindex(c.Request.Context(), tour)
	s.log.Info().Uint("tour_id", tour.ID).Msg("tour created")
	c.JSON(http.StatusCreated, tour)
}

func (s *Service) UpdateTour(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid tour ID", err)
		return
	}
	var patch store.TourPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	if err := validatePatch(patch); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	tour, err := s.tours.Update(c.Request.Context(), id, patch)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to update tour", err)
		return
	}
	s.reindex(c.Request.Context(), tour)
	c.JSON(http.StatusOK, tour)
}

func validatePatch(p store.TourPatch) error {
	switch {
	case p.Price != nil && *p.Price <= 0:
		return fmt.Errorf("%w: price must be positive", store.ErrValidation)
	case p.MaxParticipants != nil && *p.MaxParticipants <= 0:
		return fmt.Errorf("%w: maxParticipants must be positive", store.ErrValidation)
	case p.Description != nil && len([]rune(strings.TrimSpace(*p.Description))) < MinDescriptionLen:
		return fmt.Errorf("%w: description must be at least %d characters", store.ErrValidation, MinDescriptionLen)
	case p.Highlights != nil && len(*p.Highlights) == 0:
		return fmt.Errorf("%w: at least one highlight is required", store.ErrValidation)
	case p.Includes != nil && len(*p.Includes) == 0:
		return fmt.Errorf("%w: at least one include is required", store.ErrValidation)
	}
	return nil
}

func (s *Service) DeleteTour(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid tour ID", err)
		return
	}
	if err := s.tours.Delete(c.Request.Context(), id); err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to delete tour", err)
		return
	}
	if s.searcher != nil {
		if err := s.searcher.DeleteTour(c.Request.Context(), id); err != nil {
			s.log.Warn().Err(err).Uint("tour_id", id).Msg("failed to remove tour from index")
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Tour deleted successfully",
	})
}

// reindex pushes the tour to the index right away; the indexer's periodic
// sync repairs anything missed here.
func (s *Service) reindex(ctx context.Context, tour *models.Tour) {
	if s.searcher == nil {
		return
	}
	if err := s.searcher.IndexTour(ctx, models.NewTourDocument(tour)); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn().Err(err).Uint("tour_id", tour.ID).Msg("failed to index tour")
	}
}
