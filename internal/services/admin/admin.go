package admin

import (
	"context"
	"net/http"

	"github.com/explorebd/explorebd-api/internal/auth"
	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/explorebd/explorebd-api/internal/models"
	"github.com/explorebd/explorebd-api/internal/services/respond"
	"github.com/explorebd/explorebd-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Service struct {
	config *config.Config
	stores *store.Stores
	log    zerolog.Logger
}

func NewService(cfg *config.Config, stores *store.Stores, log zerolog.Logger) *Service {
	return &Service{config: cfg, stores: stores, log: log}
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	admin := r.Group("/admin", auth.Middleware(s.config), auth.RequireRole(s.stores.Users, models.RoleAdmin))
	admin.GET("/dashboard", s.Dashboard)
}

// Dashboard is the overview shown on the admin landing page. Booking and
// revenue totals come from the per-tour counters.
type Dashboard struct {
	TotalBookings   int              `json:"totalBookings"`
	TotalRevenue    int64            `json:"totalRevenue"`
	ActiveTours     int              `json:"activeTours"`
	TotalTours      int              `json:"totalTours"`
	PendingBlogs    int64            `json:"pendingBlogs"`
	PendingBookings int64            `json:"pendingBookings"`
	TotalUsers      int64            `json:"totalUsers"`
	RecentBookings  []models.Booking `json:"recentBookings"`
}

func Summarize(tours []models.Tour) (bookings int, revenue int64, active int) {
	for _, t := range tours {
		bookings += t.Bookings
		revenue += t.Price * int64(t.Bookings)
		if t.Status == models.TourActive {
			active++
		}
	}
	return bookings, revenue, active
}

func (s *Service) Build(ctx context.Context) (*Dashboard, error) {
	tours, err := s.stores.Tours.List(ctx, "")
	if err != nil {
		return nil, err
	}
	d := &Dashboard{TotalTours: len(tours)}
	d.TotalBookings, d.TotalRevenue, d.ActiveTours = Summarize(tours)

	if d.PendingBlogs, err = s.stores.Blogs.CountByStatus(ctx, models.BlogPending); err != nil {
		return nil, err
	}
	if d.PendingBookings, err = s.stores.Bookings.CountByStatus(ctx, models.BookingPending); err != nil {
		return nil, err
	}
	if d.TotalUsers, err = s.stores.Users.Count(ctx); err != nil {
		return nil, err
	}
	if d.RecentBookings, err = s.stores.Bookings.Recent(ctx, store.DefaultRecentLimit); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Dashboard(c *gin.Context) {
	d, err := s.Build(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to build dashboard", err)
		return
	}
	c.JSON(http.StatusOK, d)
}
