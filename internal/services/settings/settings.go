package settings

import (
	"encoding/json"
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
	config   *config.Config
	settings *store.SettingsRepository
	users    *store.UserRepository
	log      zerolog.Logger
}

func NewService(cfg *config.Config, stores *store.Stores, log zerolog.Logger) *Service {
	return &Service{config: cfg, settings: stores.Settings, users: stores.Users, log: log}
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	r.GET("/settings", s.GetPublic)

	admin := r.Group("/admin/settings", auth.Middleware(s.config), auth.RequireRole(s.users, models.RoleAdmin))
	{
		admin.GET("", s.GetAll)
		admin.PUT("", s.Update)
		admin.POST("/reset", s.Reset)
	}
}

func (s *Service) GetPublic(c *gin.Context) {
	settings, err := s.settings.Load(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	c.JSON(http.StatusOK, settings.Public())
}

func (s *Service) GetAll(c *gin.Context) {
	settings, err := s.settings.Load(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// Update merges the posted keys into the stored settings.
func (s *Service) Update(c *gin.Context) {
	var patch map[string]json.RawMessage
	if err := c.ShouldBindJSON(&patch); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	settings, err := s.settings.Update(c.Request.Context(), patch)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to save settings", err)
		return
	}
	s.log.Info().Int("keys", len(patch)).Msg("settings updated")
	c.JSON(http.StatusOK, settings)
}

func (s *Service) Reset(c *gin.Context) {
	defaults := models.DefaultSettings()
	if err := s.settings.Save(c.Request.Context(), defaults); err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to reset settings", err)
		return
	}
	s.log.Info().Msg("settings reset to defaults")
	c.JSON(http.StatusOK, defaults)
}
