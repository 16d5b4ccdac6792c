package auth

import (
	"errors"
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
	users    *store.UserRepository
	settings *store.SettingsRepository
	log      zerolog.Logger
}

func NewService(cfg *config.Config, stores *store.Stores, log zerolog.Logger) *Service {
	return &Service{
		config:   cfg,
		users:    stores.Users,
		settings: stores.Settings,
		log:      log,
	}
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	r.POST("/auth/register", s.Register)
	r.POST("/auth/login", s.Login)
	r.GET("/auth/me", auth.Middleware(s.config), s.Me)

	admin := r.Group("/admin/users", auth.Middleware(s.config), auth.RequireRole(s.users, models.RoleAdmin))
	{
		admin.GET("", s.ListUsers)
		admin.PUT("/:id/verify", s.ToggleVerified)
		admin.PUT("/:id/role", s.ChangeRole)
		admin.DELETE("/:id", s.DeleteUser)
	}
}

type userResponse struct {
	ID     uint              `json:"id"`
	Email  string            `json:"email"`
	Name   string            `json:"name"`
	Role   models.Role       `json:"role"`
	Status models.UserStatus `json:"status"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role, Status: u.Status}
}

func (s *Service) Register(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required"`
		Email           string `json:"email" binding:"required,email"`
		Phone           string `json:"phone"`
		Password        string `json:"password" binding:"required,min=6"`
		ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	settings, err := s.settings.Load(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	if !settings.EnableRegistration {
		respond.Error(c, http.StatusForbidden, "Registration is disabled", nil)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	role := settings.DefaultUserRole
	if !role.Valid() || role == models.RoleAdmin {
		role = models.RoleUser
	}
	status := models.UserVerified
	if settings.RequireEmailVerification {
		status = models.UserPending
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: hash,
		Role:     role,
		Status:   status,
	}
	if err := s.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respond.Error(c, http.StatusConflict, "User already exists", nil)
			return
		}
		respond.Error(c, respond.StoreStatus(err), "Failed to create user", err)
		return
	}

	token, err := auth.GenerateToken(s.config, user)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	s.log.Info().Uint("user_id", user.ID).Msg("user registered")
	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  toUserResponse(user),
	})
}

func (s *Service) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	user, err := s.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.Error(c, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "Failed to fetch user", err)
		return
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		respond.Error(c, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	token, err := auth.GenerateToken(s.config, user)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  toUserResponse(user),
	})
}

func (s *Service) Me(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	user, err := s.users.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to fetch user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Service) ListUsers(c *gin.Context) {
	users, err := s.users.List(c.Request.Context(), models.Role(c.Query("role")))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to fetch users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

func (s *Service) ToggleVerified(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid user ID", err)
		return
	}
	user, err := s.users.ToggleVerified(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to update user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Service) ChangeRole(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid user ID", err)
		return
	}
	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	user, err := s.users.ChangeRole(c.Request.Context(), id, req.Role)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to update user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Service) DeleteUser(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid user ID", err)
		return
	}
	if claims, ok := auth.ClaimsFrom(c); ok && claims.UserID == id {
		respond.Error(c, http.StatusBadRequest, "Cannot delete your own account", nil)
		return
	}
	if err := s.users.Delete(c.Request.Context(), id); err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to delete user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted successfully",
	})
}
