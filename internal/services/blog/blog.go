package blog

import (
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

type Service struct {
	config   *config.Config
	blogs    *store.BlogRepository
	users    *store.UserRepository
	settings *store.SettingsRepository
	log      zerolog.Logger
}

func NewService(cfg *config.Config, stores *store.Stores, log zerolog.Logger) *Service {
	return &Service{
		config:   cfg,
		blogs:    stores.Blogs,
		users:    stores.Users,
		settings: stores.Settings,
		log:      log,
	}
}

func (s *Service) SetupRoutes(r *gin.Engine) {
	r.GET("/blog", s.ListPublished)
	r.GET("/blog/:id", s.GetPost)
	r.POST("/blog", auth.Middleware(s.config), s.SubmitPost)
	r.POST("/blog/:id/like", s.LikePost)
	r.GET("/blog/:id/comments", s.ListComments)
	r.POST("/blog/:id/comments", s.AddComment)

	admin := r.Group("/admin/blogs", auth.Middleware(s.config), auth.RequireRole(s.users, models.RoleAdmin))
	{
		admin.GET("", s.AdminList)
		admin.PUT("/:id", s.UpdatePost)
		admin.PUT("/:id/approve", s.Approve)
		admin.PUT("/:id/reject", s.Reject)
		admin.DELETE("/:id", s.DeletePost)
	}
}

// ListPublished returns approved posts, optionally filtered by category.
func (s *Service) ListPublished(c *gin.Context) {
	posts, err := s.blogs.Published(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to fetch posts", err)
		return
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		filtered := posts[:0]
		for _, p := range posts {
			if strings.EqualFold(p.Category, category) {
				filtered = append(filtered, p)
			}
		}
		posts = filtered
	}
	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"count": len(posts),
	})
}

// publishedPost hides anything not approved from the public surface.
func (s *Service) publishedPost(c *gin.Context) (uint, bool) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid post ID", err)
		return 0, false
	}
	p, err := s.blogs.Get(c.Request.Context(), id)
	if err == nil && p.Status != models.BlogApproved {
		err = store.ErrNotFound
	}
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Post not found", err)
		return 0, false
	}
	return id, true
}

func (s *Service) GetPost(c *gin.Context) {
	id, ok := s.publishedPost(c)
	if !ok {
		return
	}
	if _, err := s.blogs.IncrementViews(c.Request.Context(), id); err != nil {
		s.log.Warn().Err(err).Uint("post_id", id).Msg("failed to count view")
	}
	p, err := s.blogs.Get(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Post not found", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type submission struct {
	Title       string   `json:"title" binding:"required"`
	Content     string   `json:"content" binding:"required"`
	Excerpt     string   `json:"excerpt"`
	Category    string   `json:"category" binding:"required"`
	Destination string   `json:"destination" binding:"required"`
	Images      []string `json:"images"`
	Tags        []string `json:"tags"`
	Draft       bool     `json:"draft"`
}

func (s *Service) SubmitPost(c *gin.Context) {
	var req submission
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	ctx := c.Request.Context()

	settings, err := s.settings.Load(ctx)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to load settings", err)
		return
	}
	if !settings.EnableBlogSubmissions {
		respond.Error(c, http.StatusForbidden, "Blog submissions are disabled", nil)
		return
	}

	claims, _ := auth.ClaimsFrom(c)
	author, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to fetch author", err)
		return
	}

	post := &models.BlogPost{
		Title:       strings.TrimSpace(req.Title),
		Author:      models.Author{Name: author.Name, Email: author.Email, Avatar: author.Avatar},
		Content:     req.Content,
		Excerpt:     strings.TrimSpace(req.Excerpt),
		Category:    strings.TrimSpace(req.Category),
		Destination: strings.TrimSpace(req.Destination),
		Images:      req.Images,
		Tags:        req.Tags,
	}

	if req.Draft {
		post.Status = models.BlogDraft
		post.Tags = store.NormalizeTags(req.Tags)
		err = s.blogs.Create(ctx, post)
	} else {
		err = s.blogs.Submit(ctx, post, settings.AutoApprovePosts)
	}
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to submit post", err)
		return
	}

	s.log.Info().Uint("post_id", post.ID).Str("status", string(post.Status)).Msg("blog post submitted")
	c.JSON(http.StatusCreated, post)
}

func (s *Service) LikePost(c *gin.Context) {
	id, ok := s.publishedPost(c)
	if !ok {
		return
	}
	likes, err := s.blogs.Like(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to like post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":    id,
		"likes": likes,
	})
}

func (s *Service) ListComments(c *gin.Context) {
	id, ok := s.publishedPost(c)
	if !ok {
		return
	}
	comments, err := s.blogs.Comments(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to fetch comments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"count":    len(comments),
	})
}

func (s *Service) AddComment(c *gin.Context) {
	id, ok := s.publishedPost(c)
	if !ok {
		return
	}
	var req struct {
		Author   string `json:"author" binding:"required"`
		Content  string `json:"content" binding:"required"`
		ParentID *uint  `json:"parentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}

	comment := &models.BlogComment{PostID: id, ParentID: req.ParentID, Author: req.Author, Content: req.Content}
	if err := s.blogs.AddComment(c.Request.Context(), comment); err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to add comment", err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (s *Service) AdminList(c *gin.Context) {
	status := models.BlogStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		respond.Error(c, http.StatusBadRequest, "Invalid status filter", nil)
		return
	}
	posts, err := s.blogs.List(c.Request.Context(), status)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "Failed to fetch posts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"count": len(posts),
	})
}

func (s *Service) UpdatePost(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid post ID", err)
		return
	}
	var patch store.BlogPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	p, err := s.blogs.Update(c.Request.Context(), id, patch)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to update post", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Service) Approve(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid post ID", err)
		return
	}
	p, err := s.blogs.Approve(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to approve post", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Service) Reject(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid post ID", err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	p, err := s.blogs.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to reject post", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Service) DeletePost(c *gin.Context) {
	id, err := respond.ID(c, "id")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "Invalid post ID", err)
		return
	}
	if err := s.blogs.Delete(c.Request.Context(), id); err != nil {
		respond.Error(c, respond.StoreStatus(err), "Failed to delete post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Post deleted successfully",
	})
}
