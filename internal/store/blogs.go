package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/explorebd/explorebd-api/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MinBlogContentLen = 100
	MaxBlogTags       = 8
	MaxBlogImages     = 5
)

type BlogRepository struct {
	db  *gorm.DB
	mu  sync.Mutex
	now func() time.Time
}

func NewBlogRepository(db *gorm.DB) *BlogRepository {
	return &BlogRepository{db: db, now: time.Now}
}

// NormalizeTags trims and lowercases tags and drops blanks and duplicates,
// keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ValidateSubmission applies the submission form rules.
func ValidateSubmission(p *models.BlogPost) error {
	var problems []string
	if strings.TrimSpace(p.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		problems = append(problems, "category is required")
	}
	if strings.TrimSpace(p.Destination) == "" {
		problems = append(problems, "destination is required")
	}
	if len([]rune(strings.TrimSpace(p.Content))) < MinBlogContentLen {
		problems = append(problems, fmt.Sprintf("content must be at least %d characters", MinBlogContentLen))
	}
	if n := len(p.Tags); n < 1 || n > MaxBlogTags {
		problems = append(problems, fmt.Sprintf("between 1 and %d tags required", MaxBlogTags))
	}
	if len(p.Images) > MaxBlogImages {
		problems = append(problems, fmt.Sprintf("at most %d images", MaxBlogImages))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// readTime estimates minutes at 200 words per minute.
func readTime(content string) string {
	words := len(strings.Fields(content))
	mins := (words + 199) / 200
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("%d min read", mins)
}

func excerpt(content string) string {
	const n = 150
	r := []rune(strings.TrimSpace(content))
	if len(r) <= n {
		return string(r)
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}

// Submit validates and stores a new post. It is published immediately when
// autoApprove is set, otherwise it waits in pending.
func (r *BlogRepository) Submit(ctx context.Context, p *models.BlogPost, autoApprove bool) error {
	p.Tags = datatypes.JSONSlice[string](NormalizeTags(p.Tags))
	if err := ValidateSubmission(p); err != nil {
		return err
	}
	p.Status = models.BlogPending
	p.PublishDate = ""
	if autoApprove {
		p.Status = models.BlogApproved
		p.PublishDate = today(r.now)
	}
	return r.Create(ctx, p)
}

// Create stores p as given, filling the id, dates and derived text fields.
func (r *BlogRepository) Create(ctx context.Context, p *models.BlogPost) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := nextID(tx, &models.BlogPost{})
		if err != nil {
			return err
		}
		p.ID = id
		if p.Images == nil {
			p.Images = datatypes.JSONSlice[string]{}
		}
		if p.Tags == nil {
			p.Tags = datatypes.JSONSlice[string]{}
		}
		p.Likes, p.Comments, p.Views = 0, 0, 0
		p.RejectionReason = ""
		if p.Status == "" {
			p.Status = models.BlogPending
		}
		if p.SubmissionDate == "" {
			p.SubmissionDate = today(r.now)
		}
		if p.Excerpt == "" {
			p.Excerpt = excerpt(p.Content)
		}
		if p.ReadTime == "" {
			p.ReadTime = readTime(p.Content)
		}
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("failed to create blog post: %w", err)
		}
		return nil
	})
}

func (r *BlogRepository) Get(ctx context.Context, id uint) (*models.BlogPost, error) {
	var p models.BlogPost
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// List returns posts newest first, optionally restricted to one status.
func (r *BlogRepository) List(ctx context.Context, status models.BlogStatus) ([]models.BlogPost, error) {
	q := r.db.WithContext(ctx).Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var posts []models.BlogPost
	if err := q.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}
	return posts, nil
}

func (r *BlogRepository) Published(ctx context.Context) ([]models.BlogPost, error) {
	return r.List(ctx, models.BlogApproved)
}

type BlogPatch struct {
	Title       *string   `json:"title"`
	Content     *string   `json:"content"`
	Excerpt     *string   `json:"excerpt"`
	Category    *string   `json:"category"`
	Destination *string   `json:"destination"`
	Images      *[]string `json:"images"`
	Tags        *[]string `json:"tags"`
}

func (r *BlogRepository) Update(ctx context.Context, id uint, patch BlogPatch) (*models.BlogPost, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	u := map[string]any{}
	if patch.Title != nil {
		u["title"] = *patch.Title
	}
	if patch.Content != nil {
		u["content"] = *patch.Content
		u["read_time"] = readTime(*patch.Content)
	}
	if patch.Excerpt != nil {
		u["excerpt"] = *patch.Excerpt
	}
	if patch.Category != nil {
		u["category"] = *patch.Category
	}
	if patch.Destination != nil {
		u["destination"] = *patch.Destination
	}
	if patch.Images != nil {
		if len(*patch.Images) > MaxBlogImages {
			return nil, fmt.Errorf("%w: at most %d images", ErrValidation, MaxBlogImages)
		}
		u["images"] = datatypes.JSONSlice[string](*patch.Images)
	}
	if patch.Tags != nil {
		tags := NormalizeTags(*patch.Tags)
		if len(tags) > MaxBlogTags {
			return nil, fmt.Errorf("%w: at most %d tags", ErrValidation, MaxBlogTags)
		}
		u["tags"] = datatypes.JSONSlice[string](tags)
	}
	if len(u) > 0 {
		if err := r.db.WithContext(ctx).Model(p).Updates(u).Error; err != nil {
			return nil, fmt.Errorf("failed to update blog post: %w", err)
		}
	}
	return r.Get(ctx, id)
}

func (r *BlogRepository) setColumns(ctx context.Context, id uint, u map[string]any) (*models.BlogPost, error) {
	result := r.db.WithContext(ctx).Model(&models.BlogPost{}).Where("id = ?", id).Updates(u)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update blog post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Approve publishes a post today and clears any earlier rejection.
func (r *BlogRepository) Approve(ctx context.Context, id uint) (*models.BlogPost, error) {
	return r.setColumns(ctx, id, map[string]any{
		"status":           models.BlogApproved,
		"publish_date":     today(r.now),
		"rejection_reason": "",
	})
}

func (r *BlogRepository) Reject(ctx context.Context, id uint, reason string) (*models.BlogPost, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrValidation)
	}
	return r.setColumns(ctx, id, map[string]any{
		"status":           models.BlogRejected,
		"rejection_reason": reason,
	})
}

func (r *BlogRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.BlogPost{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete blog post: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.BlogComment{}).Error; err != nil {
			return fmt.Errorf("failed to delete blog comments: %w", err)
		}
		return nil
	})
}

func (r *BlogRepository) bump(ctx context.Context, id uint, column string) (int, error) {
	var value int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.BlogPost{}).Where("id = ?", id).
			UpdateColumn(column, gorm.Expr(column+" + ?", 1))
		if result.Error != nil {
			return fmt.Errorf("failed to increment %s: %w", column, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.BlogPost{}).Select(column).Where("id = ?", id).Scan(&value).Error
	})
	return value, err
}

// Like adds one like and returns the new total.
func (r *BlogRepository) Like(ctx context.Context, id uint) (int, error) {
	return r.bump(ctx, id, "likes")
}

func (r *BlogRepository) IncrementViews(ctx context.Context, id uint) (int, error) {
	return r.bump(ctx, id, "views")
}

// AddComment stores a comment and bumps the post's counter in one transaction.
// A parent comment must belong to the same post.
func (r *BlogRepository) AddComment(ctx context.Context, c *models.BlogComment) error {
	c.Author = strings.TrimSpace(c.Author)
	c.Content = strings.TrimSpace(c.Content)
	if c.Author == "" || c.Content == "" {
		return fmt.Errorf("%w: author and content are required", ErrValidation)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.BlogPost
		if err := tx.Select("id").First(&post, c.PostID).Error; err != nil {
			return notFound(err)
		}
		if c.ParentID != nil {
			var parent models.BlogComment
			if err := tx.Where("id = ? AND post_id = ?", *c.ParentID, c.PostID).First(&parent).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: parent comment not found", ErrValidation)
				}
				return err
			}
		}
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		if err := tx.Model(&models.BlogPost{}).Where("id = ?", c.PostID).
			UpdateColumn("comments", gorm.Expr("comments + ?", 1)).Error; err != nil {
			return fmt.Errorf("failed to update comment count: %w", err)
		}
		return nil
	})
}

func (r *BlogRepository) Comments(ctx context.Context, postID uint) ([]models.BlogComment, error) {
	var comments []models.BlogComment
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("id").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (r *BlogRepository) CountByStatus(ctx context.Context, status models.BlogStatus) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.BlogPost{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count blog posts: %w", err)
	}
	return n, nil
}
