// Package testutil provides throwaway databases and Redis servers for tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/explorebd/explorebd-api/internal/auth"
	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/explorebd/explorebd-api/internal/models"
	"github.com/explorebd/explorebd-api/internal/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database. A single connection is
// kept open since every new connection would see an empty database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// NewRedis starts a miniredis server and a client pointed at it.
func NewRedis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&config.Config{RedisHost: mr.Host(), RedisPort: mr.Port()})
	t.Cleanup(func() { c.Close() })
	return c, mr
}

// Config returns settings suited to handler tests: no payment delay, derived
// seat maps and uploads under a temporary directory.
func Config(t testing.TB) *config.Config {
	t.Helper()
	return &config.Config{
		JWTSecret:              "test-secret",
		JWTExpiry:              time.Hour,
		DraftTTL:               30 * time.Minute,
		SeatMapMode:            "derived",
		SeatMapOpenPct:         0.7,
		MockPaymentSuccessRate: 1,
		UploadDir:              t.TempDir(),
		LogLevel:               "disabled",
	}
}

// Token signs a bearer token for u.
func Token(t testing.TB, cfg *config.Config, u *models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(cfg, u)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// AdminToken stores an admin account through users and signs a token for it.
func AdminToken(t testing.TB, cfg *config.Config, users interface {
	Create(ctx context.Context, u *models.User) error
}) string {
	t.Helper()
	admin := &models.User{Name: "Admin", Email: "admin@explorebd.com", Password: "x", Role: models.RoleAdmin}
	if err := users.Create(context.Background(), admin); err != nil {
		t.Fatalf("failed to create admin: %v", err)
	}
	return Token(t, cfg, admin)
}

// Do sends body as JSON, with a bearer token when one is given.
func Do(h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Decode unmarshals a recorded JSON response into v.
func Decode(t testing.TB, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
}

func Router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
