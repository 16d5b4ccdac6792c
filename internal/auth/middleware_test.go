package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/explorebd/explorebd-api/internal/models"
	"github.com/explorebd/explorebd-api/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userMap map[uint]*models.User

func (m userMap) Get(_ context.Context, id uint) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func newRouter(t *testing.T, users userMap) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	admin := r.Group("/admin", Middleware(cfg), RequireRole(users, models.RoleAdmin))
	admin.GET("/ping", func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"email": claims.Email})
	})
	return r
}

func request(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testUsers() userMap {
	return userMap{
		1: {ID: 1, Email: "admin@explorebd.com", Role: models.RoleAdmin},
		2: {ID: 2, Email: "rahul@email.com", Role: models.RoleUser},
	}
}

func TestMiddlewareRoles(t *testing.T) {
	r := newRouter(t, testUsers())
	cfg := testConfig()

	assert.Equal(t, http.StatusUnauthorized, request(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, "Bearer abc").Code)

	userToken, err := GenerateToken(cfg, &models.User{ID: 2, Email: "rahul@email.com", Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(r, "Bearer "+userToken).Code)

	adminToken, err := GenerateToken(cfg, &models.User{ID: 1, Email: "admin@explorebd.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	w := request(r, "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin@explorebd.com")
}

func TestRequireRoleUsesCurrentRole(t *testing.T) {
	users := testUsers()
	r := newRouter(t, users)
	cfg := testConfig()

	adminToken, err := GenerateToken(cfg, users[1])
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, request(r, "Bearer "+adminToken).Code)

	// demoted after the token was issued
	users[1] = &models.User{ID: 1, Email: "admin@explorebd.com", Role: models.RoleUser}
	assert.Equal(t, http.StatusForbidden, request(r, "Bearer "+adminToken).Code)

	// promoted after the token was issued
	userToken, err := GenerateToken(cfg, users[2])
	require.NoError(t, err)
	users[2] = &models.User{ID: 2, Email: "rahul@email.com", Role: models.RoleAdmin}
	assert.Equal(t, http.StatusOK, request(r, "Bearer "+userToken).Code)

	delete(users, 1)
	assert.Equal(t, http.StatusUnauthorized, request(r, "Bearer "+adminToken).Code)
}
