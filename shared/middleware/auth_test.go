package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pavitra93/go-property-management/shared/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Organization{}, &models.User{}))
	return db
}

func unsignedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	require.NoError(t, err)
	return token
}

func identityRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		info, err := GetUserInfoFromContext(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	})
	r.GET("/me", handlers...)
	return r
}

func TestRequireAuth_UsesCustomClaims(t *testing.T) {
	am := &AuthMiddleware{db: setupDB(t)}
	orgID := uuid.New()
	r := identityRouter(am.RequireAuth())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+unsignedToken(t, jwt.MapClaims{
		"sub":           "user-1",
		"email":         "owner@example.com",
		"token_use":     "id",
		"custom:org_id": orgID.String(),
		"custom:role":   "owner",
	}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), orgID.String())
	assert.Contains(t, w.Body.String(), `"role":"owner"`)
}

func TestRequireAuth_FallsBackToUsersTable(t *testing.T) {
	db := setupDB(t)
	orgID := uuid.New()
	require.NoError(t, db.Create(&models.User{
		CognitoID: "user-2",
		OrgID:     orgID,
		Email:     "manager@example.com",
		Role:      models.RoleManager,
	}).Error)

	am := &AuthMiddleware{db: db}
	r := identityRouter(am.RequireAuth())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+unsignedToken(t, jwt.MapClaims{
		"sub":       "user-2",
		"token_use": "access",
	}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), orgID.String())
	assert.Contains(t, w.Body.String(), `"role":"manager"`)
	assert.Contains(t, w.Body.String(), "manager@example.com")
}

func TestRequireAuth_Rejects(t *testing.T) {
	am := &AuthMiddleware{db: setupDB(t)}
	r := identityRouter(am.RequireAuth())

	tests := []struct {
		name   string
		header string
	}{
		{"missing token", ""},
		{"garbage token", "Bearer not-a-jwt"},
		{"unknown user", "Bearer " + unsignedToken(t, jwt.MapClaims{"sub": "nobody"})},
		{"bad org", "Bearer " + unsignedToken(t, jwt.MapClaims{
			"sub": "user-3", "custom:org_id": "acme", "custom:role": "owner",
		})},
		{"refresh token", "Bearer " + unsignedToken(t, jwt.MapClaims{
			"sub": "user-4", "token_use": "refresh", "custom:org_id": uuid.NewString(), "custom:role": "owner",
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestTrustGateway(t *testing.T) {
	r := identityRouter(TrustGateway())
	orgID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderOrgID, orgID.String())
	req.Header.Set(HeaderUserID, "user-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"viewer"`)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireWrite(t *testing.T) {
	r := identityRouter(TrustGateway(), RequireWrite())
	orgID := uuid.NewString()

	for role, want := range map[string]int{
		"owner":   http.StatusOK,
		"manager": http.StatusOK,
		"viewer":  http.StatusForbidden,
		"":        http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(HeaderOrgID, orgID)
		req.Header.Set(HeaderUserRole, role)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "role %q", role)
	}
}
