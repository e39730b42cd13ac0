package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func newTestRouter() *gin.Engine { return newLookupRouter(nil) }

func newLookupRouter(lookup AccountLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", JWTAuth(testSecret, time.Hour*72, lookup))
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"email": c.GetString(KeyEmail),
			"sid":   c.GetString(KeySID),
			"admin": c.GetBool(KeyIsAdmin),
		})
	})
	api.GET("/admin", RequireAdmin(lookup), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func call(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newTestRouter()
	tok, err := IssueToken(testSecret, "a@und.edu", "Ada", false, "sid-1", 72*time.Hour)
	require.NoError(t, err)

	w := call(r, "/api/me", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"a@und.edu","sid":"sid-1","admin":false}`, w.Body.String())
	assert.Empty(t, w.Header().Get("X-New-Token"))

	assert.Equal(t, http.StatusUnauthorized, call(r, "/api/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "/api/me", tok+"x").Code)

	other, err := IssueToken([]byte("other"), "a@und.edu", "Ada", true, "sid-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(r, "/api/me", other).Code)
}

func TestJWTRenewsNearExpiry(t *testing.T) {
	r := newTestRouter()
	tok, err := IssueToken(testSecret, "a@und.edu", "Ada", false, "sid-1", time.Hour)
	require.NoError(t, err)

	w := call(r, "/api/me", tok)
	require.Equal(t, http.StatusOK, w.Code)
	fresh := w.Header().Get("X-New-Token")
	require.NotEmpty(t, fresh)

	claims, err := ParseToken(testSecret, fresh)
	require.NoError(t, err)
	assert.Equal(t, "sid-1", claims.SID)
	assert.True(t, time.Until(claims.ExpiresAt.Time) > 48*time.Hour)
}

func TestExpiredToken(t *testing.T) {
	tok, err := IssueToken(testSecret, "a@und.edu", "Ada", false, "sid-1", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(newTestRouter(), "/api/me", tok).Code)
}

func TestRequireAdmin(t *testing.T) {
	r := newTestRouter()
	user, _ := IssueToken(testSecret, "a@und.edu", "Ada", false, "s", 72*time.Hour)
	admin, _ := IssueToken(testSecret, "b@und.edu", "Bo", true, "s", 72*time.Hour)

	assert.Equal(t, http.StatusForbidden, call(r, "/api/admin", user).Code)
	assert.Equal(t, http.StatusNoContent, call(r, "/api/admin", admin).Code)
}

// accounts is an in-memory AccountLookup: email -> admin.
type accounts map[string]bool

func (a accounts) lookup(_ context.Context, email string) (bool, bool, error) {
	admin, ok := a[email]
	return ok, admin, nil
}

func TestRequireAdminChecksCurrentAccount(t *testing.T) {
	acct := accounts{"b@und.edu": true, "c@und.edu": false}
	r := newLookupRouter(acct.lookup)

	boss, _ := IssueToken(testSecret, "b@und.edu", "Bo", true, "s", 72*time.Hour)
	demoted, _ := IssueToken(testSecret, "c@und.edu", "Cy", true, "s", 72*time.Hour)
	gone, _ := IssueToken(testSecret, "d@und.edu", "Di", true, "s", 72*time.Hour)

	assert.Equal(t, http.StatusNoContent, call(r, "/api/admin", boss).Code)
	assert.Equal(t, http.StatusForbidden, call(r, "/api/admin", demoted).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "/api/admin", gone).Code)

	delete(acct, "b@und.edu")
	assert.Equal(t, http.StatusUnauthorized, call(r, "/api/admin", boss).Code)
}

func TestRequireAdminStoreDown(t *testing.T) {
	down := func(context.Context, string) (bool, bool, error) { return false, false, errors.New("db down") }
	admin, _ := IssueToken(testSecret, "b@und.edu", "Bo", true, "s", 72*time.Hour)
	assert.Equal(t, http.StatusServiceUnavailable, call(newLookupRouter(down), "/api/admin", admin).Code)
}

func TestRenewalFollowsAccount(t *testing.T) {
	acct := accounts{"c@und.edu": false}
	r := newLookupRouter(acct.lookup)

	demoted, _ := IssueToken(testSecret, "c@und.edu", "Cy", true, "s", time.Hour)
	w := call(r, "/api/me", demoted)
	require.Equal(t, http.StatusOK, w.Code)
	claims, err := ParseToken(testSecret, w.Header().Get("X-New-Token"))
	require.NoError(t, err)
	assert.False(t, claims.Admin)

	gone, _ := IssueToken(testSecret, "d@und.edu", "Di", false, "s", time.Hour)
	w = call(r, "/api/me", gone)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Get("X-New-Token"))
}
